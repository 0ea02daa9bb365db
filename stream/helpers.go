package stream

import "trpc.group/trpc-go/trpc-core/retcode"

// clientInitError turns a nonzero framework return code observed on an
// INIT reply or a CLOSE frame into the typed error the stream surfaces to
// its caller.
func clientInitError(ret int32, errMsg string) error {
	return retcode.FromWire(ret, errMsg)
}

// retcodeOf extracts the numeric framework code from cause, defaulting to
// StreamUnknown for errors that didn't originate from this package.
func retcodeOf(cause error) int32 {
	if cause == nil {
		return 0
	}
	if fe, ok := cause.(*retcode.FrameworkError); ok {
		return fe.RetCode()
	}
	return int32(retcode.StreamUnknown)
}

// causeMsg extracts a human-readable message from cause.
func causeMsg(cause error) string {
	if cause == nil {
		return ""
	}
	return cause.Error()
}
