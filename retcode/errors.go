package retcode

import (
	"fmt"

	"github.com/pkg/errors"
)

// FrameworkError is the typed error every framework return code maps to.
// It carries the numeric code across the process boundary (via RetCode)
// and, for codec/transport failures, wraps the underlying cause so
// errors.Cause/%+v recovers the original stack trace.
type FrameworkError struct {
	Code Code
	Msg  string
	Err  error
}

// New builds a FrameworkError with no wrapped cause.
func New(code Code, msg string) *FrameworkError {
	return &FrameworkError{Code: code, Msg: msg}
}

// Wrap builds a FrameworkError that wraps cause, attaching a stack trace
// recorded at this call.
func Wrap(code Code, cause error, msg string) *FrameworkError {
	if cause == nil {
		return New(code, msg)
	}
	return &FrameworkError{Code: code, Msg: msg, Err: errors.WithStack(cause)}
}

func (e *FrameworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (code=%d %s): %s", e.Msg, e.Code, e.Code, e.Err)
	}
	return fmt.Sprintf("%s (code=%d %s)", e.Msg, e.Code, e.Code)
}

func (e *FrameworkError) Unwrap() error {
	return e.Err
}

// RetCode returns the numeric framework return code, for callers that need
// to place it on the wire (response FrameHead.Ret, StreamCloseFrame.Ret)
// without string-matching the error.
func (e *FrameworkError) RetCode() int32 {
	return int32(e.Code)
}

// FromWire normalizes a (ret, msg) pair read off the wire into a
// FrameworkError. A zero ret is surfaced as StreamUnknown (with a default
// message when msg is empty) — a RESET carrying an all-zero code is
// meaningless as a success signal, so it must not be silently dropped.
// Any nonzero ret is kept as is, including values not in the known table.
func FromWire(ret int32, msg string) *FrameworkError {
	code := Code(ret)
	if ret == 0 {
		code = StreamUnknown
		if msg == "" {
			msg = "reset with no error code"
		}
	}
	return New(code, msg)
}
