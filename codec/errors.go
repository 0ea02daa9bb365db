package codec

import "github.com/pkg/errors"

// ErrFrameTypeMismatch is raised when a streaming frame's decoder is
// called against a buffer whose data_frame_type/stream_frame_type do not
// match the concrete variant being decoded.
var ErrFrameTypeMismatch = errors.New("codec: frame type mismatch")

// ErrShortBuffer is returned when a buffer is too small to contain the
// layout its own size fields describe.
var ErrShortBuffer = errors.New("codec: short buffer")

// DecodeError wraps a lower-level decode failure, carrying a pkg/errors
// stack trace along with the original cause.
type DecodeError struct {
	cause error
}

// NewDecodeError wraps cause as a DecodeError, attaching a stack trace
// recorded at this call.
func NewDecodeError(cause error) *DecodeError {
	return &DecodeError{cause: errors.WithStack(cause)}
}

func (e *DecodeError) Error() string {
	return "codec: decode failed: " + e.cause.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.cause
}
