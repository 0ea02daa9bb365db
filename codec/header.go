package codec

import (
	"github.com/pkg/errors"

	"trpc.group/trpc-go/trpc-core/internal/wireutil"
)

// ErrBadMagic is returned when a fixed header's magic field does not match
// Magic.
var ErrBadMagic = errors.New("codec: bad magic")

// FixedHeader is the 16-byte prefix that begins every tRPC frame.
//
// The two reserved bytes have no field here: Encode always writes them as
// zero and Decode ignores them, so a nonzero reserved field is not an error
// (future protocol revisions may claim it).
type FixedHeader struct {
	DataFrameType   DataFrameType
	StreamFrameType StreamFrameType
	DataFrameSize   uint32
	PBHeaderSize    uint16
	StreamID        uint32
}

// Encode writes the 16-byte wire representation of h into dst, which must
// be at least FixedHeaderSize bytes long, and returns the number of bytes
// written (always FixedHeaderSize).
func (h *FixedHeader) Encode(dst []byte) int {
	_ = dst[FixedHeaderSize-1] // bound check hint, mirrors the reference codec's frame header encoder
	wireutil.PutUint16(dst[0:2], Magic)
	dst[2] = byte(h.DataFrameType)
	dst[3] = byte(h.StreamFrameType)
	wireutil.PutUint32(dst[4:8], h.DataFrameSize)
	wireutil.PutUint16(dst[8:10], h.PBHeaderSize)
	wireutil.PutUint32(dst[10:14], h.StreamID)
	dst[14] = 0
	dst[15] = 0
	return FixedHeaderSize
}

// Decode reads a FixedHeader from the first FixedHeaderSize bytes of src.
// It validates the magic field only; size-relation invariants
// (data_frame_size >= 16+pb_header_size, data_frame_size <= max packet
// size) are the frame checker's responsibility, since the checker is the
// only place that knows the connection's negotiated maximum.
func (h *FixedHeader) Decode(src []byte) error {
	if len(src) < FixedHeaderSize {
		return errors.Wrapf(ErrTruncatedHeader, "need %d bytes, got %d", FixedHeaderSize, len(src))
	}

	if magic := wireutil.Uint16(src[0:2]); magic != Magic {
		return errors.Wrapf(ErrBadMagic, "got 0x%04X", magic)
	}

	h.DataFrameType = DataFrameType(src[2])
	h.StreamFrameType = StreamFrameType(src[3])
	h.DataFrameSize = wireutil.Uint32(src[4:8])
	h.PBHeaderSize = wireutil.Uint16(src[8:10])
	h.StreamID = wireutil.Uint32(src[10:14])
	return nil
}

// ErrTruncatedHeader is returned when fewer than FixedHeaderSize bytes are
// available to decode.
var ErrTruncatedHeader = errors.New("codec: truncated fixed header")

// ValidSize reports whether h's size fields describe a plausible frame: at
// least the fixed header plus its own variable header, and no larger than
// maxPacketSize (0 disables the upper bound, meaning "unbounded").
func (h *FixedHeader) ValidSize(maxPacketSize uint32) bool {
	min := uint32(FixedHeaderSize) + uint32(h.PBHeaderSize)
	if h.DataFrameSize < min {
		return false
	}
	if maxPacketSize != 0 && h.DataFrameSize > maxPacketSize {
		return false
	}
	return true
}

// IsStream reports whether the frame belongs to the streaming subsystem.
func (h *FixedHeader) IsStream() bool {
	return h.DataFrameType == DataFrameStream
}
