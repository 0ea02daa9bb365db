package codec

import "trpc.group/trpc-go/trpc-core/internal/wireutil"

// StreamFeedbackFrame grants the peer additional send-window credit.
type StreamFeedbackFrame struct {
	StreamID        uint32
	WindowIncrement uint32
}

// Encode builds the full wire frame for f.
func (f *StreamFeedbackFrame) Encode() ([]byte, error) {
	var meta []byte
	meta = wireutil.AppendVarintField(meta, fieldWindowIncrement, uint64(f.WindowIncrement))

	fh := FixedHeader{
		DataFrameType:   DataFrameStream,
		StreamFrameType: StreamFrameFeedback,
		StreamID:        f.StreamID,
		PBHeaderSize:    uint16(len(meta)),
		DataFrameSize:   uint32(FixedHeaderSize + len(meta)),
	}
	buf := make([]byte, FixedHeaderSize, fh.DataFrameSize)
	fh.Encode(buf)
	return append(buf, meta...), nil
}

// Decode reverses Encode.
func (f *StreamFeedbackFrame) Decode(buf []byte) error {
	var fh FixedHeader
	if err := fh.Decode(buf); err != nil {
		return NewDecodeError(err)
	}
	if !fh.IsStream() || fh.StreamFrameType != StreamFrameFeedback {
		return NewDecodeError(ErrFrameTypeMismatch)
	}
	if !fh.ValidSize(0) || uint32(len(buf)) < fh.DataFrameSize {
		return NewDecodeError(ErrShortBuffer)
	}

	metaEnd := FixedHeaderSize + int(fh.PBHeaderSize)
	if metaEnd > len(buf) {
		return NewDecodeError(ErrShortBuffer)
	}

	f.StreamID = fh.StreamID
	f.WindowIncrement = 0
	b := buf[FixedHeaderSize:metaEnd]
	for len(b) > 0 {
		field, wireType, rest, err := wireutil.ReadTag(b)
		if err != nil {
			return NewDecodeError(err)
		}
		b = rest
		if field == fieldWindowIncrement {
			var v uint64
			v, b, err = wireutil.ReadVarint(b)
			f.WindowIncrement = uint32(v)
		} else {
			b, err = wireutil.SkipField(wireType, b)
		}
		if err != nil {
			return NewDecodeError(err)
		}
	}
	return nil
}
