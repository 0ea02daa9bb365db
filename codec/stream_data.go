package codec

// StreamDataFrame carries a raw DATA payload. Unlike every other frame
// variant it has no variable header at all — pb_header_size is always 0 —
// so its body begins immediately after the fixed header.
type StreamDataFrame struct {
	StreamID uint32
	Payload  []byte
}

// Encode builds the full wire frame for f.
func (f *StreamDataFrame) Encode() ([]byte, error) {
	fh := FixedHeader{
		DataFrameType:   DataFrameStream,
		StreamFrameType: StreamFrameData,
		StreamID:        f.StreamID,
		PBHeaderSize:    0,
		DataFrameSize:   uint32(FixedHeaderSize + len(f.Payload)),
	}
	buf := make([]byte, FixedHeaderSize, fh.DataFrameSize)
	fh.Encode(buf)
	return append(buf, f.Payload...), nil
}

// Decode reverses Encode.
func (f *StreamDataFrame) Decode(buf []byte) error {
	var fh FixedHeader
	if err := fh.Decode(buf); err != nil {
		return NewDecodeError(err)
	}
	if !fh.IsStream() || fh.StreamFrameType != StreamFrameData {
		return NewDecodeError(ErrFrameTypeMismatch)
	}
	if !fh.ValidSize(0) || uint32(len(buf)) < fh.DataFrameSize {
		return NewDecodeError(ErrShortBuffer)
	}

	f.StreamID = fh.StreamID
	f.Payload = append(f.Payload[:0], buf[FixedHeaderSize:fh.DataFrameSize]...)
	return nil
}
