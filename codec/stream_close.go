package codec

import "trpc.group/trpc-go/trpc-core/internal/wireutil"

// StreamCloseFrame terminates a stream, either gracefully (CloseTypeClose)
// or abruptly (CloseTypeReset).
type StreamCloseFrame struct {
	StreamID  uint32
	CloseType CloseType
	Ret       int32
	FuncRet   int32
	Msg       string
	TransInfo map[string][]byte
}

func (f *StreamCloseFrame) metaBytes() []byte {
	var b []byte
	b = wireutil.AppendVarintField(b, fieldCloseType, uint64(f.CloseType))
	b = wireutil.AppendVarintField(b, fieldRet, uint64(uint32(f.Ret)))
	b = wireutil.AppendVarintField(b, fieldFuncRet, uint64(uint32(f.FuncRet)))
	b = wireutil.AppendStringField(b, fieldErrorMsg, f.Msg)
	b = appendTransInfo(b, f.TransInfo)
	return b
}

// Encode builds the full wire frame for f.
func (f *StreamCloseFrame) Encode() ([]byte, error) {
	meta := f.metaBytes()
	fh := FixedHeader{
		DataFrameType:   DataFrameStream,
		StreamFrameType: StreamFrameClose,
		StreamID:        f.StreamID,
		PBHeaderSize:    uint16(len(meta)),
		DataFrameSize:   uint32(FixedHeaderSize + len(meta)),
	}
	buf := make([]byte, FixedHeaderSize, fh.DataFrameSize)
	fh.Encode(buf)
	return append(buf, meta...), nil
}

// Decode reverses Encode.
func (f *StreamCloseFrame) Decode(buf []byte) error {
	var fh FixedHeader
	if err := fh.Decode(buf); err != nil {
		return NewDecodeError(err)
	}
	if !fh.IsStream() || fh.StreamFrameType != StreamFrameClose {
		return NewDecodeError(ErrFrameTypeMismatch)
	}
	if !fh.ValidSize(0) || uint32(len(buf)) < fh.DataFrameSize {
		return NewDecodeError(ErrShortBuffer)
	}

	metaEnd := FixedHeaderSize + int(fh.PBHeaderSize)
	if metaEnd > len(buf) {
		return NewDecodeError(ErrShortBuffer)
	}

	*f = StreamCloseFrame{StreamID: fh.StreamID}
	b := buf[FixedHeaderSize:metaEnd]
	for len(b) > 0 {
		field, wireType, rest, err := wireutil.ReadTag(b)
		if err != nil {
			return NewDecodeError(err)
		}
		b = rest
		switch field {
		case fieldCloseType:
			var v uint64
			v, b, err = wireutil.ReadVarint(b)
			f.CloseType = CloseType(v)
		case fieldRet:
			var v uint64
			v, b, err = wireutil.ReadVarint(b)
			f.Ret = int32(uint32(v))
		case fieldFuncRet:
			var v uint64
			v, b, err = wireutil.ReadVarint(b)
			f.FuncRet = int32(uint32(v))
		case fieldErrorMsg:
			f.Msg, b, err = readStr(b)
		case fieldTransInfoEntry:
			var entry []byte
			entry, b, err = wireutil.ReadBytes(b)
			if err == nil {
				var k string
				var v []byte
				k, v, err = readTransInfoEntry(entry)
				if err == nil {
					if f.TransInfo == nil {
						f.TransInfo = make(map[string][]byte)
					}
					f.TransInfo[k] = v
				}
			}
		default:
			b, err = wireutil.SkipField(wireType, b)
		}
		if err != nil {
			return NewDecodeError(err)
		}
	}
	return nil
}
