package codec

import "trpc.group/trpc-go/trpc-core/internal/wireutil"

// StreamInitFrame carries INIT metadata: the client's open request, or the
// server's reply (success, or error + message) to it.
type StreamInitFrame struct {
	StreamID          uint32
	Caller            string
	Callee            string
	Func              string
	MessageType       uint32
	ContentType       uint8
	ContentEncoding   uint8
	InitialWindowSize uint32
	TransInfo         map[string][]byte

	// Ret and ErrorMsg carry the server's response status on an INIT
	// reply; zero-value on the client's opening INIT.
	Ret      int32
	ErrorMsg string
}

func (f *StreamInitFrame) metaBytes() []byte {
	var b []byte
	b = wireutil.AppendStringField(b, fieldCaller, f.Caller)
	b = wireutil.AppendStringField(b, fieldCallee, f.Callee)
	b = wireutil.AppendStringField(b, fieldFunc, f.Func)
	b = wireutil.AppendVarintField(b, fieldMessageType, uint64(f.MessageType))
	b = wireutil.AppendVarintField(b, fieldContentType, uint64(f.ContentType))
	b = wireutil.AppendVarintField(b, fieldContentEncoding, uint64(f.ContentEncoding))
	b = wireutil.AppendVarintField(b, fieldInitWindowSize, uint64(f.InitialWindowSize))
	b = wireutil.AppendVarintField(b, fieldRet, uint64(uint32(f.Ret)))
	b = wireutil.AppendStringField(b, fieldErrorMsg, f.ErrorMsg)
	b = appendTransInfo(b, f.TransInfo)
	return b
}

// Encode builds the full wire frame for f.
func (f *StreamInitFrame) Encode() ([]byte, error) {
	meta := f.metaBytes()
	fh := FixedHeader{
		DataFrameType:   DataFrameStream,
		StreamFrameType: StreamFrameInit,
		StreamID:        f.StreamID,
		PBHeaderSize:    uint16(len(meta)),
		DataFrameSize:   uint32(FixedHeaderSize + len(meta)),
	}
	buf := make([]byte, FixedHeaderSize, fh.DataFrameSize)
	fh.Encode(buf)
	return append(buf, meta...), nil
}

// Decode reverses Encode.
func (f *StreamInitFrame) Decode(buf []byte) error {
	var fh FixedHeader
	if err := fh.Decode(buf); err != nil {
		return NewDecodeError(err)
	}
	if !fh.IsStream() || fh.StreamFrameType != StreamFrameInit {
		return NewDecodeError(ErrFrameTypeMismatch)
	}
	if !fh.ValidSize(0) || uint32(len(buf)) < fh.DataFrameSize {
		return NewDecodeError(ErrShortBuffer)
	}

	metaEnd := FixedHeaderSize + int(fh.PBHeaderSize)
	if metaEnd > len(buf) {
		return NewDecodeError(ErrShortBuffer)
	}

	*f = StreamInitFrame{StreamID: fh.StreamID}
	b := buf[FixedHeaderSize:metaEnd]
	for len(b) > 0 {
		field, wireType, rest, err := wireutil.ReadTag(b)
		if err != nil {
			return NewDecodeError(err)
		}
		b = rest
		switch field {
		case fieldCaller:
			f.Caller, b, err = readStr(b)
		case fieldCallee:
			f.Callee, b, err = readStr(b)
		case fieldFunc:
			f.Func, b, err = readStr(b)
		case fieldMessageType:
			var v uint64
			v, b, err = wireutil.ReadVarint(b)
			f.MessageType = uint32(v)
		case fieldContentType:
			var v uint64
			v, b, err = wireutil.ReadVarint(b)
			f.ContentType = uint8(v)
		case fieldContentEncoding:
			var v uint64
			v, b, err = wireutil.ReadVarint(b)
			f.ContentEncoding = uint8(v)
		case fieldInitWindowSize:
			var v uint64
			v, b, err = wireutil.ReadVarint(b)
			f.InitialWindowSize = uint32(v)
		case fieldRet:
			var v uint64
			v, b, err = wireutil.ReadVarint(b)
			f.Ret = int32(uint32(v))
		case fieldErrorMsg:
			f.ErrorMsg, b, err = readStr(b)
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

func readStr(b []byte) (string, []byte, error) {
	return wireutil.ReadString(b)
}
