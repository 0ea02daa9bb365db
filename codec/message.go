package codec

import (
	"github.com/pkg/errors"

	"trpc.group/trpc-go/trpc-core/internal/wireutil"
)

// Field numbers for the tagged variable-header encoding. Shared across
// unary and streaming metadata blocks. Each encoder writes every field of
// its own block, zero values included (FrameHead.Encode writes Ret on a
// request too), and never writes fields that belong only to other blocks.
const (
	fieldVersion         = 1
	fieldCallType        = 2
	fieldRequestID       = 3
	fieldTimeoutMs       = 4
	fieldCaller          = 5
	fieldCallee          = 6
	fieldFunc            = 7
	fieldMessageType     = 8
	fieldContentType     = 9
	fieldContentEncoding = 10
	fieldRet             = 11
	fieldFuncRet         = 12
	fieldErrorMsg        = 13
	fieldAttachmentSize  = 14
	fieldTransInfoEntry  = 15
	fieldInitWindowSize  = 16
	fieldWindowIncrement = 17
	fieldCloseType       = 18
)

// FrameHead is the variable header carried by unary request and response
// messages.
type FrameHead struct {
	Version         uint8
	CallType        uint8
	RequestID       uint32
	TimeoutMs       uint32
	Caller          string
	Callee          string
	Func            string
	MessageType     uint32
	ContentType     uint8
	ContentEncoding uint8
	// Ret, FuncRet and ErrorMsg are populated on responses only; a request
	// always encodes them as their zero value.
	Ret            int32
	FuncRet        int32
	ErrorMsg       string
	AttachmentSize uint32
	TransInfo      map[string][]byte
}

func appendTransInfo(dst []byte, info map[string][]byte) []byte {
	for k, v := range info {
		var entry []byte
		entry = wireutil.AppendBytesField(entry, 1, []byte(k))
		entry = wireutil.AppendBytesField(entry, 2, v)
		dst = wireutil.AppendBytesField(dst, fieldTransInfoEntry, entry)
	}
	return dst
}

func readTransInfoEntry(b []byte) (key string, val []byte, err error) {
	field, _, rest, err := wireutil.ReadTag(b)
	if err != nil || field != 1 {
		return "", nil, errors.Wrap(ErrShortBuffer, "trans_info key")
	}
	k, rest, err := wireutil.ReadString(rest)
	if err != nil {
		return "", nil, err
	}
	field, _, rest, err = wireutil.ReadTag(rest)
	if err != nil || field != 2 {
		return "", nil, errors.Wrap(ErrShortBuffer, "trans_info value")
	}
	v, _, err := wireutil.ReadBytes(rest)
	if err != nil {
		return "", nil, err
	}
	return k, append([]byte(nil), v...), nil
}

// Encode serializes h as the tagged variable-header encoding.
func (h *FrameHead) Encode() []byte {
	var b []byte
	b = wireutil.AppendVarintField(b, fieldVersion, uint64(h.Version))
	b = wireutil.AppendVarintField(b, fieldCallType, uint64(h.CallType))
	b = wireutil.AppendVarintField(b, fieldRequestID, uint64(h.RequestID))
	b = wireutil.AppendVarintField(b, fieldTimeoutMs, uint64(h.TimeoutMs))
	b = wireutil.AppendStringField(b, fieldCaller, h.Caller)
	b = wireutil.AppendStringField(b, fieldCallee, h.Callee)
	b = wireutil.AppendStringField(b, fieldFunc, h.Func)
	b = wireutil.AppendVarintField(b, fieldMessageType, uint64(h.MessageType))
	b = wireutil.AppendVarintField(b, fieldContentType, uint64(h.ContentType))
	b = wireutil.AppendVarintField(b, fieldContentEncoding, uint64(h.ContentEncoding))
	b = wireutil.AppendVarintField(b, fieldRet, uint64(uint32(h.Ret)))
	b = wireutil.AppendVarintField(b, fieldFuncRet, uint64(uint32(h.FuncRet)))
	b = wireutil.AppendStringField(b, fieldErrorMsg, h.ErrorMsg)
	b = wireutil.AppendVarintField(b, fieldAttachmentSize, uint64(h.AttachmentSize))
	b = appendTransInfo(b, h.TransInfo)
	return b
}

// Decode parses a tagged variable-header blob into h.
func (h *FrameHead) Decode(b []byte) error {
	*h = FrameHead{}
	for len(b) > 0 {
		field, wireType, rest, err := wireutil.ReadTag(b)
		if err != nil {
			return errors.Wrap(err, "frame head tag")
		}
		b = rest

		switch field {
		case fieldVersion:
			v, rest, err := wireutil.ReadVarint(b)
			h.Version, b = uint8(v), rest
			if err != nil {
				return err
			}
		case fieldCallType:
			v, rest, err := wireutil.ReadVarint(b)
			h.CallType, b = uint8(v), rest
			if err != nil {
				return err
			}
		case fieldRequestID:
			v, rest, err := wireutil.ReadVarint(b)
			h.RequestID, b = uint32(v), rest
			if err != nil {
				return err
			}
		case fieldTimeoutMs:
			v, rest, err := wireutil.ReadVarint(b)
			h.TimeoutMs, b = uint32(v), rest
			if err != nil {
				return err
			}
		case fieldCaller:
			s, rest, err := wireutil.ReadString(b)
			h.Caller, b = s, rest
			if err != nil {
				return err
			}
		case fieldCallee:
			s, rest, err := wireutil.ReadString(b)
			h.Callee, b = s, rest
			if err != nil {
				return err
			}
		case fieldFunc:
			s, rest, err := wireutil.ReadString(b)
			h.Func, b = s, rest
			if err != nil {
				return err
			}
		case fieldMessageType:
			v, rest, err := wireutil.ReadVarint(b)
			h.MessageType, b = uint32(v), rest
			if err != nil {
				return err
			}
		case fieldContentType:
			v, rest, err := wireutil.ReadVarint(b)
			h.ContentType, b = uint8(v), rest
			if err != nil {
				return err
			}
		case fieldContentEncoding:
			v, rest, err := wireutil.ReadVarint(b)
			h.ContentEncoding, b = uint8(v), rest
			if err != nil {
				return err
			}
		case fieldRet:
			v, rest, err := wireutil.ReadVarint(b)
			h.Ret, b = int32(uint32(v)), rest
			if err != nil {
				return err
			}
		case fieldFuncRet:
			v, rest, err := wireutil.ReadVarint(b)
			h.FuncRet, b = int32(uint32(v)), rest
			if err != nil {
				return err
			}
		case fieldErrorMsg:
			s, rest, err := wireutil.ReadString(b)
			h.ErrorMsg, b = s, rest
			if err != nil {
				return err
			}
		case fieldAttachmentSize:
			v, rest, err := wireutil.ReadVarint(b)
			h.AttachmentSize, b = uint32(v), rest
			if err != nil {
				return err
			}
		case fieldTransInfoEntry:
			entry, rest, err := wireutil.ReadBytes(b)
			b = rest
			if err != nil {
				return err
			}
			k, v, err := readTransInfoEntry(entry)
			if err != nil {
				return err
			}
			if h.TransInfo == nil {
				h.TransInfo = make(map[string][]byte)
			}
			h.TransInfo[k] = v
		default:
			b, err = wireutil.SkipField(wireType, b)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// UnaryMessage is the shared shape of request and response messages: a
// FrameHead, a serialized body, and an optional attachment.
type UnaryMessage struct {
	Head       FrameHead
	Body       []byte
	Attachment []byte
}

// Encode builds the full wire frame: fixed header, FrameHead, body, and
// attachment, in that order.
func (m *UnaryMessage) Encode() ([]byte, error) {
	m.Head.AttachmentSize = uint32(len(m.Attachment))
	head := m.Head.Encode()

	fh := FixedHeader{
		DataFrameType:   DataFrameUnary,
		StreamFrameType: StreamFrameUnary,
		PBHeaderSize:    uint16(len(head)),
		DataFrameSize:   uint32(FixedHeaderSize + len(head) + len(m.Body) + len(m.Attachment)),
	}

	buf := make([]byte, FixedHeaderSize, fh.DataFrameSize)
	fh.Encode(buf)
	buf = append(buf, head...)
	buf = append(buf, m.Body...)
	buf = append(buf, m.Attachment...)
	return buf, nil
}

// Decode reverses Encode, validating that the size fields describe a
// layout that fits inside buf.
func (m *UnaryMessage) Decode(buf []byte) error {
	var fh FixedHeader
	if err := fh.Decode(buf); err != nil {
		return NewDecodeError(err)
	}
	if fh.IsStream() || fh.StreamFrameType != StreamFrameUnary {
		return NewDecodeError(ErrFrameTypeMismatch)
	}
	if !fh.ValidSize(0) || uint32(len(buf)) < fh.DataFrameSize {
		return NewDecodeError(ErrShortBuffer)
	}

	headEnd := FixedHeaderSize + int(fh.PBHeaderSize)
	if headEnd > len(buf) {
		return NewDecodeError(ErrShortBuffer)
	}
	if err := m.Head.Decode(buf[FixedHeaderSize:headEnd]); err != nil {
		return NewDecodeError(err)
	}

	rest := buf[headEnd:fh.DataFrameSize]
	attSize := int(m.Head.AttachmentSize)
	if attSize > len(rest) {
		return NewDecodeError(ErrShortBuffer)
	}
	bodyEnd := len(rest) - attSize
	m.Body = append(m.Body[:0], rest[:bodyEnd]...)
	m.Attachment = append(m.Attachment[:0], rest[bodyEnd:]...)
	return nil
}
