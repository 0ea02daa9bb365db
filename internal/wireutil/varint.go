package wireutil

import (
	"github.com/gogo/protobuf/proto"
	"github.com/pkg/errors"
)

// Wire types for the tagged varint encoding used by the variable header
// blocks (request/response FrameHead, and the four streaming metadata
// blocks). The encoding is deliberately small: a tag varint followed by
// either a bare varint value or a length-delimited blob, exactly like
// protobuf's wire format, built directly on top of gogo/protobuf's varint
// primitives rather than generated .pb.go code — the variable header is
// internal framing, not a message exchanged with user code, so hand-rolled,
// pooled structs fit it better than a generated marshaler.
const (
	WireVarint = 0
	WireBytes  = 2
)

// ErrTruncated is returned when a tagged field cannot be fully read.
var ErrTruncated = errors.New("wireutil: truncated field")

// AppendTag appends a (field<<3|wireType) tag varint to dst.
func AppendTag(dst []byte, field int, wireType int) []byte {
	return append(dst, proto.EncodeVarint(uint64(field)<<3|uint64(wireType))...)
}

// AppendVarintField appends a tagged varint field.
func AppendVarintField(dst []byte, field int, v uint64) []byte {
	dst = AppendTag(dst, field, WireVarint)
	return append(dst, proto.EncodeVarint(v)...)
}

// AppendBytesField appends a tagged length-delimited field.
func AppendBytesField(dst []byte, field int, b []byte) []byte {
	dst = AppendTag(dst, field, WireBytes)
	dst = append(dst, proto.EncodeVarint(uint64(len(b)))...)
	return append(dst, b...)
}

// AppendStringField appends a tagged length-delimited string field.
func AppendStringField(dst []byte, field int, s string) []byte {
	return AppendBytesField(dst, field, []byte(s))
}

// ReadTag reads a tag varint from the front of b, returning the field
// number, wire type, and the remaining bytes.
func ReadTag(b []byte) (field int, wireType int, rest []byte, err error) {
	v, n := proto.DecodeVarint(b)
	if n == 0 {
		return 0, 0, b, ErrTruncated
	}
	return int(v >> 3), int(v & 0x7), b[n:], nil
}

// ReadVarint reads a bare varint value from the front of b.
func ReadVarint(b []byte) (v uint64, rest []byte, err error) {
	v, n := proto.DecodeVarint(b)
	if n == 0 {
		return 0, b, ErrTruncated
	}
	return v, b[n:], nil
}

// ReadBytes reads a length-prefixed byte blob from the front of b.
func ReadBytes(b []byte) (val []byte, rest []byte, err error) {
	length, n := proto.DecodeVarint(b)
	if n == 0 {
		return nil, b, ErrTruncated
	}
	b = b[n:]
	if uint64(len(b)) < length {
		return nil, b, ErrTruncated
	}
	return b[:length], b[length:], nil
}

// ReadString reads a length-prefixed string from the front of b.
func ReadString(b []byte) (val string, rest []byte, err error) {
	bs, rest, err := ReadBytes(b)
	if err != nil {
		return "", rest, err
	}
	return string(bs), rest, nil
}

// SkipField skips over a field's value given its wire type, without
// decoding it. Used for forward-compatibility when unknown field numbers
// are encountered.
func SkipField(wireType int, b []byte) (rest []byte, err error) {
	switch wireType {
	case WireVarint:
		_, rest, err = ReadVarint(b)
	case WireBytes:
		_, rest, err = ReadBytes(b)
	default:
		err = errors.Errorf("wireutil: unknown wire type %d", wireType)
	}
	return rest, err
}
