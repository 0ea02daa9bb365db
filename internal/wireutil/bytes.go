// Package wireutil holds the fixed-width big-endian byte helpers shared by
// the fixed header codec and the message codec. Nothing here is specific to
// the tRPC wire format; it is the same bit-twiddling every frame-oriented
// protocol in this tree needs, kept in one place so the codec packages read
// like framing logic instead of byte-shuffling.
package wireutil

// PutUint16 writes n into b[0:2] in network byte order.
func PutUint16(b []byte, n uint16) {
	_ = b[1] // bound check hint
	b[0] = byte(n >> 8)
	b[1] = byte(n)
}

// Uint16 reads a big-endian uint16 from b[0:2].
func Uint16(b []byte) uint16 {
	_ = b[1]
	return uint16(b[0])<<8 | uint16(b[1])
}

// PutUint32 writes n into b[0:4] in network byte order.
func PutUint32(b []byte, n uint32) {
	_ = b[3]
	b[0] = byte(n >> 24)
	b[1] = byte(n >> 16)
	b[2] = byte(n >> 8)
	b[3] = byte(n)
}

// Uint32 reads a big-endian uint32 from b[0:4].
func Uint32(b []byte) uint32 {
	_ = b[3]
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// AppendUint16 appends the big-endian encoding of n to dst.
func AppendUint16(dst []byte, n uint16) []byte {
	return append(dst, byte(n>>8), byte(n))
}

// AppendUint32 appends the big-endian encoding of n to dst.
func AppendUint32(dst []byte, n uint32) []byte {
	return append(dst, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
}

// Resize grows b (reusing spare capacity) so that len(b) == neededLen.
func Resize(b []byte, neededLen int) []byte {
	b = b[:cap(b)]
	if n := neededLen - len(b); n > 0 {
		b = append(b, make([]byte, n)...)
	}
	return b[:neededLen]
}
