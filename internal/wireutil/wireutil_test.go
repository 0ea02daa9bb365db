package wireutil

import (
	"testing"

	"github.com/gogo/protobuf/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUint16RoundTrip(t *testing.T) {
	b := make([]byte, 2)
	PutUint16(b, 0x930B)
	assert.Equal(t, uint16(0x930B), Uint16(b))
}

func TestUint32RoundTrip(t *testing.T) {
	b := make([]byte, 4)
	PutUint32(b, 0xDEADBEEF)
	assert.Equal(t, uint32(0xDEADBEEF), Uint32(b))
}

func TestAppendUint32(t *testing.T) {
	got := AppendUint32(nil, 116)
	assert.Equal(t, []byte{0, 0, 0, 116}, got)
}

func TestResizeGrowsAndShrinks(t *testing.T) {
	b := make([]byte, 0, 8)
	b = Resize(b, 4)
	assert.Len(t, b, 4)
	b = Resize(b, 2)
	assert.Len(t, b, 2)
}

func TestVarintFieldRoundTrip(t *testing.T) {
	var buf []byte
	buf = AppendVarintField(buf, 3, 100)

	field, wireType, rest, err := ReadTag(buf)
	require.NoError(t, err)
	assert.Equal(t, 3, field)
	assert.Equal(t, WireVarint, wireType)

	v, rest, err := ReadVarint(rest)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), v)
	assert.Empty(t, rest)
}

func TestStringFieldRoundTrip(t *testing.T) {
	var buf []byte
	buf = AppendStringField(buf, 5, "trpc.test.helloworld.Greeter")

	field, wireType, rest, err := ReadTag(buf)
	require.NoError(t, err)
	assert.Equal(t, 5, field)
	assert.Equal(t, WireBytes, wireType)

	s, rest, err := ReadString(rest)
	require.NoError(t, err)
	assert.Equal(t, "trpc.test.helloworld.Greeter", s)
	assert.Empty(t, rest)
}

func TestReadTagTruncated(t *testing.T) {
	_, _, _, err := ReadTag(nil)
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestReadBytesTruncated(t *testing.T) {
	_, _, err := ReadVarint(nil)
	assert.Error(t, err)

	// length says 10 bytes follow, but none do.
	buf := proto.EncodeVarint(10)
	_, _, err = ReadBytes(buf)
	assert.Error(t, err)
}
