package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/bytebufferpool"
)

func encodeDataFrame(t *testing.T, streamID uint32, payload string) []byte {
	t.Helper()
	f := &StreamDataFrame{StreamID: streamID, Payload: []byte(payload)}
	buf, err := f.Encode()
	require.NoError(t, err)
	return buf
}

func TestCheckTruncatedIsLess(t *testing.T) {
	full := encodeDataFrame(t, 1, "hello")
	buf := bytes.NewBuffer(full[:10])

	out := make(chan *bytebufferpool.ByteBuffer, 8)
	result, err := Check(buf, 0, out)

	require.NoError(t, err)
	assert.Equal(t, ResultLess, result)
	assert.Equal(t, 10, buf.Len())
	assert.Empty(t, out)
}

func TestCheckBadMagic(t *testing.T) {
	full := encodeDataFrame(t, 1, "hello")
	full[0], full[1] = 0x00, 0x00
	buf := bytes.NewBuffer(full)

	out := make(chan *bytebufferpool.ByteBuffer, 8)
	result, err := Check(buf, 0, out)

	assert.Error(t, err)
	assert.Equal(t, ResultErr, result)
	assert.Equal(t, len(full), buf.Len(), "buffer must be left untouched on error")
}

func TestCheckEnqueuesExactlyNFrames(t *testing.T) {
	var all bytes.Buffer
	const n = 5
	for i := 0; i < n; i++ {
		all.Write(encodeDataFrame(t, uint32(100+i), "payload"))
	}

	out := make(chan *bytebufferpool.ByteBuffer, n)
	result, err := Check(&all, 0, out)

	require.NoError(t, err)
	assert.Equal(t, ResultFull, result)
	assert.Equal(t, 0, all.Len())
	assert.Len(t, out, n)

	for i := 0; i < n; i++ {
		bb := <-out
		meta, err := PeekMeta(bb.B)
		require.NoError(t, err)
		assert.Equal(t, uint32(100+i), meta.StreamID)
		bytebufferpool.Put(bb)
	}
}

func TestCheckImplausibleSize(t *testing.T) {
	full := encodeDataFrame(t, 1, "hello")
	buf := bytes.NewBuffer(full)

	out := make(chan *bytebufferpool.ByteBuffer, 1)
	result, err := Check(buf, uint32(len(full)-1), out)

	assert.ErrorIs(t, err, ErrImplausibleSize)
	assert.Equal(t, ResultErr, result)
}

func TestPeekMetaIsStream(t *testing.T) {
	full := encodeDataFrame(t, 9, "x")
	meta, err := PeekMeta(full)
	require.NoError(t, err)
	assert.True(t, meta.IsStream())
	assert.Equal(t, StreamFrameData, meta.StreamFrameType)
}
