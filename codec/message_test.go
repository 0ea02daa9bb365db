package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnaryMessageRoundTrip(t *testing.T) {
	msg := &UnaryMessage{
		Head: FrameHead{
			Version:         0,
			CallType:        0,
			RequestID:       42,
			TimeoutMs:       1000,
			Caller:          "trpc.test.caller",
			Callee:          "trpc.test.helloworld.Greeter",
			Func:            "/trpc.test.helloworld.Greeter/SayHello",
			ContentType:     1,
			ContentEncoding: 0,
			TransInfo:       map[string][]byte{"env": []byte("prod")},
		},
		Body: []byte("hello world"),
	}

	buf, err := msg.Encode()
	require.NoError(t, err)

	got := &UnaryMessage{}
	require.NoError(t, got.Decode(buf))

	assert.Equal(t, msg.Head.RequestID, got.Head.RequestID)
	assert.Equal(t, msg.Head.Caller, got.Head.Caller)
	assert.Equal(t, msg.Head.Callee, got.Head.Callee)
	assert.Equal(t, msg.Head.Func, got.Head.Func)
	assert.Equal(t, msg.Head.TransInfo, got.Head.TransInfo)
	assert.Equal(t, msg.Body, got.Body)
}

func TestUnaryMessageWithAttachment(t *testing.T) {
	msg := &UnaryMessage{
		Head:       FrameHead{RequestID: 7},
		Body:       []byte("body"),
		Attachment: []byte("attachment-bytes"),
	}
	buf, err := msg.Encode()
	require.NoError(t, err)

	got := &UnaryMessage{}
	require.NoError(t, got.Decode(buf))
	assert.Equal(t, msg.Body, got.Body)
	assert.Equal(t, msg.Attachment, got.Attachment)
	assert.Equal(t, uint32(len(msg.Attachment)), got.Head.AttachmentSize)
}

func TestUnaryMessageResponseRet(t *testing.T) {
	msg := &UnaryMessage{
		Head: FrameHead{RequestID: 1, Ret: -1001, FuncRet: 3, ErrorMsg: "not found"},
	}
	buf, err := msg.Encode()
	require.NoError(t, err)

	got := &UnaryMessage{}
	require.NoError(t, got.Decode(buf))
	assert.Equal(t, int32(-1001), got.Head.Ret)
	assert.Equal(t, int32(3), got.Head.FuncRet)
	assert.Equal(t, "not found", got.Head.ErrorMsg)
}

func TestUnaryMessageDecodeShortBuffer(t *testing.T) {
	got := &UnaryMessage{}
	err := got.Decode(make([]byte, 4))
	assert.Error(t, err)
}

func TestStreamInitRoundTrip(t *testing.T) {
	f := &StreamInitFrame{
		StreamID:          100,
		Caller:            "trpc.test.caller",
		Callee:            "trpc.test.shopping.Shop",
		Func:              "/trpc.test.shopping.Shop/Buy",
		InitialWindowSize: 65536,
		TransInfo:         map[string][]byte{"k": []byte("v")},
	}
	buf, err := f.Encode()
	require.NoError(t, err)

	got := &StreamInitFrame{}
	require.NoError(t, got.Decode(buf))
	assert.Equal(t, f, got)
}

func TestStreamInitReplyWithError(t *testing.T) {
	f := &StreamInitFrame{StreamID: 100, Ret: -1, ErrorMsg: "not found"}
	buf, err := f.Encode()
	require.NoError(t, err)

	got := &StreamInitFrame{}
	require.NoError(t, got.Decode(buf))
	assert.Equal(t, int32(-1), got.Ret)
	assert.Equal(t, "not found", got.ErrorMsg)
}

func TestStreamDataRoundTrip(t *testing.T) {
	f := &StreamDataFrame{StreamID: 100, Payload: []byte("chunk-of-bytes")}
	buf, err := f.Encode()
	require.NoError(t, err)

	got := &StreamDataFrame{}
	require.NoError(t, got.Decode(buf))
	assert.Equal(t, f, got)
}

func TestStreamFeedbackRoundTrip(t *testing.T) {
	f := &StreamFeedbackFrame{StreamID: 100, WindowIncrement: 32768}
	buf, err := f.Encode()
	require.NoError(t, err)

	got := &StreamFeedbackFrame{}
	require.NoError(t, got.Decode(buf))
	assert.Equal(t, f, got)
}

func TestStreamCloseRoundTrip(t *testing.T) {
	f := &StreamCloseFrame{StreamID: 100, CloseType: CloseTypeReset, Ret: 999, Msg: "boom"}
	buf, err := f.Encode()
	require.NoError(t, err)

	got := &StreamCloseFrame{}
	require.NoError(t, got.Decode(buf))
	assert.Equal(t, f, got)
}

func TestStreamFrameTypeMismatch(t *testing.T) {
	data := &StreamDataFrame{StreamID: 1, Payload: []byte("x")}
	buf, err := data.Encode()
	require.NoError(t, err)

	fb := &StreamFeedbackFrame{}
	err = fb.Decode(buf)
	assert.ErrorIs(t, err, ErrFrameTypeMismatch)
}
