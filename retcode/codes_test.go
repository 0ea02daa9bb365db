package retcode

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestCodeStringKnownAndUnknown(t *testing.T) {
	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "client invoke timeout", ClientInvokeTimeout.String())
	assert.Equal(t, "unknown", Code(99999).String())
}

func TestFrameworkErrorRetCode(t *testing.T) {
	err := New(ClientOverload, "too many in-flight requests")
	assert.Equal(t, int32(ClientOverload), err.RetCode())
	assert.Contains(t, err.Error(), "too many in-flight requests")
}

func TestFrameworkErrorWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection reset by peer")
	err := Wrap(ClientNetworkErr, cause, "send failed")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset by peer")
}

func TestFromWireNormalizesZeroCode(t *testing.T) {
	err := FromWire(0, "")
	assert.Equal(t, StreamUnknown, err.Code)
}

func TestFromWirePreservesKnownCode(t *testing.T) {
	err := FromWire(int32(ServerNotFun), "no such method")
	assert.Equal(t, ServerNotFun, err.Code)
	assert.Equal(t, "no such method", err.Msg)
}
