package transport

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-core/codec"
)

// countingDialer hands out one side of a fresh net.Pipe per dial, running
// echoServer on the other side, and counts how many times it was called.
func countingDialer(t *testing.T) (Dialer, *int32) {
	var count int32
	d := func(ctx context.Context, target string) (net.Conn, error) {
		atomic.AddInt32(&count, 1)
		client, server := net.Pipe()
		go echoServer(t, server)
		return client, nil
	}
	return d, &count
}

func TestConnectionComplexSendRoundTrip(t *testing.T) {
	dial, _ := countingDialer(t)
	cc, err := NewConnectionComplex(context.Background(), "peer:1", dial, NewComplexOptions())
	require.NoError(t, err)
	defer cc.Close()

	req := &codec.UnaryMessage{Head: codec.FrameHead{Func: "/svc/Ping"}, Body: []byte("ping")}
	resp, err := cc.Send(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []byte("ping"), resp.Body)
}

func TestConnectionComplexReconnectsAfterConnectionLoss(t *testing.T) {
	dial, dials := countingDialer(t)
	cc, err := NewConnectionComplex(context.Background(), "peer:1", dial,
		NewComplexOptions(WithComplexConnectInterval(0)))
	require.NoError(t, err)
	defer cc.Close()

	assert.EqualValues(t, 1, atomic.LoadInt32(dials))

	cc.mu.Lock()
	first := cc.conn
	cc.mu.Unlock()
	require.NoError(t, first.Close())

	req := &codec.UnaryMessage{Head: codec.FrameHead{Func: "/svc/Ping"}, Body: []byte("again")}
	resp, err := cc.Send(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []byte("again"), resp.Body)
	assert.EqualValues(t, 2, atomic.LoadInt32(dials))
}

func TestConnectionComplexReconnectionDisabledFailsFast(t *testing.T) {
	dial, _ := countingDialer(t)
	cc, err := NewConnectionComplex(context.Background(), "peer:1", dial,
		NewComplexOptions(WithComplexReconnection(false)))
	require.NoError(t, err)
	defer cc.Close()

	cc.mu.Lock()
	first := cc.conn
	cc.mu.Unlock()
	require.NoError(t, first.Close())

	req := &codec.UnaryMessage{Head: codec.FrameHead{Func: "/svc/Ping"}, Body: []byte("x")}
	_, err = cc.Send(context.Background(), req)
	assert.ErrorIs(t, err, ErrConnectorClosed)
}

func TestConnectionComplexIdleReapClosesConnection(t *testing.T) {
	dial, _ := countingDialer(t)
	opts := NewComplexOptions(WithComplexIdleTimeout(1))
	cc, err := NewConnectionComplex(context.Background(), "peer:1", dial, opts)
	require.NoError(t, err)
	defer cc.Close()

	cc.mu.Lock()
	first := cc.conn
	cc.mu.Unlock()

	require.Eventually(t, func() bool {
		return first.IsClosed()
	}, time.Second, 5*time.Millisecond)
}
