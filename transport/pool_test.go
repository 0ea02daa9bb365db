package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-core/codec"
)

func TestConnectionPoolSendDialsUpToMaxConnNum(t *testing.T) {
	dial, dials := countingDialer(t)
	pool := NewConnectionPool("peer:1", dial, NewConnPoolOptions(WithMaxConnNum(2)))
	defer pool.Close()

	req := func() *codec.UnaryMessage {
		return &codec.UnaryMessage{Head: codec.FrameHead{Func: "/svc/Ping"}, Body: []byte("x")}
	}

	_, err := pool.Send(context.Background(), req())
	require.NoError(t, err)
	_, err = pool.Send(context.Background(), req())
	require.NoError(t, err)

	assert.LessOrEqual(t, int(*dials), 2)
}

func TestConnectionPoolRoundTripReleasesConnector(t *testing.T) {
	dial, dials := countingDialer(t)
	pool := NewConnectionPool("peer:1", dial, NewConnPoolOptions(WithMaxConnNum(1)))
	defer pool.Close()

	req := &codec.UnaryMessage{Head: codec.FrameHead{Func: "/svc/Ping"}, Body: []byte("one")}
	resp, err := pool.Send(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), resp.Body)

	// A single-connector pool can only serve a second call sequentially
	// if the first one was actually released back to the free-list.
	req2 := &codec.UnaryMessage{Head: codec.FrameHead{Func: "/svc/Ping"}, Body: []byte("two")}
	resp2, err := pool.Send(context.Background(), req2)
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), resp2.Body)
	assert.EqualValues(t, 1, *dials)
}

func TestConnectionPoolExhaustedReturnsErrWhenQueueFull(t *testing.T) {
	dial := func(ctx context.Context, target string) (net.Conn, error) {
		return nil, assert.AnError
	}
	pool := NewConnectionPool("peer:1", dial, NewConnPoolOptions(WithMaxConnNum(0), WithPendingQueueCapacity(0)))
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	req := &codec.UnaryMessage{Head: codec.FrameHead{Func: "/svc/Ping"}}
	_, err := pool.Send(ctx, req)
	assert.ErrorIs(t, err, ErrPoolExhausted)
}
