package transport

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/bytebufferpool"

	"trpc.group/trpc-go/trpc-core/codec"
	"trpc.group/trpc-go/trpc-core/timer"
)

// echoServer reads whole unary frames off conn and writes back a response
// that echoes the request's Func into the response body, standing in for
// a real peer without needing an actual socket listener.
func echoServer(t *testing.T, conn net.Conn) {
	t.Helper()
	br := bufio.NewReader(conn)
	var buf bytes.Buffer
	out := make(chan *bytebufferpool.ByteBuffer, 4)
	chunk := make([]byte, 4096)

	go func() {
		for bb := range out {
			var req codec.UnaryMessage
			if err := req.Decode(bb.B); err == nil {
				resp := codec.UnaryMessage{
					Head: codec.FrameHead{RequestID: req.Head.RequestID, Func: req.Head.Func},
					Body: req.Body,
				}
				buf, _ := resp.Encode()
				conn.Write(buf)
			}
			bytebufferpool.Put(bb)
		}
	}()

	for {
		n, err := br.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			if _, checkErr := codec.Check(&buf, 0, out); checkErr != nil {
				close(out)
				return
			}
		}
		if err != nil {
			close(out)
			return
		}
	}
}

func pipeDialer(server net.Conn) Dialer {
	return func(ctx context.Context, target string) (net.Conn, error) {
		return server, nil
	}
}

func TestConnectorSendReceivesMatchingResponse(t *testing.T) {
	client, server := net.Pipe()
	go echoServer(t, server)
	defer client.Close()

	conn, err := NewConnector(context.Background(), "peer", pipeDialer(client), nil, 65536)
	require.NoError(t, err)
	defer conn.Close()

	req := &codec.UnaryMessage{Head: codec.FrameHead{Func: "/svc/Method"}, Body: []byte("hello")}
	resp, err := conn.Send(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), resp.Body)
	assert.Equal(t, "/svc/Method", resp.Head.Func)
}

func TestConnectorSendTimesOutViaWheel(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	defer client.Close()

	// Drain writes on the server side without ever replying, simulating
	// an unresponsive peer.
	go func() {
		buf := make([]byte, 4096)
		for {
			if _, err := server.Read(buf); err != nil {
				return
			}
		}
	}()

	wheel := timer.NewWheel(timer.DefaultRingSize, 0)
	conn, err := NewConnector(context.Background(), "peer", pipeDialer(client), wheel, 65536)
	require.NoError(t, err)
	defer conn.Close()

	go func() {
		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()
		for i := 0; i < 50; i++ {
			<-ticker.C
			wheel.Tick(time.Now().UnixMilli(), func(entry any) {
				if e, ok := entry.(timeoutEntry); ok {
					e.conn.FireTimeout(e.requestID)
				}
			})
		}
	}()

	req := &codec.UnaryMessage{Head: codec.FrameHead{Func: "/svc/Slow", TimeoutMs: 5}, Body: []byte("x")}
	_, err = conn.Send(context.Background(), req)
	assert.ErrorIs(t, err, ErrRequestTimeout)
}

func TestConnectorCloseFailsPendingCalls(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	// Drain writes on the server side without ever replying, simulating
	// an unresponsive peer whose response never lands before Close.
	go func() {
		buf := make([]byte, 4096)
		for {
			if _, err := server.Read(buf); err != nil {
				return
			}
		}
	}()

	conn, err := NewConnector(context.Background(), "peer", pipeDialer(client), nil, 65536)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		req := &codec.UnaryMessage{Head: codec.FrameHead{Func: "/svc/Hang"}, Body: []byte("x")}
		_, sendErr := conn.Send(context.Background(), req)
		done <- sendErr
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, conn.Close())

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("Send never returned after Close")
	}
}
