package transport

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/bytebufferpool"

	"trpc.group/trpc-go/trpc-core/codec"
	"trpc.group/trpc-go/trpc-core/log"
	"trpc.group/trpc-go/trpc-core/retcode"
	"trpc.group/trpc-go/trpc-core/stream"
	"trpc.group/trpc-go/trpc-core/timer"
)

// Dialer opens a network connection to target. Grounded on the reference
// client's net.Conn field: the connector never knows how the address was
// resolved, only that it ends up with a live io.ReadWriteCloser.
type Dialer func(ctx context.Context, target string) (net.Conn, error)

// pendingUnary is one in-flight unary request awaiting its response.
type pendingUnary struct {
	respCh chan unaryResult
}

type unaryResult struct {
	msg *codec.UnaryMessage
	err error
}

// timeoutEntry is what a shared timer.Wheel stores for one in-flight
// unary request: enough to route a Tick-fired deadline back to the
// connector that owns it, whether that wheel is private to a single
// ConnectionComplex or shared by every connector in a ConnectionPool.
type timeoutEntry struct {
	conn      *Connector
	requestID uint32
}

// timeoutKeySeq generates wheel keys for request timeouts, independent of
// any one connector's own request-id counter — a shared wheel otherwise
// risks two connectors colliding on the same small id.
var timeoutKeySeq uint32

// Connector owns exactly one physical connection to one peer address: a
// read loop that slices the byte stream into frames via codec.Check, a
// request-id-keyed pending map for unary request/response matching, and a
// stream.Handler for the streaming subsystem. It is the unit every one of
// C8/C9/C10's sending disciplines composes.
//
// Grounded on the reference client's Client: a single net.Conn plus
// bufio.Reader/Writer pair, a channel-serialized write path, and an
// id-keyed registry of in-flight work (there sync.Map of *ClientStream,
// here a mutex-guarded map of *pendingUnary).
type Connector struct {
	id     string
	target string
	dial   Dialer

	maxPacketSize uint32
	wheel         *timer.Wheel

	mu      sync.Mutex
	conn    net.Conn
	closed  bool
	pending map[uint32]*pendingUnary

	// writeMu serializes access to bw separately from mu, so a blocking
	// network write never holds the same lock Close needs to tear the
	// connector down.
	writeMu sync.Mutex
	bw      *bufio.Writer

	nextRequestID uint32

	handler *stream.Handler

	closeOnce sync.Once
	done      chan struct{}

	lastUsed atomic.Int64
}

// NewConnector dials target immediately and starts its read loop. wheel
// may be nil, in which case requests never time out locally (the caller's
// own context deadline is the only bound).
func NewConnector(ctx context.Context, target string, dial Dialer, wheel *timer.Wheel, streamWindow uint32) (*Connector, error) {
	conn, err := dial(ctx, target)
	if err != nil {
		return nil, retcode.Wrap(retcode.ClientConnectErr, err, "dial "+target)
	}

	c := &Connector{
		id:      uuid.NewString(),
		target:  target,
		dial:    dial,
		wheel:   wheel,
		conn:    conn,
		bw:      bufio.NewWriter(conn),
		pending: make(map[uint32]*pendingUnary),
		done:    make(chan struct{}),
	}
	c.handler = stream.NewHandler(writerFunc(c.writeLocked), int64(streamWindow))
	c.lastUsed.Store(time.Now().UnixMilli())

	go c.readLoop()
	return c, nil
}

// writerFunc adapts a plain write function to stream.Writer.
type writerFunc func(b []byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) { return f(b) }

// ID returns the connector's unique identity, stable for its lifetime —
// used by Pool and Pipeline for affinity and logging.
func (c *Connector) ID() string { return c.id }

// Streams exposes the stream handler bound to this connection, for
// callers opening a streaming RPC.
func (c *Connector) Streams() *stream.Handler { return c.handler }

// IsClosed reports whether the underlying connection has already torn
// down.
func (c *Connector) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// IdleSince returns how long it has been since the connector last sent or
// received a frame, used by the idle reaper in ComplexOptions/ConnPoolOptions.
func (c *Connector) IdleSince(nowMs int64) int64 {
	return nowMs - c.lastUsed.Load()
}

// Send issues one unary request and blocks for its matching response (by
// RequestID), honoring ctx cancellation and, when a wheel was supplied,
// the request's own TimeoutMs.
func (c *Connector) Send(ctx context.Context, req *codec.UnaryMessage) (*codec.UnaryMessage, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrConnectorClosed
	}
	id := atomic.AddUint32(&c.nextRequestID, 1)
	req.Head.RequestID = id
	wait := &pendingUnary{respCh: make(chan unaryResult, 1)}
	c.pending[id] = wait
	c.mu.Unlock()

	var timeoutKey uint32
	armedTimeout := false
	if c.wheel != nil && req.Head.TimeoutMs > 0 {
		timeoutKey = atomic.AddUint32(&timeoutKeySeq, 1)
		deadline := time.Now().UnixMilli() + int64(req.Head.TimeoutMs)
		entry := timeoutEntry{conn: c, requestID: id}
		if res := c.wheel.Push(timeoutKey, entry, deadline); res == timer.Ok {
			armedTimeout = true
		}
	}

	buf, err := req.Encode()
	if err != nil {
		c.forgetPending(id)
		return nil, retcode.Wrap(retcode.ClientEncodeErr, err, "encode unary request")
	}
	if _, err := c.writeLocked(buf); err != nil {
		c.forgetPending(id)
		return nil, retcode.Wrap(retcode.ClientNetworkErr, err, "write unary request")
	}

	select {
	case r := <-wait.respCh:
		if armedTimeout {
			c.wheel.Pop(timeoutKey)
		}
		return r.msg, r.err
	case <-ctx.Done():
		c.forgetPending(id)
		return nil, ctx.Err()
	}
}

// FireTimeout is invoked by the owning transport's timer.Wheel.Tick
// callback when a pending request's deadline elapses.
func (c *Connector) FireTimeout(requestID uint32) {
	c.mu.Lock()
	wait, ok := c.pending[requestID]
	if ok {
		delete(c.pending, requestID)
	}
	c.mu.Unlock()
	if ok {
		wait.respCh <- unaryResult{err: ErrRequestTimeout}
	}
}

func (c *Connector) forgetPending(id uint32) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Connector) writeLocked(b []byte) (int, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return 0, ErrConnectorClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.lastUsed.Store(time.Now().UnixMilli())
	n, err := c.bw.Write(b)
	if err == nil {
		err = c.bw.Flush()
	}
	if err != nil {
		c.closeLocked(err)
	}
	return n, err
}

// readLoop is the connector's only reader: it feeds raw bytes through
// codec.Check and routes each whole frame to either the pending unary map
// or the stream handler, mirroring the reference client's single
// background reader goroutine per connection.
func (c *Connector) readLoop() {
	br := bufio.NewReader(c.conn)
	var buf bytes.Buffer
	out := make(chan *bytebufferpool.ByteBuffer, 16)
	chunk := make([]byte, 64*1024)

	go c.drain(out)

	for {
		n, err := br.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			if _, checkErr := codec.Check(&buf, c.maxPacketSize, out); checkErr != nil {
				close(out)
				c.closeLocked(checkErr)
				return
			}
		}
		if err != nil {
			close(out)
			c.closeLocked(err)
			return
		}
	}
}

func (c *Connector) drain(out <-chan *bytebufferpool.ByteBuffer) {
	for bb := range out {
		frame := append([]byte(nil), bb.B...)
		bytebufferpool.Put(bb)
		c.routeFrame(frame)
	}
}

func (c *Connector) routeFrame(frame []byte) {
	c.lastUsed.Store(time.Now().UnixMilli())
	meta, err := codec.PeekMeta(frame)
	if err != nil {
		log.Errorf("connector %s: %v", c.id, err)
		return
	}
	if meta.IsStream() {
		if err := c.handler.Dispatch(meta, frame); err != nil {
			log.Debugf("connector %s: stream dispatch: %v", c.id, err)
		}
		return
	}

	var msg codec.UnaryMessage
	if err := msg.Decode(frame); err != nil {
		log.Errorf("connector %s: decode unary response: %v", c.id, err)
		return
	}

	c.mu.Lock()
	wait, ok := c.pending[msg.Head.RequestID]
	if ok {
		delete(c.pending, msg.Head.RequestID)
	}
	c.mu.Unlock()
	if !ok {
		return
	}
	wait.respCh <- unaryResult{msg: &msg}
}

// Close tears the connection down, fails every pending unary call and
// every attached stream with ErrConnectorClosed.
func (c *Connector) Close() error {
	c.closeLocked(nil)
	return nil
}

func (c *Connector) closeLocked(cause error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		pending := c.pending
		c.pending = make(map[uint32]*pendingUnary)
		conn := c.conn
		c.mu.Unlock()

		failure := ErrConnectorClosed
		if cause != nil {
			failure = retcode.Wrap(retcode.ClientNetworkErr, cause, "connection lost")
		}
		for _, wait := range pending {
			wait.respCh <- unaryResult{err: failure}
		}
		c.handler.CloseAll(failure)
		if conn != nil {
			conn.Close()
		}
		close(c.done)
	})
}

// Done is closed once the connector has fully torn down.
func (c *Connector) Done() <-chan struct{} { return c.done }
