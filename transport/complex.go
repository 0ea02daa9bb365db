package transport

import (
	"context"
	"sync"
	"time"

	"github.com/valyala/fastrand"

	"trpc.group/trpc-go/trpc-core/codec"
	"trpc.group/trpc-go/trpc-core/log"
	"trpc.group/trpc-go/trpc-core/stream"
	"trpc.group/trpc-go/trpc-core/timer"
)

// ConnectionComplex implements C8: one long-lived connection per peer
// address, reconnected on loss, with a single shared request-timeout
// wheel. This is the simplest of the three sending disciplines and the
// one every RPC client defaults to absent explicit pooling configuration.
type ConnectionComplex struct {
	target string
	dial   Dialer
	opts   ComplexOptions

	wheel *timer.Wheel

	mu          sync.Mutex
	conn        *Connector
	lastDialMs  int64
	reconnectMu sync.Mutex

	closed   bool
	stopTick chan struct{}
}

// NewConnectionComplex dials target once and starts the background idle
// reaper / timeout-wheel ticker.
func NewConnectionComplex(ctx context.Context, target string, dial Dialer, opts ComplexOptions) (*ConnectionComplex, error) {
	cc := &ConnectionComplex{
		target:   target,
		dial:     dial,
		opts:     opts,
		wheel:    timer.NewWheel(timer.DefaultRingSize, 0),
		stopTick: make(chan struct{}),
	}
	if opts.DisableRequestTimeout {
		cc.wheel = nil
	}

	conn, err := cc.dialNow(ctx)
	if err != nil {
		return nil, err
	}
	cc.conn = conn

	go cc.tickLoop()
	return cc, nil
}

func (cc *ConnectionComplex) dialNow(ctx context.Context) (*Connector, error) {
	conn, err := NewConnector(ctx, cc.target, cc.dial, cc.wheel, cc.opts.StreamMaxWindowSize)
	if err != nil {
		return nil, err
	}
	cc.lastDialMs = time.Now().UnixMilli()
	return conn, nil
}

// tickLoop drives both the shared timeout wheel and the idle-connection
// reap check, at the configured RequestTimeoutCheckIntervalMs.
func (cc *ConnectionComplex) tickLoop() {
	interval := time.Duration(cc.opts.RequestTimeoutCheckIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = DefaultRequestTimeoutCheckInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-cc.stopTick:
			return
		case now := <-ticker.C:
			nowMs := now.UnixMilli()
			if cc.wheel != nil {
				cc.wheel.Tick(nowMs, func(entry any) {
					if fired, ok := entry.(timeoutEntry); ok {
						fired.conn.FireTimeout(fired.requestID)
					}
				})
			}
			cc.reapIfIdle(nowMs)
		}
	}
}

func (cc *ConnectionComplex) reapIfIdle(nowMs int64) {
	if cc.opts.ConnectionIdleTimeoutMs <= 0 {
		return
	}
	cc.mu.Lock()
	conn := cc.conn
	cc.mu.Unlock()
	if conn == nil || conn.IsClosed() {
		return
	}
	if conn.IdleSince(nowMs) < cc.opts.ConnectionIdleTimeoutMs {
		return
	}
	log.Debugf("connection-complex %s: reaping idle connection %s", cc.target, conn.ID())
	conn.Close()
}

// acquire returns the live connector, reconnecting (rate-limited by
// ConnectIntervalMs plus jitter, per the reference client's retry
// spacing) if the current one has torn down.
func (cc *ConnectionComplex) acquire(ctx context.Context) (*Connector, error) {
	cc.mu.Lock()
	conn := cc.conn
	cc.mu.Unlock()
	if conn != nil && !conn.IsClosed() {
		return conn, nil
	}
	if !cc.opts.IsReconnection {
		return nil, ErrConnectorClosed
	}

	cc.reconnectMu.Lock()
	defer cc.reconnectMu.Unlock()

	cc.mu.Lock()
	conn = cc.conn
	cc.mu.Unlock()
	if conn != nil && !conn.IsClosed() {
		return conn, nil
	}

	elapsed := time.Now().UnixMilli() - cc.lastDialMs
	if elapsed < cc.opts.ConnectIntervalMs {
		jitterMs := int64(fastrand.Uint32n(50))
		time.Sleep(time.Duration(cc.opts.ConnectIntervalMs-elapsed+jitterMs) * time.Millisecond)
	}

	newConn, err := cc.dialNow(ctx)
	if err != nil {
		return nil, err
	}
	cc.mu.Lock()
	cc.conn = newConn
	cc.mu.Unlock()
	return newConn, nil
}

// Send sends one unary request over the complex's connection, dialing a
// replacement first if the current connection has failed.
func (cc *ConnectionComplex) Send(ctx context.Context, req *codec.UnaryMessage) (*codec.UnaryMessage, error) {
	conn, err := cc.acquire(ctx)
	if err != nil {
		return nil, err
	}
	return conn.Send(ctx, req)
}

// Stream opens a new client-role stream over the complex's connection.
func (cc *ConnectionComplex) Stream(ctx context.Context) (*stream.Stream, error) {
	conn, err := cc.acquire(ctx)
	if err != nil {
		return nil, err
	}
	return conn.Streams().NewStream(), nil
}

// Close tears the complex down: stops the ticker and closes the live
// connection.
func (cc *ConnectionComplex) Close() error {
	cc.mu.Lock()
	if cc.closed {
		cc.mu.Unlock()
		return nil
	}
	cc.closed = true
	conn := cc.conn
	cc.mu.Unlock()

	close(cc.stopTick)
	if conn != nil {
		return conn.Close()
	}
	return nil
}
