package transport

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"trpc.group/trpc-go/trpc-core/codec"
	"trpc.group/trpc-go/trpc-core/log"
	"trpc.group/trpc-go/trpc-core/stream"
	"trpc.group/trpc-go/trpc-core/timer"
)

// pendingCall is one caller waiting on the pool for a free connector.
type pendingCall struct {
	ctx    context.Context
	result chan poolResult
}

type poolResult struct {
	conn *Connector
	err  error
}

// ConnectionPool implements C9: up to MaxConnNum connectors per peer
// address, a free-list of idle ones, and a bounded pending-queue for
// callers that arrive when every connector is already in use. Grounded on
// the reference client's clientPool idle free-list, generalized from a
// pool of *ClientStream on one connection to a pool of whole connections.
type ConnectionPool struct {
	target string
	dial   Dialer
	opts   ConnPoolOptions
	wheel  *timer.Wheel

	mu       sync.Mutex
	conns    []*Connector
	busy     map[string]bool
	pending  []*pendingCall
	closed   bool
	stopTick chan struct{}
}

// NewConnectionPool constructs an empty pool; connectors are dialed
// lazily, up to MaxConnNum, as callers arrive.
func NewConnectionPool(target string, dial Dialer, opts ConnPoolOptions) *ConnectionPool {
	p := &ConnectionPool{
		target:   target,
		dial:     dial,
		opts:     opts,
		wheel:    timer.NewWheel(timer.DefaultRingSize, 0),
		busy:     make(map[string]bool),
		stopTick: make(chan struct{}),
	}
	if opts.DisableRequestTimeout {
		p.wheel = nil
	}
	go p.tickLoop()
	return p
}

func (p *ConnectionPool) tickLoop() {
	interval := time.Duration(p.opts.RequestTimeoutCheckIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = DefaultRequestTimeoutCheckInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopTick:
			return
		case now := <-ticker.C:
			nowMs := now.UnixMilli()
			if p.wheel != nil {
				p.wheel.Tick(nowMs, func(entry any) {
					if fired, ok := entry.(timeoutEntry); ok {
						fired.conn.FireTimeout(fired.requestID)
					}
				})
			}
			p.reapIdle(nowMs)
		}
	}
}

func (p *ConnectionPool) reapIdle(nowMs int64) {
	if p.opts.ConnectionIdleTimeoutMs <= 0 {
		return
	}
	p.mu.Lock()
	var idle []*Connector
	remain := p.conns[:0]
	for _, c := range p.conns {
		if !p.busy[c.ID()] && !c.IsClosed() && c.IdleSince(nowMs) >= p.opts.ConnectionIdleTimeoutMs {
			idle = append(idle, c)
			continue
		}
		remain = append(remain, c)
	}
	p.conns = remain
	p.mu.Unlock()

	for _, c := range idle {
		log.Debugf("connection-pool %s: reaping idle connector %s", p.target, c.ID())
		c.Close()
	}
}

// acquire returns a free connector: an idle one if available, a freshly
// dialed one if under MaxConnNum, or a queued wait if the pool is at
// capacity and the pending-queue has room.
func (p *ConnectionPool) acquire(ctx context.Context) (*Connector, error) {
	p.mu.Lock()
	for _, c := range p.conns {
		if !p.busy[c.ID()] && !c.IsClosed() {
			p.busy[c.ID()] = true
			p.mu.Unlock()
			return c, nil
		}
	}
	if len(p.conns) < p.opts.MaxConnNum {
		p.mu.Unlock()
		conn, err := NewConnector(ctx, p.target, p.dial, p.wheel, 65536)
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.conns = append(p.conns, conn)
		p.busy[conn.ID()] = true
		p.mu.Unlock()
		return conn, nil
	}
	if len(p.pending) >= p.opts.PendingQueueCapacity {
		p.mu.Unlock()
		return nil, ErrPoolExhausted
	}
	call := &pendingCall{ctx: ctx, result: make(chan poolResult, 1)}
	p.pending = append(p.pending, call)
	p.mu.Unlock()

	select {
	case r := <-call.result:
		return r.conn, r.err
	case <-ctx.Done():
		p.mu.Lock()
		for i, pc := range p.pending {
			if pc == call {
				p.pending = append(p.pending[:i], p.pending[i+1:]...)
				p.mu.Unlock()
				return nil, ctx.Err()
			}
		}
		p.mu.Unlock()
		// release already dequeued this call and is handing it a connector;
		// pass that connector on instead of leaving it marked busy.
		if r := <-call.result; r.conn != nil {
			p.release(r.conn)
		}
		return nil, ctx.Err()
	}
}

// release returns a connector to the free-list, handing it straight to
// the oldest queued waiter if one exists.
func (p *ConnectionPool) release(conn *Connector) {
	p.mu.Lock()
	if len(p.pending) > 0 {
		call := p.pending[0]
		p.pending = p.pending[1:]
		p.mu.Unlock()
		call.result <- poolResult{conn: conn}
		return
	}
	if conn.IsClosed() {
		p.busy[conn.ID()] = false
		p.pruneClosedLocked()
		p.mu.Unlock()
		return
	}
	p.busy[conn.ID()] = false
	p.mu.Unlock()
}

func (p *ConnectionPool) pruneClosedLocked() {
	kept := p.conns[:0]
	for _, c := range p.conns {
		if !c.IsClosed() {
			kept = append(kept, c)
		} else {
			delete(p.busy, c.ID())
		}
	}
	p.conns = kept
}

// Send acquires a connector, issues req, and returns it to the pool
// (handing it to the next waiter, if any) once the call completes.
func (p *ConnectionPool) Send(ctx context.Context, req *codec.UnaryMessage) (*codec.UnaryMessage, error) {
	conn, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := conn.Send(ctx, req)
	p.release(conn)
	return resp, err
}

// Stream acquires a connector and opens a new client-role stream on it.
// The stream is released back to the pool as soon as it reaches Closed.
func (p *ConnectionPool) Stream(ctx context.Context) (*stream.Stream, error) {
	conn, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}
	s := conn.Streams().NewStream()
	s.OnClosed(func(error) { p.release(conn) })
	return s, nil
}

// Close tears down every connector the pool holds, collecting every
// nonzero close error into a single multierror.
func (p *ConnectionPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	conns := p.conns
	p.conns = nil
	p.mu.Unlock()

	close(p.stopTick)

	var result *multierror.Error
	for _, c := range conns {
		if err := c.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
