package transport

import (
	"context"
	"sync"
	"time"

	"trpc.group/trpc-go/trpc-core/codec"
	"trpc.group/trpc-go/trpc-core/timer"
)

// pipelineConn is one connector dedicated to a pipeline slot, plus the
// FIFO of submission tickets needed to police strict response ordering:
// §4.10 requires that a connector answering out of the order its
// requests were submitted in is a fatal desync, not something
// RequestID-matching is allowed to paper over.
type pipelineConn struct {
	conn *Connector

	mu       sync.Mutex
	nextSeq  uint64
	inFlight []uint64 // FIFO of outstanding submission tickets, oldest first
}

func (pc *pipelineConn) submit() uint64 {
	pc.mu.Lock()
	seq := pc.nextSeq
	pc.nextSeq++
	pc.inFlight = append(pc.inFlight, seq)
	pc.mu.Unlock()
	return seq
}

// complete reports whether seq finished at the head of the FIFO — the
// order its request was submitted in. Any other position means some
// earlier-submitted request on this same connector is still outstanding
// while a later one already completed: a head-of-line violation.
func (pc *pipelineConn) complete(seq uint64) bool {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if len(pc.inFlight) == 0 || pc.inFlight[0] != seq {
		return false
	}
	pc.inFlight = pc.inFlight[1:]
	return true
}

// abandon drops seq from the FIFO wherever it sits, without judging order.
// Used when the caller's own context ends the wait before any response
// arrives — that is a local decision, not a signal about wire order, and
// must not be mistaken for the connector answering out of turn.
func (pc *pipelineConn) abandon(seq uint64) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	for i, s := range pc.inFlight {
		if s == seq {
			pc.inFlight = append(pc.inFlight[:i], pc.inFlight[i+1:]...)
			return
		}
	}
}

// Pipeline implements C10: MaxConnNum connectors per peer, chosen
// round-robin, each carrying many concurrent in-flight requests. Unlike
// Pool, a pipeline also enforces that each connector's responses resolve
// in the same order their requests were submitted in — per §4.10/§8
// scenario 4, requests {7,8} answered as {8,7} is a fatal ordering
// violation, not something RequestID-matching is allowed to silently
// absorb.
type Pipeline struct {
	target string
	dial   Dialer
	opts   PipelineOptions
	wheel  *timer.Wheel

	mu       sync.Mutex
	conns    []*pipelineConn
	next     uint32
	stopTick chan struct{}
}

// NewPipelineTransport dials MaxConnNum connectors up front; unlike Pool,
// a pipeline can't grow lazily because each connector is expected to
// carry many concurrent requests rather than being handed out whole.
func NewPipelineTransport(ctx context.Context, target string, dial Dialer, opts PipelineOptions) (*Pipeline, error) {
	p := &Pipeline{
		target:   target,
		dial:     dial,
		opts:     opts,
		wheel:    timer.NewWheel(timer.DefaultRingSize, 0),
		stopTick: make(chan struct{}),
	}
	if opts.DisableRequestTimeout {
		p.wheel = nil
	}
	for i := 0; i < opts.MaxConnNum; i++ {
		pc, err := p.dialOne(ctx)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.conns = append(p.conns, pc)
	}
	go p.tickLoop()
	return p, nil
}

func (p *Pipeline) dialOne(ctx context.Context) (*pipelineConn, error) {
	conn, err := NewConnector(ctx, p.target, p.dial, p.wheel, 65536)
	if err != nil {
		return nil, err
	}
	return &pipelineConn{conn: conn}, nil
}

func (p *Pipeline) tickLoop() {
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
			if p.wheel == nil {
				continue
			}
			p.wheel.Tick(now.UnixMilli(), func(entry any) {
				if fired, ok := entry.(timeoutEntry); ok {
					fired.conn.FireTimeout(fired.requestID)
				}
			})
		}
	}
}

// pick selects the next connector round-robin, redialing in place if the
// slot's connector has died and reconnection is enabled.
func (p *Pipeline) pick(ctx context.Context) (*pipelineConn, error) {
	p.mu.Lock()
	n := len(p.conns)
	if n == 0 {
		p.mu.Unlock()
		return nil, ErrConnectorClosed
	}
	idx := int(p.next % uint32(n))
	p.next++
	pc := p.conns[idx]
	p.mu.Unlock()

	if !pc.conn.IsClosed() {
		return pc, nil
	}
	if !p.opts.IsReconnection {
		return nil, ErrConnectorClosed
	}
	newPC, err := p.dialOne(ctx)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.conns[idx] = newPC
	p.mu.Unlock()
	return newPC, nil
}

// Send round-robins req onto one of the pipeline's connectors. Multiple
// concurrent Send calls may land on the same connector and be in flight
// together; RequestID matching keeps their responses paired with the
// right caller, but Send additionally requires that calls on the same
// connector complete in the order they were submitted. A call that
// completes out of turn tears the connector down and fails with
// ErrPipelineDesync, which also fails every other request still
// outstanding on it. A caller whose own ctx ends before any response
// arrives is not an ordering event and is exempted from the check.
func (p *Pipeline) Send(ctx context.Context, req *codec.UnaryMessage) (*codec.UnaryMessage, error) {
	pc, err := p.pick(ctx)
	if err != nil {
		return nil, err
	}

	seq := pc.submit()
	resp, err := pc.conn.Send(ctx, req)
	if err != nil && err == ctx.Err() {
		pc.abandon(seq)
		return nil, err
	}
	if !pc.complete(seq) {
		pc.conn.Close()
		return nil, ErrPipelineDesync
	}
	return resp, err
}

// Close tears down every connector in the pipeline and stops its ticker.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	conns := p.conns
	p.conns = nil
	p.mu.Unlock()

	select {
	case <-p.stopTick:
	default:
		close(p.stopTick)
	}

	var firstErr error
	for _, pc := range conns {
		if err := pc.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
