package stream

import (
	"context"
	"sync"
)

// sendWaiter is one blocked SendData call. Either ch closes because enough
// credit arrived, or the caller's context is done first.
type sendWaiter struct {
	need    int64
	ch      chan struct{}
	granted bool
}

// FlowController implements C6: a per-stream, credit-based flow-control
// window on both the receive and send sides, both seeded from the same
// initial window size. A zero or negative size disables accounting on both
// sides at once (treated as infinite).
type FlowController struct {
	mu            sync.Mutex
	recvInitial   int64
	recvRemaining int64
	sendRemaining int64
	disabled      bool
	waiters       []*sendWaiter
}

// NewFlowController builds a controller with the given initial window
// size on both sides. initialWindowSize <= 0 disables flow control for
// this stream.
func NewFlowController(initialWindowSize int64) *FlowController {
	return &FlowController{
		recvInitial:   initialWindowSize,
		recvRemaining: initialWindowSize,
		sendRemaining: initialWindowSize,
		disabled:      initialWindowSize <= 0,
	}
}

// ConsumeRecv accounts for n bytes of newly delivered DATA payload. It
// returns the increment to advertise via FEEDBACK and whether one is due
// (remaining dropped below one quarter of the initial window, per §4.6).
// err is ErrWindowExceeded if n exceeds what remains — the peer violated
// the advertised window.
func (fc *FlowController) ConsumeRecv(n int64) (increment int64, shouldFeedback bool, err error) {
	if fc.disabled {
		return 0, false, nil
	}
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if n > fc.recvRemaining {
		return 0, false, ErrWindowExceeded
	}
	fc.recvRemaining -= n
	if fc.recvRemaining < fc.recvInitial/4 {
		increment = fc.recvInitial - fc.recvRemaining
		fc.recvRemaining = fc.recvInitial
		return increment, true, nil
	}
	return 0, false, nil
}

// CreditSend applies a peer FEEDBACK increment to the send-side window,
// unblocking queued ReserveSend callers in FIFO order as capacity allows.
func (fc *FlowController) CreditSend(increment int64) {
	if fc.disabled {
		return
	}
	fc.mu.Lock()
	defer fc.mu.Unlock()

	fc.sendRemaining += increment
	for len(fc.waiters) > 0 {
		w := fc.waiters[0]
		if fc.sendRemaining < w.need {
			break
		}
		fc.sendRemaining -= w.need
		w.granted = true
		fc.waiters = fc.waiters[1:]
		close(w.ch)
	}
}

// ReserveSend blocks until n bytes of send-window credit are available, or
// ctx is done. Cancellation dequeues the waiter (or, if it raced with a
// grant, refunds the credit it was just given) so no credit leaks.
func (fc *FlowController) ReserveSend(ctx context.Context, n int64) error {
	if fc.disabled {
		return nil
	}

	fc.mu.Lock()
	if fc.sendRemaining >= n {
		fc.sendRemaining -= n
		fc.mu.Unlock()
		return nil
	}
	w := &sendWaiter{need: n, ch: make(chan struct{})}
	fc.waiters = append(fc.waiters, w)
	fc.mu.Unlock()

	select {
	case <-w.ch:
		return nil
	case <-ctx.Done():
		fc.mu.Lock()
		defer fc.mu.Unlock()
		if w.granted {
			fc.sendRemaining += n
			return ctx.Err()
		}
		for i, ww := range fc.waiters {
			if ww == w {
				fc.waiters = append(fc.waiters[:i], fc.waiters[i+1:]...)
				break
			}
		}
		return ctx.Err()
	}
}
