package transport

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"trpc.group/trpc-go/trpc-core/codec"
	"trpc.group/trpc-go/trpc-core/timer"
)

// Sender is anything BackupCoordinator can hedge a request across —
// satisfied by ConnectionComplex, ConnectionPool, and Pipeline alike.
type Sender interface {
	Send(ctx context.Context, req *codec.UnaryMessage) (*codec.UnaryMessage, error)
}

// hedgeEntry is what the shared wheel holds for one in-flight hedge:
// firing closes ready exactly once, regardless of how many times Tick
// observes it (a request already fired never re-fires, which is the
// "duplicate-insert collapse" the backup coordinator must guarantee).
type hedgeEntry struct {
	once  sync.Once
	ready chan struct{}
}

func newHedgeEntry() *hedgeEntry {
	return &hedgeEntry{ready: make(chan struct{})}
}

func (h *hedgeEntry) fire() {
	h.once.Do(func() { close(h.ready) })
}

// BackupCoordinator implements C11: a request is sent to a primary
// Sender; if no response lands before hedgeDelayMs elapses, a second copy
// is dispatched to a backup Sender, and whichever completes first wins —
// the loser's result, if it ever arrives, is discarded.
type BackupCoordinator struct {
	wheel    *timer.Wheel
	stopTick chan struct{}
	keySeq   uint32
}

// NewBackupCoordinator starts the coordinator's own hedge-deadline wheel
// and ticker; call Close when no more Send calls will be issued.
func NewBackupCoordinator() *BackupCoordinator {
	bc := &BackupCoordinator{
		wheel:    timer.NewWheel(timer.DefaultRingSize, 0),
		stopTick: make(chan struct{}),
	}
	go bc.tickLoop()
	return bc
}

func (bc *BackupCoordinator) tickLoop() {
	ticker := time.NewTicker(DefaultRequestTimeoutCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-bc.stopTick:
			return
		case now := <-ticker.C:
			bc.wheel.Tick(now.UnixMilli(), func(entry any) {
				if he, ok := entry.(*hedgeEntry); ok {
					he.fire()
				}
			})
		}
	}
}

// Send dispatches req to primary immediately. If hedgeDelayMs elapses
// before primary answers, req is also dispatched to backup; the first of
// the two to complete is returned.
func (bc *BackupCoordinator) Send(ctx context.Context, primary, backup Sender, req *codec.UnaryMessage, hedgeDelayMs int64) (*codec.UnaryMessage, error) {
	results := make(chan unaryResult, 2)

	go func() {
		msg, err := primary.Send(ctx, req)
		results <- unaryResult{msg: msg, err: err}
	}()

	if backup != nil && hedgeDelayMs > 0 {
		entry := newHedgeEntry()
		key := atomic.AddUint32(&bc.keySeq, 1)
		deadline := time.Now().UnixMilli() + hedgeDelayMs
		bc.wheel.Push(key, entry, deadline)

		go func() {
			select {
			case <-entry.ready:
			case <-ctx.Done():
				return
			}
			bc.wheel.Pop(key)
			msg, err := backup.Send(ctx, req)
			results <- unaryResult{msg: msg, err: err}
		}()
	}

	select {
	case r := <-results:
		return r.msg, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the coordinator's ticker.
func (bc *BackupCoordinator) Close() error {
	close(bc.stopTick)
	return nil
}
