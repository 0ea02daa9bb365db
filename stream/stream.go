package stream

import (
	"context"
	"sync"

	"trpc.group/trpc-go/trpc-core/codec"
)

// Transport is the narrow send surface a Stream needs from whatever owns
// the underlying connection (the C7 handler on the client, the C16
// acceptor on the server). Encoding and writing bytes is the transport's
// job; Stream only decides whether an action is legal right now.
type Transport interface {
	SendInit(streamID uint32, ret int32, errMsg string) error
	SendData(streamID uint32, payload []byte) error
	SendFeedback(streamID uint32, increment uint32) error
	SendClose(streamID uint32, closeType codec.CloseType, ret int32, errMsg string) error
}

// Stream is one protocol-level stream: identity, lifecycle state, the
// flow-control window pair, and the callbacks a caller uses to consume
// delivered data and observe termination.
type Stream struct {
	mu        sync.Mutex
	id        uint32
	role      Role
	state     State
	flow      *FlowController
	transport Transport

	onData   func([]byte)
	onClosed func(error)

	done    chan struct{}
	closeSet bool
	err     error
}

// NewStream constructs a stream in Idle, bound to transport for outbound
// frames and initialWindowSize for both flow-control directions.
func NewStream(id uint32, role Role, initialWindowSize int64, transport Transport) *Stream {
	return &Stream{
		id:        id,
		role:      role,
		state:     Idle,
		flow:      NewFlowController(initialWindowSize),
		transport: transport,
		done:      make(chan struct{}),
	}
}

// ID returns the stream identifier.
func (s *Stream) ID() uint32 { return s.id }

// Role returns which side of the stream this instance represents.
func (s *Stream) Role() Role { return s.role }

// State returns the current lifecycle state.
func (s *Stream) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// OnData registers the callback invoked for each delivered DATA payload.
// Must be set before the stream starts receiving frames.
func (s *Stream) OnData(fn func([]byte)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onData = fn
}

// OnClosed registers the callback invoked exactly once when the stream
// reaches Closed, with the terminating error (nil for a clean CLOSE).
func (s *Stream) OnClosed(fn func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClosed = fn
}

// Done returns a channel closed once the stream reaches Closed.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Err returns the terminating error, valid only after Done is closed.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// apply performs a table-governed transition. On an illegal transition it
// forces Closed and reports ErrProtocolViolation. The returned closure (if
// non-nil) is the onClosed notification; the caller must invoke it only
// after releasing s.mu, since it is free to call back into other streams
// (e.g. a handler forgetting this one) but must never re-enter this
// stream's own locked methods. The caller is still responsible for
// emitting the RESET frame — transition alone never writes to the wire.
func (s *Stream) apply(action Action) (func(), error) {
	if s.state == Closed {
		// A CLOSE observed while already Closed is documented leniency,
		// not a protocol error; any other action against a dead stream
		// is reported but does not re-trigger RESET machinery.
		if action == HandleClose || action == SendClose {
			return nil, nil
		}
	}
	to, ok := next(s.role, s.state, action)
	if !ok {
		cb := s.finishLocked(ErrProtocolViolation)
		return cb, ErrProtocolViolation
	}
	s.state = to
	return nil, nil
}

// finishLocked moves the stream to Closed, recording err as the
// terminating cause, and returns the onClosed notification to run once
// s.mu is released (see apply's doc comment). Must be called with s.mu
// held.
func (s *Stream) finishLocked(err error) func() {
	if s.closeSet {
		return nil
	}
	s.closeSet = true
	s.state = Closed
	s.err = err
	close(s.done)
	cb := s.onClosed
	if cb == nil {
		return nil
	}
	return func() { cb(err) }
}

// SendInit transmits INIT for a client-initiated stream (Idle -> Init).
func (s *Stream) SendInit() error {
	s.mu.Lock()
	_, err := s.apply(SendInit)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.transport.SendInit(s.id, 0, "")
}

// HandleInit processes an inbound INIT frame: a reply on the client
// (Init -> Open, or Closed on nonzero ret), or the server's dispatch
// trigger (Idle -> Init).
func (s *Stream) HandleInit(ret int32, errMsg string) error {
	s.mu.Lock()
	_, err := s.apply(HandleInit)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	var cb func()
	if s.role == RoleClient && ret != 0 {
		cb = s.finishLocked(clientInitError(ret, errMsg))
		err = s.err
	}
	s.mu.Unlock()
	if cb != nil {
		cb()
	}
	return err
}

// ReplyInit is the server-role counterpart of SendInit: it transmits the
// INIT reply and moves Init -> Open (or Closed, when ret signals the
// method was not found).
func (s *Stream) ReplyInit(ret int32, errMsg string) error {
	s.mu.Lock()
	_, err := s.apply(SendInit)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	var cb func()
	if ret != 0 {
		cb = s.finishLocked(clientInitError(ret, errMsg))
	}
	s.mu.Unlock()
	if cb != nil {
		cb()
	}
	return s.transport.SendInit(s.id, ret, errMsg)
}

// SendData reserves send-window credit (blocking until available or ctx is
// done) and transmits a DATA frame.
func (s *Stream) SendData(ctx context.Context, payload []byte) error {
	s.mu.Lock()
	_, err := s.apply(SendData)
	flow := s.flow
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if err := flow.ReserveSend(ctx, int64(len(payload))); err != nil {
		return err
	}
	return s.transport.SendData(s.id, payload)
}

// HandleData delivers an inbound DATA payload: accounts for it against the
// receive window, invokes the registered callback, and emits FEEDBACK if
// the window crossed its threshold.
func (s *Stream) HandleData(payload []byte) error {
	s.mu.Lock()
	_, err := s.apply(HandleData)
	flow := s.flow
	cb := s.onData
	s.mu.Unlock()
	if err != nil {
		return err
	}

	increment, shouldFeedback, werr := flow.ConsumeRecv(int64(len(payload)))
	if werr != nil {
		s.mu.Lock()
		closedCb := s.finishLocked(werr)
		s.mu.Unlock()
		if closedCb != nil {
			closedCb()
		}
		return werr
	}
	if cb != nil {
		cb(payload)
	}
	if shouldFeedback {
		return s.transport.SendFeedback(s.id, uint32(increment))
	}
	return nil
}

// HandleFeedback credits the send-side window by increment bytes.
func (s *Stream) HandleFeedback(increment uint32) error {
	s.mu.Lock()
	_, err := s.apply(HandleFeedback)
	flow := s.flow
	s.mu.Unlock()
	if err != nil {
		return err
	}

	flow.CreditSend(int64(increment))
	return nil
}

// SendClose transmits CLOSE and moves to LocalClosed (client) or Closed
// (server).
func (s *Stream) SendClose(ret int32, errMsg string) error {
	s.mu.Lock()
	_, err := s.apply(SendClose)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	var cb func()
	if s.state == Closed {
		cb = s.finishLocked(nil)
	}
	s.mu.Unlock()
	if cb != nil {
		cb()
	}
	return s.transport.SendClose(s.id, codec.CloseTypeClose, ret, errMsg)
}

// HandleClose processes an inbound CLOSE frame.
func (s *Stream) HandleClose(ret int32, errMsg string) error {
	s.mu.Lock()
	_, err := s.apply(HandleClose)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	var cb func()
	if s.state == Closed {
		var cause error
		if ret != 0 {
			cause = clientInitError(ret, errMsg)
		}
		cb = s.finishLocked(cause)
	}
	s.mu.Unlock()
	if cb != nil {
		cb()
	}
	return nil
}

// SendReset forces the stream to Closed and transmits a RESET.
func (s *Stream) SendReset(cause error) error {
	s.mu.Lock()
	cb := s.finishLocked(cause)
	s.mu.Unlock()
	if cb != nil {
		cb()
	}
	return s.transport.SendClose(s.id, codec.CloseTypeReset, retcodeOf(cause), causeMsg(cause))
}

// HandleReset forces the stream to Closed in response to an inbound
// RESET; no frame is transmitted back.
func (s *Stream) HandleReset(cause error) {
	s.mu.Lock()
	cb := s.finishLocked(cause)
	s.mu.Unlock()
	if cb != nil {
		cb()
	}
}
