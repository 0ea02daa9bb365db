package stream

import (
	"io"
	"sync"

	"trpc.group/trpc-go/trpc-core/codec"
)

// Writer is the minimal connection surface the handler needs: one frame's
// encoded bytes at a time, in order.
type Writer interface {
	Write(b []byte) (int, error)
}

// Handler implements C7: it binds to one connection, demultiplexes decoded
// frames to the stream they belong to, and is itself the Transport every
// owned Stream uses to encode and write its outbound frames.
//
// Client-side stream-ids are allocated from a counter starting at 100, per
// §4.7. A server-side Handler never allocates ids itself; see
// ServerHandler for the accept path.
type Handler struct {
	mu      sync.Mutex
	w       Writer
	streams map[uint32]*Stream
	nextID  uint32

	role              Role
	initialWindowSize int64
}

// NewHandler constructs a client-role Handler writing frames to w.
func NewHandler(w Writer, initialWindowSize int64) *Handler {
	return &Handler{
		w:                 w,
		streams:           make(map[uint32]*Stream),
		nextID:            100,
		role:              RoleClient,
		initialWindowSize: initialWindowSize,
	}
}

// NewStream allocates a new client-role stream with the next id in
// sequence and registers it for demultiplexing.
func (h *Handler) NewStream() *Stream {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.mu.Unlock()

	s := NewStream(id, RoleClient, h.initialWindowSize, h)
	s.OnClosed(func(error) { h.Forget(id) })

	h.mu.Lock()
	h.streams[id] = s
	h.mu.Unlock()
	return s
}

// Lookup returns the stream registered under id, if any.
func (h *Handler) Lookup(id uint32) (*Stream, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.streams[id]
	return s, ok
}

// Forget deregisters a stream, typically once it reaches Closed.
func (h *Handler) Forget(id uint32) {
	h.mu.Lock()
	delete(h.streams, id)
	h.mu.Unlock()
}

// Dispatch routes one decoded streaming frame to its stream, per §4.7.
// Unary frames (stream-id 0) are the caller's concern, not the handler's —
// Dispatch only handles the four streaming shapes.
func (h *Handler) Dispatch(meta codec.Meta, raw []byte) error {
	s, ok := h.Lookup(meta.StreamID)
	if !ok {
		// The server cannot open a client-role stream; an unknown
		// stream-id here is simply stale traffic for a stream this
		// side already forgot.
		return ErrUnknownStream
	}

	switch meta.StreamFrameType {
	case codec.StreamFrameInit:
		var f codec.StreamInitFrame
		if err := f.Decode(raw); err != nil {
			return err
		}
		return s.HandleInit(f.Ret, f.ErrorMsg)
	case codec.StreamFrameData:
		var f codec.StreamDataFrame
		if err := f.Decode(raw); err != nil {
			return err
		}
		return s.HandleData(f.Payload)
	case codec.StreamFrameFeedback:
		var f codec.StreamFeedbackFrame
		if err := f.Decode(raw); err != nil {
			return err
		}
		return s.HandleFeedback(f.WindowIncrement)
	case codec.StreamFrameClose:
		var f codec.StreamCloseFrame
		if err := f.Decode(raw); err != nil {
			return err
		}
		if f.CloseType == codec.CloseTypeReset {
			s.HandleReset(clientInitError(f.Ret, f.Msg))
			return nil
		}
		return s.HandleClose(f.Ret, f.Msg)
	default:
		return ErrProtocolViolation
	}
}

// CloseAll forces every attached stream to Closed with NetworkError, for
// use when the owning connection terminates.
func (h *Handler) CloseAll(cause error) {
	h.mu.Lock()
	streams := make([]*Stream, 0, len(h.streams))
	for _, s := range h.streams {
		streams = append(streams, s)
	}
	h.streams = make(map[uint32]*Stream)
	h.mu.Unlock()

	if cause == nil {
		cause = ErrConnectionClosed
	}
	for _, s := range streams {
		s.HandleReset(cause)
	}
}

// SendInit implements Transport.
func (h *Handler) SendInit(streamID uint32, ret int32, errMsg string) error {
	f := codec.StreamInitFrame{StreamID: streamID, Ret: ret, ErrorMsg: errMsg, InitialWindowSize: uint32(h.initialWindowSize)}
	return h.write(&f)
}

// SendData implements Transport.
func (h *Handler) SendData(streamID uint32, payload []byte) error {
	f := codec.StreamDataFrame{StreamID: streamID, Payload: payload}
	return h.write(&f)
}

// SendFeedback implements Transport.
func (h *Handler) SendFeedback(streamID uint32, increment uint32) error {
	f := codec.StreamFeedbackFrame{StreamID: streamID, WindowIncrement: increment}
	return h.write(&f)
}

// SendClose implements Transport.
func (h *Handler) SendClose(streamID uint32, closeType codec.CloseType, ret int32, errMsg string) error {
	f := codec.StreamCloseFrame{StreamID: streamID, CloseType: closeType, Ret: ret, Msg: errMsg}
	return h.write(&f)
}

type encoder interface {
	Encode() ([]byte, error)
}

func (h *Handler) write(f encoder) error {
	buf, err := f.Encode()
	if err != nil {
		return err
	}
	_, err = h.w.Write(buf)
	return err
}

var _ io.Writer = (Writer)(nil)
