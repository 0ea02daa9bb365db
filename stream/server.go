package stream

import (
	"context"
	"sync"

	"trpc.group/trpc-go/trpc-core/codec"
	"trpc.group/trpc-go/trpc-core/retcode"
)

// StreamAcceptFunc stands in for "dispatch RPC method handler" (§4.15):
// the server accept path invokes it once a stream reaches Init, and its
// error, if any, becomes the INIT reply's framework return code.
type StreamAcceptFunc func(ctx context.Context, s *Stream, init codec.StreamInitFrame) error

// ServerHandler mirrors Handler for the accept side. On an unrecognized
// stream-id it allocates a stream in Idle, synthesizes HandleInit, and
// invokes the registered StreamAcceptFunc — this is what exercises the
// server half of §4.5's transition table in-process, without a full
// service dispatch registry.
type ServerHandler struct {
	mu      sync.Mutex
	w       Writer
	streams map[uint32]*Stream

	initialWindowSize int64
	accept            StreamAcceptFunc
}

// NewServerHandler constructs a server-role handler writing frames to w.
// accept is invoked for every newly accepted stream; a nil accept rejects
// every INIT with ServerNotFun.
func NewServerHandler(w Writer, initialWindowSize int64, accept StreamAcceptFunc) *ServerHandler {
	return &ServerHandler{
		w:                 w,
		streams:           make(map[uint32]*Stream),
		initialWindowSize: initialWindowSize,
		accept:            accept,
	}
}

// Lookup returns the stream registered under id, if any.
func (h *ServerHandler) Lookup(id uint32) (*Stream, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.streams[id]
	return s, ok
}

func (h *ServerHandler) forget(id uint32) {
	h.mu.Lock()
	delete(h.streams, id)
	h.mu.Unlock()
}

// Dispatch routes one decoded streaming frame, allocating a new stream on
// first sight of its id (INIT only — any other frame type for an unknown
// id is stale traffic).
func (h *ServerHandler) Dispatch(ctx context.Context, meta codec.Meta, raw []byte) error {
	s, ok := h.Lookup(meta.StreamID)
	if !ok {
		if meta.StreamFrameType != codec.StreamFrameInit {
			return ErrUnknownStream
		}
		var f codec.StreamInitFrame
		if err := f.Decode(raw); err != nil {
			return err
		}
		return h.accept_(ctx, f)
	}

	switch meta.StreamFrameType {
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

func (h *ServerHandler) accept_(ctx context.Context, f codec.StreamInitFrame) error {
	s := NewStream(f.StreamID, RoleServer, h.initialWindowSize, h)
	s.OnClosed(func(error) { h.forget(f.StreamID) })
	if err := s.HandleInit(0, ""); err != nil {
		return err
	}

	h.mu.Lock()
	h.streams[f.StreamID] = s
	h.mu.Unlock()

	var acceptErr error
	if h.accept != nil {
		acceptErr = h.accept(ctx, s, f)
	} else {
		acceptErr = retcode.New(retcode.ServerNotFun, "no stream accept function registered")
	}

	ret, msg := int32(0), ""
	if acceptErr != nil {
		ret, msg = retcodeOf(acceptErr), causeMsg(acceptErr)
	}
	return s.ReplyInit(ret, msg)
}

// CloseAll forces every attached stream to Closed with cause, for use when
// the owning connection terminates.
func (h *ServerHandler) CloseAll(cause error) {
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
func (h *ServerHandler) SendInit(streamID uint32, ret int32, errMsg string) error {
	f := codec.StreamInitFrame{StreamID: streamID, Ret: ret, ErrorMsg: errMsg, InitialWindowSize: uint32(h.initialWindowSize)}
	return h.write(&f)
}

// SendData implements Transport.
func (h *ServerHandler) SendData(streamID uint32, payload []byte) error {
	f := codec.StreamDataFrame{StreamID: streamID, Payload: payload}
	return h.write(&f)
}

// SendFeedback implements Transport.
func (h *ServerHandler) SendFeedback(streamID uint32, increment uint32) error {
	f := codec.StreamFeedbackFrame{StreamID: streamID, WindowIncrement: increment}
	return h.write(&f)
}

// SendClose implements Transport.
func (h *ServerHandler) SendClose(streamID uint32, closeType codec.CloseType, ret int32, errMsg string) error {
	f := codec.StreamCloseFrame{StreamID: streamID, CloseType: closeType, Ret: ret, Msg: errMsg}
	return h.write(&f)
}

func (h *ServerHandler) write(f encoder) error {
	buf, err := f.Encode()
	if err != nil {
		return err
	}
	_, err = h.w.Write(buf)
	return err
}
