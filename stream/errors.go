package stream

import (
	"trpc.group/trpc-go/trpc-core/retcode"
)

// ErrProtocolViolation is raised whenever a (state, action) pair is not in
// the permitted transition table. The stream is forced to Closed before
// this error reaches the caller; no RESET frame is transmitted for it.
var ErrProtocolViolation = retcode.New(retcode.StreamUnknown, "illegal stream state transition")

// ErrWindowExceeded is raised when an incoming DATA frame's payload is
// larger than the receiver's remaining flow-control window — the peer was
// supposed to respect the advertised window.
var ErrWindowExceeded = retcode.New(retcode.StreamUnknown, "peer exceeded advertised flow-control window")

// ErrUnknownStream is returned by the handler when a frame addresses a
// stream-id the client side never opened (the server cannot open streams).
var ErrUnknownStream = retcode.New(retcode.StreamUnknown, "frame for unknown stream-id")

// ErrConnectionClosed is delivered to every attached stream when the
// owning connection terminates.
var ErrConnectionClosed = retcode.New(retcode.StreamClientNetworkErr, "owning connection closed")
