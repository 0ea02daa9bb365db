// Package retcode defines the tRPC framework return codes: fixed 32-bit
// identities that cross the wire in a CLOSE frame or a response FrameHead,
// and the typed Go errors that wrap them on this side of the process
// boundary.
package retcode

// Code is a framework return code. Its numeric value is part of the wire
// protocol (it crosses the wire verbatim in FrameHead.Ret and
// StreamCloseFrame.Ret) and must never be renumbered.
type Code int32

const (
	// Success is the zero value: no error.
	Success Code = 0

	// Client-side unary errors.
	ClientInvokeTimeout Code = 101
	ClientConnectErr    Code = 102
	ClientNetworkErr    Code = 103
	ClientOverload      Code = 104
	ClientEncodeErr     Code = 105
	ClientDecodeErr     Code = 106
	ClientInvokeUnknown Code = 107

	// Server-side unary errors.
	ServerDecodeErr       Code = 201
	ServerEncodeErr       Code = 202
	ServerTimeout         Code = 203
	ServerFullLinkTimeout Code = 204
	ServerNotFun          Code = 205

	// Streaming errors.
	StreamClientNetworkErr  Code = 301
	StreamServerNetworkErr  Code = 302
	StreamClientReadTimeout Code = 303
	StreamServerReadTimeout Code = 304
	StreamClientEncodeErr   Code = 305
	StreamServerEncodeErr   Code = 306
	StreamClientDecodeErr   Code = 307
	StreamServerDecodeErr   Code = 308
	StreamUnknown           Code = 309
)

var names = map[Code]string{
	Success:                 "success",
	ClientInvokeTimeout:     "client invoke timeout",
	ClientConnectErr:        "client connect error",
	ClientNetworkErr:        "client network error",
	ClientOverload:          "client overload",
	ClientEncodeErr:         "client encode error",
	ClientDecodeErr:         "client decode error",
	ClientInvokeUnknown:     "client invoke unknown error",
	ServerDecodeErr:         "server decode error",
	ServerEncodeErr:         "server encode error",
	ServerTimeout:           "server timeout",
	ServerFullLinkTimeout:   "server full link timeout",
	ServerNotFun:            "server function not found",
	StreamClientNetworkErr:  "stream client network error",
	StreamServerNetworkErr:  "stream server network error",
	StreamClientReadTimeout: "stream client read timeout",
	StreamServerReadTimeout: "stream server read timeout",
	StreamClientEncodeErr:   "stream client encode error",
	StreamServerEncodeErr:   "stream server encode error",
	StreamClientDecodeErr:   "stream client decode error",
	StreamServerDecodeErr:   "stream server decode error",
	StreamUnknown:           "stream unknown error",
}

// String returns the human-readable name of c, or "unknown" if c is not
// one of the codes defined above.
func (c Code) String() string {
	if name, ok := names[c]; ok {
		return name
	}
	return "unknown"
}
