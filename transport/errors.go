package transport

import "trpc.group/trpc-go/trpc-core/retcode"

// ErrConnectorClosed is returned by any send attempted on a connector that
// has already torn down its connection and is not currently reconnecting.
var ErrConnectorClosed = retcode.New(retcode.ClientNetworkErr, "connector closed")

// ErrDialInProgress is returned by a non-blocking send attempted while a
// connector is between connections and reconnection is in flight.
var ErrDialInProgress = retcode.New(retcode.ClientConnectErr, "connector reconnecting")

// ErrPoolExhausted is returned by ConnectionPool.Send when every connector
// is busy and the pending-queue is at capacity.
var ErrPoolExhausted = retcode.New(retcode.ClientOverload, "connection pool exhausted")

// ErrRequestTimeout is delivered to a caller whose request aged out of the
// timeout wheel before a response arrived.
var ErrRequestTimeout = retcode.New(retcode.ClientInvokeTimeout, "request timed out")

// ErrPipelineDesync is raised by Pipeline when a connector's responses
// complete out of the order their requests were submitted in. The
// connector is no longer trustworthy and is torn down. The request that
// triggered the check fails with this error; every other request still
// outstanding on it fails with ErrConnectorClosed when the connector closes.
var ErrPipelineDesync = retcode.New(retcode.ClientNetworkErr, "pipeline response order violated")
