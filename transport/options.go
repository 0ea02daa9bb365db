// Package transport implements the three client-side sending disciplines
// built on top of codec, stream, and timer: connection-complex (C8),
// connection-pool (C9), and pipeline (C10), plus the backup-request
// hedging coordinator (C11) shared by all three.
package transport

import "time"

// Defaults mirror §6's recognized configuration keys.
const (
	DefaultMaxConnNum                  = 2
	DefaultConnectIntervalMs           = 2000
	DefaultPendingQueueCapacity        = 10000
	DefaultRequestTimeoutCheckInterval = time.Millisecond
)

// ComplexOptions configures a connection-complex connector (C8): a single
// long-lived connection per peer address with a shared request-id-keyed
// timeout queue.
type ComplexOptions struct {
	ConnectIntervalMs            int64
	ConnectionIdleTimeoutMs      int64
	RequestTimeoutCheckIntervalMs int64
	IsReconnection               bool
	DisableRequestTimeout        bool
	StreamMaxWindowSize          uint32
}

// ComplexOption mutates a ComplexOptions.
type ComplexOption func(*ComplexOptions)

// WithComplexConnectInterval sets the minimum delay between reconnect
// attempts.
func WithComplexConnectInterval(ms int64) ComplexOption {
	return func(o *ComplexOptions) { o.ConnectIntervalMs = ms }
}

// WithComplexIdleTimeout sets the idle-connection reap threshold.
func WithComplexIdleTimeout(ms int64) ComplexOption {
	return func(o *ComplexOptions) { o.ConnectionIdleTimeoutMs = ms }
}

// WithComplexReconnection enables automatic reconnection after idle reap
// or a network failure.
func WithComplexReconnection(enabled bool) ComplexOption {
	return func(o *ComplexOptions) { o.IsReconnection = enabled }
}

// WithComplexDisableRequestTimeout removes every request from the timeout
// wheel, leaving cancellation to the caller's own context.
func WithComplexDisableRequestTimeout(disabled bool) ComplexOption {
	return func(o *ComplexOptions) { o.DisableRequestTimeout = disabled }
}

// WithComplexStreamMaxWindowSize sets the per-stream flow-control window
// advertised on INIT.
func WithComplexStreamMaxWindowSize(size uint32) ComplexOption {
	return func(o *ComplexOptions) { o.StreamMaxWindowSize = size }
}

// WithComplexRequestTimeoutCheckInterval sets how often the timeout wheel
// is ticked.
func WithComplexRequestTimeoutCheckInterval(ms int64) ComplexOption {
	return func(o *ComplexOptions) { o.RequestTimeoutCheckIntervalMs = ms }
}

// NewComplexOptions applies opts over the documented defaults.
func NewComplexOptions(opts ...ComplexOption) ComplexOptions {
	o := ComplexOptions{
		ConnectIntervalMs:             DefaultConnectIntervalMs,
		IsReconnection:                true,
		StreamMaxWindowSize:           65536,
		RequestTimeoutCheckIntervalMs: 1,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ConnPoolOptions configures a connection-pool connector (C9): up to
// MaxConnNum connectors per peer, a bounded pending-queue for callers that
// arrive when every connector is busy.
type ConnPoolOptions struct {
	MaxConnNum                    int
	ConnectIntervalMs             int64
	ConnectionIdleTimeoutMs       int64
	RequestTimeoutCheckIntervalMs int64
	PendingQueueCapacity          int
	IsReconnection                bool
	DisableRequestTimeout         bool
}

// ConnPoolOption mutates a ConnPoolOptions.
type ConnPoolOption func(*ConnPoolOptions)

// WithMaxConnNum sets the maximum number of connectors held open per peer.
func WithMaxConnNum(n int) ConnPoolOption {
	return func(o *ConnPoolOptions) { o.MaxConnNum = n }
}

// WithConnectInterval sets the minimum delay between reconnect attempts.
func WithConnectInterval(ms int64) ConnPoolOption {
	return func(o *ConnPoolOptions) { o.ConnectIntervalMs = ms }
}

// WithIdleTimeout sets the idle-connection reap threshold.
func WithIdleTimeout(ms int64) ConnPoolOption {
	return func(o *ConnPoolOptions) { o.ConnectionIdleTimeoutMs = ms }
}

// WithPendingQueueCapacity bounds the per-group pending-queue.
func WithPendingQueueCapacity(n int) ConnPoolOption {
	return func(o *ConnPoolOptions) { o.PendingQueueCapacity = n }
}

// WithReconnection enables automatic reconnection.
func WithReconnection(enabled bool) ConnPoolOption {
	return func(o *ConnPoolOptions) { o.IsReconnection = enabled }
}

// WithDisableRequestTimeout removes requests from the timeout wheel.
func WithDisableRequestTimeout(disabled bool) ConnPoolOption {
	return func(o *ConnPoolOptions) { o.DisableRequestTimeout = disabled }
}

// WithRequestTimeoutCheckInterval sets how often the timeout wheel is
// ticked.
func WithRequestTimeoutCheckInterval(ms int64) ConnPoolOption {
	return func(o *ConnPoolOptions) { o.RequestTimeoutCheckIntervalMs = ms }
}

// NewConnPoolOptions applies opts over the documented defaults.
func NewConnPoolOptions(opts ...ConnPoolOption) ConnPoolOptions {
	o := ConnPoolOptions{
		MaxConnNum:                    DefaultMaxConnNum,
		ConnectIntervalMs:             DefaultConnectIntervalMs,
		PendingQueueCapacity:          DefaultPendingQueueCapacity,
		IsReconnection:                true,
		RequestTimeoutCheckIntervalMs: 1,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// PipelineOptions configures a pipeline connector (C10): round-robin
// connector selection with strict FIFO response ordering per connection.
type PipelineOptions struct {
	MaxConnNum                    int
	ConnectIntervalMs             int64
	ConnectionIdleTimeoutMs       int64
	RequestTimeoutCheckIntervalMs int64
	IsReconnection                bool
	DisableRequestTimeout         bool
}

// PipelineOption mutates a PipelineOptions.
type PipelineOption func(*PipelineOptions)

// WithPipelineMaxConnNum sets the maximum number of connectors per peer.
func WithPipelineMaxConnNum(n int) PipelineOption {
	return func(o *PipelineOptions) { o.MaxConnNum = n }
}

// WithPipelineConnectInterval sets the minimum delay between reconnect
// attempts.
func WithPipelineConnectInterval(ms int64) PipelineOption {
	return func(o *PipelineOptions) { o.ConnectIntervalMs = ms }
}

// WithPipelineIdleTimeout sets the idle-connection reap threshold.
func WithPipelineIdleTimeout(ms int64) PipelineOption {
	return func(o *PipelineOptions) { o.ConnectionIdleTimeoutMs = ms }
}

// WithPipelineReconnection enables automatic reconnection.
func WithPipelineReconnection(enabled bool) PipelineOption {
	return func(o *PipelineOptions) { o.IsReconnection = enabled }
}

// WithPipelineDisableRequestTimeout removes requests from the timeout
// wheel.
func WithPipelineDisableRequestTimeout(disabled bool) PipelineOption {
	return func(o *PipelineOptions) { o.DisableRequestTimeout = disabled }
}

// WithPipelineRequestTimeoutCheckInterval sets how often the pipeline's
// shared timeout wheel is ticked.
func WithPipelineRequestTimeoutCheckInterval(ms int64) PipelineOption {
	return func(o *PipelineOptions) { o.RequestTimeoutCheckIntervalMs = ms }
}

// NewPipelineOptions applies opts over the documented defaults.
func NewPipelineOptions(opts ...PipelineOption) PipelineOptions {
	o := PipelineOptions{
		MaxConnNum:                    DefaultMaxConnNum,
		ConnectIntervalMs:             DefaultConnectIntervalMs,
		IsReconnection:                true,
		RequestTimeoutCheckIntervalMs: 1,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
