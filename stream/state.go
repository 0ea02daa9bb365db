// Package stream implements the per-stream lifecycle state machine, the
// credit-based flow controller, and the frame demultiplexer that sit
// between a decoded wire frame (codec) and a caller's request/response or
// streaming reader/writer.
package stream

// Role distinguishes which side of a stream this process is playing. The
// two roles see different permitted transition tables for the same states.
type Role int8

const (
	RoleClient Role = iota
	RoleServer
)

func (r Role) String() string {
	if r == RoleServer {
		return "server"
	}
	return "client"
}

// State is a stream's lifecycle position.
type State int8

const (
	Idle State = iota
	Init
	Open
	LocalClosed
	RemoteClosed
	HalfClosed
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Init:
		return "Init"
	case Open:
		return "Open"
	case LocalClosed:
		return "LocalClosed"
	case RemoteClosed:
		return "RemoteClosed"
	case HalfClosed:
		return "HalfClosed"
	case Closed:
		return "Closed"
	default:
		return "unknown"
	}
}

// Action is one edge label in the transition table.
type Action int8

const (
	HandleInit Action = iota
	HandleData
	HandleFeedback
	HandleClose
	SendInit
	SendData
	SendFeedback
	SendClose
	HandleReset
	SendReset
)

func (a Action) String() string {
	switch a {
	case HandleInit:
		return "HandleInit"
	case HandleData:
		return "HandleData"
	case HandleFeedback:
		return "HandleFeedback"
	case HandleClose:
		return "HandleClose"
	case SendInit:
		return "SendInit"
	case SendData:
		return "SendData"
	case SendFeedback:
		return "SendFeedback"
	case SendClose:
		return "SendClose"
	case HandleReset:
		return "HandleReset"
	case SendReset:
		return "SendReset"
	default:
		return "unknown"
	}
}

type edge struct {
	state  State
	action Action
}

// clientTable and serverTable encode §4.5's transition tables. Reset
// actions are not listed per-state here: Stream.SendReset and
// Stream.HandleReset move any state to Closed directly, since "any ->
// Closed" applies identically to both roles.
var clientTable = map[edge]State{
	{Idle, SendInit}:            Init,
	{Init, HandleInit}:          Open,
	{Open, SendData}:            Open,
	{Open, HandleData}:          Open,
	{Open, HandleFeedback}:      Open,
	{Open, SendClose}:           LocalClosed,
	{Open, HandleClose}:         Closed,
	{LocalClosed, HandleData}:     LocalClosed,
	{LocalClosed, HandleFeedback}: LocalClosed,
	{LocalClosed, HandleClose}:    Closed,
}

var serverTable = map[edge]State{
	{Idle, HandleInit}:             Init,
	{Init, SendInit}:               Open,
	{Open, HandleData}:             Open,
	{Open, SendData}:               Open,
	{Open, HandleFeedback}:         Open,
	{Open, HandleClose}:            RemoteClosed,
	{RemoteClosed, SendData}:       RemoteClosed,
	{RemoteClosed, HandleFeedback}: RemoteClosed,
	{Open, SendClose}:              Closed,
	{RemoteClosed, SendClose}:      Closed,
}

// next looks up the permitted destination state for (role, state, action).
// Reset actions and a CLOSE observed while already Closed are handled by
// the caller before consulting this table (the former is universal, the
// latter is a documented no-op rather than a table entry).
func next(role Role, state State, action Action) (State, bool) {
	table := clientTable
	if role == RoleServer {
		table = serverTable
	}
	to, ok := table[edge{state, action}]
	return to, ok
}
