package connection

import (
	"errors"
	"io"
	"net"

	"github.com/unistream-io/unistream-go/pkg/transport"
)

// State is the coarse connection state derived from observed results.
type State uint8

const (
	// StateConnecting means no operation has succeeded yet.
	StateConnecting State = iota

	// StateConnected means the last informative result was a success.
	StateConnected

	// StateReconnecting means the last informative result was a
	// resolved failure and the transport is redialing.
	StateReconnecting

	// StateClosed means the connection was closed. Terminal.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Tracker derives a connection state from the results the caller
// feeds it. It never touches the connection itself.
//
// A Tracker is not safe for concurrent use.
type Tracker struct {
	state    State
	onChange func(oldState, newState State)
}

// NewTracker returns a Tracker in StateConnecting.
func NewTracker() *Tracker {
	return &Tracker{state: StateConnecting}
}

// State returns the current state.
func (t *Tracker) State() State {
	return t.state
}

// IsConnected reports whether the tracker is in StateConnected.
func (t *Tracker) IsConnected() bool {
	return t.state == StateConnected
}

// OnChange registers a callback invoked on every state transition.
func (t *Tracker) OnChange(fn func(oldState, newState State)) {
	t.onChange = fn
}

// Observe feeds one operation result into the tracker.
//
// A nil error moves the tracker to StateConnected. net.ErrClosed
// moves it to StateClosed. Not-ready results, ErrNotConnected and
// io.EOF carry no state information and leave the tracker where it
// is. Anything else is a resolved failure and moves the tracker to
// StateReconnecting.
func (t *Tracker) Observe(err error) {
	switch {
	case err == nil:
		t.transition(StateConnected)
	case errors.Is(err, net.ErrClosed):
		t.transition(StateClosed)
	case transport.IsNotReady(err),
		errors.Is(err, transport.ErrNotConnected),
		errors.Is(err, io.EOF):
		// Still where we were.
	default:
		t.transition(StateReconnecting)
	}
}

func (t *Tracker) transition(newState State) {
	if t.state == newState || t.state == StateClosed {
		return
	}
	oldState := t.state
	t.state = newState
	if t.onChange != nil {
		t.onChange(oldState, newState)
	}
}
