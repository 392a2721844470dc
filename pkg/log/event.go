package log

import "time"

// Event represents a transport log event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the connection (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Backend identifies the transport behind the connection.
	Backend Backend `cbor:"3,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// Target is the endpoint the connection points at
	// (IP:port for TCP, device path for serial).
	Target string `cbor:"5,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	State    *StateEvent    `cbor:"6,keyasint,omitempty"`  // Connection lifecycle
	Dial     *DialEvent     `cbor:"7,keyasint,omitempty"`  // Dial attempt outcome
	Reset    *ResetEvent    `cbor:"8,keyasint,omitempty"`  // Teardown and redial
	IO       *IOEvent       `cbor:"9,keyasint,omitempty"`  // Bytes moved
	Settings *SettingsEvent `cbor:"10,keyasint,omitempty"` // Socket option change
	Error    *ErrorEvent    `cbor:"11,keyasint,omitempty"` // Other failures
}

// Backend identifies the transport behind a connection.
type Backend uint8

const (
	// BackendTCP is a plain TCP connection.
	BackendTCP Backend = 0
	// BackendRedial is a TCP connection that redials after failures.
	BackendRedial Backend = 1
	// BackendSerial is a local serial port.
	BackendSerial Backend = 2
)

// String returns the backend name.
func (b Backend) String() string {
	switch b {
	case BackendTCP:
		return "TCP"
	case BackendRedial:
		return "REDIAL"
	case BackendSerial:
		return "SERIAL"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryState indicates a connection state change.
	CategoryState Category = 0
	// CategoryDial indicates a dial attempt outcome.
	CategoryDial Category = 1
	// CategoryReset indicates a connection reset.
	CategoryReset Category = 2
	// CategoryIO indicates bytes moved over the connection.
	CategoryIO Category = 3
	// CategorySettings indicates a socket option change.
	CategorySettings Category = 4
	// CategoryError indicates a failure outside the other categories.
	CategoryError Category = 5
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryState:
		return "STATE"
	case CategoryDial:
		return "DIAL"
	case CategoryReset:
		return "RESET"
	case CategoryIO:
		return "IO"
	case CategorySettings:
		return "SETTINGS"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Direction indicates the direction of data flow.
type Direction uint8

const (
	// DirectionIn indicates incoming data.
	DirectionIn Direction = 0
	// DirectionOut indicates outgoing data.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// StateEvent captures a connection lifecycle transition.
type StateEvent struct {
	// OldState is the previous state (may be empty).
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"2,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"3,keyasint,omitempty"`
}

// DialEvent captures the outcome of a dial attempt.
type DialEvent struct {
	// Err is the dial error message (empty on success).
	Err string `cbor:"1,keyasint,omitempty"`
}

// ResetEvent captures a connection teardown followed by a redial.
type ResetEvent struct {
	// Cause describes what forced the reset.
	Cause string `cbor:"1,keyasint"`
}

// IOEvent captures bytes moved over the connection.
type IOEvent struct {
	// Direction indicates data flow.
	Direction Direction `cbor:"1,keyasint"`

	// Bytes is the number of bytes moved.
	Bytes int `cbor:"2,keyasint"`

	// Err is the I/O error message (empty on success).
	Err string `cbor:"3,keyasint,omitempty"`
}

// SettingsEvent captures a socket option change.
type SettingsEvent struct {
	// NoDelay is the requested low-latency value.
	NoDelay bool `cbor:"1,keyasint"`

	// Err is the failure message if the socket rejected the option.
	Err string `cbor:"2,keyasint,omitempty"`
}

// ErrorEvent captures failures outside the other categories.
type ErrorEvent struct {
	// Op describes what operation was being performed.
	Op string `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`
}
