package log

import (
	"testing"
	"time"
)

func TestNoopLoggerDoesNotPanic(t *testing.T) {
	logger := NoopLogger{}

	// Should not panic with any event type
	event := Event{
		Timestamp:    time.Now(),
		ConnectionID: "test-conn",
		Backend:      BackendRedial,
		Category:     CategoryState,
	}

	// Test with nil payloads
	logger.Log(event)

	// Test with state payload
	event.State = &StateEvent{OldState: "CONNECTING", NewState: "CONNECTED"}
	logger.Log(event)

	// Test with dial payload
	event.State = nil
	event.Dial = &DialEvent{Err: "connection refused"}
	logger.Log(event)

	// Test with reset payload
	event.Dial = nil
	event.Reset = &ResetEvent{Cause: "broken pipe"}
	logger.Log(event)

	// Test with IO payload
	event.Reset = nil
	event.IO = &IOEvent{Direction: DirectionOut, Bytes: 42}
	logger.Log(event)

	// Test with settings payload
	event.IO = nil
	event.Settings = &SettingsEvent{NoDelay: true}
	logger.Log(event)

	// Test with error payload
	event.Settings = nil
	event.Error = &ErrorEvent{Op: "accept", Message: "test error"}
	logger.Log(event)
}

func TestLoggerInterfaceSatisfaction(t *testing.T) {
	// Compile-time check that NoopLogger satisfies Logger interface
	var _ Logger = NoopLogger{}
	var _ Logger = &NoopLogger{}
}

func TestNoopLoggerIsZeroValue(t *testing.T) {
	// NoopLogger should be usable as zero value
	var logger NoopLogger
	logger.Log(Event{})
}
