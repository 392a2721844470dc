package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestSlogAdapterLogsStateEvent(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	slogger := slog.New(handler)

	adapter := NewSlogAdapter(slogger)

	adapter.Log(Event{
		Timestamp:    time.Now(),
		ConnectionID: "conn-123",
		Backend:      BackendRedial,
		Category:     CategoryState,
		Target:       "10.0.0.5:4321",
		State: &StateEvent{
			OldState: "CONNECTING",
			NewState: "CONNECTED",
		},
	})

	output := buf.String()
	if output == "" {
		t.Fatal("no output produced")
	}

	// Parse JSON log entry
	var logEntry map[string]any
	if err := json.Unmarshal([]byte(output), &logEntry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}

	// Verify key fields
	if logEntry["conn_id"] != "conn-123" {
		t.Errorf("conn_id: got %v, want %q", logEntry["conn_id"], "conn-123")
	}
	if logEntry["backend"] != "REDIAL" {
		t.Errorf("backend: got %v, want %q", logEntry["backend"], "REDIAL")
	}
	if logEntry["target"] != "10.0.0.5:4321" {
		t.Errorf("target: got %v, want %q", logEntry["target"], "10.0.0.5:4321")
	}
	if logEntry["new_state"] != "CONNECTED" {
		t.Errorf("new_state: got %v, want %q", logEntry["new_state"], "CONNECTED")
	}
}

func TestSlogAdapterLogsResetEvent(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	slogger := slog.New(handler)

	adapter := NewSlogAdapter(slogger)

	adapter.Log(Event{
		Timestamp:    time.Now(),
		ConnectionID: "conn-456",
		Backend:      BackendRedial,
		Category:     CategoryReset,
		Reset: &ResetEvent{
			Cause: "write tcp: broken pipe",
		},
	})

	output := buf.String()
	if output == "" {
		t.Fatal("no output produced")
	}

	// Parse JSON log entry
	var logEntry map[string]any
	if err := json.Unmarshal([]byte(output), &logEntry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}

	// Verify reset fields
	if logEntry["category"] != "RESET" {
		t.Errorf("category: got %v, want %q", logEntry["category"], "RESET")
	}
	if logEntry["cause"] != "write tcp: broken pipe" {
		t.Errorf("cause: got %v, want %q", logEntry["cause"], "write tcp: broken pipe")
	}
}

func TestSlogAdapterLogsIOEvent(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	slogger := slog.New(handler)

	adapter := NewSlogAdapter(slogger)

	adapter.Log(Event{
		Timestamp:    time.Now(),
		ConnectionID: "conn-789",
		Backend:      BackendSerial,
		Category:     CategoryIO,
		Target:       "/dev/ttyUSB0",
		IO: &IOEvent{
			Direction: DirectionOut,
			Bytes:     128,
		},
	})

	output := buf.String()
	if output == "" {
		t.Fatal("no output produced")
	}

	var logEntry map[string]any
	if err := json.Unmarshal([]byte(output), &logEntry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}

	if logEntry["direction"] != "OUT" {
		t.Errorf("direction: got %v, want %q", logEntry["direction"], "OUT")
	}
	if logEntry["bytes"] != float64(128) {
		t.Errorf("bytes: got %v, want %v", logEntry["bytes"], 128)
	}
}

func TestSlogAdapterIncludesConnectionID(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	slogger := slog.New(handler)

	adapter := NewSlogAdapter(slogger)

	adapter.Log(Event{
		Timestamp:    time.Now(),
		ConnectionID: "abc12345-def6-7890",
		Backend:      BackendTCP,
		Category:     CategorySettings,
		Settings: &SettingsEvent{
			NoDelay: true,
		},
	})

	output := buf.String()
	if !strings.Contains(output, "abc12345-def6-7890") {
		t.Error("output does not contain connection ID")
	}
}

func TestSlogAdapterInterfaceSatisfaction(t *testing.T) {
	var _ Logger = (*SlogAdapter)(nil)
}
