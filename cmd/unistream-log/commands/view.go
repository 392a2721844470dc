// Package commands implements the unistream-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/unistream-io/unistream-go/pkg/log"
)

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Backend  *log.Backend
	Category *log.Category
	ConnID   string
	Target   string
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [conn:id] BACKEND CATEGORY target
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	connID := shortenConnID(event.ConnectionID)

	if event.Target != "" {
		fmt.Fprintf(w, "%s [conn:%s] %-6s %-8s %s\n", ts, connID, event.Backend, event.Category, event.Target)
	} else {
		fmt.Fprintf(w, "%s [conn:%s] %-6s %s\n", ts, connID, event.Backend, event.Category)
	}

	// Type-specific details
	switch {
	case event.State != nil:
		formatStateDetails(w, event.State)
	case event.Dial != nil:
		formatDialDetails(w, event.Dial)
	case event.Reset != nil:
		fmt.Fprintf(w, "  Cause: %s\n", event.Reset.Cause)
	case event.IO != nil:
		formatIODetails(w, event.IO)
	case event.Settings != nil:
		formatSettingsDetails(w, event.Settings)
	case event.Error != nil:
		fmt.Fprintf(w, "  Op: %s\n", event.Error.Op)
		fmt.Fprintf(w, "  Message: %s\n", event.Error.Message)
	}

	fmt.Fprintln(w) // Blank line between events
}

// shortenConnID returns the first 8 characters of the connection ID.
func shortenConnID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatStateDetails(w io.Writer, state *log.StateEvent) {
	if state.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", state.OldState, state.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", state.NewState)
	}
	if state.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", state.Reason)
	}
}

func formatDialDetails(w io.Writer, dial *log.DialEvent) {
	if dial.Err != "" {
		fmt.Fprintf(w, "  Failed: %s\n", dial.Err)
	} else {
		fmt.Fprintln(w, "  Succeeded")
	}
}

func formatIODetails(w io.Writer, ev *log.IOEvent) {
	fmt.Fprintf(w, "  %s %d bytes\n", ev.Direction, ev.Bytes)
	if ev.Err != "" {
		fmt.Fprintf(w, "  Err: %s\n", ev.Err)
	}
}

func formatSettingsDetails(w io.Writer, s *log.SettingsEvent) {
	fmt.Fprintf(w, "  NoDelay: %v\n", s.NoDelay)
	if s.Err != "" {
		fmt.Fprintf(w, "  Err: %s\n", s.Err)
	}
}

// filterEvents returns events matching the filter criteria.
func filterEvents(events []log.Event, filter ViewFilter) []log.Event {
	var result []log.Event
	for _, e := range events {
		if filter.Backend != nil && e.Backend != *filter.Backend {
			continue
		}
		if filter.Category != nil && e.Category != *filter.Category {
			continue
		}
		if filter.ConnID != "" && !strings.HasPrefix(e.ConnectionID, filter.ConnID) {
			continue
		}
		if filter.Target != "" && e.Target != filter.Target {
			continue
		}
		result = append(result, e)
	}
	return result
}

// ParseBackendFlag parses a backend string from a command-line flag (case-insensitive).
func ParseBackendFlag(s string) (log.Backend, error) {
	return parseBackend(s)
}

// parseBackend parses a backend string (case-insensitive).
func parseBackend(s string) (log.Backend, error) {
	switch strings.ToLower(s) {
	case "tcp":
		return log.BackendTCP, nil
	case "redial":
		return log.BackendRedial, nil
	case "serial":
		return log.BackendSerial, nil
	default:
		return 0, fmt.Errorf("invalid backend: %s (must be tcp, redial, or serial)", s)
	}
}

// ParseCategoryFlag parses a category string from a command-line flag (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	return parseCategory(s)
}

// parseCategory parses a category string (case-insensitive).
func parseCategory(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "state":
		return log.CategoryState, nil
	case "dial":
		return log.CategoryDial, nil
	case "reset":
		return log.CategoryReset, nil
	case "io":
		return log.CategoryIO, nil
	case "settings":
		return log.CategorySettings, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be state, dial, reset, io, settings, or error)", s)
	}
}

// RunView executes the view command.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		// Apply filter
		if filter.Backend != nil && event.Backend != *filter.Backend {
			continue
		}
		if filter.Category != nil && event.Category != *filter.Category {
			continue
		}
		if filter.ConnID != "" && !strings.HasPrefix(event.ConnectionID, filter.ConnID) {
			continue
		}
		if filter.Target != "" && event.Target != filter.Target {
			continue
		}

		formatEvent(output, event)
	}

	return nil
}
