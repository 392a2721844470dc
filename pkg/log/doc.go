// Package log provides structured event logging for unistream transports.
//
// This package defines the Logger interface and Event types for capturing
// transport-level events: connection state changes, dial attempts, resets,
// settings changes, I/O and errors. It is separate from operational logging
// (slog) - event capture produces a complete machine-readable trace of a
// connection's life for debugging and analysis.
//
// # Basic Usage
//
// Applications configure logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	opts.Logger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	opts.Logger, _ = log.NewFileLogger("/var/log/unistream/probe.ulog")
//
//	// Both: use MultiLogger
//	opts.Logger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    log.NewFileLogger("/var/log/unistream/probe.ulog"),
//	)
//
// # Event Types
//
// Each event carries one category-specific payload:
//   - State: connection lifecycle transitions (StateEvent)
//   - Dial: dial attempt outcomes (DialEvent)
//   - Reset: connection teardown and redial (ResetEvent)
//   - IO: byte counts per direction (IOEvent)
//   - Settings: socket option changes (SettingsEvent)
//   - Error: failures outside the other categories (ErrorEvent)
//
// # File Format
//
// Log files use CBOR encoding with .ulog extension. The unistream-log CLI
// tool provides viewing, filtering, and export capabilities.
package log
