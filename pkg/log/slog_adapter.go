package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes transport events to an slog.Logger.
// Useful for development when you want to see transport events in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("conn_id", event.ConnectionID),
		slog.String("backend", event.Backend.String()),
		slog.String("category", event.Category.String()),
	}

	if event.Target != "" {
		attrs = append(attrs, slog.String("target", event.Target))
	}

	// Add type-specific attributes
	switch {
	case event.State != nil:
		attrs = append(attrs,
			slog.String("old_state", event.State.OldState),
			slog.String("new_state", event.State.NewState),
		)
		if event.State.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.State.Reason))
		}
	case event.Dial != nil:
		if event.Dial.Err != "" {
			attrs = append(attrs, slog.String("dial_err", event.Dial.Err))
		}
	case event.Reset != nil:
		attrs = append(attrs, slog.String("cause", event.Reset.Cause))
	case event.IO != nil:
		attrs = append(attrs,
			slog.String("direction", event.IO.Direction.String()),
			slog.Int("bytes", event.IO.Bytes),
		)
		if event.IO.Err != "" {
			attrs = append(attrs, slog.String("io_err", event.IO.Err))
		}
	case event.Settings != nil:
		attrs = append(attrs, slog.Bool("no_delay", event.Settings.NoDelay))
		if event.Settings.Err != "" {
			attrs = append(attrs, slog.String("settings_err", event.Settings.Err))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("op", event.Error.Op),
			slog.String("error_msg", event.Error.Message),
		)
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "transport", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
