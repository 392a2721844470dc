package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/unistream-io/unistream-go/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents      int
	EventsByBackend  map[log.Backend]int
	EventsByCategory map[log.Category]int
	Connections      map[string]*ConnectionStats
	Dials            int
	FailedDials      int
	Resets           int
	BytesIn          int64
	BytesOut         int64
	Errors           int
	TimeRange        struct {
		Start time.Time
		End   time.Time
	}
}

// ConnectionStats holds statistics for a single connection.
type ConnectionStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	Target    string
	Backend   log.Backend
	Resets    int
	BytesIn   int64
	BytesOut  int64
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByBackend:  make(map[log.Backend]int),
		EventsByCategory: make(map[log.Category]int),
		Connections:      make(map[string]*ConnectionStats),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsByBackend[event.Backend]++
		stats.EventsByCategory[event.Category]++

		// Track time range
		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}

		// Track connection stats
		conn, ok := stats.Connections[event.ConnectionID]
		if !ok {
			conn = &ConnectionStats{
				FirstSeen: event.Timestamp,
				LastSeen:  event.Timestamp,
				Backend:   event.Backend,
			}
			stats.Connections[event.ConnectionID] = conn
		}
		conn.Events++
		if event.Timestamp.After(conn.LastSeen) {
			conn.LastSeen = event.Timestamp
		}
		if event.Target != "" && conn.Target == "" {
			conn.Target = event.Target
		}

		// Per-category tallies
		if event.Dial != nil {
			stats.Dials++
			if event.Dial.Err != "" {
				stats.FailedDials++
			}
		}
		if event.Reset != nil {
			stats.Resets++
			conn.Resets++
		}
		if event.IO != nil {
			switch event.IO.Direction {
			case log.DirectionIn:
				stats.BytesIn += int64(event.IO.Bytes)
				conn.BytesIn += int64(event.IO.Bytes)
			case log.DirectionOut:
				stats.BytesOut += int64(event.IO.Bytes)
				conn.BytesOut += int64(event.IO.Bytes)
			}
		}
		if event.Error != nil {
			stats.Errors++
		}
	}

	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Transport Log Statistics ===")
	fmt.Fprintln(w)

	// Time range
	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	// Total events
	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	// Events by backend
	fmt.Fprintln(w, "Events by Backend:")
	for _, backend := range []log.Backend{log.BackendTCP, log.BackendRedial, log.BackendSerial} {
		if count := stats.EventsByBackend[backend]; count > 0 {
			fmt.Fprintf(w, "  %-10s %d\n", backend.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	// Events by category
	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryState, log.CategoryDial, log.CategoryReset, log.CategoryIO, log.CategorySettings, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-10s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	// Traffic and churn
	if stats.Dials > 0 {
		fmt.Fprintf(w, "Dials:  %d (%d failed)\n", stats.Dials, stats.FailedDials)
	}
	if stats.Resets > 0 {
		fmt.Fprintf(w, "Resets: %d\n", stats.Resets)
	}
	fmt.Fprintf(w, "Bytes:  %d in, %d out\n", stats.BytesIn, stats.BytesOut)
	fmt.Fprintln(w)

	// Connections
	fmt.Fprintf(w, "Connections: %d\n", len(stats.Connections))
	if len(stats.Connections) > 0 {
		// Sort by first seen time
		type connInfo struct {
			id    string
			stats *ConnectionStats
		}
		conns := make([]connInfo, 0, len(stats.Connections))
		for id, cs := range stats.Connections {
			conns = append(conns, connInfo{id, cs})
		}
		sort.Slice(conns, func(i, j int) bool {
			return conns[i].stats.FirstSeen.Before(conns[j].stats.FirstSeen)
		})

		fmt.Fprintln(w, "")
		for _, c := range conns {
			duration := c.stats.LastSeen.Sub(c.stats.FirstSeen).Round(time.Millisecond)
			shortID := c.id
			if len(shortID) > 8 {
				shortID = shortID[:8]
			}
			fmt.Fprintf(w, "  [%s] %s, %d events, duration %s\n", shortID, c.stats.Backend, c.stats.Events, duration)
			if c.stats.Target != "" {
				fmt.Fprintf(w, "           Target: %s\n", c.stats.Target)
			}
			if c.stats.Resets > 0 {
				fmt.Fprintf(w, "           Resets: %d\n", c.stats.Resets)
			}
			if c.stats.BytesIn > 0 || c.stats.BytesOut > 0 {
				fmt.Fprintf(w, "           Bytes: %d in, %d out\n", c.stats.BytesIn, c.stats.BytesOut)
			}
		}
	}

	// Errors
	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
