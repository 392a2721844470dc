package commands

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/unistream-io/unistream-go/pkg/log"
)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.ulog")

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()

	return path
}

func TestExportToJSONL(t *testing.T) {
	ts := time.Date(2026, 3, 14, 10, 15, 32, 123456000, time.UTC)
	events := []log.Event{
		{
			Timestamp:    ts,
			ConnectionID: "abc12345",
			Backend:      log.BackendRedial,
			Category:     log.CategoryIO,
			Target:       "192.168.1.40:4840",
			IO:           &log.IOEvent{Direction: log.DirectionOut, Bytes: 42},
		},
		{
			Timestamp:    ts.Add(time.Second),
			ConnectionID: "abc12345",
			Backend:      log.BackendRedial,
			Category:     log.CategoryReset,
			Target:       "192.168.1.40:4840",
			Reset:        &log.ResetEvent{Cause: "EOF"},
		},
	}

	path := createTestLogFile(t, events)

	outPath := filepath.Join(t.TempDir(), "out.jsonl")
	err := RunExport(path, "jsonl", outPath)
	if err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	// Each line must be standalone JSON
	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("first line is not valid JSON: %v", err)
	}
	if first["ConnectionID"] != "abc12345" {
		t.Errorf("expected ConnectionID abc12345, got %v", first["ConnectionID"])
	}
	if first["Target"] != "192.168.1.40:4840" {
		t.Errorf("expected target, got %v", first["Target"])
	}

	var second map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("second line is not valid JSON: %v", err)
	}
	if second["Reset"] == nil {
		t.Errorf("expected Reset payload on second line, got %v", second)
	}
}

func TestExportToCSV(t *testing.T) {
	ts := time.Date(2026, 3, 14, 10, 15, 32, 0, time.UTC)
	events := []log.Event{
		{
			Timestamp:    ts,
			ConnectionID: "abc12345",
			Backend:      log.BackendTCP,
			Category:     log.CategoryIO,
			IO:           &log.IOEvent{Direction: log.DirectionIn, Bytes: 128},
		},
		{
			Timestamp:    ts.Add(time.Second),
			ConnectionID: "abc12345",
			Backend:      log.BackendTCP,
			Category:     log.CategoryError,
			Error:        &log.ErrorEvent{Op: "write", Message: "broken pipe"},
		},
	}

	path := createTestLogFile(t, events)

	outPath := filepath.Join(t.TempDir(), "out.csv")
	err := RunExport(path, "csv", outPath)
	if err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	f, err := os.Open(outPath)
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse CSV: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d records", len(records))
	}

	header := records[0]
	if header[0] != "timestamp" || header[2] != "backend" {
		t.Errorf("unexpected header: %v", header)
	}

	ioRow := records[1]
	if ioRow[3] != "IO" {
		t.Errorf("expected IO category, got %v", ioRow[3])
	}
	if ioRow[5] != "IN" || ioRow[6] != "128" {
		t.Errorf("expected direction IN and 128 bytes, got %v", ioRow)
	}

	errRow := records[2]
	if errRow[7] != "broken pipe" {
		t.Errorf("expected error message in last column, got %v", errRow)
	}
}

func TestExportUnknownFormat(t *testing.T) {
	path := createTestLogFile(t, []log.Event{
		{Timestamp: time.Now(), Category: log.CategoryIO, IO: &log.IOEvent{Bytes: 1}},
	})

	err := RunExport(path, "xml", "")
	if err == nil {
		t.Fatal("expected error for unknown format")
	}
	if !strings.Contains(err.Error(), "unknown format") {
		t.Errorf("expected unknown format error, got: %v", err)
	}
}

func TestExportMissingFile(t *testing.T) {
	err := RunExport(filepath.Join(t.TempDir(), "missing.ulog"), "jsonl", "")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
