package events

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestNewAuditLogger(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "audit.jsonl")

	logger, err := NewAuditLogger(logPath, DefaultMaxLogSize)
	if err != nil {
		t.Fatalf("NewAuditLogger: %v", err)
	}
	defer logger.Close()

	if _, err := os.Stat(logPath); err != nil {
		t.Errorf("log file was not created: %v", err)
	}
	if logger.Path() != logPath {
		t.Errorf("Path() = %q, want %q", logger.Path(), logPath)
	}
}

func TestAuditLogger_WriteEntry(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")

	logger, err := NewAuditLogger(logPath, DefaultMaxLogSize)
	if err != nil {
		t.Fatalf("NewAuditLogger: %v", err)
	}

	entry := &LogEntry{
		EventType: string(EventActionCompleted),
		RunID:     "run-1",
		Action:    "store",
		Details:   map[string]any{"duration_ms": float64(12)},
	}
	if err := logger.WriteEntry(entry); err != nil {
		t.Fatalf("WriteEntry: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	entries, err := ReadEntries(logPath)
	if err != nil {
		t.Fatalf("ReadEntries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	got := entries[0]
	if got.EventType != "action_completed" || got.RunID != "run-1" || got.Action != "store" {
		t.Errorf("unexpected entry: %+v", got)
	}
	if got.EventID == "" {
		t.Error("event ID not assigned")
	}
	if got.Timestamp.IsZero() {
		t.Error("timestamp not assigned")
	}
	if got.Details["duration_ms"] != float64(12) {
		t.Errorf("details = %v", got.Details)
	}
}

func TestAuditLogger_WriteAfterClose(t *testing.T) {
	logger, err := NewAuditLogger(filepath.Join(t.TempDir(), "audit.jsonl"), 0)
	if err != nil {
		t.Fatalf("NewAuditLogger: %v", err)
	}
	logger.Close()

	if err := logger.WriteEntry(&LogEntry{EventType: "x"}); err == nil {
		t.Fatal("expected error writing to closed logger")
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestAuditLogger_Rotation(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "audit.jsonl")

	logger, err := NewAuditLogger(logPath, 300)
	if err != nil {
		t.Fatalf("NewAuditLogger: %v", err)
	}
	defer logger.Close()

	for i := 0; i < 10; i++ {
		if err := logger.WriteEntry(&LogEntry{
			EventType: string(EventActionStarted),
			RunID:     "run-rotation",
			Action:    "collect",
		}); err != nil {
			t.Fatalf("WriteEntry %d: %v", i, err)
		}
	}

	archives, err := filepath.Glob(filepath.Join(dir, ArchiveDir, "audit.*.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	if len(archives) == 0 {
		t.Fatal("expected rotated archives")
	}
	if logger.Size() > 300 {
		t.Errorf("live log size %d exceeds max", logger.Size())
	}
}

func TestAuditLogger_RecordFromBus(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")
	logger, err := NewAuditLogger(logPath, 0)
	if err != nil {
		t.Fatalf("NewAuditLogger: %v", err)
	}

	var errMu sync.Mutex
	var writeErrs []error
	bus := NewBus(10)
	bus.Subscribe(logger.Record(func(err error) {
		errMu.Lock()
		writeErrs = append(writeErrs, err)
		errMu.Unlock()
	}), AllTypes()...)

	bus.Publish(EventRunStarted, "run-2", "", map[string]any{"actions": []string{"collect"}})
	bus.Publish(EventActionFailed, "run-2", "collect", map[string]any{"error": "exit status 1"})
	bus.Publish(EventRunCompleted, "run-2", "", map[string]any{"success": false})
	bus.Close()
	logger.Close()

	if len(writeErrs) != 0 {
		t.Fatalf("write errors: %v", writeErrs)
	}

	entries, err := ReadEntries(logPath)
	if err != nil {
		t.Fatalf("ReadEntries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[1].Action != "collect" || entries[1].Details["error"] != "exit status 1" {
		t.Errorf("unexpected failure entry: %+v", entries[1])
	}
	if entries[0].EventID == entries[2].EventID {
		t.Error("event IDs should be unique")
	}
}

func TestAuditLogger_ConcurrentWrites(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")
	logger, err := NewAuditLogger(logPath, 0)
	if err != nil {
		t.Fatalf("NewAuditLogger: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = logger.WriteEntry(&LogEntry{EventType: "action_started", Timestamp: time.Now()})
		}()
	}
	wg.Wait()
	logger.Close()

	entries, err := ReadEntries(logPath)
	if err != nil {
		t.Fatalf("ReadEntries: %v", err)
	}
	if len(entries) != 20 {
		t.Errorf("expected 20 entries, got %d", len(entries))
	}
}
