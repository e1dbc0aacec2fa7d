package tasks

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestJournalRoundTrip(t *testing.T) {
	journal, err := OpenJournal(filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer journal.Close()

	started := time.Now().UTC().Add(-time.Minute)
	finished := time.Now().UTC()
	rec := Record{
		ID:         "t1",
		Type:       TypeTrainDetector,
		Status:     StatusCompleted,
		Progress:   100,
		Message:    "completed",
		EnqueuedAt: started.Add(-time.Second),
		StartedAt:  &started,
		FinishedAt: &finished,
		Payload:    map[string]any{"epochs": float64(5)},
		Result:     map[string]any{"map_50": 0.68},
	}
	if err := journal.RecordTerminal(rec); err != nil {
		t.Fatalf("record: %v", err)
	}

	history, err := journal.History(context.Background(), 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 record, got %d", len(history))
	}
	got := history[0]
	if got.ID != "t1" || got.Type != TypeTrainDetector || got.Status != StatusCompleted {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.Payload["epochs"] != float64(5) {
		t.Fatalf("payload not preserved: %v", got.Payload)
	}
	if got.Result["map_50"] != 0.68 {
		t.Fatalf("result not preserved: %v", got.Result)
	}
}

func TestJournalUpsert(t *testing.T) {
	journal, err := OpenJournal(filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer journal.Close()

	now := time.Now().UTC()
	rec := Record{ID: "t1", Type: TypeBuildDataset, Status: StatusFailed, Progress: 100, Message: "first", EnqueuedAt: now, FinishedAt: &now}
	if err := journal.RecordTerminal(rec); err != nil {
		t.Fatalf("first record: %v", err)
	}
	rec.Status = StatusCompleted
	rec.Message = "second"
	if err := journal.RecordTerminal(rec); err != nil {
		t.Fatalf("second record: %v", err)
	}

	history, err := journal.History(context.Background(), 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("upsert produced %d rows", len(history))
	}
	if history[0].Status != StatusCompleted || history[0].Message != "second" {
		t.Fatalf("upsert did not overwrite: %+v", history[0])
	}
}
