package session

import (
	"testing"
	"time"

	"github.com/GonnyTech/canDrive-Pro/internal/frame"
)

func TestStore_RecordInactive(t *testing.T) {
	s := NewStore(10)
	if _, ok := s.Record(frame.Frame{ID: "1"}, time.Now()); ok {
		t.Fatal("expected record to be rejected without an active session")
	}
	if len(s.Recent(0)) != 0 || len(s.IdentifierCounts()) != 0 {
		t.Error("inactive store was mutated")
	}
}

func TestStore_RecordStampsFrame(t *testing.T) {
	s := NewStore(10)
	s.SetLabels(map[string]string{"7FF": "diag"})
	start := time.Now()
	s.Begin(start)

	f, ok := s.Record(frame.Frame{ID: "7FF", Data: "00"}, start.Add(250*time.Millisecond))
	if !ok {
		t.Fatal("expected frame recorded")
	}
	if f.Elapsed != 250*time.Millisecond {
		t.Errorf("expected elapsed 250ms, got %v", f.Elapsed)
	}
	if f.Label != "diag" {
		t.Errorf("expected label diag, got %q", f.Label)
	}

	unlabelled, _ := s.Record(frame.Frame{ID: "100"}, start)
	if unlabelled.Label != "" {
		t.Errorf("expected empty label, got %q", unlabelled.Label)
	}
}

func TestStore_ElapsedNeverNegative(t *testing.T) {
	s := NewStore(10)
	start := time.Now()
	s.Begin(start)
	f, _ := s.Record(frame.Frame{ID: "1"}, start.Add(-time.Second))
	if f.Elapsed != 0 {
		t.Errorf("expected elapsed clamped to 0, got %v", f.Elapsed)
	}
}

func TestStore_BeginResetsButKeepsLabels(t *testing.T) {
	s := NewStore(10)
	s.SetLabels(map[string]string{"1": "one"})
	s.Begin(time.Now())
	s.Record(frame.Frame{ID: "1"}, time.Now())
	s.Record(frame.Frame{ID: "1"}, time.Now())

	s.Begin(time.Now())
	if len(s.Recent(0)) != 0 {
		t.Error("expected empty buffer after Begin")
	}
	if len(s.IdentifierCounts()) != 0 {
		t.Error("expected empty counts after Begin")
	}
	if s.Labels()["1"] != "one" {
		t.Error("labels should persist across sessions")
	}
}

func TestStore_EndKeepsData(t *testing.T) {
	s := NewStore(10)
	s.Begin(time.Now())
	s.Record(frame.Frame{ID: "1"}, time.Now())
	s.End()

	if s.Active() {
		t.Error("expected inactive after End")
	}
	if _, ok := s.Record(frame.Frame{ID: "2"}, time.Now()); ok {
		t.Error("expected record rejected after End")
	}
	if got := s.IdentifierCounts(); got["1"] != 1 || len(got) != 1 {
		t.Errorf("unexpected counts after End: %v", got)
	}
}

func TestStore_SnapshotsAreCopies(t *testing.T) {
	s := NewStore(10)
	labels := map[string]string{"1": "one"}
	s.SetLabels(labels)
	labels["1"] = "changed"
	if s.Labels()["1"] != "one" {
		t.Error("store shares the caller's label map")
	}

	s.Begin(time.Now())
	s.Record(frame.Frame{ID: "1"}, time.Now())
	counts := s.IdentifierCounts()
	counts["1"] = 99
	if s.IdentifierCounts()["1"] != 1 {
		t.Error("count snapshot aliases live state")
	}

	recent := s.Recent(10)
	recent[0].ID = "mutated"
	if s.Recent(10)[0].ID != "1" {
		t.Error("recent snapshot aliases live state")
	}
}

func TestStore_RecentLimit(t *testing.T) {
	s := NewStore(5)
	s.Begin(time.Now())
	for i := 0; i < 7; i++ {
		s.Record(makeFrame(i), time.Now())
	}

	if got := s.Recent(2); len(got) != 2 || got[0].ID != "005" || got[1].ID != "006" {
		t.Errorf("unexpected Recent(2): %+v", got)
	}
	if got := s.Recent(100); len(got) != 5 {
		t.Errorf("expected Recent to clamp to capacity, got %d", len(got))
	}
	if got := s.Recent(-1); len(got) != 5 {
		t.Errorf("expected whole buffer for negative limit, got %d", len(got))
	}
	if got := s.IdentifierCounts(); len(got) != 7 {
		t.Errorf("counts must cover evicted frames, got %d ids", len(got))
	}
}

func TestStore_SetLabelsNil(t *testing.T) {
	s := NewStore(1)
	s.SetLabels(nil)
	if s.Labels() == nil {
		t.Error("expected empty, non-nil label table")
	}
}
