package history_test

import (
	"path/filepath"
	"testing"

	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/history"
)

func tempStore(t *testing.T) *history.Store {
	t.Helper()
	s, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBeginAndFinishRun(t *testing.T) {
	s := tempStore(t)

	id, err := s.BeginRun("gpt-4o", 8, 2, 42)
	if err != nil {
		t.Fatalf("begin run: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty run ID")
	}

	runs, err := s.Runs()
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].Outcome != "" {
		t.Errorf("in-flight run should have empty outcome, got %q", runs[0].Outcome)
	}
	if runs[0].TrainSize != 8 || runs[0].HoldoutSize != 2 || runs[0].Seed != 42 {
		t.Errorf("run row mismatch: %+v", runs[0])
	}

	if err := s.FinishRun(id, "accepted", 1.0, 1.0, 94, 99.06); err != nil {
		t.Fatalf("finish run: %v", err)
	}
	runs, _ = s.Runs()
	if runs[0].Outcome != "accepted" {
		t.Errorf("outcome: got %q, want accepted", runs[0].Outcome)
	}
	if runs[0].Score != 99.06 {
		t.Errorf("score: got %v", runs[0].Score)
	}
	if runs[0].FinishedAt.IsZero() {
		t.Error("finished_at not stamped")
	}
}

func TestFinishUnknownRun(t *testing.T) {
	s := tempStore(t)
	if err := s.FinishRun("no-such-run", "accepted", 1, 1, 0, 0); err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestRecordAndListIterations(t *testing.T) {
	s := tempStore(t)
	id, err := s.BeginRun("gpt-4o", 8, 2, 42)
	if err != nil {
		t.Fatalf("begin run: %v", err)
	}

	seq := []history.Iteration{
		{Phase: "architect", Number: 1, Accuracy: 0.75, Tokens: 120, Score: 73.8, Accepted: true, Reason: "repaired", LatencyMS: 12},
		{Phase: "architect", Number: 2, Accuracy: 1.0, Tokens: 120, Score: 98.8, Accepted: true, Reason: "succeeded", LatencyMS: 9},
		{Phase: "surgeon", Number: 1, Accuracy: 1.0, Tokens: 90, Score: 99.1, Accepted: true, Reason: "improved", LatencyMS: 15},
		{Phase: "surgeon", Number: 2, Accuracy: 0.875, Tokens: 60, Score: 86.9, Reason: "accuracy_regression", LatencyMS: 11},
	}
	for _, it := range seq {
		if err := s.RecordIteration(id, it); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	got, err := s.Iterations(id)
	if err != nil {
		t.Fatalf("iterations: %v", err)
	}
	if len(got) != len(seq) {
		t.Fatalf("expected %d iterations, got %d", len(seq), len(got))
	}
	for i := range seq {
		if got[i] != seq[i] {
			t.Errorf("iteration %d: got %+v, want %+v", i, got[i], seq[i])
		}
	}
}

func TestIterationsScopedToRun(t *testing.T) {
	s := tempStore(t)
	a, _ := s.BeginRun("gpt-4o", 8, 2, 42)
	b, _ := s.BeginRun("gpt-4o", 8, 2, 7)

	s.RecordIteration(a, history.Iteration{Phase: "architect", Number: 1, Reason: "succeeded", Accepted: true})
	s.RecordIteration(b, history.Iteration{Phase: "architect", Number: 1, Reason: "repaired", Accepted: true})
	s.RecordIteration(b, history.Iteration{Phase: "architect", Number: 2, Reason: "succeeded", Accepted: true})

	got, err := s.Iterations(b)
	if err != nil {
		t.Fatalf("iterations: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 iterations for run b, got %d", len(got))
	}
}

func TestOpenInvalidPath(t *testing.T) {
	if _, err := history.Open(filepath.Join(string(filepath.Separator), "nonexistent", "deep", "history.db")); err == nil {
		t.Fatal("expected error for invalid path")
	}
}
