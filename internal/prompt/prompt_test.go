package prompt_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/prompt"
)

func TestLoadInitialRecord(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "system_prompt.json")
	if err := os.WriteFile(path, []byte(`{"system_prompt": "You classify tickets."}`), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := prompt.LoadInitial(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Text != "You classify tickets." || c.Version != 1 || c.Phase != prompt.PhaseInitial {
		t.Errorf("unexpected candidate: %+v", c)
	}
}

func TestLoadInitialRawText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompt.txt")
	if err := os.WriteFile(path, []byte("Plain instruction text.\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := prompt.LoadInitial(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Text != "Plain instruction text." {
		t.Errorf("text: got %q", c.Text)
	}
}

func TestDerive(t *testing.T) {
	c := prompt.Candidate{Version: 3, Text: "old", Phase: prompt.PhaseRepair, Parent: 2}
	d := c.Derive("new", prompt.PhaseCompress)
	if d.Version != 4 || d.Parent != 3 || d.Phase != prompt.PhaseCompress || d.Text != "new" {
		t.Errorf("unexpected derived candidate: %+v", d)
	}
	if c.Text != "old" {
		t.Error("derive must not mutate the parent")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := prompt.Candidate{Version: 5, Text: "final prompt", Phase: prompt.PhaseCompress, Parent: 4}
	path, err := prompt.Save(dir, c, prompt.Annotation{RunID: "r1", Accuracy: 1.0, Tokens: 90, Score: 99.1})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var rec prompt.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("saved record is not valid JSON: %v", err)
	}
	if rec.SystemPrompt != "final prompt" {
		t.Errorf("system_prompt: got %q", rec.SystemPrompt)
	}
	if rec.Optimizer == nil || rec.Optimizer.Version != 5 || rec.Optimizer.Phase != prompt.PhaseCompress {
		t.Errorf("annotation missing provenance: %+v", rec.Optimizer)
	}
}
