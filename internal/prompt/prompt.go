package prompt

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Phases a candidate can originate from.
const (
	PhaseInitial  = "initial"
	PhaseRepair   = "architect"
	PhaseCompress = "surgeon"
)

// Candidate is one versioned instruction text under optimization. Candidates
// are immutable values: mutation derives a new candidate, rollback is simply
// keeping the previous one.
type Candidate struct {
	Version int
	Text    string
	Phase   string
	Parent  int
}

// Derive produces the successor candidate with new text from the given phase.
func (c Candidate) Derive(text, phase string) Candidate {
	return Candidate{Version: c.Version + 1, Text: text, Phase: phase, Parent: c.Version}
}

// Record is the on-disk shape of a prompt artifact.
type Record struct {
	SystemPrompt string      `json:"system_prompt"`
	Optimizer    *Annotation `json:"optimizer,omitempty"`
}

// Annotation carries provenance and metrics for a written candidate.
type Annotation struct {
	RunID    string    `json:"run_id,omitempty"`
	Version  int       `json:"version"`
	Phase    string    `json:"phase"`
	Parent   int       `json:"parent"`
	Accuracy float64   `json:"accuracy"`
	Tokens   float64   `json:"tokens"`
	Score    float64   `json:"score"`
	SavedAt  time.Time `json:"saved_at"`
}

// LoadInitial reads the starting candidate from a structured record. A file
// that is not such a record is treated as the raw instruction text itself.
func LoadInitial(path string) (Candidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Candidate{}, fmt.Errorf("reading prompt %s: %w", path, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err == nil && rec.SystemPrompt != "" {
		return Candidate{Version: 1, Text: rec.SystemPrompt, Phase: PhaseInitial}, nil
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return Candidate{}, fmt.Errorf("prompt %s is empty", path)
	}
	return Candidate{Version: 1, Text: text, Phase: PhaseInitial}, nil
}

// Save writes a candidate with its annotation to a timestamped file under
// dir and returns the path.
func Save(dir string, c Candidate, ann Annotation) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}
	ann.Version = c.Version
	ann.Phase = c.Phase
	ann.Parent = c.Parent
	if ann.SavedAt.IsZero() {
		ann.SavedAt = time.Now().UTC()
	}
	rec := Record{SystemPrompt: c.Text, Optimizer: &ann}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling prompt record: %w", err)
	}
	name := fmt.Sprintf("system_prompt_optimized_%s.json", ann.SavedAt.Format("20060102_150405"))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing prompt record: %w", err)
	}
	return path, nil
}
