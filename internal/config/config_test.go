package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "optimizer.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const minimalConfig = `
paths:
  assessment: assets/assessment.json
  prompt: assets/system_prompt.json
`

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	o := cfg.Optimization
	if o.TrainRatio != 0.8 {
		t.Errorf("train_ratio default: got %v", o.TrainRatio)
	}
	if o.Alpha != 100.0 || o.Beta != 0.01 {
		t.Errorf("weight defaults: alpha=%v beta=%v", o.Alpha, o.Beta)
	}
	if o.RepairBudget != 6 || o.Patience != 3 {
		t.Errorf("budget defaults: repair=%d patience=%d", o.RepairBudget, o.Patience)
	}
	if o.HoldoutThreshold != 1.0 {
		t.Errorf("holdout_threshold default: got %v", o.HoldoutThreshold)
	}
	if cfg.Models.Fast != "gpt-4o-mini" || cfg.Models.Smart != "gpt-4o" {
		t.Errorf("model defaults: %+v", cfg.Models)
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, `
optimization:
  train_ratio: 0.7
  repair_budget: 10
  min_improvement: 0.5
validation:
  unordered_paths: ["options.filters.tags"]
paths:
  assessment: a.json
  prompt: p.json
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Optimization.TrainRatio != 0.7 || cfg.Optimization.RepairBudget != 10 {
		t.Errorf("overrides not applied: %+v", cfg.Optimization)
	}
	if len(cfg.Validation.UnorderedPaths) != 1 {
		t.Errorf("unordered_paths: %v", cfg.Validation.UnorderedPaths)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []string{
		// missing required paths
		`optimization: {train_ratio: 0.8}`,
		// ratio out of range
		minimalConfig + "optimization:\n  train_ratio: 1.5\n",
		// temperature out of range
		minimalConfig + "temperatures:\n  repair: 2.0\n",
		// threshold out of range
		minimalConfig + "optimization:\n  holdout_threshold: 1.5\n",
	}
	for _, raw := range cases {
		if _, err := config.Load(writeConfig(t, raw)); err == nil {
			t.Errorf("expected error for config:\n%s", raw)
		}
	}
}
