package metrics_test

import (
	"strings"
	"testing"

	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/metrics"
)

func TestCountTokens(t *testing.T) {
	e := metrics.NewOfflineEngine(100, 0.01)
	if got := e.CountTokens(""); got != 0 {
		t.Errorf("empty text: got %d, want 0", got)
	}
	short := e.CountTokens("hello")
	long := e.CountTokens(strings.Repeat("hello world ", 50))
	if short <= 0 {
		t.Errorf("non-empty text counted as %d tokens", short)
	}
	if long <= short {
		t.Errorf("longer text should count more tokens: %d vs %d", long, short)
	}
}

func TestScoreEfficiencyPreference(t *testing.T) {
	e := metrics.NewOfflineEngine(100, 0.01)
	// Equal accuracy: fewer tokens must score strictly higher.
	if s1, s2 := e.Score(1.0, 90), e.Score(1.0, 120); s1 <= s2 {
		t.Errorf("shorter candidate should win at equal accuracy: %f vs %f", s1, s2)
	}
}

func TestScoreAccuracyDominates(t *testing.T) {
	e := metrics.NewOfflineEngine(100, 0.01)
	// A correct candidate an order of magnitude longer still beats a short
	// candidate that misses one case in eight under default weights.
	correct := e.Score(1.0, 1000)
	wrong := e.Score(7.0/8.0, 100)
	if correct <= wrong {
		t.Errorf("correct-but-long should outscore wrong-but-short: %f vs %f", correct, wrong)
	}
}
