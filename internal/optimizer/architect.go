package optimizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/assessment"
	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/llm"
	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/prompt"
	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/templates"
	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/validator"
)

// ArchitectState is the repair loop's terminal condition.
type ArchitectState int

const (
	Repairing ArchitectState = iota
	Succeeded
	Exhausted
)

func (s ArchitectState) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case Exhausted:
		return "exhausted"
	default:
		return "repairing"
	}
}

// Iteration is the record of one phase iteration, handed to the observer.
type Iteration struct {
	Phase     string
	Number    int
	Accuracy  float64
	Tokens    float64
	Score     float64
	Accepted  bool
	Reason    string
	LatencyMS float64
}

// Observer receives one record per completed iteration.
type Observer func(Iteration)

// maxFailureSummary caps how many failures are fed back to the repair call.
const maxFailureSummary = 10

// Architect is the repair loop: mutate the candidate until it reaches 100%
// training accuracy or the repair budget runs out. Each repaired candidate
// replaces the current one unconditionally; token cost is not yet a concern.
type Architect struct {
	Evaluator    *Evaluator
	Generator    llm.Generator
	Model        string
	Temperature  float32
	Budget       int
	SystemPrompt string
}

// Repair returns the final candidate, its training aggregate, and the
// terminal state. Exhausted is a recoverable outcome, not an error. A
// generator that returns the identical candidate still consumes budget.
func (a *Architect) Repair(ctx context.Context, initial prompt.Candidate, train assessment.Dataset, observe Observer) (prompt.Candidate, Aggregate, ArchitectState, error) {
	current := initial
	for iter := 1; ; iter++ {
		if err := ctx.Err(); err != nil {
			return current, Aggregate{}, Repairing, err
		}

		start := time.Now()
		agg, err := a.Evaluator.Run(ctx, current.Text, train)
		if err != nil {
			return current, Aggregate{}, Repairing, fmt.Errorf("repair evaluation: %w", err)
		}

		it := Iteration{
			Phase:     prompt.PhaseRepair,
			Number:    iter,
			Accuracy:  agg.Accuracy,
			Tokens:    agg.TotalTokens(),
			Score:     a.Evaluator.Metrics.Score(agg.Accuracy, agg.TotalTokens()),
			LatencyMS: float64(time.Since(start).Milliseconds()),
		}

		if agg.Accuracy == 1.0 {
			it.Accepted = true
			it.Reason = "succeeded"
			if observe != nil {
				observe(it)
			}
			return current, agg, Succeeded, nil
		}
		if iter >= a.Budget {
			it.Reason = "budget_exhausted"
			if observe != nil {
				observe(it)
			}
			return current, agg, Exhausted, nil
		}

		it.Accepted = true
		it.Reason = "repaired"
		if observe != nil {
			observe(it)
		}

		text, err := a.mutate(ctx, current.Text, formatFailures(agg.Failures()))
		if err != nil {
			return current, agg, Repairing, fmt.Errorf("repair generation: %w", err)
		}
		current = current.Derive(text, prompt.PhaseRepair)
	}
}

func (a *Architect) mutate(ctx context.Context, current, failures string) (string, error) {
	res, err := a.Generator.Generate(ctx, llm.Request{
		System:      a.SystemPrompt,
		Messages:    []llm.Message{{Role: "user", Content: fmt.Sprintf(templates.RepairUserTemplate, current, failures)}},
		Model:       a.Model,
		Temperature: a.Temperature,
		JSONMode:    true,
	})
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// formatFailures builds the failure summary fed back to the repair call:
// capped, one line per failure, newlines sanitized.
func formatFailures(failures []validator.Result) string {
	var b strings.Builder
	for i, f := range failures {
		if i >= maxFailureSummary {
			b.WriteString("... (more failures truncated) ...")
			break
		}
		fmt.Fprintf(&b, "- Failure #%d: Case='%s', Reason='%s: %s', Expected=%s, Actual=%s\n",
			i+1, f.CaseID, f.Reason, oneline(f.Detail), oneline(f.Expected), oneline(f.Actual))
	}
	return strings.TrimRight(b.String(), "\n")
}

func oneline(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r", " "), "\n", " ")
}
