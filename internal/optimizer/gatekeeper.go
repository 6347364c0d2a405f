package optimizer

import (
	"context"
	"fmt"

	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/assessment"
	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/prompt"
)

// ReasonOverfitting marks a candidate that memorized its training cases:
// perfect on the training set, imperfect on cases it never saw.
const ReasonOverfitting = "overfitting"

// Verdict is the gate's terminal decision.
type Verdict struct {
	Accepted bool
	Reason   string
	Accuracy float64
}

// Gatekeeper runs the final generalization check: a single evaluation pass
// over the holdout set, which no optimization phase has seen.
type Gatekeeper struct {
	Evaluator *Evaluator
	Threshold float64
}

// Check accepts the candidate iff holdout accuracy meets the threshold.
// trainingPerfect distinguishes overfitting from a plain miss.
func (g *Gatekeeper) Check(ctx context.Context, final prompt.Candidate, holdout assessment.Dataset, trainingPerfect bool) (Verdict, Aggregate, error) {
	agg, err := g.Evaluator.Run(ctx, final.Text, holdout)
	if err != nil {
		return Verdict{}, Aggregate{}, fmt.Errorf("holdout evaluation: %w", err)
	}
	if agg.Accuracy >= g.Threshold {
		return Verdict{Accepted: true, Accuracy: agg.Accuracy}, agg, nil
	}
	reason := "below_threshold"
	if trainingPerfect {
		reason = ReasonOverfitting
	}
	return Verdict{Reason: reason, Accuracy: agg.Accuracy}, agg, nil
}
