package optimizer

import (
	"context"

	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/assessment"
	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/prompt"
)

// Outcome is the run's single terminal state.
type Outcome string

const (
	OutcomeAccepted            Outcome = "accepted"
	OutcomeRejectedOverfitting Outcome = "rejected_overfitting"
	OutcomeArchitectExhausted  Outcome = "architect_exhausted"
	OutcomeDataError           Outcome = "data_error"
)

// RunState is the orchestrator's process-scoped bookkeeping. It is mutated
// only between phase iterations, never concurrently.
type RunState struct {
	Phase         string
	Best          prompt.Candidate
	BestAggregate Aggregate
	BestScore     float64
	Iterations    int
}

// Summary describes how the run ended.
type Summary struct {
	Outcome          Outcome
	Final            prompt.Candidate
	TrainingAccuracy float64
	HoldoutAccuracy  float64
	Tokens           float64
	Score            float64
	Iterations       int
}

// Orchestrator sequences Partitioner → Architect → Surgeon → Gatekeeper and
// owns the best-known candidate at every step. Phases receive and return
// candidates; they do not retain them.
type Orchestrator struct {
	Architect  *Architect
	Surgeon    *Surgeon
	Gatekeeper *Gatekeeper

	// Observe, when set, receives every phase iteration.
	Observe Observer
}

// Run executes the two optimization phases and the final gate over an
// already-partitioned dataset. The holdout set reaches only the Gatekeeper.
func (o *Orchestrator) Run(ctx context.Context, initial prompt.Candidate, train, holdout assessment.Dataset) (Summary, error) {
	state := RunState{Phase: prompt.PhaseRepair, Best: initial}
	observe := func(it Iteration) {
		state.Iterations++
		if o.Observe != nil {
			o.Observe(it)
		}
	}
	metricsEngine := o.Architect.Evaluator.Metrics

	best, agg, archState, err := o.Architect.Repair(ctx, initial, train, observe)
	if err != nil {
		return Summary{Final: best, Iterations: state.Iterations}, err
	}
	state.Best = best
	state.BestAggregate = agg
	state.BestScore = metricsEngine.Score(agg.Accuracy, agg.TotalTokens())

	if archState == Exhausted {
		return Summary{
			Outcome:          OutcomeArchitectExhausted,
			Final:            best,
			TrainingAccuracy: agg.Accuracy,
			Tokens:           agg.TotalTokens(),
			Score:            state.BestScore,
			Iterations:       state.Iterations,
		}, nil
	}

	state.Phase = prompt.PhaseCompress
	best, agg, err = o.Surgeon.Compress(ctx, best, agg, train, observe)
	if err != nil {
		return Summary{Final: state.Best, TrainingAccuracy: state.BestAggregate.Accuracy, Iterations: state.Iterations}, err
	}
	state.Best = best
	state.BestAggregate = agg
	state.BestScore = metricsEngine.Score(agg.Accuracy, agg.TotalTokens())

	state.Phase = "gatekeeper"
	verdict, holdoutAgg, err := o.Gatekeeper.Check(ctx, best, holdout, agg.Accuracy == 1.0)
	if err != nil {
		return Summary{Final: best, TrainingAccuracy: agg.Accuracy, Iterations: state.Iterations}, err
	}

	outcome := OutcomeAccepted
	if !verdict.Accepted {
		outcome = OutcomeRejectedOverfitting
	}
	return Summary{
		Outcome:          outcome,
		Final:            best,
		TrainingAccuracy: agg.Accuracy,
		HoldoutAccuracy:  holdoutAgg.Accuracy,
		Tokens:           agg.TotalTokens(),
		Score:            state.BestScore,
		Iterations:       state.Iterations,
	}, nil
}
