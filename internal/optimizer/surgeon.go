package optimizer

import (
	"context"
	"fmt"
	"time"

	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/assessment"
	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/llm"
	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/prompt"
	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/templates"
)

// SurgeonState is the compression loop's condition after an iteration.
type SurgeonState int

const (
	Climbing SurgeonState = iota
	RolledBack
	Converged
)

func (s SurgeonState) String() string {
	switch s {
	case RolledBack:
		return "rolled_back"
	case Converged:
		return "converged"
	default:
		return "climbing"
	}
}

// Surgeon is the hill-climbing compression loop. Invariant held at every
// iteration boundary: the retained best candidate has accuracy 1.0 on the
// training set. A candidate that breaks correctness is rolled back no matter
// how many tokens it saves; a candidate that holds correctness is accepted
// only when its score improves past MinImprovement. Convergence — patience
// consecutive non-improving iterations — is the normal terminal state.
type Surgeon struct {
	Evaluator      *Evaluator
	Generator      llm.Generator
	Model          string
	Temperature    float32
	Patience       int
	MinImprovement float64
	SystemPrompt   string

	// Checkpoint, when set, is called with each newly accepted best.
	Checkpoint func(c prompt.Candidate, agg Aggregate, score float64)
}

// Compress hill-climbs from best, which must already hold 100% training
// accuracy, and returns the converged best with its aggregate.
func (s *Surgeon) Compress(ctx context.Context, best prompt.Candidate, bestAgg Aggregate, train assessment.Dataset, observe Observer) (prompt.Candidate, Aggregate, error) {
	if bestAgg.Accuracy != 1.0 {
		return best, bestAgg, fmt.Errorf("compression requires a fully correct candidate, have accuracy %.3f", bestAgg.Accuracy)
	}

	bestScore := s.Evaluator.Metrics.Score(bestAgg.Accuracy, bestAgg.TotalTokens())
	stall := 0

	for iter := 1; stall < s.Patience; iter++ {
		if err := ctx.Err(); err != nil {
			return best, bestAgg, err
		}

		start := time.Now()
		text, err := s.mutate(ctx, best.Text)
		if err != nil {
			return best, bestAgg, fmt.Errorf("compression generation: %w", err)
		}
		candidate := best.Derive(text, prompt.PhaseCompress)

		agg, err := s.Evaluator.Run(ctx, candidate.Text, train)
		if err != nil {
			return best, bestAgg, fmt.Errorf("compression evaluation: %w", err)
		}

		it := Iteration{
			Phase:     prompt.PhaseCompress,
			Number:    iter,
			Accuracy:  agg.Accuracy,
			Tokens:    agg.TotalTokens(),
			Score:     s.Evaluator.Metrics.Score(agg.Accuracy, agg.TotalTokens()),
			LatencyMS: float64(time.Since(start).Milliseconds()),
		}

		switch {
		case agg.Accuracy < 1.0:
			// Rollback: the candidate is discarded, best stays.
			stall++
			it.Reason = "accuracy_regression"
		case it.Score-bestScore > s.MinImprovement:
			best = candidate
			bestAgg = agg
			bestScore = it.Score
			stall = 0
			it.Accepted = true
			it.Reason = "improved"
			if s.Checkpoint != nil {
				s.Checkpoint(best, bestAgg, bestScore)
			}
		default:
			stall++
			it.Reason = "no_improvement"
		}
		if observe != nil {
			observe(it)
		}
	}
	return best, bestAgg, nil
}

func (s *Surgeon) mutate(ctx context.Context, current string) (string, error) {
	res, err := s.Generator.Generate(ctx, llm.Request{
		System:      s.SystemPrompt,
		Messages:    []llm.Message{{Role: "user", Content: fmt.Sprintf(templates.CompressUserTemplate, current)}},
		Model:       s.Model,
		Temperature: s.Temperature,
		JSONMode:    true,
	})
	if err != nil {
		return "", err
	}
	return res.Text, nil
}
