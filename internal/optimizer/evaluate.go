package optimizer

import (
	"context"
	"errors"
	"fmt"

	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/assessment"
	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/llm"
	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/metrics"
	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/validator"
)

// Aggregate is the complete outcome of evaluating one candidate over a
// dataset. It is computed in full or not at all.
type Aggregate struct {
	Accuracy        float64
	Results         []validator.Result
	PromptTokens    int
	AvgOutputTokens float64
}

// TotalTokens is the candidate's transaction cost: prompt tokens plus the
// mean output tokens of passing cases. Compression that bloats outputs is
// penalized through the second term.
func (a Aggregate) TotalTokens() float64 {
	return float64(a.PromptTokens) + a.AvgOutputTokens
}

// Failures returns the failed per-case results.
func (a Aggregate) Failures() []validator.Result {
	var failed []validator.Result
	for _, r := range a.Results {
		if !r.Pass {
			failed = append(failed, r)
		}
	}
	return failed
}

// Evaluator runs a candidate prompt over a dataset: one generation call per
// case, judged by the deterministic validator. Case evaluations fan out over
// a bounded pool and are barrier-collected; accuracy is never computed from a
// partial pass.
type Evaluator struct {
	Generator   llm.Generator
	Validator   *validator.Validator
	Metrics     *metrics.Engine
	Model       string
	Temperature float32
	Parallel    int
}

// Run evaluates promptText over every case in ds. A generation failure that
// survives the client's retry budget aborts the whole pass; a truncated or
// malformed response is an ordinary failed case.
func (e *Evaluator) Run(ctx context.Context, promptText string, ds assessment.Dataset) (Aggregate, error) {
	if len(ds) == 0 {
		return Aggregate{}, fmt.Errorf("empty dataset")
	}

	results := make([]validator.Result, len(ds))
	errs := make([]error, len(ds))

	jobs := make([]func(), len(ds))
	for i := range ds {
		i := i
		c := &ds[i]
		jobs[i] = func() {
			res, err := e.Generator.Generate(ctx, llm.Request{
				System:      promptText,
				Messages:    turnsToMessages(c.Conversation),
				Model:       e.Model,
				Temperature: e.Temperature,
				JSONMode:    c.Expected.Structured,
			})
			if err != nil && !errors.Is(err, llm.ErrTruncated) {
				errs[i] = fmt.Errorf("case %s: %w", c.ID, err)
				return
			}
			results[i] = e.Validator.Evaluate(c.ID, res.Text, c.Expected)
		}
	}
	runPool(e.Parallel, jobs)

	for _, err := range errs {
		if err != nil {
			return Aggregate{}, err
		}
	}

	passed := 0
	outputTokens := 0
	for _, r := range results {
		if r.Pass {
			passed++
			outputTokens += e.Metrics.CountTokens(r.Actual)
		}
	}
	agg := Aggregate{
		Accuracy:     float64(passed) / float64(len(ds)),
		Results:      results,
		PromptTokens: e.Metrics.CountTokens(promptText),
	}
	if passed > 0 {
		agg.AvgOutputTokens = float64(outputTokens) / float64(passed)
	}
	return agg, nil
}

func turnsToMessages(turns []assessment.Turn) []llm.Message {
	msgs := make([]llm.Message, len(turns))
	for i, t := range turns {
		msgs[i] = llm.Message{Role: t.Role, Content: t.Content}
	}
	return msgs
}
