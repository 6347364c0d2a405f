package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/montanaflynn/stats"

	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/history"
)

// RunSummary is one optimization run with its iteration latency profile.
type RunSummary struct {
	ID               string  `json:"id"`
	Model            string  `json:"model"`
	Outcome          string  `json:"outcome"`
	TrainingAccuracy float64 `json:"training_accuracy"`
	HoldoutAccuracy  float64 `json:"holdout_accuracy"`
	Tokens           float64 `json:"tokens"`
	Score            float64 `json:"score"`
	Iterations       int     `json:"iterations"`
	Accepted         int     `json:"accepted_iterations"`
	MeanLatencyMS    float64 `json:"mean_latency_ms"`
	MedianLatencyMS  float64 `json:"median_latency_ms"`
}

// Generate summarizes every recorded run and writes it in the given format.
func Generate(st *history.Store, format string, w io.Writer) error {
	runs, err := st.Runs()
	if err != nil {
		return err
	}

	summaries := make([]RunSummary, 0, len(runs))
	for _, r := range runs {
		iters, err := st.Iterations(r.ID)
		if err != nil {
			return err
		}
		summaries = append(summaries, summarize(r, iters))
	}

	switch format {
	case "markdown":
		return writeMarkdown(summaries, w)
	case "json":
		return writeJSON(summaries, w)
	default:
		return writeTable(summaries, w)
	}
}

func summarize(r history.Run, iters []history.Iteration) RunSummary {
	s := RunSummary{
		ID:               r.ID,
		Model:            r.Model,
		Outcome:          r.Outcome,
		TrainingAccuracy: r.TrainingAccuracy,
		HoldoutAccuracy:  r.HoldoutAccuracy,
		Tokens:           r.Tokens,
		Score:            r.Score,
		Iterations:       len(iters),
	}
	if s.Outcome == "" {
		s.Outcome = "running"
	}

	latencies := make([]float64, 0, len(iters))
	for _, it := range iters {
		latencies = append(latencies, it.LatencyMS)
		if it.Accepted {
			s.Accepted++
		}
	}
	if len(latencies) > 0 {
		// stats errors only on empty input, guarded above.
		s.MeanLatencyMS, _ = stats.Mean(latencies)
		s.MedianLatencyMS, _ = stats.Median(latencies)
	}
	return s
}

func writeTable(summaries []RunSummary, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tMODEL\tOUTCOME\tTRAIN ACC\tHOLDOUT ACC\tTOKENS\tSCORE\tITERS\tMEAN LAT")
	fmt.Fprintln(tw, strings.Repeat("-", 100))
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f%%\t%.1f%%\t%.0f\t%.2f\t%d\t%.0fms\n",
			shortID(s.ID), s.Model, s.Outcome, s.TrainingAccuracy*100, s.HoldoutAccuracy*100,
			s.Tokens, s.Score, s.Iterations, s.MeanLatencyMS)
	}
	return tw.Flush()
}

func writeMarkdown(summaries []RunSummary, w io.Writer) error {
	fmt.Fprintln(w, "| Run | Model | Outcome | Train Acc | Holdout Acc | Tokens | Score | Iters | Mean Latency |")
	fmt.Fprintln(w, "|---|---|---|---|---|---|---|---|---|")
	for _, s := range summaries {
		fmt.Fprintf(w, "| %s | %s | %s | %.1f%% | %.1f%% | %.0f | %.2f | %d | %.0fms |\n",
			shortID(s.ID), s.Model, s.Outcome, s.TrainingAccuracy*100, s.HoldoutAccuracy*100,
			s.Tokens, s.Score, s.Iterations, s.MeanLatencyMS)
	}
	return nil
}

func writeJSON(summaries []RunSummary, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summaries)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
