package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/assessment"
	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/config"
	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/history"
	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/llm"
	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/metrics"
	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/optimizer"
	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/prompt"
	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/templates"
	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/validator"
)

var (
	flagSeed     int64
	flagBudget   int
	flagPatience int
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute an optimization run",
		RunE:  runOptimization,
	}
	cmd.Flags().Int64Var(&flagSeed, "seed", 0, "override the split seed")
	cmd.Flags().IntVar(&flagBudget, "budget", 0, "override the repair budget")
	cmd.Flags().IntVar(&flagPatience, "patience", 0, "override the compression patience")
	return cmd
}

func runOptimization(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	opt := cfg.Optimization
	if flagSeed != 0 {
		opt.Seed = flagSeed
	}
	if flagBudget > 0 {
		opt.RepairBudget = flagBudget
	}
	if flagPatience > 0 {
		opt.Patience = flagPatience
	}

	dataset, err := assessment.Load(cfg.Paths.Assessment)
	if err != nil {
		fmt.Printf("Outcome: %s\n", optimizer.OutcomeDataError)
		return err
	}
	initial, err := prompt.LoadInitial(cfg.Paths.Prompt)
	if err != nil {
		fmt.Printf("Outcome: %s\n", optimizer.OutcomeDataError)
		return err
	}
	train, holdout, err := assessment.Split(dataset, opt.TrainRatio, opt.Seed)
	if err != nil {
		fmt.Printf("Outcome: %s\n", optimizer.OutcomeDataError)
		if errors.Is(err, assessment.ErrInsufficientData) {
			return fmt.Errorf("dataset of %d cases cannot be split at ratio %v: %w",
				len(dataset), opt.TrainRatio, err)
		}
		return err
	}
	fmt.Printf("Dataset: %d cases (%d training, %d holdout, seed %d)\n",
		len(dataset), len(train), len(holdout), opt.Seed)

	apiKey, err := cfg.APIKey()
	if err != nil {
		return err
	}
	client := llm.NewClient(apiKey, cfg.Provider.BaseURL,
		time.Duration(opt.RequestTimeoutS)*time.Second, opt.MaxAttempts)
	engine := metrics.NewEngine(cfg.Models.Fast, opt.Alpha, opt.Beta)

	repairSystem, err := templates.Load(cfg.Paths.RepairMeta, templates.DefaultRepairSystem)
	if err != nil {
		return err
	}
	compressSystem, err := templates.Load(cfg.Paths.CompressMeta, templates.DefaultCompressSystem)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Paths.HistoryDB), 0o755); err != nil {
		return fmt.Errorf("creating history dir: %w", err)
	}
	store, err := history.Open(cfg.Paths.HistoryDB)
	if err != nil {
		return err
	}
	defer store.Close()

	runID, err := store.BeginRun(cfg.Models.Smart, len(train), len(holdout), opt.Seed)
	if err != nil {
		return err
	}
	fmt.Printf("Run %s\n", runID)

	evaluator := &optimizer.Evaluator{
		Generator:   client,
		Validator:   validator.New(cfg.Validation.UnorderedPaths),
		Metrics:     engine,
		Model:       cfg.Models.Fast,
		Temperature: cfg.Temperatures.Evaluation,
		Parallel:    opt.Parallel,
	}
	orch := &optimizer.Orchestrator{
		Architect: &optimizer.Architect{
			Evaluator:    evaluator,
			Generator:    client,
			Model:        cfg.Models.Smart,
			Temperature:  cfg.Temperatures.Repair,
			Budget:       opt.RepairBudget,
			SystemPrompt: repairSystem,
		},
		Surgeon: &optimizer.Surgeon{
			Evaluator:      evaluator,
			Generator:      client,
			Model:          cfg.Models.Smart,
			Temperature:    cfg.Temperatures.Compress,
			Patience:       opt.Patience,
			MinImprovement: opt.MinImprovement,
			SystemPrompt:   compressSystem,
			Checkpoint: func(c prompt.Candidate, agg optimizer.Aggregate, score float64) {
				path, err := prompt.Save(cfg.Paths.OutputDir, c, prompt.Annotation{
					RunID:    runID,
					Accuracy: agg.Accuracy,
					Tokens:   agg.TotalTokens(),
					Score:    score,
				})
				if err != nil {
					log.Printf("warning: checkpoint save failed: %v", err)
					return
				}
				fmt.Printf("  checkpoint saved: %s\n", path)
			},
		},
		Gatekeeper: &optimizer.Gatekeeper{
			Evaluator: evaluator,
			Threshold: opt.HoldoutThreshold,
		},
		Observe: func(it optimizer.Iteration) {
			fmt.Printf("[%s %d] accuracy=%.1f%% tokens=%.0f score=%.2f %s\n",
				it.Phase, it.Number, it.Accuracy*100, it.Tokens, it.Score, it.Reason)
			if err := store.RecordIteration(runID, history.Iteration(it)); err != nil {
				log.Printf("warning: recording iteration: %v", err)
			}
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	summary, err := orch.Run(ctx, initial, train, holdout)
	if err != nil {
		if ferr := store.FinishRun(runID, "error", summary.TrainingAccuracy, summary.HoldoutAccuracy,
			summary.Tokens, summary.Score); ferr != nil {
			log.Printf("warning: finishing run: %v", ferr)
		}
		// Preserve the best candidate found before interruption or failure.
		if summary.Final.Text != "" {
			if path, serr := prompt.Save(cfg.Paths.OutputDir, summary.Final, prompt.Annotation{
				RunID:    runID,
				Accuracy: summary.TrainingAccuracy,
				Tokens:   summary.Tokens,
				Score:    summary.Score,
			}); serr == nil {
				fmt.Printf("Best candidate saved: %s\n", path)
			}
		}
		return err
	}

	path, err := prompt.Save(cfg.Paths.OutputDir, summary.Final, prompt.Annotation{
		RunID:    runID,
		Accuracy: summary.TrainingAccuracy,
		Tokens:   summary.Tokens,
		Score:    summary.Score,
	})
	if err != nil {
		return err
	}
	if err := store.FinishRun(runID, string(summary.Outcome), summary.TrainingAccuracy,
		summary.HoldoutAccuracy, summary.Tokens, summary.Score); err != nil {
		log.Printf("warning: finishing run: %v", err)
	}

	fmt.Println("\n--- Summary ---")
	fmt.Printf("Outcome:           %s\n", summary.Outcome)
	fmt.Printf("Training accuracy: %.1f%%\n", summary.TrainingAccuracy*100)
	if summary.Outcome != optimizer.OutcomeArchitectExhausted {
		fmt.Printf("Holdout accuracy:  %.1f%%\n", summary.HoldoutAccuracy*100)
	}
	fmt.Printf("Tokens:            %.0f\n", summary.Tokens)
	fmt.Printf("Score:             %.2f\n", summary.Score)
	fmt.Printf("Iterations:        %d\n", summary.Iterations)
	fmt.Printf("Saved:             %s\n", path)
	return nil
}
