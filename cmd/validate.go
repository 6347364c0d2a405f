package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/assessment"
	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/config"
	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/metrics"
	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/prompt"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the assessment, prompt, and split without calling any model",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			opt := cfg.Optimization

			dataset, err := assessment.Load(cfg.Paths.Assessment)
			if err != nil {
				return err
			}
			structured := 0
			for _, c := range dataset {
				if c.Expected.Structured {
					structured++
				}
			}
			fmt.Printf("Assessment: %d cases (%d structured, %d raw text)\n",
				len(dataset), structured, len(dataset)-structured)

			train, holdout, err := assessment.Split(dataset, opt.TrainRatio, opt.Seed)
			if err != nil {
				return fmt.Errorf("split check: %w", err)
			}
			fmt.Printf("Split:      %d training / %d holdout (ratio %v, seed %d)\n",
				len(train), len(holdout), opt.TrainRatio, opt.Seed)

			initial, err := prompt.LoadInitial(cfg.Paths.Prompt)
			if err != nil {
				return err
			}
			engine := metrics.NewEngine(cfg.Models.Fast, opt.Alpha, opt.Beta)
			fmt.Printf("Prompt:     %d tokens (%s)\n", engine.CountTokens(initial.Text), cfg.Paths.Prompt)
			fmt.Println("OK")
			return nil
		},
	}
}
