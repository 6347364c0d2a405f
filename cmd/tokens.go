package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/config"
	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/metrics"
	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/prompt"
)

func newTokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens [prompt-file]",
		Short: "Count the tokens of a prompt file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			path := cfg.Paths.Prompt
			if len(args) > 0 {
				path = args[0]
			}
			c, err := prompt.LoadInitial(path)
			if err != nil {
				return err
			}
			engine := metrics.NewEngine(cfg.Models.Fast, cfg.Optimization.Alpha, cfg.Optimization.Beta)
			fmt.Printf("%s: %d tokens\n", path, engine.CountTokens(c.Text))
			return nil
		},
	}
}
