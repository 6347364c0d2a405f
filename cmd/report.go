package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/config"
	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/history"
	"github.com/xdevops-ai/xdevops-prompt-optimizer/internal/report"
)

var flagFormat string

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize recorded optimization runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			store, err := history.Open(cfg.Paths.HistoryDB)
			if err != nil {
				return err
			}
			defer store.Close()
			return report.Generate(store, flagFormat, os.Stdout)
		},
	}
	cmd.Flags().StringVar(&flagFormat, "format", "table", "output format (table, markdown, json)")
	return cmd
}
