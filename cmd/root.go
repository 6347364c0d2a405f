package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "promptopt",
		Short: "Evolutionary optimizer for JSON-producing system prompts",
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "optimizer.yaml", "config file path")
	root.AddCommand(newRunCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newTokensCmd())
	root.AddCommand(newReportCmd())
	return root
}
