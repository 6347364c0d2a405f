package main

import (
	"os"

	"github.com/xdevops-ai/xdevops-prompt-optimizer/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
