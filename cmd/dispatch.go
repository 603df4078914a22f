// Package cmd is the entry point of the dispatch binary.
package cmd

import (
	"context"
	"os"

	"github.com/imgflow/dispatch/internal/adapters/in/cli"
)

// ExecuteCLI runs the root command with the build information injected by
// the linker.
func ExecuteCLI(version, commit, date string) {
	if version != "" {
		cli.SetVersionInfo(version, commit, date)
	}

	if err := cli.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
