package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/tagdex/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tagdex",
		Short:         "Tag index over enriched articles",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.String(),
	}
	root.PersistentFlags().String("env", "", "config environment (defaults to $ENV or local)")

	root.AddCommand(newServeCmd(), newProvisionCmd(), newLoadCmd(), newSweepCmd())
	return root
}
