package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newProvisionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "provision",
		Short: "Drop and recreate the article and tag collections (destroys data)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.waitForStore(cmd.Context()); err != nil {
				return err
			}
			if err := a.schema.ProvisionAll(cmd.Context()); err != nil {
				return fmt.Errorf("provision collections: %w", err)
			}
			a.logger.Info("Collections provisioned")
			return nil
		},
	}
}
