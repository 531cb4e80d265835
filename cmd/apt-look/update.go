package main

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Fetch and verify Release documents for every configured source",
	RunE: func(cmd *cobra.Command, args []string) error {
		sys, err := buildSystem()
		if err != nil {
			return err
		}
		ctx := context.Background()
		if err := sys.Update(ctx); err != nil {
			return err
		}
		log.Info().Msg("apt-look: update complete")
		return nil
	},
}
