package main

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/nicwaller/apt-look/pkg/apt/ninjaexport"
)

// sourceNinjaCmd is a stub: the real translation from a parsed catalog to a full
// ninja build file is an external collaborator's job, but the subcommand name is
// part of the CLI surface, so it emits the per-package build stanzas and nothing else
// (no top-level rules, no $mirror/$dest variable bindings).
var sourceNinjaCmd = &cobra.Command{
	Use:   "source-ninja",
	Short: "Emit ninja build stanzas for every package record (stub)",
	RunE: func(cmd *cobra.Command, args []string) error {
		sys, err := buildSystem()
		if err != nil {
			return err
		}
		ctx := context.Background()
		if err := sys.Update(ctx); err != nil {
			return err
		}

		for pkg, err := range sys.Packages(ctx) {
			if err != nil {
				return err
			}
			if err := ninjaexport.Write(os.Stdout, pkg); err != nil {
				log.Warn().Err(err).Str("package", pkg.Name).Msg("apt-look: skipping package in source-ninja output")
			}
		}
		return nil
	},
}
