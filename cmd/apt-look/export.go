package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every decoded package record as newline-delimited JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		sys, err := buildSystem()
		if err != nil {
			return err
		}
		ctx := context.Background()
		if err := sys.Update(ctx); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		for pkg, err := range sys.Packages(ctx) {
			if err != nil {
				return err
			}
			if err := enc.Encode(pkg); err != nil {
				return err
			}
		}
		return nil
	},
}
