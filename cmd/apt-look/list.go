package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every package name visible across configured sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		sys, err := buildSystem()
		if err != nil {
			return err
		}
		ctx := context.Background()
		if err := sys.Update(ctx); err != nil {
			return err
		}

		seen := make(map[string]bool)
		for pkg, err := range sys.Packages(ctx) {
			if err != nil {
				return err
			}
			if seen[pkg.Name] {
				continue
			}
			seen[pkg.Name] = true
			fmt.Println(pkg.Name)
		}
		return nil
	},
}
