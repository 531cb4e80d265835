package main

import (
	"os"

	"github.com/spf13/cobra"
	yamlv3 "gopkg.in/yaml.v3"
)

var yamlCmd = &cobra.Command{
	Use:   "yaml",
	Short: "Diagnostic YAML dumps of configured state",
}

var yamlMirrorsCmd = &cobra.Command{
	Use:   "mirrors",
	Short: "List the mirror/suite pairs this configuration will acquire",
	RunE: func(cmd *cobra.Command, args []string) error {
		sys, err := buildSystem()
		if err != nil {
			return err
		}
		mirrors, err := sys.Mirrors()
		if err != nil {
			return err
		}

		type mirrorEntry struct {
			Mirror    string   `yaml:"mirror"`
			Codename  string   `yaml:"codename"`
			Arches    []string `yaml:"arches"`
			Untrusted bool     `yaml:"untrusted,omitempty"`
		}
		out := make([]mirrorEntry, 0, len(mirrors))
		for _, m := range mirrors {
			out = append(out, mirrorEntry{
				Mirror:    m.Mirror.String(),
				Codename:  m.Codename,
				Arches:    m.Arches,
				Untrusted: m.Untrusted,
			})
		}

		enc := yamlv3.NewEncoder(os.Stdout)
		defer enc.Close()
		return enc.Encode(out)
	},
}

func init() {
	yamlCmd.AddCommand(yamlMirrorsCmd)
}
