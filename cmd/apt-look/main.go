package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/nicwaller/apt-look/pkg/apt"
	"github.com/nicwaller/apt-look/pkg/apt/sources"
)

var flags struct {
	rootDir     string
	sourcesList string
	cacheDir    string
	keyrings    []string
	releaseURLs []string
	arches      []string
	systemDpkg  string
}

var rootCmd = &cobra.Command{
	Use:   "apt-look",
	Short: "Explore APT repositories without system configuration",
	Long: `apt-look fetches, verifies, and indexes APT repository metadata without
touching system apt configuration or installing anything.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if flags.cacheDir == "" {
			flags.cacheDir = filepath.Join(flags.rootDir, "cache")
		}
		if flags.sourcesList == "" {
			flags.sourcesList = filepath.Join(flags.rootDir, "etc", "sources.list")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flags.rootDir, "root-dir", ".", "root directory apt-look treats as its private state")
	rootCmd.PersistentFlags().StringVar(&flags.sourcesList, "sources-list", "", "path to a sources.list file (default <root-dir>/etc/sources.list)")
	rootCmd.PersistentFlags().StringVar(&flags.cacheDir, "cache-dir", "", "directory for cached lists (default <root-dir>/cache)")
	rootCmd.PersistentFlags().StringArrayVar(&flags.keyrings, "keyring", nil, "path to a trusted OpenPGP keyring (repeatable)")
	rootCmd.PersistentFlags().StringArrayVar(&flags.releaseURLs, "release-url", nil, "a distribution root URL to use instead of (or in addition to) sources-list entries (repeatable)")
	rootCmd.PersistentFlags().StringArrayVar(&flags.arches, "arch", []string{"amd64"}, "architecture to index (repeatable)")
	rootCmd.PersistentFlags().StringVar(&flags.systemDpkg, "system-dpkg", "/var/lib/dpkg", "path to the local dpkg database")

	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(sourceNinjaCmd)
	rootCmd.AddCommand(yamlCmd)
}

// buildSystem constructs a System from the persistent flags: sources-list entries
// plus any --release-url overrides, the configured keyrings, and the HTTP proxy the
// environment names.
func buildSystem() (*apt.System, error) {
	sys := apt.NewSystem(flags.cacheDir)
	sys.SetArches(flags.arches...)
	sys.SetDpkgDatabase(filepath.Join(flags.systemDpkg, "status"))

	if f, err := os.Open(flags.sourcesList); err == nil {
		defer f.Close()
		entries, err := sources.ParseSourcesList(f)
		if err != nil {
			return nil, fmt.Errorf("apt-look: parsing %s: %w", flags.sourcesList, err)
		}
		sys.AddSourceEntries(entries...)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("apt-look: opening %s: %w", flags.sourcesList, err)
	}
	siblings, _ := filepath.Glob(flags.sourcesList + ".d/*" + filepath.Ext(flags.sourcesList))
	for _, path := range siblings {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("apt-look: opening %s: %w", path, err)
		}
		entries, err := sources.ParseSourcesList(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("apt-look: parsing %s: %w", path, err)
		}
		sys.AddSourceEntries(entries...)
	}

	for _, raw := range flags.releaseURLs {
		entry, err := releaseURLToEntry(raw)
		if err != nil {
			return nil, err
		}
		sys.AddSourceEntries(entry)
	}

	for _, path := range flags.keyrings {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("apt-look: opening keyring %s: %w", path, err)
		}
		err = sys.AddKeysFrom(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("apt-look: loading keyring %s: %w", path, err)
		}
	}

	if proxy := os.Getenv("http_proxy"); proxy != "" {
		log.Debug().Str("http_proxy", proxy).Msg("apt-look: using proxy from environment")
		_ = http.ProxyFromEnvironment // apttransport.NewHTTPTransport's own http.Transport sets Proxy to this
	}

	return sys, nil
}

// releaseURLToEntry splits a distribution root URL like
// https://deb.debian.org/debian/dists/bookworm/ into a sources.Entry, the same
// /dists/ convention apt.distRoot reverses when acquiring Release documents.
func releaseURLToEntry(raw string) (sources.Entry, error) {
	idx := strings.Index(raw, "/dists/")
	if idx == -1 {
		return sources.Entry{}, fmt.Errorf("apt-look: --release-url %q does not contain /dists/", raw)
	}
	archiveRoot := raw[:idx+1]
	suite := strings.Trim(raw[idx+len("/dists/"):], "/")
	if suite == "" {
		return sources.Entry{}, fmt.Errorf("apt-look: --release-url %q has no suite after /dists/", raw)
	}
	return sources.Entry{URL: archiveRoot, Suite: suite, Components: []string{"main"}}, nil
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("apt-look")
	}
}
