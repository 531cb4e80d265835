// Package apt wires sources-list entries, release acquisition, listing acquisition,
// and typed package decoding into one façade a caller can drive with Update and
// Packages.
package apt

import (
	"context"
	"fmt"
	"io"
	"iter"
	"net/url"
	"os"
	"sync"

	"github.com/nicwaller/apt-look/pkg/apt/apttransport"
	"github.com/nicwaller/apt-look/pkg/apt/deb"
	"github.com/nicwaller/apt-look/pkg/apt/lists"
	"github.com/nicwaller/apt-look/pkg/apt/release"
	"github.com/nicwaller/apt-look/pkg/apt/signing"
	"github.com/nicwaller/apt-look/pkg/apt/sources"
	"github.com/rs/zerolog/log"
)

// System is a configured view of a machine's apt state: the sources it trusts, the
// keys it trusts them with, and the local directory it caches verified documents in.
type System struct {
	ListsDir       string
	DpkgStatusPath string

	Entries sources.List
	Arches  []string

	Keyring   *signing.Keyring
	Transport apttransport.Transport

	mu       sync.Mutex
	releases map[string]*release.ReleaseFile
}

// NewSystem constructs a System rooted at listsDir with an empty keyring and the
// default HTTPS transport. Callers add trust with AddKeysFrom before calling Update.
func NewSystem(listsDir string) *System {
	transport, err := apttransport.DefaultRegistry.Select("https")
	if err != nil {
		// the default registry always registers an HTTPS transport at init
		panic(err)
	}
	return &System{
		ListsDir:       listsDir,
		DpkgStatusPath: "/var/lib/dpkg/status",
		Arches:         []string{"amd64"},
		Keyring:        signing.NewKeyring(),
		Transport:      transport,
		releases:       make(map[string]*release.ReleaseFile),
	}
}

func (s *System) AddSourceEntries(entries ...sources.Entry) {
	s.Entries = append(s.Entries, entries...)
}

func (s *System) AddKeysFrom(r io.Reader) error {
	return s.Keyring.AddKeysFrom(r)
}

func (s *System) SetArches(arches ...string) {
	s.Arches = arches
}

func (s *System) SetDpkgDatabase(path string) {
	s.DpkgStatusPath = path
}

func (s *System) SetCacheDir(dir string) {
	s.ListsDir = dir
}

// distRoot returns the suite's distribution root, e.g.
// https://deb.debian.org/debian/dists/bookworm/, for a classic (non-flat) entry.
func distRoot(e sources.Entry) (*url.URL, error) {
	archiveRoot, err := url.Parse(e.URL)
	if err != nil {
		return nil, fmt.Errorf("apt: invalid entry URL %q: %w", e.URL, err)
	}
	return archiveRoot.JoinPath("dists", e.Suite), nil
}

func (e *entryRef) requestedRelease(arches []string) release.RequestedRelease {
	return release.RequestedRelease{
		Mirror:    e.distRoot,
		Codename:  e.entry.Suite,
		Arches:    arches,
		Untrusted: e.entry.Untrusted,
	}
}

type entryRef struct {
	entry    sources.Entry
	distRoot *url.URL
}

func (s *System) entryRefs() ([]entryRef, error) {
	out := make([]entryRef, 0, len(s.Entries))
	for _, e := range s.Entries {
		root, err := distRoot(e)
		if err != nil {
			return nil, err
		}
		out = append(out, entryRef{entry: e, distRoot: root})
	}
	return out, nil
}

// Mirrors returns the RequestedRelease this System will acquire for each distinct
// mirror+suite named across its entries, for diagnostics output (backing the
// "yaml mirrors" subcommand).
func (s *System) Mirrors() ([]release.RequestedRelease, error) {
	refs, err := s.entryRefs()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []release.RequestedRelease
	for _, ref := range refs {
		rr := ref.requestedRelease(s.Arches)
		slug := rr.Slug()
		if seen[slug] {
			continue
		}
		seen[slug] = true
		out = append(out, rr)
	}
	return out, nil
}

// Update fetches and verifies the Release document for every distinct mirror+suite
// named across s.Entries, caching the decoded result for Listings/Packages.
func (s *System) Update(ctx context.Context) error {
	acquirer := &release.Acquirer{Transport: s.Transport, Keyring: s.Keyring, ListsDir: s.ListsDir}

	refs, err := s.entryRefs()
	if err != nil {
		return err
	}

	seen := make(map[string]bool)
	for _, ref := range refs {
		rr := ref.requestedRelease(s.Arches)
		slug := rr.Slug()
		if seen[slug] {
			continue
		}
		seen[slug] = true

		log.Info().Str("mirror", ref.distRoot.String()).Msg("apt: updating release")
		rf, err := acquirer.Acquire(ctx, rr)
		if err != nil {
			return fmt.Errorf("apt: updating %s: %w", ref.distRoot, err)
		}

		s.mu.Lock()
		s.releases[slug] = rf
		s.mu.Unlock()
	}
	return nil
}

// resolvedListing pairs one Listing with the distribution root and Release document
// it was enumerated from, everything OpenListing needs to fetch it.
type resolvedListing struct {
	distRoot *url.URL
	release  *release.ReleaseFile
	listing  lists.Listing
}

// Listings enumerates every Packages/Sources index named by s.Entries. Update must
// have been called first so a Release document is cached for each entry's suite.
func (s *System) Listings() ([]resolvedListing, error) {
	refs, err := s.entryRefs()
	if err != nil {
		return nil, err
	}

	var out []resolvedListing
	for _, ref := range refs {
		rr := ref.requestedRelease(s.Arches)
		s.mu.Lock()
		rf, ok := s.releases[rr.Slug()]
		s.mu.Unlock()
		if !ok {
			return nil, fmt.Errorf("apt: no cached release for %s; call Update first", ref.distRoot)
		}

		arches := s.Arches
		if ref.entry.Arch != "" {
			arches = []string{ref.entry.Arch}
		}
		for _, l := range lists.Enumerate(rf, ref.entry.Components, arches, !ref.entry.Src, ref.entry.Src) {
			out = append(out, resolvedListing{distRoot: ref.distRoot, release: rf, listing: l})
		}
	}
	return out, nil
}

// OpenListing fetches, verifies, and (if needed) decompresses one listing, returning
// a reader over its decoded content-addressed local copy.
func (s *System) OpenListing(ctx context.Context, rl resolvedListing) (io.ReadCloser, error) {
	localPath, err := lists.Fetch(ctx, s.Transport, rl.release, rl.distRoot, rl.listing, s.ListsDir)
	if err != nil {
		return nil, err
	}
	return os.Open(localPath)
}

// OpenStatus opens the local dpkg status database, which uses the same deb822
// stanza format as a Packages listing and can be decoded with deb.ParsePackages.
func (s *System) OpenStatus() (io.ReadCloser, error) {
	return os.Open(s.DpkgStatusPath)
}

// Packages walks every listing named by s.Entries and decodes every package record
// in each. Listings are fetched sequentially, one at a time; there is no concurrent
// fetching here.
func (s *System) Packages(ctx context.Context) iter.Seq2[*deb.Package, error] {
	return func(yield func(*deb.Package, error) bool) {
		listings, err := s.Listings()
		if err != nil {
			yield(nil, err)
			return
		}
		for _, rl := range listings {
			rdr, err := s.OpenListing(ctx, rl)
			if err != nil {
				if !yield(nil, fmt.Errorf("apt: opening %s: %w", rl.listing.BaseName, err)) {
					return
				}
				continue
			}
			stop := false
			for pkg, perr := range deb.ParsePackages(rdr) {
				if !yield(pkg, perr) {
					stop = true
					break
				}
			}
			rdr.Close()
			if stop {
				return
			}
		}
	}
}
