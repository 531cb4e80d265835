package lists

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/nicwaller/apt-look/pkg/apt/apttransport"
	"github.com/nicwaller/apt-look/pkg/apt/checksum"
	"github.com/nicwaller/apt-look/pkg/apt/release"
	"github.com/rs/zerolog/log"
)

// Listing names one Packages or Sources index a System can walk: the component and
// architecture it belongs to (Arch is "source" for a Sources listing), and the
// logical (uncompressed) base path used to look it up in a ReleaseFile.
type Listing struct {
	Component string
	Arch      string
	Source    bool
	BaseName  string
}

// Enumerate derives every Listing a set of sources-list entries asks for, from the
// components and architectures named in rf, filtered down to the caller's requested
// components/arches. An empty components/arches filter means "all".
func Enumerate(rf *release.ReleaseFile, components, arches []string, wantBinary, wantSource bool) []Listing {
	useComponents := rf.Components
	if len(components) > 0 {
		useComponents = intersect(rf.Components, components)
	}

	var out []Listing
	if wantBinary {
		useArches := make([]string, len(rf.Arches))
		for i, a := range rf.Arches {
			useArches[i] = a.String()
		}
		if len(arches) > 0 {
			useArches = intersect(useArches, arches)
		}
		for _, c := range useComponents {
			for _, a := range useArches {
				out = append(out, Listing{
					Component: c,
					Arch:      a,
					BaseName:  fmt.Sprintf("%s/binary-%s/Packages", c, a),
				})
			}
		}
	}
	if wantSource {
		for _, c := range useComponents {
			out = append(out, Listing{
				Component: c,
				Arch:      "source",
				Source:    true,
				BaseName:  fmt.Sprintf("%s/source/Sources", c),
			})
		}
	}
	return out
}

func intersect(have, want []string) []string {
	wantSet := make(map[string]bool, len(want))
	for _, w := range want {
		wantSet[w] = true
	}
	var out []string
	for _, h := range have {
		if wantSet[h] {
			out = append(out, h)
		}
	}
	return out
}

// Fetch resolves listing against rf, downloads and verifies it, decompresses it if
// needed, and persists the decompressed content at <listsDir>/<hex sha256>,
// returning that path. If the uncompressed variant's hash is already present in
// listsDir, no network request is made at all: the skip-if-present behavior extends
// all the way to avoiding the fetch, not just the write.
func Fetch(ctx context.Context, transport apttransport.Transport, rf *release.ReleaseFile, mirror *url.URL, listing Listing, listsDir string) (string, error) {
	entry, compressed, decompressedHash, ok := locate(rf, listing.BaseName)
	if !ok {
		return "", fmt.Errorf("lists: %s not found in release", listing.BaseName)
	}
	if compressed && decompressedHash == "" {
		return "", fmt.Errorf("lists: %s has no uncompressed entry in release to verify decompressed content against", listing.BaseName)
	}

	cachedHash := entry.SHA256
	if compressed {
		cachedHash = decompressedHash
	}
	cachedPath := filepath.Join(listsDir, cachedHash)
	if _, err := os.Stat(cachedPath); err == nil {
		log.Debug().Str("listing", listing.BaseName).Msg("lists: already present, skipping fetch")
		return cachedPath, nil
	}

	remoteName := entry.Name
	if rf.AcquireByHash {
		remoteName = byHashPath(entry.Name, entry.SHA256)
	}

	tmp, err := os.CreateTemp(listsDir, ".apt-look-listing-*")
	if err != nil {
		return "", fmt.Errorf("lists: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if _, err := transport.Acquire(ctx, &apttransport.AcquireRequest{
		URI:            mirror.JoinPath(remoteName),
		Filename:       tmpPath,
		ExpectedHashes: map[string]string{"sha256": entry.SHA256},
	}); err != nil {
		return "", fmt.Errorf("lists: fetching %s: %w", remoteName, err)
	}

	if !compressed {
		destPath := filepath.Join(listsDir, entry.SHA256)
		f, err := os.Open(tmpPath)
		if err != nil {
			return "", fmt.Errorf("lists: reopening fetched file: %w", err)
		}
		_, verifyErr := checksum.VerifySHA256(f, entry.SHA256, remoteName)
		f.Close()
		if verifyErr != nil {
			return "", verifyErr
		}
		if err := os.Rename(tmpPath, destPath); err != nil {
			return "", fmt.Errorf("lists: renaming into place: %w", err)
		}
		return destPath, nil
	}

	destPath := filepath.Join(listsDir, entry.SHA256+".decompressed")
	actualHex, err := checksum.DecompressAndVerify(tmpPath, destPath, decompressedHash)
	if err != nil {
		return "", err
	}
	finalPath := filepath.Join(listsDir, actualHex)
	if _, err := os.Stat(finalPath); err == nil {
		os.Remove(destPath)
		return finalPath, nil
	}
	if err := os.Rename(destPath, finalPath); err != nil {
		return "", fmt.Errorf("lists: renaming decompressed content into place: %w", err)
	}
	return finalPath, nil
}

// locate finds the Release content entry for baseName, preferring ".gz" when both a
// plain and compressed variant exist. compressed reports whether the matched entry
// needs decompression. When compressed, decompressedHash carries the plain (uncompressed)
// entry's declared SHA256, the digest the decompressed content must be verified
// against before it is persisted; it is empty if the release has no plain entry at all.
func locate(rf *release.ReleaseFile, baseName string) (entry release.ReleaseContent, compressed bool, decompressedHash string, ok bool) {
	plain, hasPlain := rf.Find(baseName)
	if c, found := rf.Find(baseName + ".gz"); found {
		hash := ""
		if hasPlain {
			hash = plain.SHA256
		}
		return c, true, hash, true
	}
	if hasPlain {
		return plain, false, "", true
	}
	return release.ReleaseContent{}, false, "", false
}

// byHashPath rewrites a listing's path to its by-hash form, e.g.
// "main/binary-amd64/Packages.gz" with hash abcd... becomes
// "main/binary-amd64/by-hash/SHA256/abcd...".
func byHashPath(name, sha256Hex string) string {
	dir := filepath.Dir(name)
	if dir == "." {
		return "by-hash/SHA256/" + sha256Hex
	}
	return strings.TrimSuffix(dir, "/") + "/by-hash/SHA256/" + sha256Hex
}
