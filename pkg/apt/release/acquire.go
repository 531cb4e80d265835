package release

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/nicwaller/apt-look/pkg/apt/apttransport"
	"github.com/nicwaller/apt-look/pkg/apt/signing"
	"github.com/rs/zerolog/log"
)

// Acquirer implements the release-acquisition state machine: prefer a signed
// InRelease document, falling back to Release plus a detached Release.gpg signature
// when InRelease is absent. Every verified document is cached under ListsDir, so a
// repeat Acquire for the same RequestedRelease only re-verifies when the server
// reports the document has changed.
type Acquirer struct {
	Transport apttransport.Transport
	Keyring   *signing.Keyring
	ListsDir  string
}

func (a *Acquirer) paths(rr RequestedRelease) (fetched, verified string) {
	slug := rr.Slug()
	return filepath.Join(a.ListsDir, slug+"_InRelease"), filepath.Join(a.ListsDir, slug+"_Verified")
}

// Acquire fetches and verifies the release document for rr, returning its decoded
// form. verifiedPath ends up holding the plain (unsigned) Release body, so component
// H (listing acquisition) can locate files without re-verifying anything.
func (a *Acquirer) Acquire(ctx context.Context, rr RequestedRelease) (*ReleaseFile, error) {
	_, verifiedPath := a.paths(rr)

	if ok, err := a.acquireInRelease(ctx, rr); err != nil {
		log.Debug().Err(err).Str("mirror", rr.Mirror.String()).Msg("release: InRelease unavailable, falling back to Release+Release.gpg")
		if _, err := a.acquireDetached(ctx, rr); err != nil {
			return nil, err
		}
	} else if !ok {
		return nil, fmt.Errorf("release: no InRelease document and no prior cache for %s", rr.Mirror)
	}

	body, err := os.ReadFile(verifiedPath)
	if err != nil {
		return nil, fmt.Errorf("release: reading verified document: %w", err)
	}
	return Parse(body)
}

// acquireInRelease fetches the modern single-file clearsigned form and verifies it
// in place. ok is false only when the server has nothing newer and no verified copy
// exists locally yet (first run against a 304, which should not happen in practice).
func (a *Acquirer) acquireInRelease(ctx context.Context, rr RequestedRelease) (ok bool, err error) {
	fetchedPath, verifiedPath := a.paths(rr)
	req := &apttransport.AcquireRequest{
		URI:          rr.Mirror.JoinPath("InRelease"),
		Filename:     fetchedPath,
		LastModified: mtimeOf(fetchedPath),
		Timeout:      30 * time.Second,
	}
	resp, err := a.Transport.Acquire(ctx, req)
	if err != nil {
		return false, fmt.Errorf("release: InRelease fetch failed: %w", err)
	}
	if resp.NotModified {
		_, statErr := os.Stat(verifiedPath)
		return statErr == nil, nil
	}

	data, err := os.ReadFile(fetchedPath)
	if err != nil {
		return false, fmt.Errorf("release: reading fetched InRelease: %w", err)
	}
	if _, err := a.Keyring.VerifyClearsigned(data, verifiedPath, rr.Untrusted); err != nil {
		return false, err
	}
	return true, nil
}

// acquireDetached falls back to the older Release + Release.gpg pair: fetch the
// plain Release body, fetch its detached signature (skipped when rr.Untrusted),
// verify, and stage the plain body straight to verifiedPath.
func (a *Acquirer) acquireDetached(ctx context.Context, rr RequestedRelease) (ok bool, err error) {
	_, verifiedPath := a.paths(rr)

	releaseResp, err := a.Transport.Acquire(ctx, &apttransport.AcquireRequest{
		URI:          rr.Mirror.JoinPath("Release"),
		LastModified: mtimeOf(verifiedPath),
		Timeout:      30 * time.Second,
	})
	if err != nil {
		return false, fmt.Errorf("release: Release fetch failed: %w", err)
	}
	if releaseResp.NotModified {
		_, statErr := os.Stat(verifiedPath)
		return statErr == nil, nil
	}
	defer releaseResp.Content.Close()
	data, err := io.ReadAll(releaseResp.Content)
	if err != nil {
		return false, fmt.Errorf("release: reading Release body: %w", err)
	}

	if rr.Untrusted {
		if err := stagePlain(verifiedPath, data); err != nil {
			return false, err
		}
		return true, nil
	}

	sigResp, err := a.Transport.Acquire(ctx, &apttransport.AcquireRequest{
		URI:     rr.Mirror.JoinPath("Release.gpg"),
		Timeout: 30 * time.Second,
	})
	if err != nil {
		return false, fmt.Errorf("release: Release.gpg fetch failed: %w", err)
	}
	defer sigResp.Content.Close()
	sig, err := io.ReadAll(sigResp.Content)
	if err != nil {
		return false, fmt.Errorf("release: reading Release.gpg body: %w", err)
	}

	if _, err := a.Keyring.VerifyDetached(data, sig, verifiedPath, false); err != nil {
		return false, err
	}
	return true, nil
}

func stagePlain(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("release: creating lists dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".apt-look-release-*")
	if err != nil {
		return fmt.Errorf("release: creating temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("release: writing staged file: %w", err)
	}
	tmp.Close()
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("release: renaming into place: %w", err)
	}
	return nil
}

func mtimeOf(path string) *time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	t := info.ModTime()
	return &t
}
