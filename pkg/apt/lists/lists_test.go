package lists

import (
	"compress/gzip"
	"bytes"
	"context"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/nicwaller/apt-look/pkg/apt/apttransport"
	"github.com/nicwaller/apt-look/pkg/apt/checksum"
	"github.com/nicwaller/apt-look/pkg/apt/release"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReleaseFile(t *testing.T) *release.ReleaseFile {
	t.Helper()
	body := []byte("Suite: stable\n" +
		"Architectures: amd64 arm64\n" +
		"Components: main contrib\n" +
		"Date: Mon, 01 Jan 2024 00:00:00 UTC\n" +
		"SHA256:\n" +
		" aaaa 10 main/binary-amd64/Packages\n" +
		" bbbb 10 contrib/binary-amd64/Packages\n" +
		" cccc 10 main/source/Sources\n")
	rf, err := release.Parse(body)
	require.NoError(t, err)
	return rf
}

func TestEnumerateBinaryOnly(t *testing.T) {
	rf := sampleReleaseFile(t)
	listings := Enumerate(rf, nil, nil, true, false)
	require.Len(t, listings, 4) // 2 components * 2 arches
}

func TestEnumerateFiltersComponentsAndArches(t *testing.T) {
	rf := sampleReleaseFile(t)
	listings := Enumerate(rf, []string{"main"}, []string{"amd64"}, true, false)
	require.Len(t, listings, 1)
	assert.Equal(t, "main", listings[0].Component)
	assert.Equal(t, "amd64", listings[0].Arch)
	assert.Equal(t, "main/binary-amd64/Packages", listings[0].BaseName)
}

func TestEnumerateSourceOnly(t *testing.T) {
	rf := sampleReleaseFile(t)
	listings := Enumerate(rf, []string{"main"}, nil, false, true)
	require.Len(t, listings, 1)
	assert.True(t, listings[0].Source)
	assert.Equal(t, "source", listings[0].Arch)
	assert.Equal(t, "main/source/Sources", listings[0].BaseName)
}

func TestByHashPath(t *testing.T) {
	assert.Equal(t, "main/binary-amd64/by-hash/SHA256/abcd",
		byHashPath("main/binary-amd64/Packages.gz", "abcd"))
}

func TestByHashPathTopLevel(t *testing.T) {
	assert.Equal(t, "by-hash/SHA256/abcd", byHashPath("Packages.gz", "abcd"))
}

type fakeTransport struct {
	write []byte
}

func (f *fakeTransport) Schemes() []string { return []string{"fake"} }

func (f *fakeTransport) Acquire(ctx context.Context, req *apttransport.AcquireRequest) (*apttransport.AcquireResponse, error) {
	if err := os.WriteFile(req.Filename, f.write, 0o644); err != nil {
		return nil, err
	}
	return &apttransport.AcquireResponse{URI: req.URI, Filename: req.Filename}, nil
}

func TestFetchUncompressedSkipsWhenAlreadyPresent(t *testing.T) {
	listsDir := t.TempDir()
	rf, err := release.Parse([]byte("Suite: stable\nArchitectures: amd64\nDate: Mon, 01 Jan 2024 00:00:00 UTC\n" +
		"SHA256:\n aaaa 10 main/binary-amd64/Packages\n"))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(listsDir, "aaaa"), []byte("Package: x\n\n"), 0o644))

	mirror, _ := url.Parse("https://example.com/debian/dists/stable/")
	transport := &fakeTransport{}
	path, err := Fetch(context.Background(), transport, rf, mirror,
		Listing{Component: "main", Arch: "amd64", BaseName: "main/binary-amd64/Packages"}, listsDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(listsDir, "aaaa"), path)
}

func TestFetchUncompressedDownloadsAndVerifies(t *testing.T) {
	listsDir := t.TempDir()
	content := []byte("Package: x\n\n")
	hex, err := checksum.SHA256Hex(bytes.NewReader(content))
	require.NoError(t, err)

	rf, err := release.Parse([]byte("Suite: stable\nArchitectures: amd64\nDate: Mon, 01 Jan 2024 00:00:00 UTC\n" +
		"SHA256:\n " + hex + " 12 main/binary-amd64/Packages\n"))
	require.NoError(t, err)

	mirror, _ := url.Parse("https://example.com/debian/dists/stable/")
	transport := &fakeTransport{write: content}
	path, err := Fetch(context.Background(), transport, rf, mirror,
		Listing{Component: "main", Arch: "amd64", BaseName: "main/binary-amd64/Packages"}, listsDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(listsDir, hex), path)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestFetchGzDecompressesAndPersistsByDecompressedHash(t *testing.T) {
	listsDir := t.TempDir()
	plain := []byte("Package: x\n\n")

	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	_, err := gzw.Write(plain)
	require.NoError(t, err)
	require.NoError(t, gzw.Close())

	compressedHex, err := checksum.SHA256Hex(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	decompressedHex, err := checksum.SHA256Hex(bytes.NewReader(plain))
	require.NoError(t, err)

	rf, err := release.Parse([]byte("Suite: stable\nArchitectures: amd64\nDate: Mon, 01 Jan 2024 00:00:00 UTC\n" +
		"SHA256:\n " + compressedHex + " 99 main/binary-amd64/Packages.gz\n" +
		" " + decompressedHex + " 12 main/binary-amd64/Packages\n"))
	require.NoError(t, err)

	mirror, _ := url.Parse("https://example.com/debian/dists/stable/")
	transport := &fakeTransport{write: buf.Bytes()}
	path, err := Fetch(context.Background(), transport, rf, mirror,
		Listing{Component: "main", Arch: "amd64", BaseName: "main/binary-amd64/Packages"}, listsDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(listsDir, decompressedHex), path)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, plain, got)
}

func TestFetchGzWithoutPlainEntryIsRejected(t *testing.T) {
	listsDir := t.TempDir()
	plain := []byte("Package: x\n\n")

	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	_, err := gzw.Write(plain)
	require.NoError(t, err)
	require.NoError(t, gzw.Close())

	compressedHex, err := checksum.SHA256Hex(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	rf, err := release.Parse([]byte("Suite: stable\nArchitectures: amd64\nDate: Mon, 01 Jan 2024 00:00:00 UTC\n" +
		"SHA256:\n " + compressedHex + " 99 main/binary-amd64/Packages.gz\n"))
	require.NoError(t, err)

	mirror, _ := url.Parse("https://example.com/debian/dists/stable/")
	transport := &fakeTransport{write: buf.Bytes()}
	_, err = Fetch(context.Background(), transport, rf, mirror,
		Listing{Component: "main", Arch: "amd64", BaseName: "main/binary-amd64/Packages"}, listsDir)
	assert.Error(t, err)
}

func TestFetchGzDecompressedHashMismatchIsRejected(t *testing.T) {
	listsDir := t.TempDir()
	plain := []byte("Package: x\n\n")

	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	_, err := gzw.Write(plain)
	require.NoError(t, err)
	require.NoError(t, gzw.Close())

	compressedHex, err := checksum.SHA256Hex(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	rf, err := release.Parse([]byte("Suite: stable\nArchitectures: amd64\nDate: Mon, 01 Jan 2024 00:00:00 UTC\n" +
		"SHA256:\n " + compressedHex + " 99 main/binary-amd64/Packages.gz\n" +
		" 0000000000000000000000000000000000000000000000000000000000000000 12 main/binary-amd64/Packages\n"))
	require.NoError(t, err)

	mirror, _ := url.Parse("https://example.com/debian/dists/stable/")
	transport := &fakeTransport{write: buf.Bytes()}
	_, err = Fetch(context.Background(), transport, rf, mirror,
		Listing{Component: "main", Arch: "amd64", BaseName: "main/binary-amd64/Packages"}, listsDir)
	require.Error(t, err)
	var mismatch *checksum.Mismatch
	assert.ErrorAs(t, err, &mismatch)
}

func TestFetchNotFoundInRelease(t *testing.T) {
	listsDir := t.TempDir()
	rf := sampleReleaseFile(t)
	mirror, _ := url.Parse("https://example.com/debian/dists/stable/")
	transport := &fakeTransport{}
	_, err := Fetch(context.Background(), transport, rf, mirror,
		Listing{Component: "main", Arch: "amd64", BaseName: "main/binary-amd64/Missing"}, listsDir)
	assert.Error(t, err)
}
