package ninjaexport

import (
	"bytes"
	"strings"
	"testing"

	"github.com/nicwaller/apt-look/pkg/apt/deb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectPackages(t *testing.T, input string) []*deb.Package {
	t.Helper()
	var out []*deb.Package
	for p, err := range deb.ParsePackages(strings.NewReader(input)) {
		require.NoError(t, err)
		out = append(out, p)
	}
	return out
}

func TestSubdirLibPrefix(t *testing.T) {
	assert.Equal(t, "libf", subdir("libfoo"))
	assert.Equal(t, "libc", subdir("libc6"))
}

func TestSubdirShortLibName(t *testing.T) {
	assert.Equal(t, "l", subdir("lib"))
}

func TestSubdirNonLibName(t *testing.T) {
	assert.Equal(t, "c", subdir("curl"))
}

func TestSubdirEmptyName(t *testing.T) {
	assert.Equal(t, "", subdir(""))
}

func TestWriteSourceEmitsStanza(t *testing.T) {
	pkgs := collectPackages(t, "Package: curl\nVersion: 7.88.1-10\nBinary: curl, libcurl4\n"+
		"Maintainer: Jane <jane@example.com>\nArchitecture: any\n"+
		"Directory: pool/c/curl\n"+
		"Files:\n"+
		" aaaa 100 curl_7.88.1-10.dsc\n"+
		" bbbb 200000 curl_7.88.1.orig.tar.gz\n\n")
	require.Len(t, pkgs, 1)

	var buf bytes.Buffer
	require.NoError(t, WriteSource(&buf, pkgs[0]))

	out := buf.String()
	assert.Contains(t, out, "build $dest/c/curl_7.88.1-10$suffix: process-source | $script")
	assert.Contains(t, out, "pkg = curl")
	assert.Contains(t, out, "url = $mirror/pool/c/curl/curl_7.88.1-10.dsc")
	assert.Contains(t, out, "size = 200100")
}

func TestWriteSourceRejectsMissingManifest(t *testing.T) {
	pkgs := collectPackages(t, "Package: curl\nVersion: 1.0\nArchitecture: amd64\n"+
		"Maintainer: Jane <jane@example.com>\nDescription: curl\n"+
		"Filename: pool/c/curl.deb\nSize: 10\n\n")
	require.Len(t, pkgs, 1)

	var buf bytes.Buffer
	err := WriteSource(&buf, pkgs[0])
	assert.Error(t, err)
}

func TestWriteSourceRejectsManifestWithoutDsc(t *testing.T) {
	pkgs := collectPackages(t, "Package: curl\nVersion: 7.88.1-10\nBinary: curl\n"+
		"Maintainer: Jane <jane@example.com>\nArchitecture: any\n"+
		"Directory: pool/c/curl\n"+
		"Files:\n"+
		" bbbb 200000 curl_7.88.1.orig.tar.gz\n\n")
	require.Len(t, pkgs, 1)

	var buf bytes.Buffer
	err := WriteSource(&buf, pkgs[0])
	assert.Error(t, err)
}

func TestWriteBinaryEmitsStanza(t *testing.T) {
	pkgs := collectPackages(t, "Package: curl\nVersion: 7.88.1-10\nArchitecture: amd64\n"+
		"Maintainer: Jane <jane@example.com>\nDescription: curl\n"+
		"Source: curl\nFilename: pool/c/curl/curl_7.88.1-10_amd64.deb\nSize: 150000000\n\n")
	require.Len(t, pkgs, 1)

	var buf bytes.Buffer
	require.NoError(t, WriteBinary(&buf, pkgs[0]))

	out := buf.String()
	assert.Contains(t, out, "build $dest/c/curl/curl_7.88.1-10_amd64$suffix: process-binary | $script")
	assert.Contains(t, out, "source = curl")
	assert.Contains(t, out, "arch = amd64")
	assert.Contains(t, out, "url = $mirror/pool/c/curl/curl_7.88.1-10_amd64.deb")
	assert.Contains(t, out, "pool = big")
}

func TestWriteBinaryDefaultsSourceToOwnName(t *testing.T) {
	pkgs := collectPackages(t, "Package: standalone\nVersion: 1.0\nArchitecture: amd64\n"+
		"Maintainer: Jane <jane@example.com>\nDescription: standalone\n"+
		"Filename: pool/s/standalone.deb\nSize: 10\n\n")
	require.Len(t, pkgs, 1)

	var buf bytes.Buffer
	require.NoError(t, WriteBinary(&buf, pkgs[0]))
	assert.Contains(t, buf.String(), "source = standalone")
}

func TestWriteBinaryMassivePool(t *testing.T) {
	pkgs := collectPackages(t, "Package: bigdata\nVersion: 1.0\nArchitecture: amd64\n"+
		"Maintainer: Jane <jane@example.com>\nDescription: bigdata\n"+
		"Filename: pool/b/bigdata.deb\nSize: 300000000\n\n")
	require.Len(t, pkgs, 1)

	var buf bytes.Buffer
	require.NoError(t, WriteBinary(&buf, pkgs[0]))
	assert.Contains(t, buf.String(), "pool = massive")
}

func TestWriteBinaryRejectsPackageWithoutBinaryManifest(t *testing.T) {
	pkgs := collectPackages(t, "Package: curl\nVersion: 7.88.1-10\nBinary: curl\n"+
		"Maintainer: Jane <jane@example.com>\nArchitecture: any\n"+
		"Directory: pool/c/curl\n"+
		"Files:\n"+
		" aaaa 100 curl_7.88.1-10.dsc\n\n")
	require.Len(t, pkgs, 1)

	var buf bytes.Buffer
	err := WriteBinary(&buf, pkgs[0])
	assert.Error(t, err)
}

func TestWriteDispatchesOnIsSource(t *testing.T) {
	srcPkgs := collectPackages(t, "Package: curl\nVersion: 7.88.1-10\nBinary: curl\n"+
		"Maintainer: Jane <jane@example.com>\nArchitecture: any\n"+
		"Directory: pool/c/curl\n"+
		"Files:\n"+
		" aaaa 100 curl_7.88.1-10.dsc\n\n")
	require.Len(t, srcPkgs, 1)
	require.True(t, srcPkgs[0].IsSource)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, srcPkgs[0]))
	assert.Contains(t, buf.String(), "process-source")
}
