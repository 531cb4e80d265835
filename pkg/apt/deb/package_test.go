package deb

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectPackages(t *testing.T, input string) []*Package {
	t.Helper()
	var out []*Package
	for pkg, err := range ParsePackages(strings.NewReader(input)) {
		require.NoError(t, err)
		out = append(out, pkg)
	}
	return out
}

func TestDecodeBinaryPackage(t *testing.T) {
	input := "Package: curl\n" +
		"Version: 7.88.1-1\n" +
		"Priority: optional\n" +
		"Section: web\n" +
		"Maintainer: Jane Doe <jane@example.com>\n" +
		"Depends: libc6 (>= 2.17), libssl3\n" +
		"Architecture: amd64\n" +
		"Filename: pool/main/c/curl/curl_7.88.1-1_amd64.deb\n" +
		"Size: 12345\n" +
		"SHA256: abc123\n" +
		"Description: command line tool for transferring data\n\n"

	pkgs := collectPackages(t, input)
	require.Len(t, pkgs, 1)
	p := pkgs[0]

	assert.False(t, p.IsSource)
	require.NotNil(t, p.Binary)
	assert.Equal(t, "curl", p.Name)
	assert.Equal(t, "7.88.1-1", p.Version.String())
	assert.Equal(t, PriorityOptional, p.Priority)
	assert.Equal(t, "pool/main/c/curl/curl_7.88.1-1_amd64.deb", p.Binary.Filename)
	assert.Equal(t, int64(12345), p.Binary.Size)
	require.Len(t, p.Depends.Relations, 2)
	require.Len(t, p.Architecture, 1)
	assert.Equal(t, "amd64", p.Architecture[0].String())
	_, unparsed := p.Unparsed["Architecture"]
	assert.False(t, unparsed)
}

func TestDecodeSourcePackageByBinaryField(t *testing.T) {
	input := "Package: curl\n" +
		"Binary: curl, libcurl4\n" +
		"Version: 7.88.1-1\n" +
		"Maintainer: Jane Doe <jane@example.com>\n" +
		"Architecture: any\n" +
		"Standards-Version: 4.6.2\n" +
		"Files:\n" +
		" d41d8cd98f00b204e9800998ecf8427e 1024 curl_7.88.1-1.dsc\n" +
		"Checksums-Sha256:\n" +
		" e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855 1024 curl_7.88.1-1.dsc\n\n"

	pkgs := collectPackages(t, input)
	require.Len(t, pkgs, 1)
	p := pkgs[0]

	require.True(t, p.IsSource)
	require.NotNil(t, p.Source)
	require.Len(t, p.Source.Binary, 2)
	assert.Equal(t, "curl", p.Source.Binary[0].Name)
	assert.Equal(t, "libcurl4", p.Source.Binary[1].Name)
	require.Len(t, p.Architecture, 1)
	assert.Equal(t, "any", p.Architecture[0].String())

	require.Len(t, p.Source.Files, 1)
	entry := p.Source.Files[0]
	assert.Equal(t, "curl_7.88.1-1.dsc", entry.Name)
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", entry.MD5)
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", entry.SHA256)
}

func TestDecodeSourcePackagePackageList(t *testing.T) {
	input := "Package: curl\n" +
		"Binary: curl, libcurl4\n" +
		"Version: 7.88.1-1\n" +
		"Maintainer: Jane Doe <jane@example.com>\n" +
		"Architecture: any\n" +
		"Package-List:\n" +
		" curl deb net optional arch=any\n" +
		" libcurl4 deb libs optional arch=any\n" +
		"Build-Depends: debhelper (>= 10)\n" +
		"Build-Depends-Arch: libssl-dev\n" +
		"Build-Depends-Indep: doxygen\n" +
		"Build-Conflicts: libcurl3-dev\n" +
		"Build-Conflicts-Arch: libssl1.0-dev\n" +
		"Build-Conflicts-Indep: old-doxygen\n\n"

	pkgs := collectPackages(t, input)
	require.Len(t, pkgs, 1)
	p := pkgs[0]

	require.NotNil(t, p.Source)
	require.Len(t, p.Source.Binary, 2)
	assert.Equal(t, "curl", p.Source.Binary[0].Name)
	assert.Equal(t, "deb", p.Source.Binary[0].Style)
	assert.Equal(t, "net", p.Source.Binary[0].Section)
	assert.Equal(t, PriorityOptional, p.Source.Binary[0].Priority)
	assert.Equal(t, []string{"arch=any"}, p.Source.Binary[0].Extras)

	require.Len(t, p.Source.BuildDepends.Relations, 1)
	require.Len(t, p.Source.BuildDependsArch.Relations, 1)
	require.Len(t, p.Source.BuildDependsIndep.Relations, 1)
	require.Len(t, p.Source.BuildConflicts.Relations, 1)
	require.Len(t, p.Source.BuildConflictsArch.Relations, 1)
	require.Len(t, p.Source.BuildConflictsIndep.Relations, 1)
}

func TestDecodePackageMissingName(t *testing.T) {
	input := "Version: 1.0\n\n"
	var sawErr bool
	for _, err := range ParsePackages(strings.NewReader(input)) {
		if err != nil {
			sawErr = true
		}
	}
	assert.True(t, sawErr)
}

func TestDecodeBinaryPackageStatusRequiresDescription(t *testing.T) {
	input := "Package: curl\nVersion: 1.0\nStatus: install ok installed\n\n"
	var sawErr bool
	for _, err := range ParsePackages(strings.NewReader(input)) {
		if err != nil {
			sawErr = true
		}
	}
	assert.True(t, sawErr)
}

func TestDecodeBinaryPackageEssentialFlag(t *testing.T) {
	input := "Package: base-files\nVersion: 12\nEssential: yes\nDescription: base files\n\n"
	pkgs := collectPackages(t, input)
	require.Len(t, pkgs, 1)
	assert.True(t, pkgs[0].Binary.Essential)
}

func TestMergeManifestsCombinesHashKinds(t *testing.T) {
	md5s := []FileEntry{{Name: "a.tar.gz", Size: 10, MD5: "md5hash"}}
	sha1s := []FileEntry{{Name: "a.tar.gz", Size: 10, SHA1: "sha1hash"}}
	sha256s := []FileEntry{{Name: "a.tar.gz", Size: 10, SHA256: "sha256hash"}}

	merged := mergeManifests(md5s, sha1s, sha256s)
	require.Len(t, merged, 1)
	assert.Equal(t, "md5hash", merged[0].MD5)
	assert.Equal(t, "sha1hash", merged[0].SHA1)
	assert.Equal(t, "sha256hash", merged[0].SHA256)
}
