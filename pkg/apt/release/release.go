package release

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nicwaller/apt-look/pkg/apt/aptlib"
	"github.com/nicwaller/apt-look/pkg/apt/deb"
	"github.com/nicwaller/apt-look/pkg/rfc822"
)

// RequestedRelease identifies one Release document to acquire: a mirror, the
// codename/suite to fetch it for, the architectures of interest, and whether its
// signature may be skipped (the sources-list "trusted=no"/[trusted=no] option).
type RequestedRelease struct {
	Mirror    *url.URL
	Codename  string
	Arches    []string
	Untrusted bool
}

// Slug derives the filesystem-safe cache key for this release, combining the
// mirror's scheme/user/host/port/path with the codename so that two different mirrors
// (or two different suites on the same mirror) never collide in the lists directory.
func (rr RequestedRelease) Slug() string {
	host := rr.Mirror.Hostname()
	if port := rr.Mirror.Port(); port != "" {
		host += "_" + port
	}
	path := strings.Trim(rr.Mirror.Path, "/")
	path = nonFilenameChars.ReplaceAllString(path, "_")
	parts := []string{rr.Mirror.Scheme}
	if user := rr.Mirror.User.Username(); user != "" {
		parts = append(parts, nonFilenameChars.ReplaceAllString(user, "_"))
	}
	parts = append(parts, host)
	if path != "" {
		parts = append(parts, path)
	}
	parts = append(parts, rr.Codename)
	return strings.Join(parts, "_")
}

var nonFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ReleaseContent is one file entry from a Release document's SHA256 (or legacy
// MD5Sum/SHA1) field.
type ReleaseContent struct {
	Name   string
	Size   int64
	SHA256 string
	SHA1   string
	MD5    string
}

// ReleaseFile is a decoded Release/InRelease document.
type ReleaseFile struct {
	Origin        string
	Label         string
	Suite         string
	Codename      string
	Changelogs    string
	Date          time.Time
	ValidUntil    *time.Time
	AcquireByHash bool
	Arches        []deb.Arch
	Components    []string
	Description   string
	Contents      []ReleaseContent

	header rfc822.Header
}

// Parse decodes a Release document body (already signature-verified and, if
// clearsigned, already stripped of its OpenPGP wrapper).
func Parse(body []byte) (*ReleaseFile, error) {
	header, err := rfc822.NewParser().ParseHeader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("release: %w", err)
	}
	if len(header) == 0 {
		return nil, fmt.Errorf("release: empty document")
	}

	rf := &ReleaseFile{header: header}

	rf.Origin = header.Get("Origin")
	rf.Label = header.Get("Label")
	rf.Suite = header.Get("Suite")
	rf.Codename = header.Get("Codename")
	rf.Changelogs = header.Get("Changelogs")
	rf.Description = header.Get("Description")

	if rf.Suite == "" && rf.Codename == "" {
		return nil, &aptlib.ParseError{Locality: "Release", Value: "", Err: fmt.Errorf("must have Suite or Codename")}
	}

	archField := header.Get("Architectures")
	if archField == "" {
		return nil, &aptlib.ParseError{Locality: "Release", Value: "Architectures", Err: fmt.Errorf("missing required field")}
	}
	arches, err := deb.ParseArchList(archField)
	if err != nil {
		return nil, fmt.Errorf("release: %w", err)
	}
	rf.Arches = arches

	if compField := header.Get("Components"); compField != "" {
		rf.Components = strings.Fields(compField)
	}

	dateField := header.Get("Date")
	if dateField == "" {
		return nil, &aptlib.ParseError{Locality: "Release", Value: "Date", Err: fmt.Errorf("missing required field")}
	}
	date, err := parseReleaseDate(dateField)
	if err != nil {
		return nil, fmt.Errorf("release: invalid Date: %w", err)
	}
	rf.Date = date

	if vu := header.Get("Valid-Until"); vu != "" {
		t, err := parseReleaseDate(vu)
		if err != nil {
			return nil, fmt.Errorf("release: invalid Valid-Until: %w", err)
		}
		rf.ValidUntil = &t
	}

	rf.AcquireByHash = strings.EqualFold(header.Get("Acquire-By-Hash"), "yes")

	sha256Lines := header.GetLines("SHA256")
	if len(sha256Lines) == 0 {
		return nil, &aptlib.ParseError{Locality: "Release", Value: "SHA256", Err: fmt.Errorf("missing required field")}
	}
	contents, err := parseContentLines(sha256Lines)
	if err != nil {
		return nil, fmt.Errorf("release: invalid SHA256 field: %w", err)
	}
	rf.Contents = contents

	mergeHashField(rf.Contents, header.GetLines("SHA1"), func(c *ReleaseContent, h string) { c.SHA1 = h })
	mergeHashField(rf.Contents, header.GetLines("MD5Sum"), func(c *ReleaseContent, h string) { c.MD5 = h })

	return rf, nil
}

// Get exposes an unclassified field from the underlying header, for callers that
// need access to fields this decoder doesn't name explicitly.
func (rf *ReleaseFile) Get(field string) string {
	return rf.header.Get(field)
}

func parseContentLines(lines []string) ([]ReleaseContent, error) {
	var out []ReleaseContent
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("malformed content line %q", line)
		}
		size, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed size in %q: %w", line, err)
		}
		out = append(out, ReleaseContent{SHA256: fields[0], Size: size, Name: fields[2]})
	}
	return out, nil
}

func mergeHashField(contents []ReleaseContent, lines []string, set func(*ReleaseContent, string)) {
	if len(lines) == 0 {
		return
	}
	byName := make(map[string]int, len(contents))
	for i, c := range contents {
		byName[c.Name] = i
	}
	for _, line := range lines {
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) != 3 {
			continue
		}
		if idx, ok := byName[fields[2]]; ok {
			set(&contents[idx], fields[0])
		}
	}
}

var releaseDateLayouts = []string{
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 MST",
	"02 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 MST",
	"Mon Jan 2 15:04:05 2006",
	time.ANSIC,
	time.RFC1123Z,
}

func parseReleaseDate(s string) (time.Time, error) {
	for _, layout := range releaseDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format %q", s)
}

// Find returns the ReleaseContent entry whose Name matches exactly.
func (rf *ReleaseFile) Find(name string) (ReleaseContent, bool) {
	for _, c := range rf.Contents {
		if c.Name == name {
			return c, true
		}
	}
	return ReleaseContent{}, false
}

// FindPreferCompressed looks for a listing by its logical base name (e.g.
// "main/binary-amd64/Packages"), preferring the gzip-compressed variant when both
// exist.
func (rf *ReleaseFile) FindPreferCompressed(baseName string) (ReleaseContent, bool) {
	if c, ok := rf.Find(baseName + ".gz"); ok {
		return c, true
	}
	return rf.Find(baseName)
}
