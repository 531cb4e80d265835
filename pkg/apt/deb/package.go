package deb

import (
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"

	"github.com/nicwaller/apt-look/pkg/rfc822"
)

// FileEntry is one line of a Files/Checksums-Sha256/Checksums-Sha1 field in a
// source package's manifest: a checksum, size, and the filename it belongs to.
type FileEntry struct {
	MD5    string
	SHA1   string
	SHA256 string
	Size   int64
	Name   string
}

// BinaryStyle holds the fields specific to a Packages-file (binary) record.
type BinaryStyle struct {
	Filename      string
	Size          int64
	MD5sum        string
	SHA1          string
	SHA256        string
	InstalledSize int64
	Status        string
	MultiArch     string
	Essential     bool
}

// SourceBinary describes one binary package a source package produces, as listed in
// the Package-List control field: "name style section priority [key=value ...]".
type SourceBinary struct {
	Name     string
	Style    string
	Section  string
	Priority Priority
	Extras   []string
}

// SourceStyle holds the fields specific to a Sources-file (source) record, keyed off
// the presence of the Binary control field.
type SourceStyle struct {
	Binary       []SourceBinary
	Standards    string
	Files        []FileEntry
	ChecksumsSha1 []FileEntry
	ChecksumsSha256 []FileEntry
	DirectorySuffix string

	BuildDepends         Dependency
	BuildDependsArch     Dependency
	BuildDependsIndep    Dependency
	BuildConflicts       Dependency
	BuildConflictsArch   Dependency
	BuildConflictsIndep  Dependency
}

// Package is one deb822 stanza from a Packages or Sources listing, decoded into
// typed fields where this package defines them and left in Unparsed otherwise.
type Package struct {
	Name         string
	Version      Version
	Priority     Priority
	Architecture []Arch
	Section      string
	Maintainer   Identity
	Uploaders    []Identity
	Homepage     string
	Description  string

	Depends    Dependency
	PreDepends Dependency
	Recommends Dependency
	Suggests   Dependency
	Enhances   Dependency
	Breaks     Dependency
	Conflicts  Dependency
	Provides   Dependency
	Replaces   Dependency

	VCS []VCSReference

	IsSource bool
	Source   *SourceStyle
	Binary   *BinaryStyle

	Unparsed map[string]string
}

// ParsePackages decodes a Packages or Sources stream into Package records. The kind
// of each record (binary vs. source) is determined by the presence of the Binary
// field: a Sources file stanza always carries Binary, a Packages file stanza never
// does.
func ParsePackages(r io.Reader) iter.Seq2[*Package, error] {
	return func(yield func(*Package, error) bool) {
		for header, err := range rfc822.NewParser().ParseHeaders(r) {
			if err != nil {
				if !yield(nil, fmt.Errorf("deb: parsing package stanza: %w", err)) {
					return
				}
				continue
			}
			pkg, err := decodePackage(header)
			if !yield(pkg, err) {
				return
			}
		}
	}
}

func decodePackage(h rfc822.Header) (*Package, error) {
	get := h.Get
	fields := h.Fields()
	claimed := make(map[string]bool, len(fields))
	claim := func(names ...string) {
		for _, n := range names {
			claimed[n] = true
		}
	}

	p := &Package{Unparsed: make(map[string]string)}

	p.Name = get("Package")
	if p.Name == "" {
		return nil, fmt.Errorf("deb: stanza missing Package field")
	}
	claim("Package")

	if v := get("Version"); v != "" {
		ver, err := ParseVersion(v)
		if err != nil {
			return nil, fmt.Errorf("deb: package %s: %w", p.Name, err)
		}
		p.Version = ver
	}
	claim("Version")

	if v := get("Priority"); v != "" {
		pr, err := ParsePriority(v)
		if err != nil {
			return nil, fmt.Errorf("deb: package %s: %w", p.Name, err)
		}
		p.Priority = pr
	}
	claim("Priority")

	p.Section = get("Section")
	claim("Section")

	if v := get("Maintainer"); v != "" {
		id, err := ParseIdentity(v)
		if err != nil {
			return nil, fmt.Errorf("deb: package %s: %w", p.Name, err)
		}
		p.Maintainer = id
	}
	claim("Maintainer")

	if v := get("Uploaders"); v != "" {
		ids, err := ParseIdentityList(v)
		if err != nil {
			return nil, fmt.Errorf("deb: package %s: %w", p.Name, err)
		}
		p.Uploaders = ids
	}
	claim("Uploaders")

	p.Homepage = get("Homepage")
	p.Description = get("Description")
	claim("Homepage", "Description")

	if v := get("Architecture"); v != "" {
		arches, err := ParseArchList(v)
		if err != nil {
			return nil, fmt.Errorf("deb: package %s: %w", p.Name, err)
		}
		p.Architecture = arches
	}
	claim("Architecture")

	depFields := map[string]*Dependency{
		"Depends":     &p.Depends,
		"Pre-Depends": &p.PreDepends,
		"Recommends":  &p.Recommends,
		"Suggests":    &p.Suggests,
		"Enhances":    &p.Enhances,
		"Breaks":      &p.Breaks,
		"Conflicts":   &p.Conflicts,
		"Provides":    &p.Provides,
		"Replaces":    &p.Replaces,
	}
	for name, dest := range depFields {
		claim(name)
		if v := get(name); v != "" {
			d, err := ParseDependency(v)
			if err != nil {
				return nil, fmt.Errorf("deb: package %s field %s: %w", p.Name, name, err)
			}
			*dest = d
		}
	}

	p.VCS = ScanVCSReferences(get, fields, claim)

	if binaryField := get("Binary"); binaryField != "" {
		p.IsSource = true
		src := &SourceStyle{
			Standards:       get("Standards-Version"),
			DirectorySuffix: get("Directory"),
		}
		claim("Binary", "Standards-Version", "Directory")

		if lines := h.GetLines("Package-List"); len(lines) > 0 {
			bins, err := parsePackageList(lines)
			if err != nil {
				return nil, fmt.Errorf("deb: package %s Package-List: %w", p.Name, err)
			}
			src.Binary = bins
		} else {
			for _, name := range strings.Split(strings.ReplaceAll(binaryField, "\n", ","), ",") {
				name = strings.TrimSpace(name)
				if name == "" {
					continue
				}
				src.Binary = append(src.Binary, SourceBinary{Name: name})
			}
		}
		claim("Package-List")

		buildDepFields := map[string]*Dependency{
			"Build-Depends":         &src.BuildDepends,
			"Build-Depends-Arch":    &src.BuildDependsArch,
			"Build-Depends-Indep":   &src.BuildDependsIndep,
			"Build-Conflicts":       &src.BuildConflicts,
			"Build-Conflicts-Arch":  &src.BuildConflictsArch,
			"Build-Conflicts-Indep": &src.BuildConflictsIndep,
		}
		for name, dest := range buildDepFields {
			claim(name)
			if v := get(name); v != "" {
				d, err := ParseDependency(v)
				if err != nil {
					return nil, fmt.Errorf("deb: package %s field %s: %w", p.Name, name, err)
				}
				*dest = d
			}
		}

		if lines := h.GetLines("Files"); len(lines) > 0 {
			entries, err := parseManifestLines(lines, manifestMD5)
			if err != nil {
				return nil, fmt.Errorf("deb: package %s Files: %w", p.Name, err)
			}
			src.Files = entries
		}
		claim("Files")
		if lines := h.GetLines("Checksums-Sha1"); len(lines) > 0 {
			entries, err := parseManifestLines(lines, manifestSHA1)
			if err != nil {
				return nil, fmt.Errorf("deb: package %s Checksums-Sha1: %w", p.Name, err)
			}
			src.ChecksumsSha1 = entries
		}
		claim("Checksums-Sha1")
		if lines := h.GetLines("Checksums-Sha256"); len(lines) > 0 {
			entries, err := parseManifestLines(lines, manifestSHA256)
			if err != nil {
				return nil, fmt.Errorf("deb: package %s Checksums-Sha256: %w", p.Name, err)
			}
			src.ChecksumsSha256 = entries
		}
		claim("Checksums-Sha256")

		src.Files = mergeManifests(src.Files, src.ChecksumsSha1, src.ChecksumsSha256)
		p.Source = src
	} else {
		p.IsSource = false
		bin := &BinaryStyle{
			Filename:  get("Filename"),
			MD5sum:    get("MD5sum"),
			SHA1:      get("SHA1"),
			SHA256:    get("SHA256"),
			Status:    get("Status"),
			MultiArch: get("Multi-Arch"),
		}
		claim("Filename", "MD5sum", "SHA1", "SHA256", "Status", "Multi-Arch")

		if v := get("Size"); v != "" {
			size, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("deb: package %s: invalid Size: %w", p.Name, err)
			}
			bin.Size = size
		}
		claim("Size")

		// Installed-Size defaults to 0 when absent; some third-party repositories
		// omit it even though Debian policy lists it as recommended.
		if v := get("Installed-Size"); v != "" {
			size, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("deb: package %s: invalid Installed-Size: %w", p.Name, err)
			}
			bin.InstalledSize = size
		}
		claim("Installed-Size")

		bin.Essential = strings.EqualFold(get("Essential"), "yes")
		claim("Essential")

		// Description is only hard-required for records carrying an explicit
		// Status field, i.e. entries read from a dpkg status database rather than
		// a Packages listing, where a missing description usually just means the
		// package was never unpacked.
		if bin.Status != "" && p.Description == "" {
			return nil, fmt.Errorf("deb: package %s: Status present but Description missing", p.Name)
		}

		p.Binary = bin
	}

	for _, f := range fields {
		if !claimed[f] {
			p.Unparsed[f] = get(f)
		}
	}

	return p, nil
}

// parsePackageList decodes a Package-List field: one line per produced binary,
// "name style section priority [key=value ...]".
func parsePackageList(lines []string) ([]SourceBinary, error) {
	var out []SourceBinary
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 4 {
			return nil, fmt.Errorf("malformed Package-List line %q", line)
		}
		pr, err := ParsePriority(parts[3])
		if err != nil {
			return nil, fmt.Errorf("Package-List line %q: %w", line, err)
		}
		out = append(out, SourceBinary{
			Name:     parts[0],
			Style:    parts[1],
			Section:  parts[2],
			Priority: pr,
			Extras:   append([]string(nil), parts[4:]...),
		})
	}
	return out, nil
}

type manifestHashKind int

const (
	manifestMD5 manifestHashKind = iota
	manifestSHA1
	manifestSHA256
)

// parseManifestLines decodes the "hash size name" lines of a Files/Checksums-*
// field into FileEntry values carrying only the one hash kind present on each line;
// mergeManifests later folds same-named entries from different fields together.
func parseManifestLines(lines []string, kind manifestHashKind) ([]FileEntry, error) {
	var out []FileEntry
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("malformed manifest line %q", line)
		}
		size, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed size in manifest line %q: %w", line, err)
		}
		entry := FileEntry{Size: size, Name: fields[2]}
		switch kind {
		case manifestMD5:
			entry.MD5 = fields[0]
		case manifestSHA1:
			entry.SHA1 = fields[0]
		case manifestSHA256:
			entry.SHA256 = fields[0]
		}
		out = append(out, entry)
	}
	return out, nil
}

// mergeManifests consolidates Files/Checksums-Sha1/Checksums-Sha256 entries that
// describe the same filename into single FileEntry records carrying every hash.
func mergeManifests(lists ...[]FileEntry) []FileEntry {
	order := make([]string, 0)
	byName := make(map[string]*FileEntry)
	for _, list := range lists {
		for _, entry := range list {
			existing, ok := byName[entry.Name]
			if !ok {
				e := entry
				byName[entry.Name] = &e
				order = append(order, entry.Name)
				continue
			}
			if entry.MD5 != "" {
				existing.MD5 = entry.MD5
			}
			if entry.SHA1 != "" {
				existing.SHA1 = entry.SHA1
			}
			if entry.SHA256 != "" {
				existing.SHA256 = entry.SHA256
			}
			if existing.Size == 0 {
				existing.Size = entry.Size
			}
		}
	}
	out := make([]FileEntry, 0, len(order))
	for _, name := range order {
		out = append(out, *byName[name])
	}
	return out
}
