// Package ninjaexport emits ninja build-file fragments for source and binary packages,
// the minimal translation backing the apt-look source-ninja subcommand. Turning a parsed
// catalog into a full build-system invocation is an external collaborator's job; this
// package only does the "one stanza per package record" part.
package ninjaexport

import (
	"fmt"
	"io"
	"strings"

	"github.com/nicwaller/apt-look/pkg/apt/deb"
)

// subdir mirrors dpkg's pool layout convention: "libfoo" -> "libf", anything else ->
// its first letter.
func subdir(name string) string {
	if strings.HasPrefix(name, "lib") && len(name) >= 4 {
		return name[:4]
	}
	if len(name) >= 1 {
		return name[:1]
	}
	return name
}

const (
	massivePoolThreshold = 250 * 1024 * 1024
	bigPoolThreshold     = 100 * 1024 * 1024
)

// WriteSource emits a "process-source" build stanza for one source package. pkg must
// be a source record (pkg.IsSource) carrying a manifest entry ending in ".dsc".
func WriteSource(w io.Writer, pkg *deb.Package) error {
	if pkg.Source == nil {
		return fmt.Errorf("ninjaexport: %s has no source manifest", pkg.Name)
	}

	var dsc string
	var size int64
	for _, f := range pkg.Source.Files {
		size += f.Size
		if strings.HasSuffix(f.Name, ".dsc") {
			dsc = f.Name
		}
	}
	if dsc == "" {
		return fmt.Errorf("ninjaexport: %s has no .dsc in its manifest", pkg.Name)
	}

	version := strings.ReplaceAll(pkg.Version.String(), ":", "$:")
	prefix := fmt.Sprintf("%s/%s_%s", subdir(pkg.Name), pkg.Name, version)

	fmt.Fprintf(w, "build $dest/%s$suffix: process-source | $script\n", prefix)
	fmt.Fprintf(w, "  description = PS %s %s\n", pkg.Name, version)
	fmt.Fprintf(w, "  pkg = %s\n", pkg.Name)
	fmt.Fprintf(w, "  version = %s\n", version)
	fmt.Fprintf(w, "  url = $mirror/%s/%s\n", pkg.Source.DirectorySuffix, dsc)
	fmt.Fprintf(w, "  prefix = %s\n", prefix)
	fmt.Fprintf(w, "  size = %d\n", size)
	writePool(w, size)
	return nil
}

// WriteBinary emits a "process-binary" build stanza for one binary package. The pool
// directory comes from the "Source" control field in pkg.Unparsed (its first word, the
// originating source package); when that field is absent, pkg.Name is used instead.
func WriteBinary(w io.Writer, pkg *deb.Package) error {
	if pkg.Binary == nil {
		return fmt.Errorf("ninjaexport: %s has no binary manifest", pkg.Name)
	}
	source := pkg.Unparsed["Source"]
	if source == "" {
		source = pkg.Name
	}
	source = strings.Fields(source)[0]

	arches := make([]string, len(pkg.Architecture))
	for i, a := range pkg.Architecture {
		arches[i] = a.String()
	}
	arch := strings.Join(arches, ",")

	version := strings.ReplaceAll(pkg.Version.String(), ":", "$:")
	prefix := fmt.Sprintf("%s/%s/%s_%s_%s", subdir(source), source, pkg.Name, version, arch)

	fmt.Fprintf(w, "build $dest/%s$suffix: process-binary | $script\n", prefix)
	fmt.Fprintf(w, "  description = PB %s %s %s %s\n", source, pkg.Name, version, arch)
	fmt.Fprintf(w, "  source = %s\n", source)
	fmt.Fprintf(w, "  pkg = %s\n", pkg.Name)
	fmt.Fprintf(w, "  version = %s\n", version)
	fmt.Fprintf(w, "  arch = %s\n", arch)
	fmt.Fprintf(w, "  url = $mirror/%s\n", pkg.Binary.Filename)
	fmt.Fprintf(w, "  prefix = %s\n", prefix)
	writePool(w, pkg.Binary.Size)
	return nil
}

func writePool(w io.Writer, size int64) {
	switch {
	case size > massivePoolThreshold:
		fmt.Fprintf(w, "  pool = massive\n")
	case size > bigPoolThreshold:
		fmt.Fprintf(w, "  pool = big\n")
	}
}

// Write emits the appropriate stanza for pkg, dispatching on whether it is a source
// or binary record.
func Write(w io.Writer, pkg *deb.Package) error {
	if pkg.IsSource {
		return WriteSource(w, pkg)
	}
	return WriteBinary(w, pkg)
}
