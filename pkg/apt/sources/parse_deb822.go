package sources

import (
	"fmt"
	"io"
	"strings"

	"github.com/nicwaller/apt-look/pkg/rfc822"
)

// ParseDeb822SourcesList parses a deb822-stanza sources file (the modern
// /etc/apt/sources.list.d/*.sources format) into entries. This is a secondary,
// non-core convenience alongside the classic-line parser in parse_list.go: one
// stanza's "Types"/"URIs"/"Suites"/"Components" fields expand into the cross product
// of (type x uri x suite) entries, each carrying the stanza's Components.
func ParseDeb822SourcesList(r io.Reader) ([]Entry, error) {
	var entries []Entry
	recordNumber := 0

	for header, err := range rfc822.NewParser().ParseHeaders(r) {
		if err != nil {
			return nil, fmt.Errorf("parsing deb822 record: %w", err)
		}
		recordNumber++

		typesField := header.Get("Types")
		urisField := header.Get("URIs")
		suitesField := header.Get("Suites")
		componentsField := header.Get("Components")

		if typesField == "" {
			return nil, fmt.Errorf("record %d: missing required field 'Types'", recordNumber)
		}
		if urisField == "" {
			return nil, fmt.Errorf("record %d: missing required field 'URIs'", recordNumber)
		}
		if suitesField == "" {
			return nil, fmt.Errorf("record %d: missing required field 'Suites'", recordNumber)
		}

		types := strings.Fields(typesField)
		uris := strings.Fields(urisField)
		suites := strings.Fields(suitesField)
		var components []string
		if componentsField != "" {
			components = strings.Fields(componentsField)
		}

		arch := header.Get("Arch")
		untrusted := strings.EqualFold(header.Get("Trusted"), "no")

		for _, typeStr := range types {
			kinds, err := expandKind(typeStr)
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", recordNumber, err)
			}
			for _, uri := range uris {
				normalizedURL, err := normalizeURL(uri)
				if err != nil {
					return nil, fmt.Errorf("record %d: invalid URI %s: %w", recordNumber, uri, err)
				}
				for _, suite := range suites {
					for _, src := range kinds {
						entries = append(entries, Entry{
							Src:        src,
							URL:        normalizedURL,
							Suite:      suite,
							Components: components,
							Arch:       arch,
							Untrusted:  untrusted,
							LineNumber: recordNumber,
						})
					}
				}
			}
		}
	}

	return entries, nil
}
