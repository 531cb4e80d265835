package sources

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"
)

// LineError reports a parse failure scoped to one sources-list line.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("ParseLine{%d}: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

var optionsPattern = regexp.MustCompile(`^(\S+)\s+\[([^]]*)]\s*(.*)$`)

// ParseSourcesList parses a classic-format sources.list into entries.
// Each line is stripped of '#'-comments and surrounding whitespace before parsing;
// empty and comment-only lines yield no entries. A "debs" kind line expands to two
// entries, one binary (Src=false) and one source (Src=true), otherwise identical.
func ParseSourcesList(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	lineNumber := 0

	for scanner.Scan() {
		lineNumber++
		line := stripComment(scanner.Text())
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		lineEntries, err := parseSourceLine(line)
		if err != nil {
			return nil, &LineError{Line: lineNumber, Err: err}
		}
		for i := range lineEntries {
			lineEntries[i].LineNumber = lineNumber
			lineEntries[i].originalLine = line
		}
		entries = append(entries, lineEntries...)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("sources: %w", err)
	}

	return entries, nil
}

// stripComment removes a trailing '#'-introduced comment from a sources-list line.
// A '#' that opens the line entirely is also a comment.
func stripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		return line[:i]
	}
	return line
}

func parseSourceLine(line string) ([]Entry, error) {
	options := make(map[string]string)
	if match := optionsPattern.FindStringSubmatch(line); match != nil {
		kindToken, optionsStr, rest := match[1], match[2], match[3]
		line = kindToken + " " + rest
		for _, opt := range strings.Fields(optionsStr) {
			if parts := strings.SplitN(opt, "=", 2); len(parts) == 2 {
				options[parts[0]] = parts[1]
			} else {
				options[opt] = "true"
			}
		}
	}

	fields := strings.Fields(line)
	if len(fields) < 3 {
		return nil, fmt.Errorf("expected at least 3 fields (kind, url, suite), got %d", len(fields))
	}

	kinds, err := expandKind(fields[0])
	if err != nil {
		return nil, err
	}

	rawURL := fields[1]
	normalizedURL, err := normalizeURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}

	suite := fields[2]
	var components []string
	if len(fields) > 3 {
		components = fields[3:]
	}

	arch := options["arch"]
	untrusted := strings.EqualFold(options["trusted"], "no")

	entries := make([]Entry, 0, len(kinds))
	for _, src := range kinds {
		entries = append(entries, Entry{
			Src:        src,
			URL:        normalizedURL,
			Suite:      suite,
			Components: components,
			Arch:       arch,
			Untrusted:  untrusted,
		})
	}
	return entries, nil
}

// expandKind maps a sources-list kind token to the Src flag(s) it produces: "deb" -> {false},
// "deb-src" -> {true}, "debs" -> {false, true}.
func expandKind(token string) ([]bool, error) {
	switch Kind(strings.ToLower(token)) {
	case KindDeb:
		return []bool{false}, nil
	case KindDebSrc:
		return []bool{true}, nil
	case KindDebs:
		return []bool{false, true}, nil
	default:
		return nil, fmt.Errorf("unknown source kind: %s", token)
	}
}

func normalizeURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("URL must be absolute HTTP(S): %s", raw)
	}
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	return raw, nil
}
