package rfc822

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"regexp"
	"strings"
)

// Parser tokenizes deb822-style paragraphs of fields. A field starts at a line without
// leading whitespace that contains a ':'; the substring before the first ':' is the key,
// and the remainder of that line (trimmed) is the first value line. Lines beginning with
// a space are continuation lines, appended to the current field until a blank line or a
// new field line is seen.
type Parser struct{}

// NewParser creates a new deb822 paragraph parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseHeader tokenizes a single paragraph from r, stopping at the first blank line
// (which is consumed) or at EOF. On duplicate keys, the last occurrence wins, matching
// real repository data that does not legitimately produce duplicates but that this
// tokenizer should not reject outright.
func (p *Parser) ParseHeader(r io.Reader) (Header, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var header Header
	var currentField string
	var currentValue strings.Builder
	haveField := false

	flushField := func() {
		if !haveField {
			return
		}
		value := strings.TrimSpace(currentValue.String())
		lines := strings.Split(value, "\n")
		header = setField(header, currentField, lines)
		currentField = ""
		currentValue.Reset()
		haveField = false
	}

	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(strings.TrimLeft(line, " \t"), "#") {
			continue
		}

		if strings.TrimSpace(line) == "" {
			flushField()
			break
		}

		if len(line) > 0 && (line[0] == ' ' || line[0] == '\t') {
			if !haveField {
				return nil, &BadFieldError{Line: line, Err: fmt.Errorf("continuation line without a preceding field")}
			}
			currentValue.WriteString("\n")
			currentValue.WriteString(strings.TrimLeft(line, " \t"))
			continue
		}

		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			return nil, &BadFieldError{Line: line, Err: fmt.Errorf("missing ':' separator")}
		}

		flushField()

		fieldName := strings.TrimSpace(parts[0])
		if err := validateFieldName(fieldName); err != nil {
			return nil, &BadFieldError{Line: line, Err: err}
		}

		currentField = fieldName
		haveField = true
		currentValue.WriteString(strings.TrimLeft(parts[1], " \t"))
	}

	flushField()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("rfc822: %w", err)
	}

	return header, nil
}

// ParseHeaders returns an iterator over every paragraph in r, in the order they occur.
func (p *Parser) ParseHeaders(r io.Reader) iter.Seq2[Header, error] {
	return func(yield func(Header, error) bool) {
		for block, err := range StringBlocks(r) {
			if err != nil {
				yield(nil, err)
				return
			}
			header, perr := p.ParseHeader(strings.NewReader(block))
			if perr != nil {
				if !yield(nil, perr) {
					return
				}
				continue
			}
			if len(header) == 0 {
				continue
			}
			if !yield(header, nil) {
				return
			}
		}
	}
}

// setField inserts or replaces a field by case-sensitive name, preserving the position of
// the first occurrence for duplicate keys (last-wins on value, stable on order).
func setField(h Header, name string, value FieldValues) Header {
	for i, f := range h {
		if f.Name == name {
			h[i].Value = value
			return h
		}
	}
	return append(h, Field{Name: name, Value: value})
}

var validFieldNamePattern = regexp.MustCompile(`^[!-9;-~]+$`)

// validateFieldName checks if a field name is valid for a deb822 key: non-empty, not
// starting with '#' or '-', US-ASCII printable excluding space and ':'.
func validateFieldName(name string) error {
	if name == "" {
		return fmt.Errorf("field name cannot be empty")
	}
	if strings.HasPrefix(name, "#") || strings.HasPrefix(name, "-") {
		return fmt.Errorf("field name cannot start with '#' or '-'")
	}
	if !validFieldNamePattern.MatchString(name) {
		return fmt.Errorf("field name contains invalid characters (must be US-ASCII excluding control chars, spaces, and colons)")
	}
	return nil
}
