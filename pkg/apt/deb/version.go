package deb

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a parsed dpkg version string: [epoch:]upstream-version[-debian-revision].
type Version struct {
	Epoch    uint64
	Upstream string
	Revision string
}

func (v Version) String() string {
	s := v.Upstream
	if v.Revision != "" {
		s += "-" + v.Revision
	}
	if v.Epoch > 0 {
		return fmt.Sprintf("%d:%s", v.Epoch, s)
	}
	return s
}

// ParseVersion parses a dpkg version string per Debian policy 5.6.12.
func ParseVersion(s string) (Version, error) {
	var v Version
	s = strings.TrimSpace(s)
	if s == "" {
		return v, fmt.Errorf("deb: empty version string")
	}
	if strings.IndexFunc(s, func(r rune) bool { return r == ' ' || r == '\t' }) != -1 {
		return v, fmt.Errorf("deb: version %q contains whitespace", s)
	}

	rest := s
	if colon := strings.IndexByte(s, ':'); colon != -1 {
		epoch, err := strconv.ParseUint(s[:colon], 10, 64)
		if err != nil {
			return v, fmt.Errorf("deb: invalid epoch in version %q: %w", s, err)
		}
		v.Epoch = epoch
		rest = s[colon+1:]
	}
	if rest == "" {
		return v, fmt.Errorf("deb: version %q has nothing after epoch", s)
	}

	v.Upstream = rest
	if hyphen := strings.LastIndexByte(rest, '-'); hyphen != -1 {
		v.Revision = rest[hyphen+1:]
		v.Upstream = rest[:hyphen]
	}

	if v.Upstream == "" || !isASCIIDigit(v.Upstream[0]) {
		return v, fmt.Errorf("deb: version %q does not start with a digit", s)
	}
	if i := strings.IndexFunc(v.Upstream, func(r rune) bool { return !validUpstreamChar(r) }); i != -1 {
		return v, fmt.Errorf("deb: invalid character %q in upstream version %q", v.Upstream[i], s)
	}
	if i := strings.IndexFunc(v.Revision, func(r rune) bool { return !validRevisionChar(r) }); i != -1 {
		return v, fmt.Errorf("deb: invalid character %q in revision %q", v.Revision[i], s)
	}

	return v, nil
}

func isASCIIDigit(b byte) bool { return b >= '0' && b <= '9' }
func isASCIIAlpha(b byte) bool { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') }

func validUpstreamChar(r rune) bool {
	if r > 127 {
		return false
	}
	b := byte(r)
	return isASCIIDigit(b) || isASCIIAlpha(b) || strings.ContainsRune(".-+~:", r)
}

func validRevisionChar(r rune) bool {
	if r > 127 {
		return false
	}
	b := byte(r)
	return isASCIIDigit(b) || isASCIIAlpha(b) || strings.ContainsRune(".+~", r)
}

// Compare implements the dpkg version ordering: negative if v < other, 0 if equal,
// positive if v > other.
func (v Version) Compare(other Version) int {
	if v.Epoch != other.Epoch {
		if v.Epoch < other.Epoch {
			return -1
		}
		return 1
	}
	if c := compareComponent(v.Upstream, other.Upstream); c != 0 {
		return c
	}
	return compareComponent(v.Revision, other.Revision)
}

// compareComponent implements dpkg's verrevcmp: digit runs compare numerically,
// non-digit runs compare character-by-character with '~' sorting before everything,
// including the empty string, so "1~rc1" orders before "1".
func compareComponent(a, b string) int {
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		var firstDiff int
		for (i < len(a) && !isASCIIDigit(a[i])) || (j < len(b) && !isASCIIDigit(b[j])) {
			ac, bc := 0, 0
			if i < len(a) {
				ac = charOrder(a[i])
			}
			if j < len(b) {
				bc = charOrder(b[j])
			}
			if ac != bc {
				return ac - bc
			}
			if i < len(a) {
				i++
			}
			if j < len(b) {
				j++
			}
		}

		for i < len(a) && a[i] == '0' {
			i++
		}
		for j < len(b) && b[j] == '0' {
			j++
		}

		for i < len(a) && isASCIIDigit(a[i]) && j < len(b) && isASCIIDigit(b[j]) {
			if firstDiff == 0 {
				firstDiff = int(a[i]) - int(b[j])
			}
			i++
			j++
		}
		if i < len(a) && isASCIIDigit(a[i]) {
			return 1
		}
		if j < len(b) && isASCIIDigit(b[j]) {
			return -1
		}
		if firstDiff != 0 {
			return firstDiff
		}
	}
	return 0
}

func charOrder(b byte) int {
	switch {
	case isASCIIDigit(b):
		return 0
	case isASCIIAlpha(b):
		return int(b)
	case b == '~':
		return -1
	default:
		return int(b) + 256
	}
}

// ConstraintOp is one of the five relational operators Debian policy allows between a
// dependency possibility and a version: <<, <=, =, >=, >>.
type ConstraintOp string

const (
	OpLess        ConstraintOp = "<<"
	OpLessEqual   ConstraintOp = "<="
	OpEqual       ConstraintOp = "="
	OpGreaterEqual ConstraintOp = ">="
	OpGreater     ConstraintOp = ">>"
)

// VersionConstraint pairs a relational operator with the version it is relative to.
type VersionConstraint struct {
	Op      ConstraintOp
	Version Version
}

func (c VersionConstraint) String() string {
	return fmt.Sprintf("(%s %s)", c.Op, c.Version)
}

// Satisfies reports whether candidate satisfies this constraint.
func (c VersionConstraint) Satisfies(candidate Version) bool {
	cmp := candidate.Compare(c.Version)
	switch c.Op {
	case OpLess:
		return cmp < 0
	case OpLessEqual:
		return cmp <= 0
	case OpEqual:
		return cmp == 0
	case OpGreaterEqual:
		return cmp >= 0
	case OpGreater:
		return cmp > 0
	default:
		return false
	}
}

func parseConstraintOp(s string) (ConstraintOp, error) {
	switch s {
	case "<<", "<=", "=", ">=", ">>":
		return ConstraintOp(s), nil
	// legacy single-character forms still seen in old Packages files: lenient "<"/">"
	// mean strict "<<"/">>", not "<="/">="
	case "<":
		return OpLess, nil
	case ">":
		return OpGreater, nil
	default:
		return "", fmt.Errorf("deb: unknown version operator %q", s)
	}
}
