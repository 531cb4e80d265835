package deb

import (
	"fmt"
	"strings"
)

// ArchFilter restricts a Possibility to (or away from, if Negated) a set of
// architectures, as written in a bracketed "[arch1 arch2 ...]" or "[!arch1 !arch2 ...]"
// filter. All entries of one filter share the same negation; a mixed filter is rejected.
type ArchFilter struct {
	Negated       bool
	Architectures []Arch
}

// StageFilter restricts a Possibility to (or away from) a build profile/stage name,
// as written in an angle-bracketed "<stage1 !stage2>" filter.
type StageFilter struct {
	Negated bool
	Name    string
}

// Possibility is one alternative within a Relation: a package name, optionally
// qualified by architecture, version-constrained, and filtered by arch or stage.
type Possibility struct {
	Name        string
	ArchQualify string // the ":arch" suffix on the name itself, e.g. "libc6:amd64"
	Constraints []VersionConstraint
	ArchFilters []ArchFilter
	Stages      []StageFilter
}

func (p Possibility) String() string {
	s := p.Name
	if p.ArchQualify != "" {
		s += ":" + p.ArchQualify
	}
	for _, c := range p.Constraints {
		s += " " + c.String()
	}
	for _, f := range p.ArchFilters {
		s += " [" + archFilterBody(f) + "]"
	}
	for _, st := range p.Stages {
		name := st.Name
		if st.Negated {
			name = "!" + name
		}
		s += " <" + name + ">"
	}
	return s
}

func archFilterBody(f ArchFilter) string {
	var parts []string
	for _, a := range f.Architectures {
		name := a.String()
		if f.Negated {
			name = "!" + name
		}
		parts = append(parts, name)
	}
	return strings.Join(parts, " ")
}

// Relation is a set of alternatives joined by '|', any one of which satisfies it.
type Relation struct {
	Alternatives []Possibility
}

func (r Relation) String() string {
	parts := make([]string, len(r.Alternatives))
	for i, p := range r.Alternatives {
		parts[i] = p.String()
	}
	return strings.Join(parts, " | ")
}

// Dependency is a full dependency expression: a comma-separated list of Relations,
// all of which must be satisfied, as found in fields like Depends and Build-Depends.
type Dependency struct {
	Relations []Relation
}

func (d Dependency) String() string {
	parts := make([]string, len(d.Relations))
	for i, r := range d.Relations {
		parts[i] = r.String()
	}
	return strings.Join(parts, ", ")
}

// ParseDependency decodes a Depends-family field value. An empty string yields a
// Dependency with no relations.
func ParseDependency(s string) (Dependency, error) {
	var dep Dependency
	s = strings.TrimSpace(s)
	if s == "" {
		return dep, nil
	}
	for _, relPart := range strings.Split(s, ",") {
		relPart = strings.TrimSpace(relPart)
		if relPart == "" {
			continue
		}
		rel, err := parseRelation(relPart)
		if err != nil {
			return Dependency{}, err
		}
		dep.Relations = append(dep.Relations, rel)
	}
	return dep, nil
}

func parseRelation(s string) (Relation, error) {
	var rel Relation
	for _, altPart := range strings.Split(s, "|") {
		altPart = strings.TrimSpace(altPart)
		if altPart == "" {
			continue
		}
		p, err := parsePossibility(altPart)
		if err != nil {
			return Relation{}, err
		}
		rel.Alternatives = append(rel.Alternatives, p)
	}
	if len(rel.Alternatives) == 0 {
		return Relation{}, fmt.Errorf("deb: empty dependency relation in %q", s)
	}
	return rel, nil
}

// parsePossibility decodes one alternative: "name[:arch] (op ver)* [filter]* <stage>*"
func parsePossibility(s string) (Possibility, error) {
	var p Possibility
	rest := strings.TrimSpace(s)

	nameEnd := strings.IndexAny(rest, " \t(")
	var namePart string
	if nameEnd == -1 {
		namePart = rest
		rest = ""
	} else {
		namePart = rest[:nameEnd]
		rest = strings.TrimSpace(rest[nameEnd:])
	}
	if colon := strings.IndexByte(namePart, ':'); colon != -1 {
		p.Name = namePart[:colon]
		p.ArchQualify = namePart[colon+1:]
	} else {
		p.Name = namePart
	}
	if p.Name == "" {
		return Possibility{}, fmt.Errorf("deb: dependency possibility %q has no package name", s)
	}

	for len(rest) > 0 {
		switch rest[0] {
		case '(':
			end := strings.IndexByte(rest, ')')
			if end == -1 {
				return Possibility{}, fmt.Errorf("deb: unterminated version constraint in %q", s)
			}
			c, err := parseVersionConstraint(rest[1:end])
			if err != nil {
				return Possibility{}, fmt.Errorf("deb: %w in %q", err, s)
			}
			p.Constraints = append(p.Constraints, c)
			rest = strings.TrimSpace(rest[end+1:])
		case '[':
			end := strings.IndexByte(rest, ']')
			if end == -1 {
				return Possibility{}, fmt.Errorf("deb: unterminated arch filter in %q", s)
			}
			f, err := parseArchFilter(rest[1:end])
			if err != nil {
				return Possibility{}, fmt.Errorf("deb: %w in %q", err, s)
			}
			p.ArchFilters = append(p.ArchFilters, f)
			rest = strings.TrimSpace(rest[end+1:])
		case '<':
			end := strings.IndexByte(rest, '>')
			if end == -1 {
				return Possibility{}, fmt.Errorf("deb: unterminated stage filter in %q", s)
			}
			stages := parseStageFilters(rest[1:end])
			p.Stages = append(p.Stages, stages...)
			rest = strings.TrimSpace(rest[end+1:])
		default:
			return Possibility{}, fmt.Errorf("deb: unexpected token %q in %q", rest, s)
		}
	}

	return p, nil
}

func parseVersionConstraint(s string) (VersionConstraint, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return VersionConstraint{}, fmt.Errorf("malformed version constraint %q", s)
	}
	op, err := parseConstraintOp(fields[0])
	if err != nil {
		return VersionConstraint{}, err
	}
	v, err := ParseVersion(fields[1])
	if err != nil {
		return VersionConstraint{}, fmt.Errorf("malformed version in constraint %q: %w", s, err)
	}
	return VersionConstraint{Op: op, Version: v}, nil
}

func parseArchFilter(s string) (ArchFilter, error) {
	var f ArchFilter
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return f, fmt.Errorf("empty arch filter")
	}
	for i, tok := range fields {
		negated := strings.HasPrefix(tok, "!")
		if negated {
			tok = tok[1:]
		}
		if i == 0 {
			f.Negated = negated
		} else if negated != f.Negated {
			return f, fmt.Errorf("arch filter %q mixes negated and non-negated architectures", s)
		}
		a, err := ParseArch(tok)
		if err != nil {
			return f, err
		}
		f.Architectures = append(f.Architectures, a)
	}
	return f, nil
}

func parseStageFilters(s string) []StageFilter {
	var out []StageFilter
	for _, tok := range strings.Fields(s) {
		negated := strings.HasPrefix(tok, "!")
		if negated {
			tok = tok[1:]
		}
		out = append(out, StageFilter{Negated: negated, Name: tok})
	}
	return out
}
