// Package depgraph indexes decoded binary packages by name and version and computes
// the "sloppy leaves" of the dependency graph: an approximate, non-SAT view of what a
// package set pulls in. No alternative selection or solving happens here.
package depgraph

import (
	"fmt"

	"github.com/nicwaller/apt-look/pkg/apt/aptlib"
	"github.com/nicwaller/apt-look/pkg/apt/deb"
)

// Graph indexes binary Package records by name, then by version.
type Graph struct {
	packages map[string]map[string]*deb.Package
}

func New() *Graph {
	return &Graph{packages: make(map[string]map[string]*deb.Package)}
}

// Add indexes a binary package record. Source records are rejected: the graph only
// makes sense over installable binaries.
func (g *Graph) Add(p *deb.Package) error {
	if p.IsSource {
		return fmt.Errorf("depgraph: %s is a source package, not a binary", p.Name)
	}
	versions, ok := g.packages[p.Name]
	if !ok {
		versions = make(map[string]*deb.Package)
		g.packages[p.Name] = versions
	}
	versions[p.Version.String()] = p
	return nil
}

// Leaves is the sloppy dependency summary for a Graph's whole package set.
type Leaves struct {
	// DirectDep holds names that are essential, or are the sole alternative of some
	// dependency relation.
	DirectDep map[string]bool
	// MaybeDep holds names that appear only as one of several alternatives in a
	// multi-alternative dependency relation.
	MaybeDep map[string]bool
	// Recommended holds names appearing in any Recommends field.
	Recommended map[string]bool
	// Aliases maps a Provides name to the set of package names that declare it.
	Aliases map[string]map[string]bool
}

// SloppyLeaves walks every indexed package version and classifies the names it
// references. It is "sloppy" because it ignores version constraints, architecture
// qualifiers, and build-profile filters entirely, a cheap approximation of what a
// package set depends on rather than a SAT solver.
func (g *Graph) SloppyLeaves() (*Leaves, error) {
	l := &Leaves{
		DirectDep:   make(map[string]bool),
		MaybeDep:    make(map[string]bool),
		Recommended: make(map[string]bool),
		Aliases:     make(map[string]map[string]bool),
	}

	for name, versions := range g.packages {
		for _, p := range versions {
			if p.Binary == nil {
				continue
			}
			if p.Binary.Essential {
				l.DirectDep[name] = true
			}

			for _, rel := range p.Provides.Relations {
				if len(rel.Alternatives) != 1 {
					return nil, &aptlib.InvariantViolationError{
						Invariant: "Provides has exactly one alternate",
						Detail:    fmt.Sprintf("%s: Provides entry has %d alternatives", name, len(rel.Alternatives)),
					}
				}
				alt := rel.Alternatives[0]
				if alt.ArchQualify != "" {
					return nil, &aptlib.InvariantViolationError{
						Invariant: "Provides alternate has no arch qualifier",
						Detail:    fmt.Sprintf("%s: Provides %s carries an arch qualifier", name, alt.Name),
					}
				}
				set, ok := l.Aliases[alt.Name]
				if !ok {
					set = make(map[string]bool)
					l.Aliases[alt.Name] = set
				}
				set[name] = true
			}

			for _, rel := range p.Depends.Relations {
				switch len(rel.Alternatives) {
				case 0:
					return nil, &aptlib.InvariantViolationError{
						Invariant: "single-alternate dep has at least one alternate",
						Detail:    fmt.Sprintf("%s: Depends entry has zero alternatives", name),
					}
				case 1:
					l.DirectDep[rel.Alternatives[0].Name] = true
				default:
					for _, alt := range rel.Alternatives {
						l.MaybeDep[alt.Name] = true
					}
				}
			}

			for _, rel := range p.Recommends.Relations {
				for _, alt := range rel.Alternatives {
					l.Recommended[alt.Name] = true
				}
			}
		}
	}

	for name := range l.DirectDep {
		delete(l.MaybeDep, name)
	}

	return l, nil
}
