package deb

import (
	"fmt"
	"strings"
)

// Arch is a Debian architecture triple (abi-os-cpu), with "any"/"all" wildcards.
// Single-word forms like "amd64" are shorthand for "gnu-linux-amd64".
type Arch struct {
	ABI string
	OS  string
	CPU string
}

// ParseArch decodes an Architecture field value such as "amd64", "any",
// "kfreebsd-amd64", or "bsd-openbsd-i386".
func ParseArch(s string) (Arch, error) {
	parts := strings.Split(s, "-")
	switch len(parts) {
	case 1:
		switch parts[0] {
		case "any", "all":
			return Arch{ABI: parts[0], OS: parts[0], CPU: parts[0]}, nil
		default:
			return Arch{ABI: "gnu", OS: "linux", CPU: parts[0]}, nil
		}
	case 2:
		return Arch{ABI: "gnu", OS: parts[0], CPU: parts[1]}, nil
	case 3:
		return Arch{ABI: parts[0], OS: parts[1], CPU: parts[2]}, nil
	default:
		return Arch{}, fmt.Errorf("deb: invalid architecture %q", s)
	}
}

func (a Arch) IsWildcard() bool {
	if a.CPU == "all" {
		return false
	}
	return a.ABI == "any" || a.OS == "any" || a.CPU == "any"
}

// Matches reports whether a concrete architecture (the receiver) satisfies the
// (possibly wildcarded) pattern other, following dpkg's architecture matching rules.
func (a Arch) Matches(pattern Arch) bool {
	if a.IsWildcard() && pattern.IsWildcard() {
		return false
	}
	if a.IsWildcard() {
		return pattern.Matches(a)
	}
	cpuOK := a.CPU == pattern.CPU || (a.CPU != "all" && pattern.CPU == "any")
	osOK := a.OS == pattern.OS || pattern.OS == "any"
	abiOK := a.ABI == pattern.ABI || pattern.ABI == "any"
	return cpuOK && osOK && abiOK
}

func (a Arch) String() string {
	var parts []string
	if a.ABI != "any" && a.ABI != "all" && a.ABI != "gnu" && a.ABI != "" {
		parts = append(parts, a.ABI)
	}
	if a.OS != "any" && a.OS != "all" && a.OS != "linux" {
		parts = append(parts, a.OS)
	}
	parts = append(parts, a.CPU)
	return strings.Join(parts, "-")
}

// ParseArchList splits a whitespace-separated Architecture/Architectures field.
func ParseArchList(s string) ([]Arch, error) {
	fields := strings.Fields(s)
	out := make([]Arch, 0, len(fields))
	for _, f := range fields {
		a, err := ParseArch(f)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
