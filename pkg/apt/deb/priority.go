package deb

import "fmt"

// Priority is a package's importance relative to the system, as used in the
// Priority control field.
type Priority string

const (
	PriorityRequired  Priority = "required"
	PriorityImportant Priority = "important"
	PriorityStandard  Priority = "standard"
	PriorityOptional  Priority = "optional"
	PriorityExtra     Priority = "extra" // deprecated alias, still seen in the wild
)

func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case PriorityRequired, PriorityImportant, PriorityStandard, PriorityOptional, PriorityExtra:
		return Priority(s), nil
	default:
		return "", fmt.Errorf("deb: unknown priority %q", s)
	}
}
