package recon

import "strings"

// NameMatcher decides whether a row's product name refines the name
// already stored on an order. The platform's names are free text entered
// by humans, so any rule here is a heuristic; it is isolated behind this
// interface so a stricter matcher can replace it without touching the
// engine's state machine.
type NameMatcher interface {
	Refines(candidate, existing string) bool
}

// ContainsMatcher refines when the candidate name is a substring of the
// existing stored name.
type ContainsMatcher struct{}

func (ContainsMatcher) Refines(candidate, existing string) bool {
	return strings.Contains(existing, candidate)
}
