package swarm

import "strings"

// Router decides whether an agent's capability tags qualify it for a task.
// Implementations must be safe for concurrent use.
type Router interface {
	Match(description string, capabilities []string) bool
}

// RouterFunc adapts a function to the Router interface.
type RouterFunc func(description string, capabilities []string) bool

// Match calls f.
func (f RouterFunc) Match(description string, capabilities []string) bool {
	return f(description, capabilities)
}

// CapabilityRouter matches case-insensitively on substrings: an agent
// qualifies when any capability tag, its spaced form, or any of its word
// components appears in the task description. Short words are skipped to
// avoid matches on filler like "web" or "data".
type CapabilityRouter struct{}

// Match reports whether any capability matches the description.
func (CapabilityRouter) Match(description string, capabilities []string) bool {
	desc := strings.ToLower(description)
	for _, cap := range capabilities {
		cap = strings.ToLower(cap)
		if strings.Contains(desc, cap) {
			return true
		}
		phrase := strings.ReplaceAll(cap, "_", " ")
		if strings.Contains(desc, phrase) {
			return true
		}
		for _, word := range strings.Split(cap, "_") {
			if len(word) >= 5 && strings.Contains(desc, word) {
				return true
			}
		}
	}
	return false
}
