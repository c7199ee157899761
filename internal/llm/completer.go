// Package llm provides the text-completion collaborator used by agents for
// optional reasoning and for content-flavored task bodies.
package llm

import "context"

// Completer produces a text completion for a prompt. Absence or failure of
// a Completer must never abort scheduling; callers degrade to a placeholder
// unless completion is the designated primary work of the task.
type Completer interface {
	Complete(ctx context.Context, prompt string, temperature float64) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, prompt string, temperature float64) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	return f(ctx, prompt, temperature)
}
