// Package llms abstracts the text-generation backend.
package llms

import "context"

// Provider is the generation backend contract. Generate sends a complete
// prompt (with an optional system preamble) and returns the full response
// text. Failures are terminal for the calling query; providers must not
// retry internally.
type Provider interface {
	Generate(ctx context.Context, prompt, system string) (string, error)

	GetModelName() string

	Close() error
}
