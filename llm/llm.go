// Package llm defines the transport boundary between the recommendation
// pipeline and a chat-completion backend.
package llm

import "context"

// Client sends one composed prompt and returns the model's raw text answer.
// Implementations do not retry or cache; that belongs to the caller.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
