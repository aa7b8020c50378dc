// Package llm is the thin LLM capability used by the turn/session
// summarizer and the skill generator (spec.md §4.9, §4.10), grounded on
// the teacher's internal/service/llm/providers/anthropic/client.go adapter
// pattern — generalized from chat-turn generation to single-shot text
// completion.
package llm

import "context"

// Provider is a single-shot "system + user message in, text out"
// completion capability. Narrower than a chat-turn interface because
// nothing in this module streams or holds multi-turn LLM conversations.
type Provider interface {
	Complete(ctx context.Context, model, system, userMessage string, maxTokens int) (string, error)
}
