// Package llm defines the client interface shared by every LLM-backed
// role (Brain, Nerves, Analysis, Curriculum Proposer), grounded on
// _examples/theRebelliousNerd-codenerd/internal/types/interfaces.go's
// LLMClient interface, trimmed to the single Complete shape cotsmith's
// roles actually need.
package llm

import "context"

// Client is satisfied by any backend capable of turning a system +
// user prompt pair into a text completion. Every role package depends
// only on this interface, never on a concrete provider, so tests
// substitute a fake.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// UsageMetadata mirrors the teacher's token accounting shape, carried
// here for callers that want to log cost without depending on a
// provider package.
type UsageMetadata struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
