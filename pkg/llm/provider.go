package llm

import "context"

// Provider is a chat-completion provider used for persona rewriting.
type Provider interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single completion call: a system instruction plus user content.
type Request struct {
	System    string
	Messages  []Message
	MaxTokens int
}

// Response carries the completion text plus any citation metadata the
// provider returned. Citations must be surfaced to callers, not discarded.
type Response struct {
	Content   string
	Citations []string
}
