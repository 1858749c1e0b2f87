package interfaces

import (
	"context"
)

// Message represents a single chat message for answer synthesis
type Message struct {
	Role    string `json:"role"` // "system", "user", or "assistant"
	Content string `json:"content"`
}

// LLMService generates prose completions. The retrieval service uses it in
// accurate mode to synthesize an answer grounded in retrieved chunks.
type LLMService interface {
	Chat(ctx context.Context, messages []Message) (string, error)
	HealthCheck(ctx context.Context) error
	Close() error
}
