package llm

import "context"

// Client is the interface the agent loop uses to talk to a completion
// service.
type Client interface {
	// Chat sends a completion request and returns the response.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Ping checks if the provider is reachable.
	Ping(ctx context.Context) error
}
