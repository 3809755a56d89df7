// Package insight builds the closing prompt of the wizard and sends it to a
// text generation service.
package insight

import (
	"context"
)

// Request is a single-turn generation request.
type Request struct {
	Prompt    string
	UserID    string
	SessionID string
}

// Generator sends one prompt to a text generation service and returns its reply.
// Implementations are safe for concurrent use.
type Generator interface {
	// Generate performs exactly one outbound call.
	Generate(ctx context.Context, req Request) (string, error)

	// Close releases resources.
	Close() error
}

// Ensure implementations satisfy Generator.
var (
	_ Generator = (*OpenAIGenerator)(nil)
	_ Generator = (*GrpcGenerator)(nil)
)
