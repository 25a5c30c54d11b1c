package repository

import (
	"context"
)

// LLMClient defines the interface for generating text from a prompt.
type LLMClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

type requestIDKey struct{}

// WithRequestID attaches the correlation id that LLM clients forward upstream.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the correlation id stored by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
