package llm

import (
	"context"
	"errors"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/fishgraph/fishgraph-api/internal/domain/apperr"
	"github.com/fishgraph/fishgraph-api/internal/domain/repository"
	"github.com/fishgraph/fishgraph-api/internal/infrastructure/resilience"
)

var tracer = otel.Tracer("github.com/fishgraph/fishgraph-api/internal/infrastructure/llm")

// GuardedClient traces every call and fails fast through a circuit breaker
// once the provider keeps failing. Every error it returns is an UpstreamModel error.
type GuardedClient struct {
	inner   repository.LLMClient
	breaker *resilience.CircuitBreaker
}

func NewGuardedClient(inner repository.LLMClient, threshold int, cooldown time.Duration) *GuardedClient {
	return &GuardedClient{
		inner:   inner,
		breaker: resilience.NewCircuitBreaker(inner.Name(), threshold, cooldown),
	}
}

func (g *GuardedClient) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "llm.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.provider", g.inner.Name()),
		attribute.String("llm.request_id", repository.RequestID(ctx)),
		attribute.Int("llm.prompt_chars", len(prompt)),
	)

	var answer string
	err := g.breaker.Execute(func() error {
		var err error
		answer, err = g.inner.Generate(ctx, prompt)
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, resilience.ErrCircuitOpen):
			err = apperr.Upstream("Generate", 0, "provider temporarily unavailable", err)
		case apperr.KindOf(err) == apperr.KindUnknown:
			err = apperr.Upstream("Generate", 0, "generation failed", err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return "", err
	}
	return answer, nil
}

func (g *GuardedClient) Name() string { return g.inner.Name() }

// State exposes the breaker state for health reporting.
func (g *GuardedClient) State() resilience.State { return g.breaker.CurrentState() }

// Close releases the wrapped provider if it holds resources.
func (g *GuardedClient) Close() error {
	if c, ok := g.inner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
