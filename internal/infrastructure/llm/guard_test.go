package llm

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fishgraph/fishgraph-api/internal/domain/apperr"
	"github.com/fishgraph/fishgraph-api/internal/infrastructure/resilience"
)

type stubClient struct {
	calls int
	err   error
	resp  string
}

func (s *stubClient) Generate(context.Context, string) (string, error) {
	s.calls++
	return s.resp, s.err
}

func (s *stubClient) Name() string { return "stub" }

func TestGuardedClient_PassesThrough(t *testing.T) {
	inner := &stubClient{resp: "ok"}
	g := NewGuardedClient(inner, 3, time.Minute)

	answer, err := g.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", answer)
	assert.Equal(t, "stub", g.Name())
}

func TestGuardedClient_WrapsUnknownErrors(t *testing.T) {
	g := NewGuardedClient(&stubClient{err: errors.New("dial tcp: refused")}, 3, time.Minute)

	_, err := g.Generate(context.Background(), "p")
	assert.ErrorIs(t, err, apperr.ErrUpstreamModel)
}

func TestGuardedClient_OpensAndFailsFast(t *testing.T) {
	inner := &stubClient{err: apperr.Upstream("stub", 500, "boom", nil)}
	g := NewGuardedClient(inner, 2, time.Hour)

	for i := 0; i < 2; i++ {
		_, _ = g.Generate(context.Background(), "p")
	}
	assert.Equal(t, resilience.StateOpen, g.State())

	_, err := g.Generate(context.Background(), "p")
	assert.ErrorIs(t, err, apperr.ErrUpstreamModel)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, 2, inner.calls)
}

func TestNewClient_UnknownProvider(t *testing.T) {
	_, err := NewClient(context.Background(), ProviderConfig{Provider: "gpt"})
	assert.Error(t, err)
}

func TestNewClient_Ollama(t *testing.T) {
	c, err := NewClient(context.Background(), ProviderConfig{Provider: "ollama", OllamaModel: "llama3"})
	require.NoError(t, err)
	assert.Equal(t, "Ollama (llama3) [Local]", c.Name())
	assert.NoError(t, c.Close())
}

func TestLoggingTransport_RedactsAuthorization(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_, _ = w.Write(body)
	}))
	defer server.Close()

	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	client := &http.Client{Transport: &LoggingTransport{LogLevel: "debug"}}
	req, err := http.NewRequest(http.MethodPost, server.URL, strings.NewReader(`{"q":"carp"}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer top-secret")

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, `{"q":"carp"}`, string(body))
	assert.NotContains(t, buf.String(), "top-secret")
	assert.Contains(t, buf.String(), "<redacted>")
	assert.Contains(t, buf.String(), `DEBUG OUTBOUND REQUEST BODY: {"q":"carp"}`)
}
