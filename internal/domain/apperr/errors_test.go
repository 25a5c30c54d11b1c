package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIs_MatchesSentinelOfSameKind(t *testing.T) {
	err := fmt.Errorf("get node: %w", NotFound("GetNode", "node 42 not found"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestUnwrap_ExposesCause(t *testing.T) {
	cause := errors.New("connection reset by peer")
	err := Connectivity("Run", cause)

	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, ErrConnectivity))
	assert.Contains(t, err.Error(), "connection reset by peer")
}

func TestKindOf_PlainError(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestPublic_HidesQueryInternals(t *testing.T) {
	err := Query("Search", errors.New("Invalid input 'MATCH (n) WHERE n.secret'"))
	assert.Equal(t, "query failed", Public(err))
	assert.NotContains(t, Public(err), "MATCH")

	assert.Equal(t, "graph database unavailable", Public(Connectivity("Connect", errors.New("dial tcp"))))
	assert.Equal(t, "invalid node id \"abc\"", Public(Validation("GetNode", "invalid node id %q", "abc")))
	assert.Equal(t, "internal error", Public(errors.New("raw")))
}

func TestUpstream_CarriesStatus(t *testing.T) {
	err := Upstream("ChatGLM", 401, "invalid api key", nil)

	var e *Error
	assert.True(t, errors.As(err, &e))
	assert.Equal(t, 401, e.Status)
	assert.Contains(t, err.Error(), "status 401")
	assert.Equal(t, "answer generation failed: invalid api key", Public(err))
}
