package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ats-cv-scorer/internal/config"
	"github.com/fairyhunter13/ats-cv-scorer/internal/domain"
)

type scriptedChat struct {
	errs  []error
	calls int
}

func (s *scriptedChat) Provider() string { return "scripted" }

func (s *scriptedChat) ChatJSON(context.Context, domain.ChatRequest) (domain.ChatResponse, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return domain.ChatResponse{}, s.errs[i]
	}
	return domain.ChatResponse{Content: "{}", PromptTokens: 3, CompletionTokens: 1, TotalTokens: 4}, nil
}

func TestCircuitBreaker_OpensAndRecovers(t *testing.T) {
	t.Parallel()
	boom := errors.New("upstream 502")
	next := &scriptedChat{errs: []error{boom, boom, boom, boom}}
	cb := NewCircuitBreaker(next, 3, 30*time.Second)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cb.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := cb.ChatJSON(ctx, domain.ChatRequest{})
		require.ErrorIs(t, err, boom)
	}
	assert.Equal(t, CircuitOpen, cb.State())

	_, err := cb.ChatJSON(ctx, domain.ChatRequest{})
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.ErrorIs(t, err, domain.ErrUpstreamRateLimit)
	assert.Equal(t, 3, next.calls)

	// failed probe reopens
	now = now.Add(31 * time.Second)
	_, err = cb.ChatJSON(ctx, domain.ChatRequest{})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, CircuitOpen, cb.State())
	assert.Equal(t, 4, next.calls)

	// successful probe closes
	now = now.Add(31 * time.Second)
	resp, err := cb.ChatJSON(ctx, domain.ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "{}", resp.Content)
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	next := &scriptedChat{errs: []error{boom, boom, nil, boom, boom}}
	cb := NewCircuitBreaker(next, 3, time.Minute)
	for i := 0; i < 5; i++ {
		_, _ = cb.ChatJSON(context.Background(), domain.ChatRequest{})
	}
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_CallerCancellationNotCounted(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	next := &scriptedChat{errs: []error{context.Canceled, context.Canceled, context.Canceled}}
	cb := NewCircuitBreaker(next, 1, time.Minute)
	for i := 0; i < 3; i++ {
		_, err := cb.ChatJSON(ctx, domain.ChatRequest{})
		require.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitState_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "closed", CircuitClosed.String())
	assert.Equal(t, "open", CircuitOpen.String())
	assert.Equal(t, "half-open", CircuitHalfOpen.String())
	assert.Equal(t, "unknown", CircuitState(9).String())
}

func TestOutcome(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "ok", outcome(nil))
	assert.Equal(t, "circuit_open", outcome(ErrCircuitOpen))
	assert.Equal(t, "timeout", outcome(context.DeadlineExceeded))
	assert.Equal(t, "rate_limited", outcome(domain.ErrUpstreamRateLimit))
	assert.Equal(t, "error", outcome(errors.New("x")))
}

func TestObserved_PassesThrough(t *testing.T) {
	t.Parallel()
	o := NewObserved(&scriptedChat{})
	assert.Equal(t, "scripted", o.Provider())
	resp, err := o.ChatJSON(context.Background(), domain.ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, 4, resp.TotalTokens)
}

func TestNewChatClient(t *testing.T) {
	t.Parallel()
	c, err := NewChatClient(context.Background(), config.Config{AIProvider: "openai"})
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = NewChatClient(context.Background(), config.Config{AIProvider: "openai", OpenAIAPIKey: "sk", OpenAIModel: "gpt-4o-mini"})
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "openai", c.Provider())
}
