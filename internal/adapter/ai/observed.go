package ai

import (
	"context"
	"errors"
	"time"

	"github.com/fairyhunter13/ats-cv-scorer/internal/adapter/observability"
	"github.com/fairyhunter13/ats-cv-scorer/internal/domain"
)

// Observed records Prometheus request, latency and token metrics for every call.
type Observed struct {
	next domain.ChatClient
}

// NewObserved wraps next with metrics.
func NewObserved(next domain.ChatClient) *Observed { return &Observed{next: next} }

// Provider implements domain.ChatClient.
func (o *Observed) Provider() string { return o.next.Provider() }

// ChatJSON implements domain.ChatClient.
func (o *Observed) ChatJSON(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error) {
	start := time.Now()
	resp, err := o.next.ChatJSON(ctx, req)
	observability.ObserveAIRequest(o.next.Provider(), outcome(err), time.Since(start))
	if err == nil {
		observability.ObserveAITokens(o.next.Provider(), resp.PromptTokens, resp.CompletionTokens)
	}
	return resp, err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, domain.ErrUpstreamTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrUpstreamRateLimit):
		return "rate_limited"
	default:
		return "error"
	}
}
