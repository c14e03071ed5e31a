package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fairyhunter13/ats-cv-scorer/internal/config"
	"github.com/fairyhunter13/ats-cv-scorer/internal/domain"
	"github.com/fairyhunter13/ats-cv-scorer/internal/observability"
	"github.com/fairyhunter13/ats-cv-scorer/pkg/textx"
)

const (
	defaultAITimeout   = 30 * time.Second
	remoteTemperature  = 0.3
	remoteMaxTokens    = 1500
	skillsNotSpecified = "the ones you consider relevant"
)

// Evaluator scores CV text against a profile. The remote strategy is used
// only when a chat client was injected; every remote failure degrades to the
// deterministic fallback.
type Evaluator struct {
	chat    domain.ChatClient
	prompts config.Prompts
	model   string
	timeout time.Duration
}

// NewEvaluator builds an Evaluator. A nil chat client disables the remote strategy.
func NewEvaluator(chat domain.ChatClient, prompts config.Prompts, model string, timeout time.Duration) *Evaluator {
	if timeout <= 0 {
		timeout = defaultAITimeout
	}
	if prompts.User == nil {
		prompts = config.DefaultPrompts()
	}
	return &Evaluator{chat: chat, prompts: prompts, model: model, timeout: timeout}
}

// RemoteEnabled reports whether a remote chat client is configured.
func (e *Evaluator) RemoteEnabled() bool { return e != nil && e.chat != nil }

// Evaluate runs the remote strategy when available and falls back otherwise.
// Usage is non-nil only when a remote call produced the result.
func (e *Evaluator) Evaluate(ctx context.Context, raw string, p domain.ProfileConfig) (domain.EvaluationResult, *domain.UsageRecord) {
	if strings.TrimSpace(raw) == "" {
		return UnreadableResult(), nil
	}
	if e.RemoteEnabled() {
		if res, usage := e.Remote(ctx, raw, p); res != nil {
			return *res, usage
		}
	}
	return Fallback(raw, p), nil
}

// EvaluateLocal never calls the remote model.
func (e *Evaluator) EvaluateLocal(raw string, p domain.ProfileConfig) domain.EvaluationResult {
	if strings.TrimSpace(raw) == "" {
		return UnreadableResult()
	}
	return Fallback(raw, p)
}

// Remote performs one bounded chat call. It returns nil on any failure.
func (e *Evaluator) Remote(ctx context.Context, raw string, p domain.ProfileConfig) (*domain.EvaluationResult, *domain.UsageRecord) {
	if !e.RemoteEnabled() {
		return nil, nil
	}
	lg := observability.LoggerFromContext(ctx).With(slog.String("provider", e.chat.Provider()))

	user, err := e.prompts.RenderUser(buildPromptData(raw, p))
	if err != nil {
		lg.Warn("cv analysis prompt render failed", slog.Any("error", err))
		return nil, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	start := time.Now()
	resp, err := e.chat.ChatJSON(callCtx, domain.ChatRequest{
		System:      e.prompts.System,
		User:        user,
		Model:       e.model,
		Temperature: remoteTemperature,
		MaxTokens:   remoteMaxTokens,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
		}
		lg.Warn("remote cv analysis failed, using fallback",
			slog.Any("error", err),
			slog.Duration("elapsed", time.Since(start)))
		return nil, nil
	}
	if strings.TrimSpace(resp.Content) == "" {
		lg.Warn("remote cv analysis returned empty content, using fallback")
		return nil, nil
	}

	res, err := ParseEvaluation(resp.Content, p)
	if err != nil {
		lg.Warn("remote cv analysis unparsable, using fallback", slog.Any("error", err))
		return nil, nil
	}

	total := resp.TotalTokens
	if total == 0 {
		total = resp.PromptTokens + resp.CompletionTokens
	}
	model := e.model
	if model == "" {
		model = resp.Model
	}
	usage := &domain.UsageRecord{
		PromptTokens:     resp.PromptTokens,
		CompletionTokens: resp.CompletionTokens,
		TotalTokens:      total,
		Model:            textx.Truncate(model, domain.MaxModelChars),
	}
	lg.Debug("remote cv analysis completed",
		slog.Float64("score", res.Score),
		slog.String("status", string(res.Status)),
		slog.Int("skills", len(res.Skills)),
		slog.Int("total_tokens", total))
	return &res, usage
}

func buildPromptData(raw string, p domain.ProfileConfig) config.PromptData {
	skills := skillsNotSpecified
	if len(p.DesiredSkills) > 0 {
		skills = strings.Join(p.DesiredSkills, ", ")
	}
	return config.PromptData{
		VacancyTitle: titleOrDefault(p.VacancyTitle),
		Profile:      p.Summary,
		Skills:       skills,
		Instructions: strings.TrimSpace(p.Instructions),
		CVText:       strings.TrimSpace(textx.Truncate(raw, domain.MaxPromptTextChars)),
	}
}
