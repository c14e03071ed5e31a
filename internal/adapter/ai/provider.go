package ai

import (
	"context"
	"strings"
	"time"

	"github.com/fairyhunter13/ats-cv-scorer/internal/adapter/ai/gemini"
	"github.com/fairyhunter13/ats-cv-scorer/internal/adapter/ai/openai"
	"github.com/fairyhunter13/ats-cv-scorer/internal/config"
	"github.com/fairyhunter13/ats-cv-scorer/internal/domain"
)

// NewChatClient builds the configured provider wrapped with a circuit
// breaker and metrics. It returns nil when no credential is configured.
func NewChatClient(ctx context.Context, cfg config.Config) (domain.ChatClient, error) {
	if !cfg.RemoteAIEnabled() {
		return nil, nil
	}
	var base domain.ChatClient
	switch strings.ToLower(cfg.AIProvider) {
	case config.ProviderGemini:
		c, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		base = c
	default:
		base = openai.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	}
	return NewObserved(NewCircuitBreaker(base, 3, 30*time.Second)), nil
}
