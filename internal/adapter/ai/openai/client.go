// Package openai implements domain.ChatClient on top of the OpenAI chat
// completions API, or any compatible endpoint such as OpenRouter or Groq.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/ats-cv-scorer/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/ats-cv-scorer/internal/domain"
)

// Provider is the provider label used in logs and metrics.
const Provider = "openai"

// Client implements domain.ChatClient.
type Client struct {
	api   *openai.Client
	model string
}

// New builds a client. baseURL may be empty for the public OpenAI API.
func New(apiKey, baseURL, model string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	return &Client{api: openai.NewClientWithConfig(cfg), model: model}
}

// Provider implements domain.ChatClient.
func (c *Client) Provider() string { return Provider }

// ChatJSON sends one system+user exchange constrained to a JSON object answer.
func (c *Client) ChatJSON(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return domain.ChatResponse{}, fmt.Errorf("op=openai.chat: %w", classify(err))
	}
	if len(resp.Choices) == 0 {
		return domain.ChatResponse{}, fmt.Errorf("op=openai.chat: %w: no choices", domain.ErrSchemaInvalid)
	}

	content := resp.Choices[0].Message.Content
	out := domain.ChatResponse{
		Content:          content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
		Model:            resp.Model,
	}
	if out.TotalTokens == 0 {
		est := tokencount.DefaultCounter.Estimate(req.System, req.User, content, model)
		out.PromptTokens, out.CompletionTokens, out.TotalTokens = est.PromptTokens, est.CompletionTokens, est.TotalTokens
	}
	if out.Model == "" {
		out.Model = model
	}
	return out, nil
}

// classify maps API status codes onto domain sentinels.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", domain.ErrUpstreamRateLimit, err)
		case apiErr.HTTPStatusCode == http.StatusRequestTimeout || apiErr.HTTPStatusCode == http.StatusGatewayTimeout:
			return fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrUpstreamTimeout, err)
	}
	return err
}
