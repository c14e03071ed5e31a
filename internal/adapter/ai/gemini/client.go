// Package gemini implements domain.ChatClient with the Google Gen AI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/fairyhunter13/ats-cv-scorer/internal/domain"
)

// Provider is the provider label used in logs and metrics.
const Provider = "gemini"

// Client implements domain.ChatClient.
type Client struct {
	api   *genai.Client
	model string
}

// Option customizes the underlying SDK configuration.
type Option func(*genai.ClientConfig)

// WithBaseURL points the SDK at another endpoint.
func WithBaseURL(u string) Option {
	return func(c *genai.ClientConfig) { c.HTTPOptions.BaseURL = u }
}

// WithHTTPClient sets the HTTP client used by the SDK.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *genai.ClientConfig) { c.HTTPClient = hc }
}

// New builds a Gemini API client.
func New(ctx context.Context, apiKey, model string, opts ...Option) (*Client, error) {
	cfg := &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}
	for _, o := range opts {
		o(cfg)
	}
	api, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("op=gemini.new: %w", err)
	}
	return &Client{api: api, model: model}, nil
}

// Provider implements domain.ChatClient.
func (c *Client) Provider() string { return Provider }

// ChatJSON asks for an application/json answer with the system prompt as
// system instruction.
func (c *Client) ChatJSON(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	temp := req.Temperature
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		Temperature:       &temp,
		MaxOutputTokens:   int32(req.MaxTokens),
		ResponseMIMEType:  "application/json",
	}
	resp, err := c.api.Models.GenerateContent(ctx, model, genai.Text(req.User), cfg)
	if err != nil {
		return domain.ChatResponse{}, fmt.Errorf("op=gemini.chat: %w", classify(err))
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return domain.ChatResponse{}, fmt.Errorf("op=gemini.chat: %w: no candidates", domain.ErrSchemaInvalid)
	}

	out := domain.ChatResponse{Content: resp.Text(), Model: resp.ModelVersion}
	if u := resp.UsageMetadata; u != nil {
		out.PromptTokens = int(u.PromptTokenCount)
		out.CompletionTokens = int(u.CandidatesTokenCount)
		out.TotalTokens = int(u.TotalTokenCount)
	}
	if out.Model == "" {
		out.Model = model
	}
	return out, nil
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrUpstreamTimeout, err)
	}
	return err
}
