// Package tokencount estimates token usage with tiktoken-go when a chat
// provider does not report counts.
package tokencount

import (
	"log/slog"
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Usage is an estimated token count for one chat call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Counter caches encodings per normalized model name.
type Counter struct {
	mu            sync.RWMutex
	encodingCache map[string]*tiktoken.Tiktoken
}

// NewCounter creates a new token counter instance.
func NewCounter() *Counter {
	return &Counter{encodingCache: make(map[string]*tiktoken.Tiktoken)}
}

// DefaultCounter is shared by the chat adapters.
var DefaultCounter = NewCounter()

func (c *Counter) encodingFor(model string) (*tiktoken.Tiktoken, error) {
	name := normalizeModelName(model)

	c.mu.RLock()
	enc, ok := c.encodingCache[name]
	c.mu.RUnlock()
	if ok {
		return enc, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.encodingCache[name]; ok {
		return enc, nil
	}
	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		slog.Debug("falling back to cl100k_base encoding", slog.String("model", model), slog.Any("error", err))
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}
	c.encodingCache[name] = enc
	return enc, nil
}

// normalizeModelName maps provider model ids onto a tiktoken model family.
// Non OpenAI models are approximated with the GPT-4 encoding.
func normalizeModelName(model string) string {
	model = strings.ToLower(strings.TrimSpace(model))
	if i := strings.LastIndex(model, "/"); i >= 0 {
		model = model[i+1:]
	}
	switch {
	case strings.HasPrefix(model, "gpt-4o"), strings.HasPrefix(model, "o1"), strings.HasPrefix(model, "o3"):
		return "gpt-4o"
	case strings.Contains(model, "gpt-3.5"):
		return "gpt-3.5-turbo"
	default:
		return "gpt-4"
	}
}

// CountTokens counts the tokens of text for model.
func (c *Counter) CountTokens(text, model string) (int, error) {
	enc, err := c.encodingFor(model)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

// Estimate returns prompt and completion counts for a system+user chat.
// The chat framing overhead follows the OpenAI cookbook: 3 tokens per
// message plus 1 for the role, and 3 to prime the reply. When no encoding
// is available it falls back to ~4 characters per token.
func (c *Counter) Estimate(system, user, completion, model string) Usage {
	enc, err := c.encodingFor(model)
	if err != nil {
		slog.Warn("token encoding unavailable, using character estimate", slog.String("model", model), slog.Any("error", err))
		p := (len(system) + len(user)) / 4
		cpl := len(completion) / 4
		return Usage{PromptTokens: p, CompletionTokens: cpl, TotalTokens: p + cpl}
	}
	count := func(s string) int { return len(enc.Encode(s, nil, nil)) }
	prompt := 3 + count("system") + count(system) + 1 +
		3 + count("user") + count(user) + 1 +
		3
	cpl := count(completion)
	return Usage{PromptTokens: prompt, CompletionTokens: cpl, TotalTokens: prompt + cpl}
}
