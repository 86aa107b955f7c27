package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// json handles JSON inside package llm, unified on json-iterator
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ToolSpec advertises one callable tool to the model. InputSchema is a
// JSON-schema object ({"type":"object","properties":...,"required":...})
// passed through to the provider untouched.
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// Request is one complete, non-streaming model invocation.
type Request struct {
	Messages  []Message  `json:"messages"`
	Tools     []ToolSpec `json:"tools,omitempty"`
	MaxTokens int        `json:"max_tokens,omitempty"`
}

// Completion is the model's full response to a Request. Content holds
// text and tool_use blocks in the order the model produced them.
type Completion struct {
	Content    []ContentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Model      string         `json:"model,omitempty"`
	Usage      *LLMUsage      `json:"usage,omitempty"`
}

// LLMUsage defines the common usage statistics structure
type LLMUsage struct {
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	CachedTokens     int    `json:"cached_tokens,omitempty"`
	StopReason       string `json:"stop_reason,omitempty"`
}

// Client is the common LLM client interface. Complete performs one full
// request/response round; there is no partial delivery.
type Client interface {
	// Provider returns the provider name ("anthropic", "openai", ...).
	Provider() string

	// Complete sends the conversation and tool catalog to the model and
	// returns the full response.
	Complete(ctx context.Context, req Request) (*Completion, error)

	// IsTransientError reports whether the error is temporary (503, rate
	// limit) and the call is worth repeating.
	IsTransientError(err error) bool

	// SetDebug toggles raw exchange dumping for this client.
	SetDebug(enabled bool)
}

// FallbackClient tries multiple clients in priority order.
type FallbackClient struct {
	Clients    []Client
	MaxRetries int
	RetryDelay time.Duration
}

func (f *FallbackClient) Provider() string {
	return "fallback"
}

func (f *FallbackClient) SetDebug(enabled bool) {
	for _, c := range f.Clients {
		c.SetDebug(enabled)
	}
}

// Complete walks the client list, retrying each client on transient
// errors before moving on to the next one.
func (f *FallbackClient) Complete(ctx context.Context, req Request) (*Completion, error) {
	var lastErr error
	for i, client := range f.Clients {
		if i > 0 {
			slog.Warn("Previous provider failed, trying fallback", "provider", client.Provider(), "rank", i+1)
		}

		maxRetries := f.MaxRetries
		if maxRetries <= 0 {
			maxRetries = 1
		}

		for retry := 1; retry <= maxRetries; retry++ {
			if retry > 1 {
				slog.Info("Retrying provider", "provider", client.Provider(), "attempt", fmt.Sprintf("%d/%d", retry, maxRetries))
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(time.Duration(retry-1) * f.RetryDelay):
				}
			}

			completion, err := client.Complete(ctx, req)
			if err == nil {
				return completion, nil
			}

			lastErr = err

			if client.IsTransientError(err) && retry < maxRetries {
				slog.Warn("Provider failed with transient error, retrying", "provider", client.Provider(), "error", err)
				continue
			}

			slog.Error("Provider failed", "provider", client.Provider(), "error", err)
			break
		}
	}
	return nil, fmt.Errorf("all fallback providers failed. Last error: %v", lastErr)
}

// IsTransientError implements the Client interface.
// A FallbackClient error means every child already failed, so it is
// treated as final.
func (f *FallbackClient) IsTransientError(err error) bool {
	return false
}
