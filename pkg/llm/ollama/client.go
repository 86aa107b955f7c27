package ollama

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"scholar/pkg/llm"
	"scholar/pkg/utils"

	jsoniter "github.com/json-iterator/go"
	"github.com/ollama/ollama/api"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// OllamaClient Ollama API client
type OllamaClient struct {
	client   *api.Client
	model    string
	options  map[string]any
	debugger *llm.ExchangeDebugger
}

// NewOllamaClient creates an Ollama client
func NewOllamaClient(model string, baseURL string, options map[string]any) (*OllamaClient, error) {
	var client *api.Client
	var err error

	// Custom Transport to ensure no timeouts are imposed by the client;
	// local models can take minutes on first load
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: 0,
	}

	customClient := &http.Client{
		Transport: transport,
		Timeout:   0,
	}

	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid base URL: %w", err)
		}
		client = api.NewClient(u, customClient)
	} else {
		client, err = api.ClientFromEnvironment()
	}

	if err != nil {
		return nil, err
	}

	slog.Info("Ollama client initialized", "model", model, "base_url", baseURL)

	return &OllamaClient{
		client:   client,
		model:    model,
		options:  options,
		debugger: llm.NewExchangeDebugger("ollama"),
	}, nil
}

func (o *OllamaClient) Provider() string {
	return "ollama"
}

// SetDebug implements the llm.Client interface
func (o *OllamaClient) SetDebug(enabled bool) {
	o.debugger.SetEnabled(enabled)
}

// Complete implements llm.Client.Complete
func (o *OllamaClient) Complete(ctx context.Context, req llm.Request) (*llm.Completion, error) {
	streamVal := false
	chatReq := &api.ChatRequest{
		Model:    o.model,
		Messages: o.convertMessages(req.Messages),
		Tools:    o.convertTools(req.Tools),
		Options:  o.options,
		Stream:   &streamVal,
	}

	var final api.ChatResponse
	var text strings.Builder
	var toolCalls []api.ToolCall

	// With Stream=false the callback fires once with the whole response,
	// but accumulate defensively in case the server chunks anyway.
	err := o.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		text.WriteString(resp.Message.Content)
		toolCalls = append(toolCalls, resp.Message.ToolCalls...)
		if resp.Done {
			final = resp
		}
		return nil
	})
	if err != nil {
		o.debugger.Dump(req, nil, err)
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}

	completion := o.convertResponse(final, text.String(), toolCalls)
	o.debugger.Dump(req, completion, nil)
	return completion, nil
}

// convertTools converts the tool catalog to api.Tool values using a JSON
// round-trip to work around SDK type mismatch issues.
func (o *OllamaClient) convertTools(tools []llm.ToolSpec) []api.Tool {
	if len(tools) == 0 {
		return nil
	}

	raw := make([]map[string]any, 0, len(tools))
	for _, t := range tools {
		raw = append(raw, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.InputSchema,
			},
		})
	}

	rawB, err := json.Marshal(raw)
	if err != nil {
		slog.Error("Failed to marshal tools", "provider", "ollama", "error", err)
		return nil
	}

	var ollamaTools []api.Tool
	if err := json.Unmarshal(rawB, &ollamaTools); err != nil {
		slog.Error("Failed to unmarshal to api.Tool", "provider", "ollama", "error", err)
		return nil
	}
	return ollamaTools
}

// convertMessages converts messages to Ollama API format
func (o *OllamaClient) convertMessages(messages []llm.Message) []api.Message {
	var ollamaMsgs []api.Message

	for _, m := range messages {
		var textContent strings.Builder
		var apiToolCalls []api.ToolCall
		var toolResults []llm.ContentBlock

		for _, block := range m.Content {
			switch block.Type {
			case llm.BlockTypeText:
				textContent.WriteString(block.Text)

			case llm.BlockTypeToolUse:
				// JSON round-trip into api.ToolCallFunctionArguments
				argBytes, err := json.Marshal(block.Input)
				if err != nil {
					slog.Warn("Failed to marshal tool arguments for history", "provider", "ollama", "error", err)
					argBytes = []byte("{}")
				}
				var apiArgs api.ToolCallFunctionArguments
				if err := json.Unmarshal(argBytes, &apiArgs); err != nil {
					slog.Warn("Failed to unmarshal to api.ToolCallFunctionArguments", "provider", "ollama", "error", err)
				}
				apiToolCalls = append(apiToolCalls, api.ToolCall{
					ID: block.ID,
					Function: api.ToolCallFunction{
						Name:      block.Name,
						Arguments: apiArgs,
					},
				})

			case llm.BlockTypeToolResult:
				toolResults = append(toolResults, block)
			}
		}

		// Tool results become dedicated role:"tool" messages
		for _, res := range toolResults {
			ollamaMsgs = append(ollamaMsgs, api.Message{
				Role:       "tool",
				Content:    res.Content,
				ToolCallID: res.ToolUseID,
			})
		}

		if textContent.Len() == 0 && len(apiToolCalls) == 0 {
			continue
		}

		msg := api.Message{
			Role:    m.Role,
			Content: textContent.String(),
		}
		if len(apiToolCalls) > 0 {
			msg.ToolCalls = apiToolCalls
		}
		ollamaMsgs = append(ollamaMsgs, msg)
	}

	return ollamaMsgs
}

func (o *OllamaClient) convertResponse(final api.ChatResponse, text string, toolCalls []api.ToolCall) *llm.Completion {
	completion := &llm.Completion{
		Model:      o.model,
		StopReason: normalizeStopReason(final.DoneReason, len(toolCalls) > 0),
	}

	if text != "" {
		completion.Content = append(completion.Content, llm.NewTextBlock(text))
	}

	for _, tc := range toolCalls {
		argsB, err := json.Marshal(tc.Function.Arguments)
		if err != nil {
			slog.Warn("Failed to marshal tool call arguments", "provider", "ollama", "error", err)
			argsB = []byte("{}")
		}
		var input map[string]any
		if err := json.Unmarshal(argsB, &input); err != nil {
			input = map[string]any{}
		}

		id := tc.ID
		if id == "" {
			// Some local models omit call IDs; mint one so results can be paired
			id = utils.GenerateID()
		}
		completion.Content = append(completion.Content, llm.NewToolUseBlock(id, tc.Function.Name, input))
	}

	completion.Usage = &llm.LLMUsage{
		PromptTokens:     final.PromptEvalCount,
		CompletionTokens: final.EvalCount,
		TotalTokens:      final.PromptEvalCount + final.EvalCount,
		StopReason:       completion.StopReason,
	}

	return completion
}

func normalizeStopReason(reason string, hasToolCalls bool) string {
	if hasToolCalls {
		return llm.StopReasonToolUse
	}
	switch strings.ToLower(reason) {
	case "length":
		return llm.StopReasonLength
	default:
		return llm.StopReasonStop
	}
}

// IsTransientError implements the llm.Client interface
func (o *OllamaClient) IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()

	// 1. Connection related errors (Connection refused, reset)
	if strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "connection reset") {
		return true
	}

	// 2. High load
	if strings.Contains(strings.ToLower(errMsg), "overloaded") {
		return true
	}

	return false
}
