package anthropic

import (
	"context"
	"fmt"
	"strings"

	"scholar/pkg/llm"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client is a wrapper around the official Anthropic Go SDK
type Client struct {
	client   *anthropic.Client
	model    string
	options  map[string]any
	debugger *llm.ExchangeDebugger
}

// NewClient creates a new Anthropic client
func NewClient(apiKey string, model string, baseURL string, options map[string]any) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}

	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	client := anthropic.NewClient(opts...)

	return &Client{
		client:   &client,
		model:    model,
		options:  options,
		debugger: llm.NewExchangeDebugger("anthropic"),
	}
}

func (c *Client) Provider() string {
	return "anthropic"
}

func (c *Client) SetDebug(enabled bool) {
	c.debugger.SetEnabled(enabled)
}

func (c *Client) IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())

	// Transient: network-level issues
	if strings.Contains(msg, "context deadline exceeded") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "timeout") {
		return true
	}

	// Transient: server-side temporary failures
	if strings.Contains(msg, "429") ||
		strings.Contains(msg, "500") ||
		strings.Contains(msg, "529") ||
		strings.Contains(msg, "503") ||
		strings.Contains(msg, "overloaded") {
		return true
	}

	// Everything else (400 Bad Request, 401 Unauthorized, etc.) is non-transient
	return false
}

// Complete implements llm.Client.Complete
func (c *Client) Complete(ctx context.Context, req llm.Request) (*llm.Completion, error) {
	messages, system := c.convertMessages(req.Messages)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(req.MaxTokens),
		Messages:  messages,
	}

	if len(system) > 0 {
		params.System = system
	}

	if tools := c.convertTools(req.Tools); len(tools) > 0 {
		params.Tools = tools
	}

	if t, ok := c.options["temperature"].(float64); ok {
		params.Temperature = anthropic.Float(t)
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		c.debugger.Dump(req, nil, err)
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}

	completion := c.convertResponse(msg)
	c.debugger.Dump(req, completion, nil)
	return completion, nil
}

// convertMessages maps the neutral history onto Anthropic message params.
// System messages become top-level system blocks; tool_result blocks ride
// in user messages exactly as the neutral model stores them.
func (c *Client) convertMessages(messages []llm.Message) ([]anthropic.MessageParam, []anthropic.TextBlockParam) {
	var system []anthropic.TextBlockParam
	result := make([]anthropic.MessageParam, 0, len(messages))

	for _, msg := range messages {
		if msg.Role == "system" {
			if text := msg.GetTextContent(); text != "" {
				system = append(system, anthropic.TextBlockParam{Text: text})
			}
			continue
		}

		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Content))
		for _, block := range msg.Content {
			switch block.Type {
			case llm.BlockTypeText:
				if block.Text != "" {
					blocks = append(blocks, anthropic.NewTextBlock(block.Text))
				}
			case llm.BlockTypeToolUse:
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    block.ID,
						Name:  block.Name,
						Input: block.Input,
					},
				})
			case llm.BlockTypeToolResult:
				blocks = append(blocks, anthropic.NewToolResultBlock(block.ToolUseID, block.Content, block.IsError))
			}
		}

		if len(blocks) == 0 {
			continue
		}

		if msg.Role == "assistant" {
			result = append(result, anthropic.NewAssistantMessage(blocks...))
		} else {
			result = append(result, anthropic.NewUserMessage(blocks...))
		}
	}

	return result, system
}

func (c *Client) convertTools(tools []llm.ToolSpec) []anthropic.ToolUnionParam {
	result := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		result = append(result, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        tool.Name,
				Description: anthropic.String(tool.Description),
				InputSchema: buildSchema(tool.InputSchema),
			},
		})
	}
	return result
}

func buildSchema(schema map[string]any) anthropic.ToolInputSchemaParam {
	return anthropic.ToolInputSchemaParam{
		Type:       "object",
		Properties: schema["properties"],
		Required:   extractRequiredFields(schema),
	}
}

func extractRequiredFields(schema map[string]any) []string {
	switch req := schema["required"].(type) {
	case []string:
		return req
	case []any:
		result := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				result = append(result, s)
			}
		}
		return result
	}
	return nil
}

func (c *Client) convertResponse(msg *anthropic.Message) *llm.Completion {
	var content []llm.ContentBlock

	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			content = append(content, llm.NewTextBlock(b.Text))
		case anthropic.ToolUseBlock:
			var input map[string]any
			if err := json.Unmarshal([]byte(b.Input), &input); err != nil {
				input = map[string]any{}
			}
			content = append(content, llm.NewToolUseBlock(b.ID, b.Name, input))
		}
	}

	return &llm.Completion{
		Content:    content,
		Model:      string(msg.Model),
		StopReason: normalizeStopReason(msg.StopReason),
		Usage: &llm.LLMUsage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
			CachedTokens:     int(msg.Usage.CacheReadInputTokens),
			StopReason:       normalizeStopReason(msg.StopReason),
		},
	}
}

// normalizeStopReason converts Anthropic-specific stop reasons to the
// standardized lowercase format.
func normalizeStopReason(reason anthropic.StopReason) string {
	switch reason {
	case anthropic.StopReasonEndTurn, anthropic.StopReasonStopSequence:
		return llm.StopReasonStop
	case anthropic.StopReasonToolUse:
		return llm.StopReasonToolUse
	case anthropic.StopReasonMaxTokens:
		return llm.StopReasonLength
	default:
		return string(reason)
	}
}
