package openailm

import (
	"context"
	"fmt"
	"strings"

	"scholar/pkg/llm"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client is a wrapper around the official OpenAI Go SDK (Responses API)
type Client struct {
	client   *openai.Client
	provider string
	model    string
	options  map[string]any
	debugger *llm.ExchangeDebugger
}

// NewClient creates a new OpenAI client
func NewClient(provider string, apiKey string, model string, baseURL string, options map[string]any) (*Client, error) {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}

	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(opts...)

	return &Client{
		client:   &client,
		provider: provider,
		model:    model,
		options:  options,
		debugger: llm.NewExchangeDebugger(provider),
	}, nil
}

func (c *Client) Provider() string {
	return c.provider
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
		strings.Contains(msg, "500 internal") ||
		strings.Contains(msg, "502 bad gateway") ||
		strings.Contains(msg, "503 service unavailable") ||
		strings.Contains(msg, "overloaded") {
		return true
	}

	// Everything else (400 Bad Request, 401 Unauthorized, etc.) is non-transient
	return false
}

// Complete implements llm.Client.Complete
func (c *Client) Complete(ctx context.Context, req llm.Request) (*llm.Completion, error) {
	params := responses.ResponseNewParams{
		Model: c.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: c.convertMessages(req.Messages),
		},
	}

	if req.MaxTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(req.MaxTokens))
	}

	opts := []option.RequestOption{}

	// Handle unified "temperature" option (optional)
	if t, ok := c.options["temperature"].(float64); ok {
		opts = append(opts, option.WithJSONSet("temperature", t))
	}

	// Handle unified "top_p" option (optional)
	if p, ok := c.options["top_p"].(float64); ok {
		opts = append(opts, option.WithJSONSet("top_p", p))
	}

	if tools := c.convertTools(req.Tools); len(tools) > 0 {
		params.Tools = tools
	}

	resp, err := c.client.Responses.New(ctx, params, opts...)
	if err != nil {
		c.debugger.Dump(req, nil, err)
		return nil, fmt.Errorf("openai request failed: %w", err)
	}

	completion := c.convertResponse(resp)
	c.debugger.Dump(req, completion, nil)
	return completion, nil
}

func (c *Client) convertMessages(messages []llm.Message) []responses.ResponseInputItemUnionParam {
	items := make([]responses.ResponseInputItemUnionParam, 0, len(messages))

	for _, m := range messages {
		switch m.Role {
		case "system":
			items = append(items, responses.ResponseInputItemParamOfMessage(
				m.GetTextContent(),
				responses.EasyInputMessageRoleSystem,
			))
		case "user":
			for _, block := range m.Content {
				switch block.Type {
				case llm.BlockTypeText:
					if block.Text != "" {
						items = append(items, responses.ResponseInputItemParamOfMessage(
							block.Text,
							responses.EasyInputMessageRoleUser,
						))
					}
				case llm.BlockTypeToolResult:
					items = append(items, responses.ResponseInputItemParamOfFunctionCallOutput(
						block.ToolUseID,
						block.Content,
					))
				case llm.BlockTypeToolUse:
					// The model, not the user, issues tool_use blocks
				}
			}
		case "assistant":
			for _, block := range m.Content {
				switch block.Type {
				case llm.BlockTypeText:
					if block.Text != "" {
						items = append(items, responses.ResponseInputItemParamOfMessage(
							block.Text,
							responses.EasyInputMessageRoleAssistant,
						))
					}
				case llm.BlockTypeToolUse:
					argsB, err := json.Marshal(block.Input)
					if err != nil {
						argsB = []byte("{}")
					}
					items = append(items, responses.ResponseInputItemParamOfFunctionCall(
						string(argsB),
						block.ID,
						block.Name,
					))
				case llm.BlockTypeToolResult:
					// tool_result belongs to user messages
				}
			}
		}
	}

	return items
}

func (c *Client) convertTools(tools []llm.ToolSpec) []responses.ToolUnionParam {
	var result []responses.ToolUnionParam
	for _, t := range tools {
		result = append(result, responses.ToolUnionParam{
			OfFunction: &responses.FunctionToolParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  t.InputSchema,
			},
		})
	}
	return result
}

func (c *Client) convertResponse(resp *responses.Response) *llm.Completion {
	var content []llm.ContentBlock
	sawToolCall := false

	for _, item := range resp.Output {
		switch v := item.AsAny().(type) {
		case responses.ResponseOutputMessage:
			var text strings.Builder
			for _, part := range v.Content {
				if t, ok := part.AsAny().(responses.ResponseOutputText); ok {
					text.WriteString(t.Text)
				}
			}
			if text.Len() > 0 {
				content = append(content, llm.NewTextBlock(text.String()))
			}
		case responses.ResponseFunctionToolCall:
			sawToolCall = true
			var input map[string]any
			if err := json.Unmarshal([]byte(v.Arguments), &input); err != nil {
				input = map[string]any{}
			}
			id := v.CallID
			if id == "" {
				id = v.ID
			}
			content = append(content, llm.NewToolUseBlock(id, v.Name, input))
		}
	}

	stopReason := llm.StopReasonStop
	if sawToolCall {
		stopReason = llm.StopReasonToolUse
	}
	if resp.Status == responses.ResponseStatusIncomplete {
		stopReason = llm.StopReasonLength
	}

	return &llm.Completion{
		Content:    content,
		Model:      string(resp.Model),
		StopReason: stopReason,
		Usage: &llm.LLMUsage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
			StopReason:       stopReason,
		},
	}
}
