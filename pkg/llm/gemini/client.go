package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"scholar/pkg/llm"
	"scholar/pkg/utils"

	jsoniter "github.com/json-iterator/go"
	"google.golang.org/genai"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// GeminiClient Google Gemini API client
type GeminiClient struct {
	client   *genai.Client
	model    string
	debugger *llm.ExchangeDebugger
}

// NewGeminiClient creates a Gemini client with a single model and API key
func NewGeminiClient(apiKey string, model string) (*GeminiClient, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client:   client,
		model:    model,
		debugger: llm.NewExchangeDebugger("gemini"),
	}, nil
}

func (g *GeminiClient) Provider() string {
	return "gemini"
}

// SetDebug implements the llm.Client interface
func (g *GeminiClient) SetDebug(enabled bool) {
	g.debugger.SetEnabled(enabled)
}

// Complete implements llm.Client.Complete
func (g *GeminiClient) Complete(ctx context.Context, req llm.Request) (*llm.Completion, error) {
	contents, systemInstruction := g.convertMessages(req.Messages)

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: systemInstruction,
		Tools:             g.convertTools(req.Tools),
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		g.debugger.Dump(req, nil, err)
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	completion := g.convertResponse(resp)
	g.debugger.Dump(req, completion, nil)
	return completion, nil
}

// convertTools converts the tool catalog to GenAI function declarations.
// The JSON schema round-trip works around the genai.Schema type mismatch.
func (g *GeminiClient) convertTools(tools []llm.ToolSpec) []*genai.Tool {
	var fds []*genai.FunctionDeclaration
	for _, t := range tools {
		fd := &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
		}
		if t.InputSchema != nil {
			schemaB, _ := json.Marshal(t.InputSchema)
			var schema genai.Schema
			if err := json.Unmarshal(schemaB, &schema); err != nil {
				slog.Warn("Failed to convert tool schema", "provider", "gemini", "tool", t.Name, "error", err)
			} else {
				fd.Parameters = &schema
			}
		}
		fds = append(fds, fd)
	}

	if len(fds) == 0 {
		return nil
	}
	return []*genai.Tool{{FunctionDeclarations: fds}}
}

// convertMessages converts the message list to GenAI format
func (g *GeminiClient) convertMessages(messages []llm.Message) ([]*genai.Content, *genai.Content) {
	var genaiContents []*genai.Content
	var systemInstruction *genai.Content

	for _, msg := range messages {
		if msg.Role == "system" {
			// System role as SystemInstruction
			var parts []*genai.Part
			for _, block := range msg.Content {
				if block.Type == llm.BlockTypeText && block.Text != "" {
					parts = append(parts, &genai.Part{Text: block.Text})
				}
			}
			if len(parts) > 0 {
				systemInstruction = &genai.Content{Parts: parts}
			}
			continue
		}

		role := "user"
		if msg.Role == "assistant" {
			role = "model"
		}

		var parts []*genai.Part
		for _, block := range msg.Content {
			switch block.Type {
			case llm.BlockTypeText:
				if block.Text == "" {
					continue
				}
				parts = append(parts, &genai.Part{Text: block.Text})

			case llm.BlockTypeToolUse:
				parts = append(parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						ID:   block.ID,
						Name: block.Name,
						Args: block.Input,
					},
				})

			case llm.BlockTypeToolResult:
				parts = append(parts, &genai.Part{
					FunctionResponse: &genai.FunctionResponse{
						ID:       block.ToolUseID,
						Name:     block.Name,
						Response: map[string]any{"result": block.Content},
					},
				})
			}
		}

		if len(parts) > 0 {
			genaiContents = append(genaiContents, &genai.Content{
				Role:  role,
				Parts: parts,
			})
		}
	}

	return genaiContents, systemInstruction
}

func (g *GeminiClient) convertResponse(resp *genai.GenerateContentResponse) *llm.Completion {
	completion := &llm.Completion{
		Model:      g.model,
		StopReason: llm.StopReasonStop,
	}

	if resp.UsageMetadata != nil {
		u := resp.UsageMetadata
		completion.Usage = &llm.LLMUsage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
			CachedTokens:     int(u.CachedContentTokenCount),
		}
	}

	for _, candidate := range resp.Candidates {
		if candidate.FinishReason != "" {
			completion.StopReason = normalizeStopReason(candidate.FinishReason)
			if completion.Usage != nil {
				completion.Usage.StopReason = completion.StopReason
			}
		}

		if candidate.Content == nil {
			continue
		}

		for _, part := range candidate.Content.Parts {
			if part.Text != "" && !part.Thought {
				completion.Content = append(completion.Content, llm.NewTextBlock(part.Text))
			}

			if part.FunctionCall != nil {
				id := part.FunctionCall.ID
				if id == "" {
					// Gemini omits call IDs; mint one so results can be paired
					id = utils.GenerateID()
				}
				completion.Content = append(completion.Content, llm.NewToolUseBlock(id, part.FunctionCall.Name, part.FunctionCall.Args))
			}
		}
	}

	return completion
}

// normalizeStopReason maps Gemini finish reasons to the common set.
func normalizeStopReason(reason genai.FinishReason) string {
	switch reason {
	case genai.FinishReasonStop:
		return llm.StopReasonStop
	case genai.FinishReasonMaxTokens:
		return llm.StopReasonLength
	default:
		return strings.ToLower(string(reason))
	}
}

// IsTransientError implements the llm.Client interface
func (g *GeminiClient) IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()

	// 1. Google API common 503 Service Unavailable / Overloaded
	if strings.Contains(errMsg, "503") || strings.Contains(strings.ToLower(errMsg), "overloaded") {
		return true
	}

	// 2. 429 Too Many Requests (Rate Limit)
	if strings.Contains(errMsg, "429") || strings.Contains(strings.ToLower(errMsg), "resource exhausted") {
		return true
	}

	// 3. 500 Internal Error (Occasional Google Gemini crashes)
	if strings.Contains(errMsg, "500") || strings.Contains(strings.ToLower(errMsg), "internal error") {
		return true
	}

	return false
}
