package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"scholar/pkg/config"
	"scholar/pkg/llm"
	"scholar/pkg/mcp"
)

//----------------------------------------------------------------
// Engine
//----------------------------------------------------------------

// Engine drives the model/tool conversation loop. Each query runs in
// its own fresh history; tool calls are executed sequentially and
// every tool_use gets exactly one matching tool_result before the
// next model call.
type Engine struct {
	client       llm.Client
	registry     *mcp.Registry
	system       *config.SystemConfig
	systemPrompt string
}

func NewEngine(client llm.Client, registry *mcp.Registry, system *config.SystemConfig, systemPrompt string) *Engine {
	return &Engine{
		client:       client,
		registry:     registry,
		system:       system,
		systemPrompt: systemPrompt,
	}
}

// ProcessQuery answers one user query, running tools as the model
// requests them. The accumulated assistant text is returned even when
// the turn budget runs out, alongside the error.
func (e *Engine) ProcessQuery(ctx context.Context, query string) (string, error) {
	var messages []llm.Message
	if e.systemPrompt != "" {
		messages = append(messages, llm.NewSystemMessage(e.systemPrompt))
	}
	messages = append(messages, llm.NewUserMessage(query))

	var tools []llm.ToolSpec
	if e.system.EnableTools {
		tools = e.registry.ToolSpecs()
	}

	var final strings.Builder

	for turn := 0; turn < e.system.MaxTurns; turn++ {
		completion, err := e.complete(ctx, llm.Request{
			Messages:  messages,
			Tools:     tools,
			MaxTokens: e.system.MaxTokens,
		})
		if err != nil {
			return final.String(), fmt.Errorf("model call failed: %w", err)
		}

		toolUses := collectToolUses(completion.Content)

		for _, block := range completion.Content {
			if block.Type == llm.BlockTypeText && block.Text != "" {
				if final.Len() > 0 {
					final.WriteString("\n")
				}
				final.WriteString(block.Text)
			}
		}

		if len(toolUses) == 0 {
			return final.String(), nil
		}

		// Assistant turn as produced, tool_use blocks included
		assistant := llm.Message{Role: "assistant", Content: completion.Content}
		messages = append(messages, assistant)

		// One result per call, in call order
		results := llm.Message{Role: "user"}
		for _, use := range toolUses {
			results.Content = append(results.Content, e.executeToolUse(ctx, use))
		}
		messages = append(messages, results)
	}

	return final.String(), fmt.Errorf("conversation exceeded %d turns without completing", e.system.MaxTurns)
}

// executeToolUse routes and runs a single tool call. Failures become
// error-flagged results for the model rather than aborting the query.
func (e *Engine) executeToolUse(ctx context.Context, use llm.ContentBlock) llm.ContentBlock {
	slog.Info("🤖 Calling tool", "tool", use.Name, "id", use.ID)

	session, err := e.registry.RouteTool(use.Name)
	if err != nil {
		slog.Warn("Tool routing failed", "tool", use.Name, "error", err)
		return llm.NewToolResultBlock(use.ID, use.Name, err.Error(), true)
	}

	output, err := session.CallTool(ctx, use.Name, use.Input)
	if err != nil {
		slog.Warn("Tool execution failed", "tool", use.Name, "server", session.Name(), "error", err)
		return llm.NewToolResultBlock(use.ID, use.Name, err.Error(), true)
	}

	return llm.NewToolResultBlock(use.ID, use.Name, output, false)
}

// complete calls the model with retry on transient errors. The
// FallbackClient does its own retrying internally, so this wrapper
// only kicks in for single-provider setups.
func (e *Engine) complete(ctx context.Context, req llm.Request) (*llm.Completion, error) {
	var lastErr error

	attempts := e.system.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		completion, err := e.client.Complete(ctx, req)
		if err == nil {
			return completion, nil
		}
		lastErr = err

		if !e.client.IsTransientError(err) {
			break
		}

		slog.Warn("Transient model error, retrying",
			"provider", e.client.Provider(), "attempt", attempt+1, "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(e.system.RetryDelayMs) * time.Millisecond):
		}
	}

	return nil, lastErr
}

func collectToolUses(blocks []llm.ContentBlock) []llm.ContentBlock {
	var uses []llm.ContentBlock
	for _, b := range blocks {
		if b.Type == llm.BlockTypeToolUse {
			uses = append(uses, b)
		}
	}
	return uses
}
