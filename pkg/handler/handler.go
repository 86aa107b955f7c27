package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"scholar/pkg/agent"
	"scholar/pkg/api"
	"scholar/pkg/config"
	"scholar/pkg/mcp"
)

// ChatHandler is the command dispatcher. It inspects each incoming
// message and routes it to the resource resolver, the prompt executor,
// or the conversation engine. It implements api.GatewayHandler.
type ChatHandler struct {
	engine       *agent.Engine
	resolver     *mcp.Resolver
	systemConfig *config.SystemConfig
	responder    api.MessageResponder
}

func NewChatHandler(engine *agent.Engine, resolver *mcp.Resolver, sysCfg *config.SystemConfig) *ChatHandler {
	return &ChatHandler{
		engine:       engine,
		resolver:     resolver,
		systemConfig: sysCfg,
	}
}

// SetResponder implements api.ResponderAware
func (h *ChatHandler) SetResponder(responder api.MessageResponder) {
	h.responder = responder
}

// OnMessage is the primary entry point for incoming user messages.
// Dispatch rules, checked in order:
//
//	@<topic>          read the papers://<topic> resource
//	/prompts          list available prompt templates
//	/prompt <name> …  execute a prompt template with key=value args
//	anything else     run through the conversation engine
func (h *ChatHandler) OnMessage(msg *api.UnifiedMessage) {
	start := time.Now()
	content := strings.TrimSpace(msg.Content)

	slog.Info("Message received",
		"channel", msg.Session.ChannelID, "user", msg.Session.Username, "content", content)

	if content == "" {
		h.reply(msg, "❌ Please enter a valid query.")
		return
	}

	timeout := time.Duration(h.systemConfig.LLMTimeoutMs) * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	switch {
	case strings.HasPrefix(content, "@"):
		topic := strings.TrimPrefix(content, "@")
		if topic == "" {
			h.reply(msg, "❌ Usage: @<topic> (e.g. @folders)")
			return
		}
		h.reply(msg, h.resolver.Resolve(ctx, mcp.PapersScheme+topic))

	case content == "/prompts":
		h.reply(msg, h.engine.ListPrompts())

	case strings.HasPrefix(content, "/prompt "):
		h.handlePrompt(ctx, msg, strings.TrimPrefix(content, "/prompt "))

	case strings.HasPrefix(content, "/"):
		h.reply(msg, fmt.Sprintf("❌ Unknown command: %s\nAvailable: /prompts, /prompt <name> <arg=value ...>", content))

	default:
		h.responder.SendSignal(msg.Session, "thinking")
		answer, err := h.engine.ProcessQuery(ctx, content)
		if err != nil {
			slog.Error("Query processing failed", "error", err)
			if answer != "" {
				h.reply(msg, answer+fmt.Sprintf("\n\n⚠️ %v", err))
			} else {
				h.reply(msg, fmt.Sprintf("❌ Error: %v", err))
			}
			break
		}
		if answer == "" {
			answer = "⚠️ The model returned no text."
		}
		h.reply(msg, answer)
	}

	slog.Info("Message handled", "duration", time.Since(start).String())
}

// handlePrompt parses "/prompt <name> key=value ..." and runs the
// named template through the engine.
func (h *ChatHandler) handlePrompt(ctx context.Context, msg *api.UnifiedMessage, rest string) {
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		h.reply(msg, "❌ Usage: /prompt <name> <arg=value ...>")
		return
	}

	name := fields[0]
	args := make(map[string]string)
	for _, f := range fields[1:] {
		k, v, ok := strings.Cut(f, "=")
		if !ok || k == "" {
			h.reply(msg, fmt.Sprintf("❌ Invalid argument %q, expected key=value.", f))
			return
		}
		args[k] = v
	}

	h.responder.SendSignal(msg.Session, "thinking")
	answer, err := h.engine.ExecutePrompt(ctx, name, args)
	if err != nil {
		slog.Error("Prompt execution failed", "prompt", name, "error", err)
		h.reply(msg, fmt.Sprintf("❌ Error: %v", err))
		return
	}
	h.reply(msg, answer)
}

func (h *ChatHandler) reply(msg *api.UnifiedMessage, content string) {
	if h.responder == nil {
		slog.Warn("No responder attached, dropping reply")
		return
	}
	if err := h.responder.SendReply(msg.Session, content); err != nil {
		slog.Error("Failed to send reply", "channel", msg.Session.ChannelID, "error", err)
	}
}
