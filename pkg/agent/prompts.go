package agent

import (
	"context"
	"fmt"
	"strings"

	"scholar/pkg/mcp"
)

// ListPrompts renders the aggregated prompt catalog for display
func (e *Engine) ListPrompts() string {
	prompts := e.registry.Prompts()
	if len(prompts) == 0 {
		return "⚠️ No prompts available from connected servers."
	}

	var sb strings.Builder
	sb.WriteString("💬 Available prompts:\n")
	for _, p := range prompts {
		sb.WriteString(fmt.Sprintf("\n- %s", p.Name))
		if p.Description != "" {
			sb.WriteString(": " + p.Description)
		}
		for _, a := range p.Arguments {
			req := ""
			if a.Required {
				req = " (required)"
			}
			sb.WriteString(fmt.Sprintf("\n    %s%s", a.Name, req))
			if a.Description != "" {
				sb.WriteString(" - " + a.Description)
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// ExecutePrompt fetches a named prompt template, fills it with the
// given arguments, and runs the rendered text through the conversation
// loop. An unknown prompt name or a missing required argument never
// reaches the model.
func (e *Engine) ExecutePrompt(ctx context.Context, name string, args map[string]string) (string, error) {
	descriptor, ok := e.registry.Prompt(name)
	if !ok {
		return fmt.Sprintf("❌ Prompt '%s' not found.", name), nil
	}

	var missing []string
	for _, a := range descriptor.Arguments {
		if a.Required {
			if _, ok := args[a.Name]; !ok {
				missing = append(missing, a.Name)
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Sprintf("❌ Prompt '%s' is missing required arguments: %s\nUsage: /prompt %s %s",
			name, strings.Join(missing, ", "), name, usageHint(descriptor)), nil
	}

	session, err := e.registry.RoutePrompt(name)
	if err != nil {
		return fmt.Sprintf("❌ Prompt '%s' not found.", name), nil
	}

	text, err := session.GetPrompt(ctx, name, args)
	if err != nil {
		return "", fmt.Errorf("fetching prompt %q: %w", name, err)
	}
	if text == "" {
		return fmt.Sprintf("⚠️ Prompt '%s' rendered to empty text.", name), nil
	}

	return e.ProcessQuery(ctx, text)
}

func usageHint(p mcp.PromptDescriptor) string {
	parts := make([]string, 0, len(p.Arguments))
	for _, a := range p.Arguments {
		parts = append(parts, a.Name+"=<value>")
	}
	return strings.Join(parts, " ")
}
