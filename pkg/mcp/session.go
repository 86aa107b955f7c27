package mcp

import (
	"context"
	"fmt"
	"strings"

	mcpclient "github.com/mark3labs/mcp-go/client"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

//----------------------------------------------------------------
// Catalog descriptors
//----------------------------------------------------------------

// ToolDescriptor describes a tool exposed by a connected server
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// PromptArgumentDescriptor describes one declared prompt argument
type PromptArgumentDescriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// PromptDescriptor describes a prompt template exposed by a server
type PromptDescriptor struct {
	Name        string                     `json:"name"`
	Description string                     `json:"description"`
	Arguments   []PromptArgumentDescriptor `json:"arguments"`
}

// ResourceDescriptor describes a resource exposed by a server
type ResourceDescriptor struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MIMEType    string `json:"mime_type"`
}

//----------------------------------------------------------------
// Session
//----------------------------------------------------------------

// Session is one live connection to an MCP server. All calls are
// blocking and honor the passed context.
type Session interface {
	Name() string
	ListTools(ctx context.Context) ([]ToolDescriptor, error)
	ListPrompts(ctx context.Context) ([]PromptDescriptor, error)
	ListResources(ctx context.Context) ([]ResourceDescriptor, error)
	CallTool(ctx context.Context, name string, args map[string]any) (string, error)
	GetPrompt(ctx context.Context, name string, args map[string]string) (string, error)
	ReadResource(ctx context.Context, uri string) (string, error)
	Close() error
}

// stdioSession wraps an mcp-go stdio client as a Session
type stdioSession struct {
	name   string
	client *mcpclient.Client
}

// NewStdioSession spawns the server process and completes the MCP
// initialize handshake before returning.
func NewStdioSession(ctx context.Context, name string, command string, env []string, args ...string) (Session, error) {
	cli, err := mcpclient.NewStdioMCPClient(command, env, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to spawn server %q: %w", name, err)
	}

	initReq := mcpgo.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcpgo.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcpgo.Implementation{
		Name:    "scholar",
		Version: "0.1.0",
	}

	if _, err := cli.Initialize(ctx, initReq); err != nil {
		cli.Close()
		return nil, fmt.Errorf("initialize handshake with %q failed: %w", name, err)
	}

	return &stdioSession{name: name, client: cli}, nil
}

func (s *stdioSession) Name() string {
	return s.name
}

func (s *stdioSession) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
	result, err := s.client.ListTools(ctx, mcpgo.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("list tools on %q: %w", s.name, err)
	}

	tools := make([]ToolDescriptor, 0, len(result.Tools))
	for _, t := range result.Tools {
		tools = append(tools, ToolDescriptor{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: map[string]any{
				"type":       t.InputSchema.Type,
				"properties": t.InputSchema.Properties,
				"required":   t.InputSchema.Required,
			},
		})
	}
	return tools, nil
}

func (s *stdioSession) ListPrompts(ctx context.Context) ([]PromptDescriptor, error) {
	result, err := s.client.ListPrompts(ctx, mcpgo.ListPromptsRequest{})
	if err != nil {
		return nil, fmt.Errorf("list prompts on %q: %w", s.name, err)
	}

	prompts := make([]PromptDescriptor, 0, len(result.Prompts))
	for _, p := range result.Prompts {
		pd := PromptDescriptor{
			Name:        p.Name,
			Description: p.Description,
		}
		for _, a := range p.Arguments {
			pd.Arguments = append(pd.Arguments, PromptArgumentDescriptor{
				Name:        a.Name,
				Description: a.Description,
				Required:    a.Required,
			})
		}
		prompts = append(prompts, pd)
	}
	return prompts, nil
}

func (s *stdioSession) ListResources(ctx context.Context) ([]ResourceDescriptor, error) {
	result, err := s.client.ListResources(ctx, mcpgo.ListResourcesRequest{})
	if err != nil {
		return nil, fmt.Errorf("list resources on %q: %w", s.name, err)
	}

	resources := make([]ResourceDescriptor, 0, len(result.Resources))
	for _, r := range result.Resources {
		resources = append(resources, ResourceDescriptor{
			URI:         r.URI,
			Name:        r.Name,
			Description: r.Description,
			MIMEType:    r.MIMEType,
		})
	}
	return resources, nil
}

// CallTool invokes a tool and flattens the result to text. A result
// flagged IsError comes back as a Go error so callers can treat tool
// failures uniformly with transport failures.
func (s *stdioSession) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	req := mcpgo.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := s.client.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("tool %q on %q: %w", name, s.name, err)
	}

	text := flattenContent(result.Content)
	if result.IsError {
		return "", fmt.Errorf("tool %q on %q reported an error: %s", name, s.name, text)
	}
	return text, nil
}

func (s *stdioSession) GetPrompt(ctx context.Context, name string, args map[string]string) (string, error) {
	req := mcpgo.GetPromptRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := s.client.GetPrompt(ctx, req)
	if err != nil {
		return "", fmt.Errorf("prompt %q on %q: %w", name, s.name, err)
	}

	var sb strings.Builder
	for _, m := range result.Messages {
		if tc, ok := m.Content.(mcpgo.TextContent); ok {
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(tc.Text)
		}
	}
	return sb.String(), nil
}

func (s *stdioSession) ReadResource(ctx context.Context, uri string) (string, error) {
	req := mcpgo.ReadResourceRequest{}
	req.Params.URI = uri

	result, err := s.client.ReadResource(ctx, req)
	if err != nil {
		return "", fmt.Errorf("resource %q on %q: %w", uri, s.name, err)
	}

	var sb strings.Builder
	for _, c := range result.Contents {
		if tc, ok := c.(mcpgo.TextResourceContents); ok {
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(tc.Text)
		}
	}
	return sb.String(), nil
}

func (s *stdioSession) Close() error {
	return s.client.Close()
}

// flattenContent joins the text parts of a tool result. Non-text
// content (images, embedded resources) is skipped.
func flattenContent(content []mcpgo.Content) string {
	var sb strings.Builder
	for _, item := range content {
		if tc, ok := item.(mcpgo.TextContent); ok {
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}
