package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"scholar/pkg/config"
	"scholar/pkg/llm"
	"scholar/pkg/mcp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//----------------------------------------------------------------
// fakes
//----------------------------------------------------------------

// scriptedClient replays a fixed sequence of completions and records
// every request it receives
type scriptedClient struct {
	completions []*llm.Completion
	err         error
	requests    []llm.Request
}

func (c *scriptedClient) Provider() string { return "scripted" }

func (c *scriptedClient) Complete(_ context.Context, req llm.Request) (*llm.Completion, error) {
	c.requests = append(c.requests, req)
	if c.err != nil {
		return nil, c.err
	}
	idx := len(c.requests) - 1
	if idx >= len(c.completions) {
		idx = len(c.completions) - 1
	}
	return c.completions[idx], nil
}

func (c *scriptedClient) IsTransientError(error) bool { return false }
func (c *scriptedClient) SetDebug(bool)               {}

// toolSession is a minimal mcp.Session that records tool invocations
type toolSession struct {
	name    string
	calls   []string
	outputs map[string]string
	callErr error
	prompt  string
}

func (s *toolSession) Name() string { return s.name }

func (s *toolSession) ListTools(context.Context) ([]mcp.ToolDescriptor, error)       { return nil, nil }
func (s *toolSession) ListPrompts(context.Context) ([]mcp.PromptDescriptor, error)   { return nil, nil }
func (s *toolSession) ListResources(context.Context) ([]mcp.ResourceDescriptor, error) { return nil, nil }

func (s *toolSession) CallTool(_ context.Context, name string, _ map[string]any) (string, error) {
	s.calls = append(s.calls, name)
	if s.callErr != nil {
		return "", s.callErr
	}
	if out, ok := s.outputs[name]; ok {
		return out, nil
	}
	return "ok", nil
}

func (s *toolSession) GetPrompt(_ context.Context, name string, args map[string]string) (string, error) {
	return s.prompt, nil
}

func (s *toolSession) ReadResource(context.Context, string) (string, error) { return "", nil }
func (s *toolSession) Close() error                                         { return nil }

func newTestEngine(client llm.Client, session *toolSession, tools ...string) (*Engine, *mcp.Registry) {
	reg := mcp.NewRegistry()
	if session != nil {
		var descs []mcp.ToolDescriptor
		for _, name := range tools {
			descs = append(descs, mcp.ToolDescriptor{Name: name})
		}
		reg.RegisterTools(session, descs)
	}
	return NewEngine(client, reg, config.DefaultSystemConfig(), "You are a test assistant."), reg
}

//----------------------------------------------------------------
// tests
//----------------------------------------------------------------

func TestEngine_PlainTextAnswer(t *testing.T) {
	client := &scriptedClient{completions: []*llm.Completion{
		{Content: []llm.ContentBlock{llm.NewTextBlock("Hello there.")}, StopReason: llm.StopReasonStop},
	}}
	engine, _ := newTestEngine(client, nil)

	answer, err := engine.ProcessQuery(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello there.", answer)
	require.Len(t, client.requests, 1)

	// System prompt rides along as the first message
	msgs := client.requests[0].Messages
	require.NotEmpty(t, msgs)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "user", msgs[1].Role)
	assert.Equal(t, "hi", msgs[1].GetTextContent())
}

func TestEngine_ToolLoopPairsEveryCall(t *testing.T) {
	session := &toolSession{
		name:    "research",
		outputs: map[string]string{"search_papers": "paper list", "extract_info": "details"},
	}
	client := &scriptedClient{completions: []*llm.Completion{
		{
			Content: []llm.ContentBlock{
				llm.NewTextBlock("Let me look."),
				llm.NewToolUseBlock("call_1", "search_papers", map[string]any{"topic": "ai"}),
				llm.NewToolUseBlock("call_2", "extract_info", map[string]any{"paper_id": "1234"}),
			},
			StopReason: llm.StopReasonToolUse,
		},
		{Content: []llm.ContentBlock{llm.NewTextBlock("Here is the summary.")}, StopReason: llm.StopReasonStop},
	}}
	engine, _ := newTestEngine(client, session, "search_papers", "extract_info")

	answer, err := engine.ProcessQuery(context.Background(), "find ai papers")
	require.NoError(t, err)
	assert.Equal(t, "Let me look.\nHere is the summary.", answer)

	// Tools ran sequentially in call order
	assert.Equal(t, []string{"search_papers", "extract_info"}, session.calls)

	// The second request carries the assistant turn plus one result per call
	require.Len(t, client.requests, 2)
	msgs := client.requests[1].Messages
	require.Len(t, msgs, 4) // system, user, assistant, tool results

	assistant := msgs[2]
	assert.Equal(t, "assistant", assistant.Role)
	require.Len(t, assistant.ToolUses(), 2)

	results := msgs[3]
	assert.Equal(t, "user", results.Role)
	require.Len(t, results.Content, 2)
	assert.Equal(t, llm.BlockTypeToolResult, results.Content[0].Type)
	assert.Equal(t, "call_1", results.Content[0].ToolUseID)
	assert.Equal(t, "paper list", results.Content[0].Content)
	assert.False(t, results.Content[0].IsError)
	assert.Equal(t, "call_2", results.Content[1].ToolUseID)
	assert.Equal(t, "details", results.Content[1].Content)
}

func TestEngine_ToolFailureBecomesErrorResult(t *testing.T) {
	session := &toolSession{name: "research", callErr: errors.New("server crashed")}
	client := &scriptedClient{completions: []*llm.Completion{
		{
			Content: []llm.ContentBlock{
				llm.NewToolUseBlock("call_1", "search_papers", map[string]any{"topic": "ai"}),
			},
			StopReason: llm.StopReasonToolUse,
		},
		{Content: []llm.ContentBlock{llm.NewTextBlock("The search tool is unavailable.")}, StopReason: llm.StopReasonStop},
	}}
	engine, _ := newTestEngine(client, session, "search_papers")

	answer, err := engine.ProcessQuery(context.Background(), "find papers")
	require.NoError(t, err)
	assert.Equal(t, "The search tool is unavailable.", answer)

	results := client.requests[1].Messages[3]
	require.Len(t, results.Content, 1)
	assert.True(t, results.Content[0].IsError)
	assert.Contains(t, results.Content[0].Content, "server crashed")
}

func TestEngine_UnknownToolBecomesErrorResult(t *testing.T) {
	client := &scriptedClient{completions: []*llm.Completion{
		{
			Content: []llm.ContentBlock{
				llm.NewToolUseBlock("call_1", "ghost_tool", nil),
			},
			StopReason: llm.StopReasonToolUse,
		},
		{Content: []llm.ContentBlock{llm.NewTextBlock("done")}, StopReason: llm.StopReasonStop},
	}}
	engine, _ := newTestEngine(client, nil)

	_, err := engine.ProcessQuery(context.Background(), "do something")
	require.NoError(t, err)

	results := client.requests[1].Messages[3]
	require.Len(t, results.Content, 1)
	assert.True(t, results.Content[0].IsError)
	assert.Contains(t, results.Content[0].Content, "ghost_tool")
}

func TestEngine_TurnBudgetFailsClosed(t *testing.T) {
	session := &toolSession{name: "research"}
	// The model keeps asking for tools forever
	client := &scriptedClient{completions: []*llm.Completion{
		{
			Content: []llm.ContentBlock{
				llm.NewTextBlock("still working"),
				llm.NewToolUseBlock("call_x", "search_papers", nil),
			},
			StopReason: llm.StopReasonToolUse,
		},
	}}
	engine, _ := newTestEngine(client, session, "search_papers")

	answer, err := engine.ProcessQuery(context.Background(), "loop forever")
	require.Error(t, err)
	assert.Contains(t, err.Error(), fmt.Sprintf("%d turns", config.DefaultSystemConfig().MaxTurns))
	assert.Len(t, client.requests, config.DefaultSystemConfig().MaxTurns)
	// The partial text still comes back
	assert.Contains(t, answer, "still working")
}

func TestEngine_ModelErrorReturnsPartial(t *testing.T) {
	client := &scriptedClient{err: errors.New("api down")}
	engine, _ := newTestEngine(client, nil)

	_, err := engine.ProcessQuery(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api down")
}

func TestEngine_ExecutePromptNotFoundShortCircuits(t *testing.T) {
	client := &scriptedClient{completions: []*llm.Completion{
		{Content: []llm.ContentBlock{llm.NewTextBlock("never")}, StopReason: llm.StopReasonStop},
	}}
	engine, _ := newTestEngine(client, nil)

	out, err := engine.ExecutePrompt(context.Background(), "missing_prompt", nil)
	require.NoError(t, err)
	assert.Equal(t, "❌ Prompt 'missing_prompt' not found.", out)
	assert.Empty(t, client.requests, "unknown prompt must not reach the model")
}

func TestEngine_ExecutePromptMissingArgShortCircuits(t *testing.T) {
	session := &toolSession{name: "research", prompt: "Summarize {topic}."}
	client := &scriptedClient{completions: []*llm.Completion{
		{Content: []llm.ContentBlock{llm.NewTextBlock("never")}, StopReason: llm.StopReasonStop},
	}}
	engine, reg := newTestEngine(client, session, "search_papers")
	reg.RegisterPrompts(session, []mcp.PromptDescriptor{{
		Name:      "summarize",
		Arguments: []mcp.PromptArgumentDescriptor{{Name: "topic", Required: true}},
	}})

	out, err := engine.ExecutePrompt(context.Background(), "summarize", map[string]string{})
	require.NoError(t, err)
	assert.Contains(t, out, "missing required arguments: topic")
	assert.Empty(t, client.requests)
}

func TestEngine_ExecutePromptRunsRenderedText(t *testing.T) {
	session := &toolSession{name: "research", prompt: "Summarize the latest papers about ai."}
	client := &scriptedClient{completions: []*llm.Completion{
		{Content: []llm.ContentBlock{llm.NewTextBlock("Summary text.")}, StopReason: llm.StopReasonStop},
	}}
	engine, reg := newTestEngine(client, session)
	reg.RegisterPrompts(session, []mcp.PromptDescriptor{{
		Name:      "summarize",
		Arguments: []mcp.PromptArgumentDescriptor{{Name: "topic", Required: true}},
	}})

	out, err := engine.ExecutePrompt(context.Background(), "summarize", map[string]string{"topic": "ai"})
	require.NoError(t, err)
	assert.Equal(t, "Summary text.", out)

	require.Len(t, client.requests, 1)
	msgs := client.requests[0].Messages
	assert.Equal(t, "Summarize the latest papers about ai.", msgs[len(msgs)-1].GetTextContent())
}
