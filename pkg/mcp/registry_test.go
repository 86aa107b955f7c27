package mcp

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSession is an in-memory Session for registry and resolver tests
type fakeSession struct {
	name      string
	tools     []ToolDescriptor
	prompts   []PromptDescriptor
	resources map[string]string
	readErr   error
	toolCalls []string
	closed    bool
}

func (s *fakeSession) Name() string { return s.name }

func (s *fakeSession) ListTools(context.Context) ([]ToolDescriptor, error) {
	return s.tools, nil
}

func (s *fakeSession) ListPrompts(context.Context) ([]PromptDescriptor, error) {
	return s.prompts, nil
}

func (s *fakeSession) ListResources(context.Context) ([]ResourceDescriptor, error) {
	var out []ResourceDescriptor
	for uri := range s.resources {
		out = append(out, ResourceDescriptor{URI: uri})
	}
	return out, nil
}

func (s *fakeSession) CallTool(_ context.Context, name string, _ map[string]any) (string, error) {
	s.toolCalls = append(s.toolCalls, name)
	return "result from " + s.name, nil
}

func (s *fakeSession) GetPrompt(_ context.Context, name string, args map[string]string) (string, error) {
	return fmt.Sprintf("prompt %s rendered by %s", name, s.name), nil
}

func (s *fakeSession) ReadResource(_ context.Context, uri string) (string, error) {
	if s.readErr != nil {
		return "", s.readErr
	}
	content, ok := s.resources[uri]
	if !ok {
		return "", fmt.Errorf("resource %q not found on %s", uri, s.name)
	}
	return content, nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

func TestRegistry_RouteTool(t *testing.T) {
	reg := NewRegistry()
	a := &fakeSession{name: "alpha"}
	b := &fakeSession{name: "beta"}

	reg.RegisterTools(a, []ToolDescriptor{{Name: "search_papers"}, {Name: "extract_info"}})
	reg.RegisterTools(b, []ToolDescriptor{{Name: "read_file"}})

	session, err := reg.RouteTool("search_papers")
	require.NoError(t, err)
	assert.Equal(t, "alpha", session.Name())

	session, err = reg.RouteTool("read_file")
	require.NoError(t, err)
	assert.Equal(t, "beta", session.Name())

	_, err = reg.RouteTool("no_such_tool")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no_such_tool")
}

func TestRegistry_ReRegistrationIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	a := &fakeSession{name: "alpha"}

	tools := []ToolDescriptor{{Name: "search_papers", Description: "v1"}}
	reg.RegisterTools(a, tools)
	reg.RegisterTools(a, []ToolDescriptor{{Name: "search_papers", Description: "v2"}})

	all := reg.Tools()
	require.Len(t, all, 1)
	assert.Equal(t, "v2", all[0].Description)
}

func TestRegistry_CollisionLastWriteWins(t *testing.T) {
	reg := NewRegistry()
	a := &fakeSession{name: "alpha"}
	b := &fakeSession{name: "beta"}

	reg.RegisterTools(a, []ToolDescriptor{{Name: "search_papers"}})
	reg.RegisterTools(b, []ToolDescriptor{{Name: "search_papers"}})

	session, err := reg.RouteTool("search_papers")
	require.NoError(t, err)
	assert.Equal(t, "beta", session.Name())

	// The shadowed tool does not linger as a duplicate catalog entry
	assert.Len(t, reg.Tools(), 1)
}

func TestRegistry_ToolSpecs(t *testing.T) {
	reg := NewRegistry()
	a := &fakeSession{name: "alpha"}

	schema := map[string]any{
		"type":       "object",
		"properties": map[string]any{"topic": map[string]any{"type": "string"}},
		"required":   []string{"topic"},
	}
	reg.RegisterTools(a, []ToolDescriptor{{
		Name:        "search_papers",
		Description: "Search arXiv",
		InputSchema: schema,
	}})

	specs := reg.ToolSpecs()
	require.Len(t, specs, 1)
	assert.Equal(t, "search_papers", specs[0].Name)
	assert.Equal(t, "Search arXiv", specs[0].Description)
	assert.Equal(t, schema, specs[0].InputSchema)
}

func TestRegistry_ResourceURIsByPrefixKeepsRegistrationOrder(t *testing.T) {
	reg := NewRegistry()
	a := &fakeSession{name: "alpha"}
	b := &fakeSession{name: "beta"}

	reg.RegisterResources(a, []ResourceDescriptor{{URI: "papers://folders"}})
	reg.RegisterResources(b, []ResourceDescriptor{{URI: "papers://ai"}, {URI: "custom://other"}})

	uris := reg.ResourceURIsByPrefix("papers://")
	assert.Equal(t, []string{"papers://folders", "papers://ai"}, uris)
}

func TestRegistry_PromptLookup(t *testing.T) {
	reg := NewRegistry()
	a := &fakeSession{name: "alpha"}

	reg.RegisterPrompts(a, []PromptDescriptor{{
		Name:      "summarize",
		Arguments: []PromptArgumentDescriptor{{Name: "topic", Required: true}},
	}})

	p, ok := reg.Prompt("summarize")
	require.True(t, ok)
	assert.Equal(t, "summarize", p.Name)

	_, ok = reg.Prompt("missing")
	assert.False(t, ok)
}
