package mcp

import (
	"fmt"
	"log/slog"
	"sync"

	"scholar/pkg/llm"
)

//----------------------------------------------------------------
// Registry
//----------------------------------------------------------------

// Registry is the aggregated catalog of every connected server. It
// routes tool, prompt, and resource names back to the session that
// published them. Safe for concurrent use.
type Registry struct {
	mu sync.RWMutex

	tools     []ToolDescriptor
	prompts   []PromptDescriptor
	resources []ResourceDescriptor

	toolRoutes     map[string]Session
	promptRoutes   map[string]Session
	resourceRoutes map[string]Session

	// registration order of resources, for deterministic prefix matches
	resourceOrder []string
}

func NewRegistry() *Registry {
	return &Registry{
		toolRoutes:     make(map[string]Session),
		promptRoutes:   make(map[string]Session),
		resourceRoutes: make(map[string]Session),
	}
}

// RegisterTools merges a server's tools into the catalog. Re-registering
// the same names from the same session is idempotent; a name already
// owned by a different session is overwritten with a warning.
func (r *Registry) RegisterTools(session Session, tools []ToolDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range tools {
		if prev, ok := r.toolRoutes[t.Name]; ok && prev != session {
			slog.Warn("Tool name collision, later registration wins",
				"tool", t.Name, "previous", prev.Name(), "now", session.Name())
		}
		r.toolRoutes[t.Name] = session
		r.tools = upsertTool(r.tools, t)
	}
}

// RegisterPrompts merges a server's prompts into the catalog
func (r *Registry) RegisterPrompts(session Session, prompts []PromptDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range prompts {
		if prev, ok := r.promptRoutes[p.Name]; ok && prev != session {
			slog.Warn("Prompt name collision, later registration wins",
				"prompt", p.Name, "previous", prev.Name(), "now", session.Name())
		}
		r.promptRoutes[p.Name] = session
		r.prompts = upsertPrompt(r.prompts, p)
	}
}

// RegisterResources merges a server's resources into the catalog
func (r *Registry) RegisterResources(session Session, resources []ResourceDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, res := range resources {
		if prev, ok := r.resourceRoutes[res.URI]; ok && prev != session {
			slog.Warn("Resource URI collision, later registration wins",
				"uri", res.URI, "previous", prev.Name(), "now", session.Name())
		}
		if _, ok := r.resourceRoutes[res.URI]; !ok {
			r.resourceOrder = append(r.resourceOrder, res.URI)
		}
		r.resourceRoutes[res.URI] = session
		r.resources = upsertResource(r.resources, res)
	}
}

// RouteTool returns the session that owns the tool name
func (r *Registry) RouteTool(name string) (Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.toolRoutes[name]
	if !ok {
		return nil, fmt.Errorf("no connected server provides tool %q", name)
	}
	return session, nil
}

// RoutePrompt returns the session that owns the prompt name
func (r *Registry) RoutePrompt(name string) (Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.promptRoutes[name]
	if !ok {
		return nil, fmt.Errorf("no connected server provides prompt %q", name)
	}
	return session, nil
}

// RouteResource returns the session that owns the exact resource URI
func (r *Registry) RouteResource(uri string) (Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.resourceRoutes[uri]
	if !ok {
		return nil, fmt.Errorf("no connected server provides resource %q", uri)
	}
	return session, nil
}

// Tools returns a copy of the aggregated tool catalog
func (r *Registry) Tools() []ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ToolDescriptor, len(r.tools))
	copy(out, r.tools)
	return out
}

// Prompts returns a copy of the aggregated prompt catalog
func (r *Registry) Prompts() []PromptDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]PromptDescriptor, len(r.prompts))
	copy(out, r.prompts)
	return out
}

// Resources returns a copy of the aggregated resource catalog
func (r *Registry) Resources() []ResourceDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ResourceDescriptor, len(r.resources))
	copy(out, r.resources)
	return out
}

// Prompt looks up a single prompt descriptor by name
func (r *Registry) Prompt(name string) (PromptDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.prompts {
		if p.Name == name {
			return p, true
		}
	}
	return PromptDescriptor{}, false
}

// ToolSpecs renders the tool catalog in the shape the model API expects
func (r *Registry) ToolSpecs() []llm.ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]llm.ToolSpec, 0, len(r.tools))
	for _, t := range r.tools {
		specs = append(specs, llm.ToolSpec{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}
	return specs
}

// ResourceURIsByPrefix returns, in registration order, the URIs that
// start with the given prefix.
func (r *Registry) ResourceURIsByPrefix(prefix string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for _, uri := range r.resourceOrder {
		if len(uri) >= len(prefix) && uri[:len(prefix)] == prefix {
			out = append(out, uri)
		}
	}
	return out
}

//----------------------------------------------------------------
// helpers
//----------------------------------------------------------------

func upsertTool(list []ToolDescriptor, t ToolDescriptor) []ToolDescriptor {
	for i := range list {
		if list[i].Name == t.Name {
			list[i] = t
			return list
		}
	}
	return append(list, t)
}

func upsertPrompt(list []PromptDescriptor, p PromptDescriptor) []PromptDescriptor {
	for i := range list {
		if list[i].Name == p.Name {
			list[i] = p
			return list
		}
	}
	return append(list, p)
}

func upsertResource(list []ResourceDescriptor, res ResourceDescriptor) []ResourceDescriptor {
	for i := range list {
		if list[i].URI == res.URI {
			list[i] = res
			return list
		}
	}
	return append(list, res)
}
