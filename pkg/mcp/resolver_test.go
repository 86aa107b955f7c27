package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolver_ExactMatch(t *testing.T) {
	reg := NewRegistry()
	a := &fakeSession{
		name:      "research",
		resources: map[string]string{"papers://folders": "- ai\n- physics"},
	}
	reg.RegisterResources(a, []ResourceDescriptor{{URI: "papers://folders"}})

	r := NewResolver(reg)
	out := r.Resolve(context.Background(), "papers://folders")
	assert.Equal(t, "Retrieved resource:\n- ai\n- physics", out)
}

func TestResolver_PapersPrefixFallback(t *testing.T) {
	reg := NewRegistry()
	a := &fakeSession{
		name: "research",
		resources: map[string]string{
			"papers://folders": "- ai",
			"papers://ai":      "papers about ai",
		},
	}
	// Only the static folders URI is advertised; topic URIs are dynamic
	reg.RegisterResources(a, []ResourceDescriptor{{URI: "papers://folders"}})

	r := NewResolver(reg)
	out := r.Resolve(context.Background(), "papers://ai")
	assert.Equal(t, "Retrieved resource:\npapers about ai", out)
}

func TestResolver_FallbackPicksFirstRegisteredServer(t *testing.T) {
	reg := NewRegistry()
	first := &fakeSession{
		name:      "first",
		resources: map[string]string{"papers://folders": "x", "papers://ml": "from first"},
	}
	second := &fakeSession{
		name:      "second",
		resources: map[string]string{"papers://archive": "y", "papers://ml": "from second"},
	}
	reg.RegisterResources(first, []ResourceDescriptor{{URI: "papers://folders"}})
	reg.RegisterResources(second, []ResourceDescriptor{{URI: "papers://archive"}})

	r := NewResolver(reg)
	out := r.Resolve(context.Background(), "papers://ml")
	assert.Equal(t, "Retrieved resource:\nfrom first", out)
}

func TestResolver_UnknownSchemeNoFallback(t *testing.T) {
	reg := NewRegistry()
	a := &fakeSession{
		name:      "research",
		resources: map[string]string{"papers://folders": "x"},
	}
	reg.RegisterResources(a, []ResourceDescriptor{{URI: "papers://folders"}})

	r := NewResolver(reg)
	out := r.Resolve(context.Background(), "custom://thing")
	assert.Contains(t, out, "❌")
	assert.Contains(t, out, "custom://thing")
}

func TestResolver_ReadErrorBecomesMessage(t *testing.T) {
	reg := NewRegistry()
	a := &fakeSession{
		name:    "research",
		readErr: errors.New("pipe broken"),
	}
	reg.RegisterResources(a, []ResourceDescriptor{{URI: "papers://folders"}})

	r := NewResolver(reg)
	out := r.Resolve(context.Background(), "papers://folders")
	assert.Contains(t, out, "❌")
	assert.Contains(t, out, "pipe broken")
}

func TestResolver_EmptyContent(t *testing.T) {
	reg := NewRegistry()
	a := &fakeSession{
		name:      "research",
		resources: map[string]string{"papers://folders": ""},
	}
	reg.RegisterResources(a, []ResourceDescriptor{{URI: "papers://folders"}})

	r := NewResolver(reg)
	out := r.Resolve(context.Background(), "papers://folders")
	assert.Contains(t, out, "⚠️")
}
