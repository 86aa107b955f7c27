package mcp

import (
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/stretchr/testify/assert"
)

func TestFlattenContent(t *testing.T) {
	tests := []struct {
		name    string
		content []mcpgo.Content
		want    string
	}{
		{
			name:    "empty",
			content: nil,
			want:    "",
		},
		{
			name: "single text",
			content: []mcpgo.Content{
				mcpgo.TextContent{Type: "text", Text: "hello"},
			},
			want: "hello",
		},
		{
			name: "multiple texts joined with newline",
			content: []mcpgo.Content{
				mcpgo.TextContent{Type: "text", Text: "first"},
				mcpgo.TextContent{Type: "text", Text: "second"},
			},
			want: "first\nsecond",
		},
		{
			name: "non-text content skipped",
			content: []mcpgo.Content{
				mcpgo.TextContent{Type: "text", Text: "kept"},
				mcpgo.ImageContent{Type: "image"},
			},
			want: "kept",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, flattenContent(tt.content))
		})
	}
}
