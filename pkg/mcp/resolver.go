package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// PapersScheme is the URI prefix for the paper library resources
const PapersScheme = "papers://"

//----------------------------------------------------------------
// Resolver
//----------------------------------------------------------------

// Resolver turns resource URIs into display text. It never returns an
// error; failures come back as user-facing strings so the channel can
// show them directly.
type Resolver struct {
	registry *Registry
}

func NewResolver(registry *Registry) *Resolver {
	return &Resolver{registry: registry}
}

// Resolve reads the resource at the URI. When no server advertises the
// exact URI but at least one advertises the papers:// scheme, the read
// is attempted against the first server that registered a papers://
// resource; dynamic topic URIs are rarely listed up front.
func (r *Resolver) Resolve(ctx context.Context, uri string) string {
	session, err := r.registry.RouteResource(uri)
	if err != nil && strings.HasPrefix(uri, PapersScheme) {
		session = r.fallbackSession()
	}
	if session == nil {
		slog.Warn("No server for resource", "uri", uri)
		return fmt.Sprintf("❌ No server provides resource '%s'.", uri)
	}

	content, err := session.ReadResource(ctx, uri)
	if err != nil {
		slog.Error("Failed to read resource", "uri", uri, "server", session.Name(), "error", err)
		return fmt.Sprintf("❌ Failed to read resource '%s': %v", uri, err)
	}
	if content == "" {
		return fmt.Sprintf("⚠️ Resource '%s' is empty.", uri)
	}

	return "Retrieved resource:\n" + content
}

// fallbackSession returns the owner of the first registered papers://
// resource, or nil when none exists.
func (r *Resolver) fallbackSession() Session {
	for _, uri := range r.registry.ResourceURIsByPrefix(PapersScheme) {
		if session, err := r.registry.RouteResource(uri); err == nil {
			return session
		}
	}
	return nil
}
