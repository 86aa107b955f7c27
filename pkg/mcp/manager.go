package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"scholar/pkg/config"
)

//----------------------------------------------------------------
// ConnectionManager
//----------------------------------------------------------------

// sessionFactory lets tests substitute fake sessions
type sessionFactory func(ctx context.Context, name string, command string, env []string, args ...string) (Session, error)

// ConnectionManager spawns and tracks one session per configured
// server and feeds their catalogs into the registry. A server that
// fails to connect is skipped; it never takes the others down.
type ConnectionManager struct {
	registry *Registry
	system   *config.SystemConfig
	factory  sessionFactory

	mu       sync.Mutex
	sessions []Session
	closed   sync.Once
}

func NewConnectionManager(registry *Registry, system *config.SystemConfig) *ConnectionManager {
	return &ConnectionManager{
		registry: registry,
		system:   system,
		factory:  NewStdioSession,
	}
}

// ConnectAll connects every configured server in name order. It returns
// the number of servers that came up; an error only when every single
// connection failed.
func (m *ConnectionManager) ConnectAll(ctx context.Context, servers map[string]config.ServerConfig) (int, error) {
	names := make([]string, 0, len(servers))
	for name := range servers {
		names = append(names, name)
	}
	sort.Strings(names)

	connected := 0
	for _, name := range names {
		if err := m.connectServer(ctx, name, servers[name]); err != nil {
			slog.Error("Failed to connect to server", "server", name, "error", err)
			continue
		}
		connected++
	}

	if len(servers) > 0 && connected == 0 {
		return 0, fmt.Errorf("all %d configured servers failed to connect", len(servers))
	}
	return connected, nil
}

func (m *ConnectionManager) connectServer(ctx context.Context, name string, cfg config.ServerConfig) error {
	timeout := time.Duration(m.system.ConnectTimeoutMs) * time.Millisecond
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	env := make([]string, 0, len(cfg.Env))
	for k, v := range cfg.Env {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)

	session, err := m.factory(connectCtx, name, cfg.Command, env, cfg.Args...)
	if err != nil {
		return err
	}

	// Tools are mandatory; a server we cannot enumerate is useless
	tools, err := session.ListTools(connectCtx)
	if err != nil {
		session.Close()
		return err
	}
	m.registry.RegisterTools(session, tools)

	// Prompts and resources are optional capabilities; many servers
	// simply do not implement them
	prompts, err := session.ListPrompts(connectCtx)
	if err != nil {
		slog.Debug("Server does not expose prompts", "server", name, "error", err)
	} else {
		m.registry.RegisterPrompts(session, prompts)
	}

	resources, err := session.ListResources(connectCtx)
	if err != nil {
		slog.Debug("Server does not expose resources", "server", name, "error", err)
	} else {
		m.registry.RegisterResources(session, resources)
	}

	m.mu.Lock()
	m.sessions = append(m.sessions, session)
	m.mu.Unlock()

	slog.Info("✅ Connected to server",
		"server", name,
		"tools", len(tools),
		"prompts", len(prompts),
		"resources", len(resources))
	return nil
}

// Sessions returns the currently live sessions
func (m *ConnectionManager) Sessions() []Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Session, len(m.sessions))
	copy(out, m.sessions)
	return out
}

// Close shuts down every session. Safe to call more than once.
func (m *ConnectionManager) Close() {
	m.closed.Do(func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		for _, s := range m.sessions {
			if err := s.Close(); err != nil {
				slog.Warn("Error closing server session", "server", s.Name(), "error", err)
			}
		}
		m.sessions = nil
	})
}
