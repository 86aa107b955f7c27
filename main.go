package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"scholar/pkg/agent"
	"scholar/pkg/channels"
	_ "scholar/pkg/channels/autoload" // register channel factories
	"scholar/pkg/channels/cli"
	"scholar/pkg/config"
	"scholar/pkg/gateway"
	"scholar/pkg/handler"
	"scholar/pkg/llm"
	_ "scholar/pkg/llm/autoload" // register LLM providers
	"scholar/pkg/mcp"
	"scholar/pkg/monitor"
)

func main() {
	monitor.PrintBanner()

	// --- 0. Configuration ---
	cfg, sysCfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v\n", err)
	}
	monitor.SetupSlog(sysCfg.LogLevel)

	// --- 1. LLM client ---
	client, err := llm.NewFromConfig(cfg.LLM, sysCfg)
	if err != nil {
		log.Fatalf("❌ Failed to init LLM client: %v\n", err)
	}
	client.SetDebug(sysCfg.DebugLLM)

	// --- 2. MCP servers ---
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := mcp.NewRegistry()
	manager := mcp.NewConnectionManager(registry, sysCfg)
	connected, err := manager.ConnectAll(ctx, cfg.MCPServers)
	if err != nil {
		log.Fatalf("❌ %v\n", err)
	}
	defer manager.Close()
	slog.Info("Servers connected", "count", connected, "tools", len(registry.Tools()))

	// --- 3. Engine, resolver, dispatcher ---
	engine := agent.NewEngine(client, registry, sysCfg, cfg.SystemPrompt)
	resolver := mcp.NewResolver(registry)
	chatHandler := handler.NewChatHandler(engine, resolver, sysCfg)

	// --- 4. Channels ---
	chs := channels.LoadFromConfig(cfg.Channels, sysCfg)
	if len(chs) == 0 {
		// No channels configured: run the interactive terminal
		chs = append(chs, cli.NewCLIChannel())
	}

	var cliDone <-chan struct{}
	hasRemote := false
	for _, c := range chs {
		if cc, ok := c.(*cli.CLIChannel); ok {
			cliDone = cc.Done()
		} else {
			hasRemote = true
		}
	}

	// --- 5. Gateway ---
	builder := gateway.NewGatewayBuilder().
		WithSystemConfig(sysCfg).
		WithChannel(chs...).
		WithHandler(chatHandler)

	// The CLI channel already echoes traffic to stdout; attach the
	// monitor only when a remote channel is configured
	if hasRemote {
		builder.WithMonitor(monitor.NewCLIMonitor())
	}

	gw, err := builder.Build()
	if err != nil {
		log.Fatalf("❌ Failed to build gateway: %v\n", err)
	}

	// --- 6. Config watcher ---
	reload := config.WatchConfig(ctx, "server_config.json", "system.json")
	go func() {
		for range reload {
			slog.Warn("⚠️ Configuration changed on disk, restart to apply")
		}
	}()

	// --- 7. Wait for shutdown ---
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		slog.Info("Received shutdown signal. Stopping services...")
	case <-cliDone:
		slog.Info("Session ended. Stopping services...")
	}

	gw.StopAll()
	slog.Info("Bye!")
}
