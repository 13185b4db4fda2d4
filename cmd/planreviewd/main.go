// Command planreviewd is the plan review daemon: it owns the Content
// Store, Event Bus, Review State Engine, HTTP Control Plane, Subscriber
// Gateway, and Agent Tool Surface described in DESIGN.md, and is what
// the plan-submission interceptor spawns per host.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/roasbeef/planreview/internal/engine"
	"github.com/roasbeef/planreview/internal/eventbus"
	"github.com/roasbeef/planreview/internal/httpapi"
	"github.com/roasbeef/planreview/internal/logging"
	"github.com/roasbeef/planreview/internal/mcptools"
	"github.com/roasbeef/planreview/internal/planstore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		dataDir      = flag.String("data-dir", defaultDataDir(), "Root directory for persisted reviews")
		httpAddr     = flag.String("http-addr", ":3030", "HTTP Control Plane bind address")
		idleTimeout  = flag.Duration("idle-timeout", 30*time.Minute, "Shut down after this much inactivity (0 disables)")
		logDir       = flag.String("log-dir", filepath.Join(defaultDataDir(), "logs"), "Directory for the rotating daemon log")
		mcpTransport = flag.String("mcp-transport", "stdio", "Agent transport: stdio or http")
	)
	flag.Parse()

	logger, closeLog, err := logging.New(*logDir)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer closeLog()

	store, err := planstore.NewStore(*dataDir)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}

	bus := eventbus.NewBus()
	defer bus.Close()

	eng := engine.New(store, bus)

	cfg := httpapi.DefaultConfig()
	cfg.Addr = *httpAddr
	cfg.IdleTimeout = *idleTimeout
	httpServer := httpapi.NewServer(cfg, eng, logging.Subsystem(logger, "HTTP"))

	mcpServer := mcptools.NewServer(eng)

	if *mcpTransport == "http" {
		handler := sdkmcp.NewStreamableHTTPHandler(
			func(*http.Request) *sdkmcp.Server { return mcpServer.MCPServer() },
			&sdkmcp.StreamableHTTPOptions{Stateless: true},
		)
		httpServer.Mux().Handle("/mcp", handler)
	}

	ln, err := httpServer.Listen(*httpAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal")
		case <-httpServer.IdleExceeded():
			logger.Info("idle timeout exceeded, shutting down")
		}
		cancel()
	}()

	errCh := make(chan error, 2)
	go func() {
		errCh <- httpServer.Serve(ctx, ln)
	}()

	if *mcpTransport != "http" {
		go func() {
			errCh <- mcpServer.Run(ctx, &sdkmcp.StdioTransport{})
		}()
	}

	select {
	case <-ctx.Done():
		<-errCh
		return nil
	case err := <-errCh:
		cancel()
		if err != nil && err != context.Canceled && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".planreview"
	}
	return filepath.Join(home, ".planreview")
}
