// Command termd is the terminal session daemon: it manages
// pseudo-terminal sessions over an HTTP and WebSocket surface, handles
// interrupt debouncing and process-tree kills, and hosts the embedded
// shell.
package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/termstack/termd/internal/infrastructure/config"
	"github.com/termstack/termd/internal/infrastructure/logging"
	"github.com/termstack/termd/internal/server"
	"github.com/termstack/termd/internal/session"
)

func main() {
	addr := flag.String("addr", "", "listen address, host:port (overrides env)")
	initialDir := flag.String("cwd", "", "working directory for the first session")
	initialCmd := flag.String("command", "", "command to run in the first session")
	shell := flag.String("shell", string(session.ShellEmbedded), "shell kind for the first session")
	flag.Parse()

	cfg := config.LoadOrDefault()
	if *addr != "" {
		if host, port, err := net.SplitHostPort(*addr); err == nil {
			cfg.Server.Host = host
			cfg.Server.Port = port
		}
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.Development = cfg.Logging.Development
	logger, err := logging.New(logCfg)
	if err != nil {
		logger = logging.NewDefault()
	}
	defer logger.Sync()

	srv := server.New(cfg, logger)

	// The first session only exists when startup parameters ask for
	// one; the UI normally spawns sessions itself.
	if *initialDir != "" || *initialCmd != "" {
		sid, err := srv.Manager().Spawn(session.SpawnParams{
			Kind:    session.ShellKind(*shell),
			Dir:     *initialDir,
			Command: *initialCmd,
		})
		if err != nil {
			logger.Error("startup session failed", zap.Error(err))
		} else {
			logger.Info("startup session ready", zap.String("session_id", sid.String()))
		}
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("server failed", zap.Error(err))
		}
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("shutdown incomplete", zap.Error(err))
		}
	}
}
