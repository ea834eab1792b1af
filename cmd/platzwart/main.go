// Command platzwart is a seat and login-session manager daemon: it tracks
// sessions in a cgroup v2 hierarchy, arbitrates exclusive seat ownership,
// and mirrors ownership into per-user ACL entries on seat device files.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/j-hartig/platzwart/internal/api"
	"github.com/j-hartig/platzwart/internal/cgroup"
	"github.com/j-hartig/platzwart/internal/config"
	"github.com/j-hartig/platzwart/internal/devacl"
	"github.com/j-hartig/platzwart/internal/seat"
	"github.com/j-hartig/platzwart/internal/session"
	"github.com/j-hartig/platzwart/internal/ttywatch"
	"github.com/j-hartig/platzwart/internal/udev"
)

// cgroupRoot adapts the manager's cgroup node to the session package's
// leaf-factory interface.
type cgroupRoot struct {
	node *cgroup.Node
}

func (r cgroupRoot) NewLeaf(name string) (session.CgroupLeaf, error) {
	return r.node.NewLeaf(name)
}

func main() {
	cfgPath := pflag.String("config", "", "path to platzwart.yaml")
	logLevel := pflag.String("log-level", "info", "log level (debug, info, warn, error)")
	pflag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	// Environment-absent is fatal at startup, nothing works without the
	// containment hierarchy.
	if err := cgroup.Detect(cfg.CgroupMount); err != nil {
		logger.Error("cgroup v2 check failed", "error", err)
		os.Exit(1)
	}

	self, err := cgroup.Self(cfg.CgroupMount)
	if err != nil {
		logger.Error("resolve own cgroup", "error", err)
		os.Exit(1)
	}
	// Session leaves become siblings of the manager's processes, not
	// descendants.
	if _, err := self.MakeInner(cfg.ManagerLeaf); err != nil {
		logger.Error("convert manager cgroup to inner node", "error", err)
		os.Exit(1)
	}
	logger.Info("manager cgroup prepared", "path", self.Path(), "leaf", cfg.ManagerLeaf)

	registry := seat.NewRegistry(udev.New())
	mgr := session.NewManager(cgroupRoot{node: self}, devacl.New(), registry, seat.ID(cfg.DefaultSeat), logger)

	if err := mgr.ReloadSeats(); err != nil {
		logger.Warn("initial device discovery failed", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DeviceReloadSeconds > 0 {
		go reloadLoop(ctx, mgr, time.Duration(cfg.DeviceReloadSeconds)*time.Second, logger)
	}

	watcher := ttywatch.New(cfg.TTYActivePath, func(tty string) {
		if err := mgr.TTYActivated(tty); err != nil {
			logger.Error("tty activation", "tty", tty, "error", err)
		}
	}, logger)
	go func() {
		if err := watcher.Run(ctx); err != nil {
			logger.Error("tty watcher", "error", err)
		}
	}()

	if err := os.MkdirAll(filepath.Dir(cfg.ControlSocket), 0o755); err != nil {
		logger.Error("create socket directory", "error", err)
		os.Exit(1)
	}
	os.Remove(cfg.ControlSocket)
	listener, err := net.Listen("unix", cfg.ControlSocket)
	if err != nil {
		logger.Error("listen on control socket", "socket", cfg.ControlSocket, "error", err)
		os.Exit(1)
	}
	if err := os.Chmod(cfg.ControlSocket, 0o660); err != nil {
		logger.Warn("restrict socket permissions", "error", err)
	}

	srv := api.NewServer(mgr, logger)
	httpServer := &http.Server{
		Handler:     srv.Handler(),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		<-sigCh
		logger.Info("shutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
		os.Remove(cfg.ControlSocket)
	}()

	logger.Info("control channel listening", "socket", cfg.ControlSocket)
	if err := httpServer.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// reloadLoop periodically refreshes seat device lists so devices plugged
// after startup become grantable.
func reloadLoop(ctx context.Context, mgr *session.Manager, interval time.Duration, logger *slog.Logger) {
	logger.Info("device reloader started", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("device reloader stopped")
			return
		case <-ticker.C:
			if err := mgr.ReloadSeats(); err != nil {
				logger.Error("reload seat devices", "error", err)
			}
		}
	}
}
