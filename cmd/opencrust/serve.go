package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opencrust/opencrust/internal/channel"
	"github.com/opencrust/opencrust/internal/config"
	"github.com/opencrust/opencrust/internal/configwatch"
	"github.com/opencrust/opencrust/internal/gateway"
	"github.com/opencrust/opencrust/internal/sandbox"
	"github.com/opencrust/opencrust/internal/scheduler"
	"github.com/opencrust/opencrust/internal/store"
	"github.com/opencrust/opencrust/internal/vectorstore"
	"github.com/opencrust/opencrust/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway: WebSocket front door, plugin sandbox, and heartbeat dispatcher",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.Logger

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	sessionStore, err := store.Open(cfg.Database.Path, log)
	if err != nil {
		return err
	}
	defer sessionStore.Close()

	vecStore, err := vectorstore.Open(cfg.Vectorstore.Path, log)
	if err != nil {
		return err
	}
	defer vecStore.Close()
	log.Infow("vector store ready", "path", cfg.Vectorstore.Path, "native_knn", vecStore.VecEnabled())

	registry := sandbox.NewRegistry()
	loadPlugins(registry, cfg, log)
	manager := sandbox.NewManager(registry, log)
	defer manager.Close(context.Background())
	log.Infow("plugin sandbox ready", "plugins", registry.List())

	sch := scheduler.New(sessionStore, cfg.Scheduler.MaxPendingTasksPerSession)

	origins := newOriginSet(cfg.Server.AllowedOrigins)

	responder := gateway.EchoResponder{}
	gw := gateway.New(sessionStore, responder, log, gateway.WithCheckOrigin(origins.check))

	if watcher, err := watchConfigFile(configPath, origins, log); err != nil {
		log.Warnw("config file watcher not started", "error", err)
	} else if watcher != nil {
		defer watcher.Stop()
	}

	channels := channel.NewRegistry()
	if err := channels.Register(gateway.NewWebSocketChannel(gw)); err != nil {
		return err
	}

	mux := http.NewServeMux()
	gw.RegisterRoutes(mux)
	mux.HandleFunc("/api/plugins", pluginsHandler(registry))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	httpServer := &http.Server{Addr: addr, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go runDispatcher(ctx, sessionStore, gw, responder, cfg.Scheduler.PollIntervalSeconds, log)

	go func() {
		log.Infow("gateway listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("gateway server stopped", "error", err)
		}
	}()

	_ = sch // exposed as an MCP tool (scheduler.Tool()/sch.Handler()) for a future agent-transport integration

	<-ctx.Done()
	log.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// loadPlugins registers every manifest found directly under each
// configured plugin path. A path whose manifest fails to parse or whose
// name isn't in the enabled whitelist (when one is configured) is
// skipped with a warning rather than aborting startup.
func loadPlugins(registry *sandbox.Registry, cfg *config.Config, log *zap.SugaredLogger) {
	allowed := make(map[string]bool, len(cfg.Plugin.Enabled))
	for _, name := range cfg.Plugin.Enabled {
		allowed[name] = true
	}

	for _, dir := range cfg.Plugin.Paths {
		manifest, err := sandbox.ParseFile(filepath.Join(dir, "plugin.toml"), dir)
		if err != nil {
			log.Warnw("skipping plugin directory", "dir", dir, "error", err)
			continue
		}
		if len(allowed) > 0 && !allowed[manifest.Name] {
			continue
		}
		if err := registry.Register(manifest); err != nil {
			log.Warnw("failed to register plugin", "dir", dir, "error", err)
		}
	}
}

// runDispatcher polls for due heartbeat tasks on an interval, re-enters
// the responder with is_heartbeat=true, delivers the reply to a live
// connection if one exists, and always persists the turn before marking
// the task fired.
func runDispatcher(ctx context.Context, s *store.Store, gw *gateway.Gateway, responder gateway.Responder, pollIntervalSeconds int, log *zap.SugaredLogger) {
	ticker := time.NewTicker(time.Duration(pollIntervalSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dispatchDueTasks(ctx, s, gw, responder, log)
		}
	}
}

func dispatchDueTasks(ctx context.Context, s *store.Store, gw *gateway.Gateway, responder gateway.Responder, log *zap.SugaredLogger) {
	due, err := s.DueTasks(time.Now())
	if err != nil {
		log.Warnw("failed to query due heartbeats", "error", err)
		return
	}

	for _, task := range due {
		taskCtx := scheduler.WithHeartbeat(scheduler.WithUser(scheduler.WithSessionID(ctx, task.SessionID), task.User), true)

		reply, err := responder.Respond(taskCtx, task.SessionID, task.Reason)
		if err != nil {
			log.Warnw("heartbeat dispatch failed", "task_id", task.ID, "session_id", task.SessionID, "error", err)
			continue
		}

		if _, err := s.AppendMessage(task.SessionID, "assistant", reply); err != nil {
			log.Warnw("failed to persist heartbeat reply", "task_id", task.ID, "error", err)
		}
		gw.Notify(task.SessionID, reply)

		if err := s.MarkTaskFired(task.ID); err != nil {
			log.Warnw("failed to mark heartbeat fired", "task_id", task.ID, "error", err)
		}
	}
}

// pluginsHandler reports every registered plugin's manifest name,
// version, and normalized capabilities — a read-only projection of the
// sandbox's registry.
func pluginsHandler(registry *sandbox.Registry) http.HandlerFunc {
	type entry struct {
		Name         string               `json:"name"`
		Version      string               `json:"version"`
		Capabilities sandbox.Capabilities `json:"capabilities"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		manifests := registry.GetAll()
		out := make([]entry, 0, len(manifests))
		for _, m := range manifests {
			out = append(out, entry{Name: m.Name, Version: m.Version, Capabilities: m.Capabilities()})
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	}
}

// originSet is a hot-swappable allowlist of accepted WebSocket Origin
// header values, backed by an atomic pointer so the config watcher's
// reload callback can replace it without synchronizing with in-flight
// upgrade requests.
type originSet struct {
	allowed atomic.Pointer[map[string]bool]
}

func newOriginSet(origins []string) *originSet {
	s := &originSet{}
	s.replace(origins)
	return s
}

func (s *originSet) replace(origins []string) {
	set := make(map[string]bool, len(origins))
	for _, o := range origins {
		set[o] = true
	}
	s.allowed.Store(&set)
}

// check allows every origin when the allowlist is empty, else only
// origins present in it.
func (s *originSet) check(r *http.Request) bool {
	set := *s.allowed.Load()
	if len(set) == 0 {
		return true
	}
	return set[r.Header.Get("Origin")]
}

// watchConfigFile watches the resolved config file (explicit configPath,
// or the project-local opencrust.toml) for changes and hot-applies a
// changed server.allowed_origins list to origins. Returns a nil watcher
// and no error when no config file is in use, since there is nothing to
// watch.
func watchConfigFile(configPath string, origins *originSet, log *zap.SugaredLogger) (*configwatch.Watcher, error) {
	path := configPath
	if path == "" {
		path = config.FindProjectConfig()
	}
	if path == "" {
		return nil, nil
	}

	w, err := configwatch.New(path, func() any { return &config.Config{} })
	if err != nil {
		return nil, err
	}
	w.OnReload(func(v any) error {
		cfg := v.(*config.Config)
		if len(cfg.Server.AllowedOrigins) > 0 {
			origins.replace(cfg.Server.AllowedOrigins)
			log.Infow("reloaded allowed origins from config file", "path", path, "count", len(cfg.Server.AllowedOrigins))
		}
		return nil
	})
	w.Start()
	return w, nil
}
