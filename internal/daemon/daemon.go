package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// shutdownTimeout bounds how long in-flight requests may run during shutdown.
const shutdownTimeout = 10 * time.Second

// Daemon manages the HTTP control API lifecycle and module coordination.
type Daemon struct {
	config  *Config
	modules []Module
	server  *http.Server
	cancel  context.CancelFunc
}

// NewDaemon creates a new Daemon instance with the given configuration.
func NewDaemon(cfg *Config) *Daemon {
	return &Daemon{
		config:  cfg,
		modules: make([]Module, 0),
	}
}

// LoadModules loads modules from the global registry.
func (d *Daemon) LoadModules() {
	d.modules = Modules()
}

// Start initializes the modules, launches their background workers, and
// opens the HTTP listener.
func (d *Daemon) Start() error {
	// Load module configuration before anything touches the network
	for _, mod := range d.modules {
		if configurable, ok := mod.(ConfigurableModule); ok {
			if err := configurable.LoadConfig(); err != nil {
				return fmt.Errorf("failed to load %s module config: %w", mod.Name(), err)
			}
		}
	}

	if err := d.initModules(); err != nil {
		return fmt.Errorf("failed to initialize modules: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	for _, mod := range d.modules {
		if err := mod.Start(ctx); err != nil {
			cancel()
			return fmt.Errorf("failed to start %s module: %w", mod.Name(), err)
		}
	}

	d.server = &http.Server{
		Addr:    d.config.ListenAddr,
		Handler: d.buildRouter(),
	}

	go func() {
		if err := d.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
		}
	}()

	slog.Info("started daemon", "addr", d.config.ListenAddr)
	return nil
}

// Stop gracefully shuts down the daemon.
func (d *Daemon) Stop() error {
	// Stop background workers first so nothing races the module shutdowns
	if d.cancel != nil {
		d.cancel()
	}

	for _, mod := range d.modules {
		if err := mod.Shutdown(); err != nil {
			slog.Warn("failed to shutdown module", "module", mod.Name(), "error", err)
		}
	}

	if d.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return d.server.Shutdown(ctx)
	}

	return nil
}

// initModules initializes all loaded modules.
func (d *Daemon) initModules() error {
	deps := ModuleDependencies{
		Config: d.config,
	}

	for _, mod := range d.modules {
		if err := mod.Init(deps); err != nil {
			return fmt.Errorf("failed to initialize %s module: %w", mod.Name(), err)
		}
		slog.Debug("initialized module", "module", mod.Name())
	}

	moduleNames := make([]string, len(d.modules))
	for i, mod := range d.modules {
		moduleNames[i] = mod.Name()
	}
	slog.Info("initialized modules", "modules", moduleNames)

	return nil
}

// buildRouter mounts every module's routes under /api/v1.
func (d *Daemon) buildRouter() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		RespondData(w, map[string]string{"status": "ok"})
	})

	router.Route("/api/v1", func(api chi.Router) {
		for _, mod := range d.modules {
			mod.MountRoutes(api)
			slog.Debug("mounted module routes", "module", mod.Name())
		}
	})

	return router
}
