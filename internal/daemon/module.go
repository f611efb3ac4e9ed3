package daemon

import (
	"context"

	"github.com/go-chi/chi/v5"
)

// ModuleDependencies provides dependencies that modules may need during initialization.
type ModuleDependencies struct {
	Config *Config
}

// Module defines the interface that all daemon modules must implement.
type Module interface {
	// Name returns the unique identifier for this module.
	Name() string

	// MountRoutes registers the module's HTTP surface on the shared /api/v1
	// router.
	MountRoutes(router chi.Router)

	// Init initializes the module with the provided dependencies.
	Init(deps ModuleDependencies) error

	// Start launches the module's background workers. They must stop when
	// ctx is done.
	Start(ctx context.Context) error

	// Shutdown gracefully shuts down the module.
	Shutdown() error
}

// ConfigurableModule is an optional interface for modules that need configuration.
// Modules implementing this interface will have LoadConfig called before Init.
type ConfigurableModule interface {
	// LoadConfig loads and validates module-specific configuration.
	// Called before Init() and before the HTTP listener is opened.
	// Should return an error if required configuration is missing or invalid.
	LoadConfig() error
}
