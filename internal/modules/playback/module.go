package playback

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/muselink/muselink/internal/daemon"
	"github.com/muselink/muselink/internal/modules/playback/application/ports"
	"github.com/muselink/muselink/internal/modules/playback/application/usecases"
	"github.com/muselink/muselink/internal/modules/playback/domain"
	"github.com/muselink/muselink/internal/modules/playback/infrastructure"
	"github.com/muselink/muselink/internal/modules/playback/presentation"
)

func init() {
	daemon.Register(&PlaybackModule{})
}

// PlaybackModule wires the playback engine, persistence, sync, and history
// services into the daemon.
type PlaybackModule struct {
	config *Config

	bus       *infrastructure.ChannelEventBus
	engine    *infrastructure.ClockEngine
	transport *infrastructure.WSTransport

	player      *usecases.PlayerService
	persistence *usecases.PersistenceService
	syncService *usecases.SyncService
	history     *usecases.HistoryService
	sleepTimer  *usecases.SleepTimerService

	handlers *presentation.Handlers

	cancel context.CancelFunc
}

var _ daemon.ConfigurableModule = (*PlaybackModule)(nil)

// Name returns the module name.
func (m *PlaybackModule) Name() string {
	return "playback"
}

// LoadConfig loads the module configuration from environment variables.
func (m *PlaybackModule) LoadConfig() error {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("failed to parse playback config: %w", err)
	}
	m.config = cfg
	return nil
}

// Init builds the playback services. Relay, catalog, redis, and cache are
// all optional; the module degrades to local-only playback without them.
func (m *PlaybackModule) Init(_ daemon.ModuleDependencies) error {
	startMode, ok := domain.ParsePlaybackMode(m.config.StartMode)
	if !ok {
		return fmt.Errorf("unknown start mode %q", m.config.StartMode)
	}

	m.bus = infrastructure.NewChannelEventBus(infrastructure.DefaultEventBufferSize)
	m.engine = infrastructure.NewClockEngine(ports.SystemClock{}, m.bus)

	var cache ports.AudioCache
	if m.config.CacheDir != "" {
		fileCache, err := infrastructure.NewFileCache(m.config.CacheDir)
		if err != nil {
			return fmt.Errorf("failed to initialize audio cache: %w", err)
		}
		cache = fileCache
	}

	m.player = usecases.NewPlayerService(m.engine, m.bus, cache, startMode)
	m.bus.OnTrackEnded(m.player.HandleTrackEnded)

	var store ports.SnapshotStore
	if m.config.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     m.config.RedisAddr,
			Password: m.config.RedisPassword,
		})
		store = infrastructure.NewRedisSnapshotStore(client)
	} else {
		slog.Info("No redis address configured, keeping playback snapshots in memory")
		store = infrastructure.NewMemorySnapshotStore()
	}
	m.persistence = usecases.NewPersistenceService(m.player, store)
	m.persistence.Register(m.bus)

	identity := usecases.DeviceIdentity{
		UserID:     m.config.UserID,
		Username:   m.config.Username,
		DeviceID:   uuid.NewString(),
		DeviceName: m.config.DeviceName,
	}

	var transport ports.Transport
	if m.config.RelayURL != "" {
		m.transport = infrastructure.NewWSTransport(m.config.RelayURL)
		transport = m.transport
	} else {
		slog.Info("No relay URL configured, cross-device sync is disabled")
	}
	m.syncService = usecases.NewSyncService(m.player, transport, ports.SystemClock{}, identity)
	m.syncService.Start(m.bus)

	var reporter ports.HistoryReporter
	var importClient ports.ImportClient
	if m.config.CatalogURL != "" {
		catalog := infrastructure.NewCatalogClient(m.config.CatalogURL)
		reporter = catalog
		importClient = catalog
	} else {
		slog.Info("No catalog URL configured, history reporting is disabled")
	}
	m.history = usecases.NewHistoryService(m.player, reporter, m.syncService.IsSynced, identity)
	m.history.Register(m.bus)

	m.sleepTimer = usecases.NewSleepTimerService(m.player, ports.SystemClock{})

	m.handlers = presentation.NewHandlers(
		m.player,
		m.persistence,
		m.syncService,
		m.history,
		m.sleepTimer,
		importClient,
	)
	return nil
}

// MountRoutes registers the playback HTTP routes.
func (m *PlaybackModule) MountRoutes(router chi.Router) {
	m.handlers.MountRoutes(router)
}

// Start restores the last snapshot for the start mode and launches the
// background loops.
func (m *PlaybackModule) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	if err := m.persistence.Load(ctx, m.player.Mode()); err != nil {
		slog.Warn("Failed to restore playback snapshot", "error", err)
	}

	go m.engine.Run(ctx)
	go m.persistence.Run(ctx)
	go m.sleepTimer.Run(ctx)
	go m.history.Run(ctx)
	if m.transport != nil {
		go m.transport.Run(ctx)
	}
	return nil
}

// Shutdown saves the current snapshot and stops the background loops.
func (m *PlaybackModule) Shutdown() error {
	if m.cancel != nil {
		m.cancel()
	}

	if err := m.persistence.Save(context.Background()); err != nil {
		slog.Warn("Failed to save playback snapshot on shutdown", "error", err)
	}

	if m.transport != nil {
		if err := m.transport.Close(); err != nil {
			slog.Warn("Failed to close relay transport", "error", err)
		}
	}
	m.bus.Close()
	return nil
}
