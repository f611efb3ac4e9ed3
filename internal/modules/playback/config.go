package playback

// Config holds the playback module configuration.
type Config struct {
	UserID     string `env:"MUSELINK_USER_ID,notEmpty"`
	Username   string `env:"MUSELINK_USERNAME" envDefault:"listener"`
	DeviceName string `env:"MUSELINK_DEVICE_NAME" envDefault:"muselink"`

	// CatalogURL points at the catalog service. Without it, history
	// reporting and import tasks are disabled.
	CatalogURL string `env:"MUSELINK_CATALOG_URL"`

	// RelayURL points at the sync relay websocket. Without it, cross-device
	// sync is disabled.
	RelayURL string `env:"MUSELINK_RELAY_URL"`

	// RedisAddr selects the snapshot backend. Without it, snapshots live in
	// process memory only.
	RedisAddr     string `env:"MUSELINK_REDIS_ADDR"`
	RedisPassword string `env:"MUSELINK_REDIS_PASSWORD"`

	// CacheDir enables the local audio cache.
	CacheDir string `env:"MUSELINK_CACHE_DIR"`

	StartMode string `env:"MUSELINK_START_MODE" envDefault:"music"`
}
