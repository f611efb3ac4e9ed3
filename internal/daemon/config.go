package daemon

import (
	"github.com/caarlos0/env/v11"
)

// Config holds the daemon configuration loaded from environment variables.
type Config struct {
	ListenAddr string `env:"MUSELINK_LISTEN_ADDR" envDefault:"127.0.0.1:8080"`
}

// LoadConfig loads configuration from environment variables.
// Returns an error if required fields are missing.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
