package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the process configuration, populated from environment variables.
type Config struct {
	Port           string        `env:"PORT" envDefault:"8080"`
	DatabasePath   string        `env:"DATABASE_PATH" envDefault:"ingresso.db"`
	AuthSecret     string        `env:"AUTH_SECRET,required,notEmpty"`
	SweepInterval  time.Duration `env:"SWEEP_INTERVAL" envDefault:"15m"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}
