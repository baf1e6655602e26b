package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	TelegramToken string `env:"TELEGRAM_BOT_TOKEN,required,notEmpty"`
	DBPath        string `env:"DB_PATH" envDefault:"data/data.db"`
	Debug         bool   `env:"BOT_DEBUG" envDefault:"false"`
	LogMode       string `env:"LOG_MODE" envDefault:"dev"`
	Language      string `env:"BOT_LANGUAGE" envDefault:"en"`

	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1m"`
	BusyTimeout   time.Duration `env:"DB_BUSY_TIMEOUT" envDefault:"5s"`
	TxMaxAttempts uint          `env:"TX_MAX_ATTEMPTS" envDefault:"5"`
}

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	return parse(env.Options{})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.SweepInterval <= 0 {
		return Config{}, fmt.Errorf("SESSION_SWEEP_INTERVAL must be positive, got %s", cfg.SweepInterval)
	}
	if cfg.TxMaxAttempts == 0 {
		return Config{}, fmt.Errorf("TX_MAX_ATTEMPTS must be at least 1")
	}
	return cfg, nil
}
