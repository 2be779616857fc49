// Package config содержит логику чтения конфигурации реестра.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	defaultRunAddress    = "localhost:8080"
	defaultSweepInterval = time.Minute
)

// Config содержит параметры конфигурации реестра.
type Config struct {
	RunAddress           string        `env:"RUN_ADDRESS"`
	SeedFile             string        `env:"SEED_FILE"`
	OverdueSweepInterval time.Duration `env:"OVERDUE_SWEEP_INTERVAL"`
}

// LoadDotEnv подгружает переменные окружения из файлов .env, если они есть.
// Уже заданные переменные не перезаписываются.
func LoadDotEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load dotenv: %w", err)
	}
	return nil
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envSeedFile := cfg.SeedFile
	envSweepInterval := cfg.OverdueSweepInterval

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.SeedFile, "s", "", "path to YAML seed file, embedded seed if empty")
	flag.DurationVar(&cfg.OverdueSweepInterval, "i", defaultSweepInterval, "overdue sweep interval, 0 disables the sweep")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envSeedFile != "" {
		cfg.SeedFile = envSeedFile
	}
	if envSweepInterval != 0 {
		cfg.OverdueSweepInterval = envSweepInterval
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.OverdueSweepInterval < 0 {
		return nil, fmt.Errorf("overdue sweep interval must not be negative: %s", cfg.OverdueSweepInterval)
	}

	return cfg, nil
}
