// Package config loads server configuration from a YAML file and the
// environment. Environment variables win over file values.
package config

import (
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	DBPath     string `yaml:"db_path" env:"DB_PATH" env-default:"./data/performance.db"`
	HTTPServer `yaml:"http_server"`
	Scheduler  `yaml:"scheduler"`
}

type HTTPServer struct {
	Address      string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env-default:"15s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env-default:"15s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env-default:"60s"`
	CORSOrigins  []string      `yaml:"cors_origins" env:"CORS_ORIGINS" env-default:"http://localhost:5173,http://localhost:8080"`
}

type Scheduler struct {
	Enabled       bool          `yaml:"enabled" env:"SCHEDULER_ENABLED" env-default:"true"`
	CheckInterval time.Duration `yaml:"check_interval" env:"SCHEDULER_INTERVAL" env-default:"1h"`
}

// Load reads CONFIG_PATH when set (falling back to env-only otherwise).
func Load() (*Config, error) {
	var cfg Config

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
