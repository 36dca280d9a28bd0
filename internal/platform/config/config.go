// Package config loads process settings from the environment. Every service
// reads the shared AppConfig and declares its own settings as a cleanenv
// tagged struct passed to Read.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

type HTTPConfig struct {
	Addr string `env:"HTTP_ADDR" env-default:":8080"`
}

type AppConfig struct {
	ServiceName string `env:"SERVICE_NAME"`
	LogLevel    string `env:"LOG_LEVEL" env-default:"info"`
	Env         string `env:"APP_ENV" env-default:"development"`
	HTTP        HTTPConfig
}

// Production reports whether APP_ENV=production.
func (c AppConfig) Production() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "production")
}

func Load() (AppConfig, error) {
	var cfg AppConfig
	if err := Read(&cfg); err != nil {
		return AppConfig{}, err
	}
	cfg.ServiceName = strings.TrimSpace(cfg.ServiceName)
	if cfg.ServiceName == "" {
		return AppConfig{}, errors.New("SERVICE_NAME is required")
	}
	// a variable set to the empty string overrides env-default
	if strings.TrimSpace(cfg.HTTP.Addr) == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = "info"
	}
	return cfg, nil
}

// Read fills dst from environment variables according to its env tags.
func Read(dst any) error {
	if err := cleanenv.ReadEnv(dst); err != nil {
		return fmt.Errorf("config: read env: %w", err)
	}
	return nil
}
