package config

import (
	"time"

	platformconfig "github.com/example/skin-platform/internal/platform/config"
)

type BFFConfig struct {
	JWTSecret       string        `env:"JWT_SECRET" env-required:"true"`
	SocialURL       string        `env:"SOCIAL_URL" env-required:"true"`
	SocialGRPCAddr  string        `env:"SOCIAL_GRPC_ADDR"`
	SocialHealth    string        `env:"SOCIAL_HEALTH_SERVICE" env-default:"social"`
	NATSURL         string        `env:"NATS_URL"`
	LikeDebounce    time.Duration `env:"LIKE_DEBOUNCE" env-default:"300ms"`
	RefreshCooldown time.Duration `env:"REFRESH_COOLDOWN" env-default:"5s"`
	SessionTTL      time.Duration `env:"SESSION_TTL" env-default:"30m"`
	RateLimit       float64       `env:"RATE_LIMIT_RPS" env-default:"20"`
	RateBurst       int           `env:"RATE_LIMIT_BURST" env-default:"40"`
}

func LoadBFF() (BFFConfig, error) {
	var cfg BFFConfig
	if err := platformconfig.Read(&cfg); err != nil {
		return BFFConfig{}, err
	}
	return cfg, nil
}
