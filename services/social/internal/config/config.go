package config

import (
	platformconfig "github.com/example/skin-platform/internal/platform/config"
)

// SocialConfig holds the social service settings on top of the shared AppConfig.
type SocialConfig struct {
	DatabaseURL string   `env:"DATABASE_URL"`
	GRPCAddr    string   `env:"GRPC_ADDR" env-default:":9090"`
	JWTSecret   string   `env:"JWT_SECRET" env-required:"true"`
	NATSURL     string   `env:"NATS_URL"`
	Blocklist   []string `env:"MODERATION_BLOCKLIST" env-separator:","`
	Watchlist   []string `env:"MODERATION_WATCHLIST" env-separator:","`
	CommentMax  int      `env:"COMMENT_MAX_RUNES" env-default:"1000"`
	ReplyMax    int      `env:"REPLY_MAX_RUNES" env-default:"500"`
}

func LoadSocial() (SocialConfig, error) {
	var cfg SocialConfig
	if err := platformconfig.Read(&cfg); err != nil {
		return SocialConfig{}, err
	}
	return cfg, nil
}
