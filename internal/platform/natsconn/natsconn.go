// Package natsconn provides a shared NATS connection factory with
// configurable reconnect behaviour and fail-fast semantics.
package natsconn

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/skin-platform/internal/platform/config"
)

// Options configures the NATS connection behaviour.
// Zero values fall back to the environment (see policy).
type Options struct {
	URL           string
	Name          string
	MaxReconnects int
	ReconnectWait time.Duration
	Logger        *zap.Logger
}

// policy is the reconnect policy read from the environment.
type policy struct {
	URL           string        `env:"NATS_URL" env-default:"nats://nats:4222"`
	MaxReconnects int           `env:"NATS_MAX_RECONNECTS" env-default:"5"`
	ReconnectWait time.Duration `env:"NATS_RECONNECT_WAIT" env-default:"2s"`
}

func (o Options) withDefaults() (Options, error) {
	var p policy
	if err := config.Read(&p); err != nil {
		return o, fmt.Errorf("nats env: %w", err)
	}
	if o.URL == "" {
		o.URL = p.URL
	}
	if o.MaxReconnects == 0 {
		o.MaxReconnects = p.MaxReconnects
	}
	if o.ReconnectWait <= 0 {
		o.ReconnectWait = p.ReconnectWait
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o, nil
}

// Connect establishes a NATS connection with the configured retry policy.
// On failure after all retries it returns an error so the caller can fail-fast.
func Connect(opts Options) (*nats.Conn, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	log := opts.Logger.With(zap.String("component", "nats"))

	natsOpts := []nats.Option{
		nats.MaxReconnects(opts.MaxReconnects),
		nats.ReconnectWait(opts.ReconnectWait),
		nats.RetryOnFailedConnect(false),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			log.Info("nats connection closed")
		}),
	}
	if opts.Name != "" {
		natsOpts = append(natsOpts, nats.Name(opts.Name))
	}
	nc, err := nats.Connect(opts.URL, natsOpts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s (max_reconnects=%d, wait=%s): %w",
			opts.URL, opts.MaxReconnects, opts.ReconnectWait, err)
	}
	return nc, nil
}

// EnsureStream returns a JetStream context with stream bound to subjects,
// creating the stream when it does not exist yet.
func EnsureStream(nc *nats.Conn, stream string, subjects ...string) (nats.JetStreamContext, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	if _, err := js.StreamInfo(stream); err == nil {
		return js, nil
	} else if !errors.Is(err, nats.ErrStreamNotFound) {
		return nil, fmt.Errorf("stream info %s: %w", stream, err)
	}
	if _, err := js.AddStream(&nats.StreamConfig{
		Name:     stream,
		Subjects: subjects,
		Storage:  nats.FileStorage,
	}); err != nil {
		return nil, fmt.Errorf("add stream %s: %w", stream, err)
	}
	return js, nil
}
