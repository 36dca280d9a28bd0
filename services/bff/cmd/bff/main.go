package main

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/skin-platform/internal/platform/auth"
	"github.com/example/skin-platform/internal/platform/config"
	"github.com/example/skin-platform/internal/platform/httpserver"
	"github.com/example/skin-platform/internal/platform/logging"
	"github.com/example/skin-platform/internal/platform/natsconn"
	"github.com/example/skin-platform/internal/platform/run"
	bffconfig "github.com/example/skin-platform/services/bff/internal/config"
	"github.com/example/skin-platform/services/bff/internal/grpcclient"
	bffhandlers "github.com/example/skin-platform/services/bff/internal/handlers"
	bffhttp "github.com/example/skin-platform/services/bff/internal/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.ServiceName)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	bffCfg, err := bffconfig.LoadBFF()
	if err != nil {
		log.Error("load bff config", zap.Error(err))
		run.Exit(1)
	}

	var socialHealth *grpcclient.SocialClient
	if bffCfg.SocialGRPCAddr != "" {
		socialHealth, err = grpcclient.NewSocialClient(bffCfg.SocialGRPCAddr, bffCfg.SocialHealth)
		if err != nil {
			log.Error("init social grpc client", zap.Error(err))
			run.Exit(1)
		}
		defer func() { _ = socialHealth.Close() }()
	}

	sessions := bffhandlers.NewSessions(bffhandlers.SessionOptions{
		SocialURL:       bffCfg.SocialURL,
		TTL:             bffCfg.SessionTTL,
		DebounceWindow:  bffCfg.LikeDebounce,
		RefreshCooldown: bffCfg.RefreshCooldown,
		Logger:          log.Named("threads"),
	})

	nc := initNATS(log, bffCfg)
	if nc != nil {
		defer nc.Close()
	}
	if _, err := bffhandlers.NewInvalidator(sessions, log.Named("sync")).Subscribe(nc); err != nil {
		log.Error("subscribe comment changes", zap.Error(err))
	}

	r := chi.NewRouter()
	httpserver.SetupRouter(r, httpserver.RouterConfig{
		Logger: log,
		ReadyFunc: func() error {
			if socialHealth == nil {
				return nil
			}
			return socialHealth.Check(context.Background())
		},
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("skin-platform bff"))
	})

	verifier := auth.JWTVerifier{Secret: []byte(bffCfg.JWTSecret)}
	limiter := bffhttp.NewRateLimiter(bffCfg.RateLimit, bffCfg.RateBurst)
	r.Group(func(r chi.Router) {
		r.Use(limiter.Middleware)
		bffhandlers.NewThreads(sessions, log.Named("threads")).Mount(r, verifier)
		r.With(auth.RequireUser(verifier)).Get("/v1/me", bffhandlers.Me(sessions))
	})

	srv := httpserver.New(httpserver.Options{Addr: cfg.HTTP.Addr, ServiceName: cfg.ServiceName, Logger: log, Router: r})

	runner := run.New(log)
	runner.Add("http", func(context.Context) error { return srv.Start() }, srv.Shutdown)
	code := runner.WithSignals()

	log.Info("exit", zap.Int("code", code))
	run.Exit(code)
}

// initNATS connects the comment-change subscriber. Without NATS_URL threads
// only refresh on demand.
func initNATS(log *zap.Logger, bffCfg bffconfig.BFFConfig) *nats.Conn {
	if bffCfg.NATSURL == "" {
		return nil
	}
	nc, err := natsconn.Connect(natsconn.Options{URL: bffCfg.NATSURL, Name: "bff", Logger: log})
	if err != nil {
		log.Error("nats connect", zap.Error(err))
		return nil
	}
	return nc
}
