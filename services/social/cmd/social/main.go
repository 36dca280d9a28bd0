package main

import (
	"context"
	"errors"
	"net"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/example/skin-platform/internal/platform/auth"
	"github.com/example/skin-platform/internal/platform/config"
	"github.com/example/skin-platform/internal/platform/db"
	"github.com/example/skin-platform/internal/platform/httpserver"
	"github.com/example/skin-platform/internal/platform/logging"
	"github.com/example/skin-platform/internal/platform/natsconn"
	"github.com/example/skin-platform/internal/platform/run"
	socialconfig "github.com/example/skin-platform/services/social/internal/config"
	"github.com/example/skin-platform/services/social/internal/events"
	"github.com/example/skin-platform/services/social/internal/handlers"
	"github.com/example/skin-platform/services/social/internal/moderation"
	"github.com/example/skin-platform/services/social/internal/store"
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

	scfg, err := socialconfig.LoadSocial()
	if err != nil {
		log.Error("config", zap.Error(err))
		run.Exit(1)
	}

	comments, pool := initComments(log, cfg, scfg)
	if pool != nil {
		defer pool.Close()
	}

	publisher, closeNATS := initEvents(log, scfg)
	if closeNATS != nil {
		defer closeNATS()
	}

	deps := handlers.NewDeps(handlers.Deps{
		Store:     comments,
		Moderator: moderation.NewBlocklist(scfg.Blocklist, scfg.Watchlist),
		Events:    publisher,
		Limits:    handlers.Limits{Comment: scfg.CommentMax, Reply: scfg.ReplyMax},
		Log:       log.Named("comments"),
	})

	r := chi.NewRouter()
	httpserver.SetupRouter(r, httpserver.RouterConfig{
		Logger: log,
		ReadyFunc: func() error {
			if pool == nil {
				return nil
			}
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Ping(ctx)
		},
	})
	handlers.Mount(r, deps, auth.JWTVerifier{Secret: []byte(scfg.JWTSecret)})

	srv := httpserver.New(httpserver.Options{Addr: cfg.HTTP.Addr, ServiceName: cfg.ServiceName, Logger: log, Router: r})

	lis, err := net.Listen("tcp", scfg.GRPCAddr)
	if err != nil {
		log.Error("grpc listen", zap.Error(err))
		run.Exit(1)
	}
	grpcSrv := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)
	healthSrv.SetServingStatus(cfg.ServiceName, healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcSrv)

	runner := run.New(log)
	runner.Add("http", func(context.Context) error { return srv.Start() }, srv.Shutdown)
	runner.Add("grpc", func(context.Context) error {
		log.Info("grpc server starting", zap.String("addr", scfg.GRPCAddr))
		if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	}, func(ctx context.Context) error {
		healthSrv.Shutdown()
		stopped := make(chan struct{})
		go func() {
			grpcSrv.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-ctx.Done():
			grpcSrv.Stop()
		}
		return nil
	})

	code := runner.WithSignals()
	log.Info("exit", zap.Int("code", code))
	run.Exit(code)
}

// initComments selects the CommentStore backend.
// In production (APP_ENV=production) it requires a working Postgres connection
// and terminates the process otherwise.
func initComments(log *zap.Logger, cfg config.AppConfig, scfg socialconfig.SocialConfig) (store.CommentStore, *pgxpool.Pool) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	fallback := func(msg string, err error) (store.CommentStore, *pgxpool.Pool) {
		if cfg.Production() {
			log.Error(msg+" (required in production)", zap.Error(err))
			_ = log.Sync()
			os.Exit(1)
		}
		log.Warn(msg+", using in-memory comment store (development only)", zap.Error(err))
		return store.NewInMemoryCommentStore(), nil
	}

	pool, err := db.Open(ctx, db.Options{DSN: scfg.DatabaseURL})
	if err != nil {
		return fallback("postgres unavailable", err)
	}
	if err := db.Exec(ctx, pool, store.Schema...); err != nil {
		pool.Close()
		return fallback("comment schema", err)
	}

	log.Info("comments store: postgres")
	return store.NewPostgresCommentStore(pool), pool
}

// initEvents connects the change publisher. Without NATS_URL it runs in stub mode.
func initEvents(log *zap.Logger, scfg socialconfig.SocialConfig) (events.Publisher, func()) {
	if scfg.NATSURL == "" {
		return events.NewJetStream(nil, log), nil
	}
	nc, err := natsconn.Connect(natsconn.Options{URL: scfg.NATSURL, Name: "social", Logger: log})
	if err != nil {
		log.Error("nats connect", zap.Error(err))
		return events.NewJetStream(nil, log), nil
	}
	name, subjects := events.Stream()
	js, err := natsconn.EnsureStream(nc, name, subjects...)
	if err != nil {
		log.Error("nats stream", zap.Error(err))
		nc.Close()
		return events.NewJetStream(nil, log), nil
	}
	log.Info("NATS publisher initialised", zap.String("stream", name))
	return events.NewJetStream(js, log), nc.Close
}
