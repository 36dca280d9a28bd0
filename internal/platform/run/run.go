// Package run supervises the long-running parts of a service process and
// stops them together on SIGINT/SIGTERM or when one of them fails.
package run

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultShutdownTimeout bounds the time given to stop functions.
const DefaultShutdownTimeout = 10 * time.Second

type unit struct {
	name  string
	start func(ctx context.Context) error
	stop  func(ctx context.Context) error
}

type Runner struct {
	Logger          *zap.Logger
	ShutdownTimeout time.Duration
	units           []unit
}

func New(log *zap.Logger) *Runner {
	return &Runner{Logger: log, ShutdownTimeout: DefaultShutdownTimeout}
}

// Add registers a component. start blocks until the component ends; stop
// asks it to end and may be nil when start already honours ctx.
func (r *Runner) Add(name string, start, stop func(ctx context.Context) error) *Runner {
	r.units = append(r.units, unit{name: name, start: start, stop: stop})
	return r
}

// WithSignals runs every component until a signal arrives or one fails and
// returns the process exit code.
func (r *Runner) WithSignals() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return r.Run(ctx)
}

// Run is WithSignals driven by ctx instead of process signals.
func (r *Runner) Run(ctx context.Context) int {
	g, gctx := errgroup.WithContext(ctx)
	for _, u := range r.units {
		g.Go(func() error {
			err := u.start(gctx)
			if err == nil || errors.Is(err, http.ErrServerClosed) || errors.Is(err, context.Canceled) {
				return nil
			}
			r.Logger.Error("component failed", zap.String("component", u.name), zap.Error(err))
			return err
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			r.Logger.Info("shutdown signal received")
		}
		r.shutdown()
		return nil
	})

	if err := g.Wait(); err != nil {
		return 1
	}
	return 0
}

func (r *Runner) shutdown() {
	timeout := r.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for i := len(r.units) - 1; i >= 0; i-- {
		u := r.units[i]
		if u.stop == nil {
			continue
		}
		if err := u.stop(ctx); err != nil {
			r.Logger.Warn("component stop", zap.String("component", u.name), zap.Error(err))
		}
	}
}

func Exit(code int) {
	os.Exit(code)
}
