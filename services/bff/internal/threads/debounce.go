package threads

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultDebounceWindow is how long a target must stay quiet before its
// latest call is sent.
const DefaultDebounceWindow = 300 * time.Millisecond

// Debouncer coalesces rapid calls per key into one trailing call. Every
// Schedule bumps the key's generation; only the call of the latest
// generation is sent, at most one call per key is in flight, and a failure
// is reported only if no newer call was scheduled meanwhile.
type Debouncer struct {
	window time.Duration
	log    *zap.Logger

	mu      sync.Mutex
	targets map[string]*debounced
	wg      sync.WaitGroup
}

type debounced struct {
	gen      uint64
	timer    *time.Timer
	ctx      context.Context
	call     func(context.Context) error
	onFail   func(error)
	inflight bool
	queued   bool
}

func NewDebouncer(window time.Duration, log *zap.Logger) *Debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Debouncer{window: window, log: log, targets: make(map[string]*debounced)}
}

// Schedule replaces whatever is pending for key with call. onFail runs
// after call fails unless it has been superseded by then.
func (d *Debouncer) Schedule(ctx context.Context, key string, call func(context.Context) error, onFail func(error)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.targets[key]
	if !ok {
		t = &debounced{}
		d.targets[key] = t
	}
	t.gen++
	gen := t.gen
	t.ctx = context.WithoutCancel(ctx)
	t.call = call
	t.onFail = onFail
	t.queued = false
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(d.window, func() { d.fire(key, gen) })
}

func (d *Debouncer) fire(key string, gen uint64) {
	d.mu.Lock()
	t, ok := d.targets[key]
	if !ok || t.gen != gen {
		d.mu.Unlock()
		return
	}
	if t.inflight {
		t.queued = true
		d.mu.Unlock()
		return
	}
	t.inflight = true
	ctx, call, onFail := t.ctx, t.call, t.onFail
	d.wg.Add(1)
	d.mu.Unlock()
	defer d.wg.Done()

	err := call(ctx)

	d.mu.Lock()
	t.inflight = false
	latest := t.gen == gen
	queued := t.queued
	next := t.gen
	t.queued = false
	if latest && !queued {
		delete(d.targets, key)
	}
	d.mu.Unlock()

	switch {
	case err != nil && latest:
		d.log.Warn("debounced call failed", zap.String("key", key), zap.Error(err))
		if onFail != nil {
			onFail(err)
		}
	case err != nil:
		d.log.Debug("superseded call failed", zap.String("key", key), zap.Error(err))
	}
	if queued {
		d.fire(key, next)
	}
}

// Pending reports whether key has a call scheduled or in flight.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.targets[key]
	return ok
}

// Wait blocks until every call already sent has completed.
func (d *Debouncer) Wait() { d.wg.Wait() }
