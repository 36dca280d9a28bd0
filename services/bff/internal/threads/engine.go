// Package threads keeps comment threads in a local cache and applies user
// mutations optimistically: the cache changes as soon as the user acts, the
// backend call runs afterwards, and the cache is reconciled with the
// confirmed record or rolled back when the call fails.
package threads

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultRefreshCooldown is the minimum spacing of manual refreshes.
const DefaultRefreshCooldown = 5 * time.Second

type Options struct {
	Backend Backend
	// Identity reports the signed-in user, or nil. It is only ever read.
	Identity        func() *Identity
	Logger          *zap.Logger
	DebounceWindow  time.Duration
	RefreshCooldown time.Duration
	// Limits overrides DefaultLimits per subject type.
	Limits  map[SubjectType]Limits
	Builder *Builder
}

// Engine owns the cache shared by every Thread of one viewer, so all views of
// a subject stay consistent with each other.
type Engine struct {
	backend   Backend
	identity  func() *Identity
	log       *zap.Logger
	store     *Store
	debouncer *Debouncer
	builder   Builder
	limits    map[SubjectType]Limits
	cooldown  time.Duration
	loads     singleflight.Group

	mu      sync.Mutex
	threads map[string]*Thread
}

func New(opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	identity := opts.Identity
	if identity == nil {
		identity = func() *Identity { return nil }
	}
	builder := NewBuilder()
	if opts.Builder != nil {
		builder = *opts.Builder
	}
	cooldown := opts.RefreshCooldown
	if cooldown <= 0 {
		cooldown = DefaultRefreshCooldown
	}
	return &Engine{
		backend:   opts.Backend,
		identity:  identity,
		log:       log,
		store:     NewStore(),
		debouncer: NewDebouncer(opts.DebounceWindow, log),
		builder:   builder,
		limits:    opts.Limits,
		cooldown:  cooldown,
		threads:   make(map[string]*Thread),
	}
}

// Thread returns the view of subject, creating it on first use.
func (e *Engine) Thread(subject Subject) *Thread {
	e.mu.Lock()
	defer e.mu.Unlock()
	if t, ok := e.threads[subject.Key()]; ok {
		return t
	}
	t := newThread(e, subject)
	e.threads[subject.Key()] = t
	return t
}

// Lookup returns the view of subject only if one was opened.
func (e *Engine) Lookup(subject Subject) (*Thread, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.threads[subject.Key()]
	return t, ok
}

// Sync reloads subject in the background path: no cooldown, and only when a
// view of it is open.
func (e *Engine) Sync(ctx context.Context, subject Subject) Outcome {
	t, ok := e.Lookup(subject)
	if !ok {
		return fail(ErrNotFound, "")
	}
	return t.Load(ctx)
}

func (e *Engine) Store() *Store { return e.store }

func (e *Engine) Identity() *Identity { return e.identity() }

// Wait blocks until every like call already sent has completed.
func (e *Engine) Wait() { e.debouncer.Wait() }

func (e *Engine) limitsFor(t SubjectType) Limits {
	if l, ok := e.limits[t]; ok {
		return l
	}
	return DefaultLimits
}
