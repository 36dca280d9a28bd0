package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/example/skin-platform/internal/platform/auth"
	"github.com/example/skin-platform/services/bff/internal/socialclient"
	"github.com/example/skin-platform/services/bff/internal/threads"
)

// Session is one viewer's engine plus the credentials it calls social with.
// Credentials are refreshed from every request the viewer makes.
type Session struct {
	Engine *threads.Engine

	mu       sync.RWMutex
	token    string
	identity *threads.Identity
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Identity returns a copy of the signed-in viewer, or nil for the anonymous session.
func (s *Session) Identity() *threads.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return nil
	}
	who := *s.identity
	return &who
}

func (s *Session) refresh(token string, who *threads.Identity) {
	s.mu.Lock()
	s.token = token
	s.identity = who
	s.mu.Unlock()
}

type SessionOptions struct {
	SocialURL       string
	HTTPClient      *http.Client
	TTL             time.Duration
	DebounceWindow  time.Duration
	RefreshCooldown time.Duration
	Limits          map[threads.SubjectType]threads.Limits
	Logger          *zap.Logger
}

// Sessions keeps one Session per signed-in user, dropped after TTL without
// activity, and a shared Session for signed-out readers.
type Sessions struct {
	opts  SessionOptions
	log   *zap.Logger
	table *cache.Cache
	anon  *Session

	mu sync.Mutex
}

const defaultSessionTTL = 30 * time.Minute

func NewSessions(opts SessionOptions) *Sessions {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultSessionTTL
	}
	s := &Sessions{
		opts:  opts,
		log:   opts.Logger,
		table: cache.New(opts.TTL, opts.TTL/2),
	}
	s.table.OnEvicted(func(userID string, _ any) {
		s.log.Debug("session expired", zap.String("user_id", userID))
	})
	s.anon = s.newSession("", nil)
	return s
}

func (s *Sessions) newSession(token string, who *threads.Identity) *Session {
	sess := &Session{token: token, identity: who}
	client := socialclient.New(s.opts.SocialURL, sess.Token)
	if s.opts.HTTPClient != nil {
		client.HTTPClient = s.opts.HTTPClient
	}
	log := s.log
	if who != nil {
		log = log.With(zap.String("user_id", who.ID))
	}
	sess.Engine = threads.New(threads.Options{
		Backend:         client,
		Identity:        sess.Identity,
		Logger:          log,
		DebounceWindow:  s.opts.DebounceWindow,
		RefreshCooldown: s.opts.RefreshCooldown,
		Limits:          s.opts.Limits,
	})
	return sess
}

// For returns the session of the viewer authenticated on ctx, creating it on
// first use, or the anonymous session.
func (s *Sessions) For(ctx context.Context) *Session {
	uid, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return s.anon
	}
	profile, _ := auth.ProfileFromContext(ctx)
	token, _ := auth.TokenFromContext(ctx)
	who := &threads.Identity{ID: uid, Username: profile.Username, ProfilePictureURL: profile.Picture}

	s.mu.Lock()
	defer s.mu.Unlock()
	if v, found := s.table.Get(uid); found {
		sess := v.(*Session)
		sess.refresh(token, who)
		s.table.SetDefault(uid, sess)
		return sess
	}
	sess := s.newSession(token, who)
	s.table.SetDefault(uid, sess)
	s.log.Debug("session opened", zap.String("user_id", uid))
	return sess
}

// Each calls fn for every live session, the anonymous one included.
func (s *Sessions) Each(fn func(*Session)) {
	fn(s.anon)
	for _, item := range s.table.Items() {
		fn(item.Object.(*Session))
	}
}

func (s *Sessions) Len() int { return s.table.ItemCount() }
