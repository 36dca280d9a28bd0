package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/skin-platform/services/bff/internal/threads"
)

// SubjectCommentsChanged is where social announces comment mutations.
const SubjectCommentsChanged = "social.comments.changed"

type changeEvent struct {
	EventID string `json:"event_id"`
	Kind    string `json:"kind"`
	Subject string `json:"subject"`
	ActorID string `json:"actor_id"`
}

// Invalidator reloads the open threads of a subject in every live session
// when social reports a change to it.
type Invalidator struct {
	Sessions *Sessions
	Log      *zap.Logger
	Timeout  time.Duration
	// Parallel bounds concurrent reloads per event.
	Parallel int
}

func NewInvalidator(sessions *Sessions, log *zap.Logger) *Invalidator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Invalidator{Sessions: sessions, Log: log, Timeout: 10 * time.Second, Parallel: 8}
}

// Subscribe wires the invalidator to NATS. A nil connection disables it.
func (iv *Invalidator) Subscribe(nc *nats.Conn) (*nats.Subscription, error) {
	if nc == nil {
		iv.Log.Info("NATS not configured; thread sync disabled")
		return nil, nil
	}
	return nc.Subscribe(SubjectCommentsChanged, func(m *nats.Msg) {
		iv.Handle(m.Data)
	})
}

// Handle processes one change event and returns how many threads were reloaded.
func (iv *Invalidator) Handle(data []byte) int {
	var evt changeEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		iv.Log.Warn("bad change event", zap.Error(err))
		return 0
	}
	subject, err := threads.ParseSubjectKey(evt.Subject)
	if err != nil {
		iv.Log.Warn("bad change event subject", zap.String("subject", evt.Subject), zap.Error(err))
		return 0
	}

	var targets []*threads.Engine
	iv.Sessions.Each(func(s *Session) {
		if who := s.Identity(); who != nil && who.ID == evt.ActorID {
			return
		}
		if _, open := s.Engine.Lookup(subject); open {
			targets = append(targets, s.Engine)
		}
	})
	if len(targets) == 0 {
		return 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), iv.Timeout)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(iv.Parallel, 1))
	for _, e := range targets {
		g.Go(func() error {
			if out := e.Sync(gctx, subject); out.Err != nil {
				iv.Log.Debug("thread sync failed", zap.String("subject", subject.Key()), zap.Error(out.Err))
			}
			return nil
		})
	}
	_ = g.Wait()
	iv.Log.Debug("threads synced",
		zap.String("event_id", evt.EventID),
		zap.String("kind", evt.Kind),
		zap.String("subject", subject.Key()),
		zap.Int("threads", len(targets)),
	)
	return len(targets)
}
