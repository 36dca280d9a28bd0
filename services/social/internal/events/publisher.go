// Package events announces comment changes on NATS JetStream so that session
// holders can resync their cached threads.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	SubjectCommentsChanged = "social.comments.changed"
	streamName             = "SOCIAL_COMMENTS"
)

// Change kinds.
const (
	KindComment = "comment"
	KindReply   = "reply"
	KindLike    = "like"
	KindDelete  = "delete"
)

// ChangeEvent is the payload published for every mutation.
type ChangeEvent struct {
	EventID    string    `json:"event_id"`
	Kind       string    `json:"kind"`
	Subject    string    `json:"subject"` // "<type>:<id>"
	CommentID  string    `json:"comment_id"`
	ParentID   string    `json:"parent_id,omitempty"`
	ActorID    string    `json:"actor_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher is what handlers use to announce changes.
type Publisher interface {
	Publish(ctx context.Context, evt ChangeEvent) error
}

// JetStreamPublisher publishes change events to NATS JetStream.
type JetStreamPublisher struct {
	js  nats.JetStreamContext
	log *zap.Logger
}

// NewJetStream wraps js. A nil js gives a no-op publisher (stub mode).
func NewJetStream(js nats.JetStreamContext, log *zap.Logger) *JetStreamPublisher {
	if js == nil {
		log.Warn("NATS not configured, comment events will not be published (stub mode)")
	}
	return &JetStreamPublisher{js: js, log: log}
}

// Stream is the stream definition the publisher expects.
func Stream() (string, []string) {
	return streamName, []string{"social.comments.>"}
}

func (p *JetStreamPublisher) Publish(ctx context.Context, evt ChangeEvent) error {
	if evt.EventID == "" {
		evt.EventID = uuid.NewString()
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	if p.js == nil {
		p.log.Debug("NATS stub: skipping publish", zap.String("subject", evt.Subject), zap.String("event_id", evt.EventID))
		return nil
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("events: marshal: %w", err)
	}
	ack, err := p.js.Publish(SubjectCommentsChanged, data, nats.Context(ctx), nats.MsgId(evt.EventID))
	if err != nil {
		return fmt.Errorf("events: publish: %w", err)
	}

	p.log.Debug("comment event published",
		zap.String("kind", evt.Kind),
		zap.String("subject", evt.Subject),
		zap.String("event_id", evt.EventID),
		zap.Uint64("seq", ack.Sequence),
	)
	return nil
}

// Recorder keeps published events in memory. Useful for testing.
type Recorder struct {
	mu     sync.Mutex
	events []ChangeEvent
}

func (r *Recorder) Publish(_ context.Context, evt ChangeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *Recorder) Events() []ChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ChangeEvent(nil), r.events...)
}
