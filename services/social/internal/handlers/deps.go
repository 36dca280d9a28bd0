package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/example/skin-platform/internal/platform/api"
	"github.com/example/skin-platform/internal/platform/auth"
	"github.com/example/skin-platform/internal/platform/httpserver"
	"github.com/example/skin-platform/services/social/internal/events"
	"github.com/example/skin-platform/services/social/internal/moderation"
	"github.com/example/skin-platform/services/social/internal/store"
)

// Limits bounds text length in runes.
type Limits struct {
	Comment int
	Reply   int
}

var DefaultLimits = Limits{Comment: 1000, Reply: 500}

// Deps is everything the comment handlers need.
type Deps struct {
	Store     store.CommentStore
	Moderator moderation.Moderator
	Events    events.Publisher
	Limits    Limits
	Log       *zap.Logger
	validate  *validator.Validate
}

// NewDeps fills defaults for anything left nil.
func NewDeps(d Deps) Deps {
	if d.Moderator == nil {
		d.Moderator = moderation.NewBlocklist(nil, nil)
	}
	if d.Events == nil {
		d.Events = &events.Recorder{}
	}
	if d.Limits.Comment <= 0 {
		d.Limits.Comment = DefaultLimits.Comment
	}
	if d.Limits.Reply <= 0 {
		d.Limits.Reply = DefaultLimits.Reply
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	d.validate = validator.New()
	return d
}

type viewer struct {
	id      string
	profile auth.Profile
	admin   bool
}

func viewerFrom(ctx context.Context) viewer {
	uid, _ := auth.UserIDFromContext(ctx)
	p, _ := auth.ProfileFromContext(ctx)
	if p.Username == "" {
		p.Username = uid
	}
	return viewer{id: uid, profile: p, admin: auth.IsAdmin(ctx)}
}

func (v viewer) signedIn() bool { return v.id != "" }

func subjectFrom(r *http.Request) (store.Subject, bool) {
	typ := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "type")))
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" || (typ != store.SubjectSkin && typ != store.SubjectPost) {
		return store.Subject{}, false
	}
	return store.Subject{Type: typ, ID: id}, true
}

func rid(r *http.Request) string { return httpserver.RequestIDFromContext(r.Context()) }

type textRequest struct {
	Text string `json:"text"`
}

// checkText trims and validates text against limit runes. The returned message
// is shown to end users.
func (d Deps) checkText(text string, limit int, what string) (string, string) {
	text = strings.TrimSpace(text)
	err := d.validate.Var(text, fmt.Sprintf("required,max=%d", limit))
	if err == nil {
		return text, ""
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Tag() == "max" {
		return "", fmt.Sprintf("Your %s must be at most %d characters.", what, limit)
	}
	return "", fmt.Sprintf("Your %s cannot be empty.", what)
}

// announce publishes a change; failures are logged and never fail the request.
func (d Deps) announce(r *http.Request, evt events.ChangeEvent) {
	evt.OccurredAt = time.Now().UTC()
	if err := d.Events.Publish(r.Context(), evt); err != nil {
		d.Log.Warn("publish comment event", zap.String("kind", evt.Kind), zap.String("subject", evt.Subject), zap.Error(err))
	}
}

func subjectKey(s store.Subject) string { return s.Type + ":" + s.ID }

func (d Deps) storeFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		api.NotFound(w, "NOT_FOUND", "This comment no longer exists.", rid(r))
	case errors.Is(err, store.ErrParentNotFound):
		api.NotFound(w, "PARENT_NOT_FOUND", "The comment you are replying to no longer exists.", rid(r))
	default:
		d.Log.Error(op, zap.Error(err), zap.String("request_id", rid(r)))
		api.Internal(w, rid(r))
	}
}
