package threads

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Thread is the view of one subject: its comment list plus the UI state
// around it. All Threads of an Engine share the same Store.
type Thread struct {
	e       *Engine
	subject Subject
	limits  Limits
	refresh *rate.Limiter
	log     *zap.Logger

	mu         sync.Mutex
	loading    int
	submitting int
	lastErr    string
	expanded   map[string]bool
	replyingTo string
}

// State is a read-only snapshot of a Thread.
type State struct {
	Subject      Subject   `json:"subject"`
	Comments     []Comment `json:"comments"`
	IsLoading    bool      `json:"is_loading"`
	IsSubmitting bool      `json:"is_submitting"`
	Error        string    `json:"error,omitempty"`
	Expanded     []string  `json:"expanded"`
	ReplyingTo   string    `json:"replying_to,omitempty"`
	Idle         bool      `json:"idle"`
}

func newThread(e *Engine, subject Subject) *Thread {
	return &Thread{
		e:        e,
		subject:  subject,
		limits:   e.limitsFor(subject.Type),
		refresh:  rate.NewLimiter(rate.Every(e.cooldown), 1),
		log:      e.log.With(zap.String("subject", subject.Key())),
		expanded: make(map[string]bool),
	}
}

func (t *Thread) Subject() Subject { return t.subject }

func (t *Thread) State() State {
	comments, _ := t.e.store.Get(t.subject)
	if comments == nil {
		comments = []Comment{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	expanded := make([]string, 0, len(t.expanded))
	for id := range t.expanded {
		expanded = append(expanded, id)
	}
	sort.Strings(expanded)
	return State{
		Subject:      t.subject,
		Comments:     comments,
		IsLoading:    t.loading > 0,
		IsSubmitting: t.submitting > 0,
		Error:        t.lastErr,
		Expanded:     expanded,
		ReplyingTo:   t.replyingTo,
		Idle:         settled(comments),
	}
}

// Comments returns the cached list, provisional records included.
func (t *Thread) Comments() []Comment {
	comments, _ := t.e.store.Get(t.subject)
	return comments
}

// ConfirmedComments returns the cached list with every provisional comment and
// reply left out, for views that must only show what the backend accepted.
func (t *Thread) ConfirmedComments() []Comment {
	comments, _ := t.e.store.Get(t.subject)
	out := make([]Comment, 0, len(comments))
	for _, c := range comments {
		if c.Pending() {
			continue
		}
		replies := c.Replies[:0]
		for _, r := range c.Replies {
			if !r.Pending() {
				replies = append(replies, r)
			}
		}
		c.Replies = replies
		out = append(out, c)
	}
	return out
}

// Cached reports whether the subject's list has been loaded into the cache.
func (t *Thread) Cached() bool {
	_, ok := t.e.store.Get(t.subject)
	return ok
}

// settled reports whether no provisional record is waiting on the backend.
func settled(comments []Comment) bool {
	for _, c := range comments {
		if c.Pending() {
			return false
		}
		for _, r := range c.Replies {
			if r.Pending() {
				return false
			}
		}
	}
	return true
}

// Load fetches the subject's list (and the viewer's own comment) and merges
// it into the cache.
func (t *Thread) Load(ctx context.Context) Outcome {
	t.track(&t.loading, 1)
	defer t.track(&t.loading, -1)

	var (
		fetched []Comment
		own     *Comment
	)
	who := t.e.identity()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		fetched, err = t.e.backend.ListComments(gctx, t.subject)
		return err
	})
	if who != nil {
		g.Go(func() error {
			var err error
			own, err = t.e.backend.GetUserComment(gctx, t.subject, who.ID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.log.Warn("load comments", zap.Error(err))
		out := remoteFailure(err, "Failed to load comments.")
		t.setError(out.Message)
		return out
	}

	if own != nil && indexAuthor(fetched, own.AuthorID) < 0 {
		fetched = append([]Comment{*own}, fetched...)
	}
	t.e.store.Update(t.subject, func(local []Comment) ([]Comment, bool) {
		return mergeList(local, fetched), true
	})
	t.setError("")
	return succeed("")
}

// Refresh is a manual Load. Requests closer together than the cooldown are
// turned away without a backend call.
func (t *Thread) Refresh(ctx context.Context) Outcome {
	if !t.refresh.Allow() {
		return fail(ErrRefreshCooldown, "Please wait a few seconds before refreshing again.")
	}
	return t.Load(ctx)
}

func (t *Thread) validate(text string, limit int, kind string) (string, Outcome, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fail(ErrValidation, fmt.Sprintf("Your %s cannot be empty.", kind)), false
	}
	if utf8.RuneCountInString(text) > limit {
		return "", fail(ErrValidation, fmt.Sprintf("Your %s must be at most %d characters.", kind, limit)), false
	}
	return text, Outcome{}, true
}

// SubmitComment posts the viewer's top-level comment. A viewer has at most one
// comment per subject, so a second submission edits the first in place.
func (t *Thread) SubmitComment(ctx context.Context, text string) Outcome {
	who := t.e.identity()
	if who == nil {
		return fail(ErrSignInRequired, "Please sign in to comment.")
	}
	text, out, valid := t.validate(text, t.limits.Comment, "comment")
	if !valid {
		return out
	}

	t.track(&t.submitting, 1)
	defer t.track(&t.submitting, -1)

	var (
		tempID ID
		prior  *Comment
	)
	t.e.store.Update(t.subject, func(list []Comment) ([]Comment, bool) {
		var p Comment
		if i := indexAuthor(list, who.ID); i >= 0 {
			existing := list[i].clone()
			prior = &existing
			p = t.e.builder.Edit(list[i], text)
		} else {
			p = t.e.builder.Comment(*who, text)
		}
		tempID = p.ID
		return placeComment(list, p), true
	})

	confirmed, err := t.e.backend.PostComment(ctx, t.subject, text)
	if err != nil {
		t.e.store.Update(t.subject, func(list []Comment) ([]Comment, bool) {
			return revertComment(list, tempID, prior), true
		})
		t.log.Warn("submit comment rolled back", zap.String("temp_id", tempID.String()), zap.Error(err))
		out := remoteFailure(err, "Failed to post your comment.")
		t.setError(out.Message)
		return out
	}

	t.e.store.Update(t.subject, func(list []Comment) ([]Comment, bool) {
		return confirmComment(list, tempID, confirmed), true
	})
	t.setError("")
	return moderated(confirmed.ModerationStatus, "comment")
}

// SubmitReply appends a reply to commentID. Unlike comments, a viewer may
// reply any number of times.
func (t *Thread) SubmitReply(ctx context.Context, commentID, text string) Outcome {
	who := t.e.identity()
	if who == nil {
		return fail(ErrSignInRequired, "Please sign in to reply.")
	}
	text, out, valid := t.validate(text, t.limits.Reply, "reply")
	if !valid {
		return out
	}
	parent, found := t.e.store.Find(t.subject, commentID)
	if !found {
		return fail(ErrNotFound, "This comment no longer exists.")
	}
	if out, allowed := interactive(parent.ID, parent.ModerationStatus, "Replies"); !allowed {
		return out
	}

	if !parent.RepliesLoaded {
		if err := t.loadReplies(ctx, commentID); err != nil {
			t.log.Warn("load replies before reply", zap.String("comment_id", commentID), zap.Error(err))
		}
	}

	t.track(&t.submitting, 1)
	defer t.track(&t.submitting, -1)

	provisional := t.e.builder.Reply(*who, commentID, text)
	placed := t.e.store.Update(t.subject, func(list []Comment) ([]Comment, bool) {
		i := indexComment(list, commentID)
		if i < 0 {
			return list, false
		}
		list[i].Replies = append(list[i].Replies, provisional)
		return list, true
	})
	if !placed {
		return fail(ErrNotFound, "This comment no longer exists.")
	}

	confirmed, err := t.e.backend.PostReply(ctx, t.subject, commentID, text)
	if err != nil {
		t.e.store.Update(t.subject, func(list []Comment) ([]Comment, bool) {
			return dropReply(list, commentID, provisional.ID), true
		})
		t.log.Warn("submit reply rolled back", zap.String("comment_id", commentID), zap.Error(err))
		out := remoteFailure(err, "Failed to post your reply.")
		t.setError(out.Message)
		return out
	}
	if confirmed.ParentCommentID == "" {
		confirmed.ParentCommentID = commentID
	}

	t.e.store.Update(t.subject, func(list []Comment) ([]Comment, bool) {
		i := indexComment(list, commentID)
		if i < 0 {
			return list, false
		}
		if !slices.ContainsFunc(list[i].Replies, func(r Reply) bool { return r.ID == confirmed.ID }) {
			list[i].ReplyCount++
		}
		list[i].Replies = confirmReply(list[i].Replies, provisional.ID, confirmed)
		return list, true
	})

	t.mu.Lock()
	t.expanded[commentID] = true
	t.replyingTo = ""
	t.lastErr = ""
	t.mu.Unlock()
	return moderated(confirmed.ModerationStatus, "reply")
}

// StartReply selects commentID as the comment being replied to.
func (t *Thread) StartReply(commentID string) Outcome {
	if t.e.identity() == nil {
		return fail(ErrSignInRequired, "Please sign in to reply.")
	}
	c, found := t.e.store.Find(t.subject, commentID)
	if !found {
		return fail(ErrNotFound, "This comment no longer exists.")
	}
	if out, allowed := interactive(c.ID, c.ModerationStatus, "Replies"); !allowed {
		return out
	}
	t.mu.Lock()
	t.replyingTo = commentID
	t.mu.Unlock()
	return succeed("")
}

func (t *Thread) CancelReply() {
	t.mu.Lock()
	t.replyingTo = ""
	t.mu.Unlock()
}

// ToggleReplies expands or collapses the replies of commentID, loading them
// on expansion when needed.
func (t *Thread) ToggleReplies(ctx context.Context, commentID string) Outcome {
	t.mu.Lock()
	if t.expanded[commentID] {
		delete(t.expanded, commentID)
		t.mu.Unlock()
		return succeed("")
	}
	t.mu.Unlock()

	if _, found := t.e.store.Find(t.subject, commentID); !found {
		return fail(ErrNotFound, "This comment no longer exists.")
	}
	t.mu.Lock()
	t.expanded[commentID] = true
	t.mu.Unlock()

	if err := t.loadReplies(ctx, commentID); err != nil {
		t.log.Warn("load replies", zap.String("comment_id", commentID), zap.Error(err))
		out := remoteFailure(err, "Failed to load replies.")
		t.setError(out.Message)
		return out
	}
	return succeed("")
}

// DeleteWarning reports how many replies a delete of commentID would take
// with it, as far as the cache knows: the backend's count, or the replies
// held locally when those are more. loaded is false when the replies were
// never fetched.
func (t *Thread) DeleteWarning(commentID string) (replies int, loaded bool, found bool) {
	c, found := t.e.store.Find(t.subject, commentID)
	if !found {
		return 0, false, false
	}
	return max(len(c.Replies), c.ReplyCount), c.RepliesLoaded, true
}

// interactive gates like, reply and delete: provisional records are unknown
// to the backend and moderated records are read-only.
func interactive(id ID, status ModerationStatus, what string) (Outcome, bool) {
	if id.IsProvisional() {
		return fail(ErrNotInteractive, "Please wait until this is posted."), false
	}
	if !status.Interactive() {
		return fail(ErrNotInteractive, what+" are disabled while this is under moderation."), false
	}
	return Outcome{}, true
}

func (t *Thread) track(counter *int, delta int) {
	t.mu.Lock()
	*counter += delta
	t.mu.Unlock()
}

func (t *Thread) setError(msg string) {
	t.mu.Lock()
	t.lastErr = msg
	t.mu.Unlock()
}
