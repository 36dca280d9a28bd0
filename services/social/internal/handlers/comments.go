package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/skin-platform/internal/platform/api"
	"github.com/example/skin-platform/services/social/internal/events"
	"github.com/example/skin-platform/services/social/internal/store"
)

type authorDTO struct {
	Username          string `json:"username"`
	ProfilePictureURL string `json:"profile_picture_url,omitempty"`
}

type capabilitiesDTO struct {
	CanDelete bool `json:"can_delete"`
	CanEdit   bool `json:"can_edit"`
}

type commentDTO struct {
	ID               string          `json:"id"`
	ParentCommentID  string          `json:"parent_comment_id,omitempty"`
	AuthorID         string          `json:"author_id"`
	Author           authorDTO       `json:"author"`
	Text             string          `json:"text"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	ModerationStatus string          `json:"moderation_status"`
	LikedBy          []string        `json:"liked_by"`
	IsEdited         bool            `json:"is_edited"`
	Capabilities     capabilitiesDTO `json:"capabilities"`
	ReplyCount       int             `json:"reply_count"`
}

// thresholds tells clients which limits and statuses the list was moderated with.
type thresholds struct {
	CommentMaxRunes  int      `json:"comment_max_runes"`
	ReplyMaxRunes    int      `json:"reply_max_runes"`
	ReadOnlyStatuses []string `json:"read_only_statuses"`
}

type listResponse struct {
	Comments   []commentDTO `json:"comments"`
	Moderation thresholds   `json:"moderation"`
}

func (d Deps) thresholds() thresholds {
	return thresholds{
		CommentMaxRunes:  d.Limits.Comment,
		ReplyMaxRunes:    d.Limits.Reply,
		ReadOnlyStatuses: []string{store.StatusNeedsReview, store.StatusRejected},
	}
}

type repliesResponse struct {
	Replies []commentDTO `json:"replies"`
}

func toDTO(c store.Comment, v viewer) commentDTO {
	liked := c.LikedBy
	if liked == nil {
		liked = []string{}
	}
	own := v.signedIn() && v.id == c.AuthorID
	return commentDTO{
		ID:               c.ID,
		ParentCommentID:  c.ParentID,
		AuthorID:         c.AuthorID,
		Author:           authorDTO{Username: c.Username, ProfilePictureURL: c.AvatarURL},
		Text:             c.Body,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
		ModerationStatus: c.Status,
		LikedBy:          liked,
		IsEdited:         c.Edited,
		Capabilities:     capabilitiesDTO{CanDelete: own || (v.signedIn() && v.admin), CanEdit: own},
		ReplyCount:       c.ReplyCount,
	}
}

func toDTOs(list []store.Comment, v viewer) []commentDTO {
	out := make([]commentDTO, 0, len(list))
	for _, c := range list {
		out = append(out, toDTO(c, v))
	}
	return out
}

// ListComments handles GET /v1/{type}/{id}/comments
func ListComments(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject, ok := subjectFrom(r)
		if !ok {
			api.NotFound(w, "UNKNOWN_SUBJECT", "unknown subject", rid(r))
			return
		}
		v := viewerFrom(r.Context())
		list, err := d.Store.List(r.Context(), subject, v.id)
		if err != nil {
			d.storeFailure(w, r, "list comments", err)
			return
		}
		api.WriteJSON(w, http.StatusOK, listResponse{Comments: toDTOs(list, v), Moderation: d.thresholds()})
	}
}

// GetAuthorComment handles GET /v1/{type}/{id}/comments/by/{author_id}
func GetAuthorComment(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject, ok := subjectFrom(r)
		if !ok {
			api.NotFound(w, "UNKNOWN_SUBJECT", "unknown subject", rid(r))
			return
		}
		authorID := strings.TrimSpace(chi.URLParam(r, "author_id"))
		v := viewerFrom(r.Context())
		c, err := d.Store.ByAuthor(r.Context(), subject, authorID)
		if err == nil && !c.VisibleTo(v.id) {
			err = store.ErrNotFound
		}
		if err != nil {
			d.storeFailure(w, r, "get author comment", err)
			return
		}
		api.WriteJSON(w, http.StatusOK, toDTO(c, v))
	}
}

// PostComment handles POST /v1/{type}/{id}/comments. A second post by the
// same author edits the existing comment.
func PostComment(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := viewerFrom(r.Context())
		if !v.signedIn() {
			api.Unauthorized(w, "UNAUTHORIZED", "Please sign in to comment.", rid(r))
			return
		}
		subject, ok := subjectFrom(r)
		if !ok {
			api.NotFound(w, "UNKNOWN_SUBJECT", "unknown subject", rid(r))
			return
		}
		var req textRequest
		if err := api.DecodeJSON(w, r, &req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", rid(r), nil)
			return
		}
		text, problem := d.checkText(req.Text, d.Limits.Comment, "comment")
		if problem != "" {
			api.Unprocessable(w, "VALIDATION", problem, rid(r), map[string]any{"max": d.Limits.Comment})
			return
		}
		status, err := d.Moderator.Review(r.Context(), text)
		if err != nil {
			d.storeFailure(w, r, "moderate comment", err)
			return
		}

		saved, err := d.Store.UpsertComment(r.Context(), store.Comment{
			SubjectType: subject.Type,
			SubjectID:   subject.ID,
			AuthorID:    v.id,
			Username:    v.profile.Username,
			AvatarURL:   v.profile.Picture,
			Body:        text,
			Status:      status,
		})
		if err != nil {
			d.storeFailure(w, r, "upsert comment", err)
			return
		}
		d.announce(r, events.ChangeEvent{Kind: events.KindComment, Subject: subjectKey(subject), CommentID: saved.ID, ActorID: v.id})

		code := http.StatusCreated
		if saved.Edited {
			code = http.StatusOK
		}
		api.WriteJSON(w, code, toDTO(saved, v))
	}
}

// ListReplies handles GET /v1/{type}/{id}/comments/{comment_id}/replies
func ListReplies(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject, ok := subjectFrom(r)
		if !ok {
			api.NotFound(w, "UNKNOWN_SUBJECT", "unknown subject", rid(r))
			return
		}
		v := viewerFrom(r.Context())
		replies, err := d.Store.Replies(r.Context(), subject, chi.URLParam(r, "comment_id"), v.id)
		if err != nil {
			d.storeFailure(w, r, "list replies", err)
			return
		}
		api.WriteJSON(w, http.StatusOK, repliesResponse{Replies: toDTOs(replies, v)})
	}
}

// PostReply handles POST /v1/{type}/{id}/comments/{comment_id}/replies
func PostReply(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := viewerFrom(r.Context())
		if !v.signedIn() {
			api.Unauthorized(w, "UNAUTHORIZED", "Please sign in to reply.", rid(r))
			return
		}
		subject, ok := subjectFrom(r)
		if !ok {
			api.NotFound(w, "UNKNOWN_SUBJECT", "unknown subject", rid(r))
			return
		}
		parentID := strings.TrimSpace(chi.URLParam(r, "comment_id"))
		var req textRequest
		if err := api.DecodeJSON(w, r, &req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", rid(r), nil)
			return
		}
		text, problem := d.checkText(req.Text, d.Limits.Reply, "reply")
		if problem != "" {
			api.Unprocessable(w, "VALIDATION", problem, rid(r), map[string]any{"max": d.Limits.Reply})
			return
		}

		parent, err := d.Store.Get(r.Context(), subject, parentID)
		if err == nil && parent.ParentID != "" {
			err = store.ErrParentNotFound
		}
		if errors.Is(err, store.ErrNotFound) {
			err = store.ErrParentNotFound
		}
		if err != nil {
			d.storeFailure(w, r, "get parent", err)
			return
		}
		if parent.Status != store.StatusApproved {
			api.Conflict(w, "NOT_INTERACTIVE", "You cannot reply to a comment under moderation.", rid(r), nil)
			return
		}

		status, err := d.Moderator.Review(r.Context(), text)
		if err != nil {
			d.storeFailure(w, r, "moderate reply", err)
			return
		}
		saved, err := d.Store.CreateReply(r.Context(), store.Comment{
			SubjectType: subject.Type,
			SubjectID:   subject.ID,
			ParentID:    parentID,
			AuthorID:    v.id,
			Username:    v.profile.Username,
			AvatarURL:   v.profile.Picture,
			Body:        text,
			Status:      status,
		})
		if err != nil {
			d.storeFailure(w, r, "create reply", err)
			return
		}
		d.announce(r, events.ChangeEvent{Kind: events.KindReply, Subject: subjectKey(subject), CommentID: saved.ID, ParentID: parentID, ActorID: v.id})
		api.WriteJSON(w, http.StatusCreated, toDTO(saved, v))
	}
}

// SetLike handles POST .../like and .../unlike for comments and replies.
func SetLike(d Deps, liked bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := viewerFrom(r.Context())
		if !v.signedIn() {
			api.Unauthorized(w, "UNAUTHORIZED", "Please sign in to like comments.", rid(r))
			return
		}
		subject, ok := subjectFrom(r)
		if !ok {
			api.NotFound(w, "UNKNOWN_SUBJECT", "unknown subject", rid(r))
			return
		}
		target, ok := d.target(w, r, subject)
		if !ok {
			return
		}
		if target.Status != store.StatusApproved {
			api.Conflict(w, "NOT_INTERACTIVE", "You cannot like a comment under moderation.", rid(r), nil)
			return
		}
		if err := d.Store.SetLike(r.Context(), subject, target.ID, v.id, liked); err != nil {
			d.storeFailure(w, r, "set like", err)
			return
		}
		d.announce(r, events.ChangeEvent{Kind: events.KindLike, Subject: subjectKey(subject), CommentID: target.ID, ParentID: target.ParentID, ActorID: v.id})
		w.WriteHeader(http.StatusNoContent)
	}
}

// Delete handles DELETE on a comment (cascading to its replies) or a reply.
// Authors may delete their own records, admins anything approved.
func Delete(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := viewerFrom(r.Context())
		if !v.signedIn() {
			api.Unauthorized(w, "UNAUTHORIZED", "authentication required", rid(r))
			return
		}
		subject, ok := subjectFrom(r)
		if !ok {
			api.NotFound(w, "UNKNOWN_SUBJECT", "unknown subject", rid(r))
			return
		}
		target, ok := d.target(w, r, subject)
		if !ok {
			return
		}
		if target.Status != store.StatusApproved {
			api.Conflict(w, "NOT_INTERACTIVE", "You cannot delete a comment under moderation.", rid(r), nil)
			return
		}
		if target.AuthorID != v.id && !v.admin {
			api.Forbidden(w, "FORBIDDEN", "You can only delete your own comments.", rid(r))
			return
		}
		if err := d.Store.Delete(r.Context(), subject, target.ID); err != nil {
			d.storeFailure(w, r, "delete", err)
			return
		}
		d.announce(r, events.ChangeEvent{Kind: events.KindDelete, Subject: subjectKey(subject), CommentID: target.ID, ParentID: target.ParentID, ActorID: v.id})
		w.WriteHeader(http.StatusNoContent)
	}
}

// target resolves {comment_id} and the optional {reply_id} to the record
// the request acts on, writing a 404 when it does not exist.
func (d Deps) target(w http.ResponseWriter, r *http.Request, subject store.Subject) (store.Comment, bool) {
	commentID := strings.TrimSpace(chi.URLParam(r, "comment_id"))
	replyID := strings.TrimSpace(chi.URLParam(r, "reply_id"))

	id := commentID
	if replyID != "" {
		id = replyID
	}
	c, err := d.Store.Get(r.Context(), subject, id)
	if err == nil {
		switch {
		case replyID == "" && c.ParentID != "":
			err = store.ErrNotFound
		case replyID != "" && c.ParentID != commentID:
			err = store.ErrNotFound
		}
	}
	if err != nil {
		d.storeFailure(w, r, "get target", err)
		return store.Comment{}, false
	}
	return c, true
}
