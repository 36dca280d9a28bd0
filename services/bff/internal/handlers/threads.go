package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/skin-platform/internal/platform/api"
	"github.com/example/skin-platform/internal/platform/auth"
	"github.com/example/skin-platform/internal/platform/httpserver"
	"github.com/example/skin-platform/services/bff/internal/threads"
)

// Threads serves the comment thread views of the signed-in (or anonymous) viewer.
type Threads struct {
	Sessions *Sessions
	Log      *zap.Logger
}

func NewThreads(sessions *Sessions, log *zap.Logger) *Threads {
	if log == nil {
		log = zap.NewNop()
	}
	return &Threads{Sessions: sessions, Log: log}
}

type textReq struct {
	Text string `json:"text"`
}

type likeReq struct {
	TargetID        string `json:"target_id"`
	Liked           bool   `json:"liked"`
	ParentCommentID string `json:"parent_comment_id,omitempty"`
}

type replyingReq struct {
	CommentID string `json:"comment_id"`
}

type threadResponse struct {
	Outcome threads.Outcome `json:"outcome"`
	State   threads.State   `json:"state"`
}

// Mount registers the thread routes on r.
func (h *Threads) Mount(r chi.Router, verifier auth.JWTVerifier) {
	r.Route("/v1/threads/{type}/{id}", func(r chi.Router) {
		r.Use(auth.OptionalUser(verifier))
		r.Get("/", h.view(h.get))
		r.Post("/refresh", h.view(h.refresh))
		r.Post("/comments", h.view(h.submitComment))
		r.Delete("/comments/{comment_id}", h.view(h.deleteComment))
		r.Get("/comments/{comment_id}/delete-warning", h.deleteWarning)
		r.Post("/comments/{comment_id}/replies", h.view(h.submitReply))
		r.Post("/comments/{comment_id}/replies/toggle", h.view(h.toggleReplies))
		r.Delete("/comments/{comment_id}/replies/{reply_id}", h.view(h.deleteReply))
		r.Post("/replying", h.view(h.startReply))
		r.Delete("/replying", h.view(h.cancelReply))
		r.Post("/likes", h.view(h.like))
	})
}

// action runs one operation against a thread. ok=false means the action
// already wrote a response.
type action func(w http.ResponseWriter, r *http.Request, t *threads.Thread, rid string) (threads.Outcome, bool)

func (h *Threads) view(act action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		subject, ok := subjectParam(w, r, rid)
		if !ok {
			return
		}
		t := h.Sessions.For(r.Context()).Engine.Thread(subject)
		out, ok := act(w, r, t, rid)
		if !ok {
			return
		}
		state := t.State()
		if r.URL.Query().Get("view") == "confirmed" {
			state.Comments = t.ConfirmedComments()
		}
		h.writeOutcome(w, rid, out, state)
	}
}

func (h *Threads) writeOutcome(w http.ResponseWriter, rid string, out threads.Outcome, state threads.State) {
	if out.Success || out.Err == nil {
		api.WriteJSON(w, http.StatusOK, threadResponse{Outcome: out, State: state})
		return
	}
	code := out.Code()
	details := map[string]any{"state": state}
	switch code {
	case "SIGN_IN_REQUIRED":
		api.WriteError(w, http.StatusUnauthorized, code, out.Message, rid, details)
	case "VALIDATION":
		api.Unprocessable(w, code, out.Message, rid, details)
	case "NOT_INTERACTIVE":
		api.Conflict(w, code, out.Message, rid, details)
	case "NOT_FOUND":
		api.WriteError(w, http.StatusNotFound, code, out.Message, rid, details)
	case "REFRESH_COOLDOWN":
		api.RateLimited(w, code, out.Message, rid, details)
	default:
		h.Log.Warn("thread operation failed", zap.String("request_id", rid), zap.Error(out.Err))
		api.WriteError(w, http.StatusBadGateway, code, out.Message, rid, details)
	}
}

// get returns the cached view, loading it first when the subject is new to
// this viewer.
func (h *Threads) get(_ http.ResponseWriter, r *http.Request, t *threads.Thread, _ string) (threads.Outcome, bool) {
	if t.Cached() {
		return threads.Outcome{Success: true}, true
	}
	return t.Load(r.Context()), true
}

func (h *Threads) refresh(_ http.ResponseWriter, r *http.Request, t *threads.Thread, _ string) (threads.Outcome, bool) {
	return t.Refresh(r.Context()), true
}

func (h *Threads) submitComment(w http.ResponseWriter, r *http.Request, t *threads.Thread, rid string) (threads.Outcome, bool) {
	var req textReq
	if !decodeJSON(w, r, rid, &req) {
		return threads.Outcome{}, false
	}
	return t.SubmitComment(r.Context(), req.Text), true
}

func (h *Threads) submitReply(w http.ResponseWriter, r *http.Request, t *threads.Thread, rid string) (threads.Outcome, bool) {
	var req textReq
	if !decodeJSON(w, r, rid, &req) {
		return threads.Outcome{}, false
	}
	return t.SubmitReply(r.Context(), chi.URLParam(r, "comment_id"), req.Text), true
}

func (h *Threads) toggleReplies(_ http.ResponseWriter, r *http.Request, t *threads.Thread, _ string) (threads.Outcome, bool) {
	return t.ToggleReplies(r.Context(), chi.URLParam(r, "comment_id")), true
}

func (h *Threads) startReply(w http.ResponseWriter, r *http.Request, t *threads.Thread, rid string) (threads.Outcome, bool) {
	var req replyingReq
	if !decodeJSON(w, r, rid, &req) {
		return threads.Outcome{}, false
	}
	return t.StartReply(req.CommentID), true
}

func (h *Threads) cancelReply(_ http.ResponseWriter, _ *http.Request, t *threads.Thread, _ string) (threads.Outcome, bool) {
	t.CancelReply()
	return threads.Outcome{Success: true}, true
}

func (h *Threads) like(w http.ResponseWriter, r *http.Request, t *threads.Thread, rid string) (threads.Outcome, bool) {
	var req likeReq
	if !decodeJSON(w, r, rid, &req) {
		return threads.Outcome{}, false
	}
	if req.TargetID == "" {
		api.BadRequest(w, "MISSING_ID", "target_id is required", rid, nil)
		return threads.Outcome{}, false
	}
	return t.ToggleLike(r.Context(), req.TargetID, req.Liked, req.ParentCommentID), true
}

func (h *Threads) deleteComment(_ http.ResponseWriter, r *http.Request, t *threads.Thread, _ string) (threads.Outcome, bool) {
	return t.DeleteComment(r.Context(), chi.URLParam(r, "comment_id")), true
}

func (h *Threads) deleteReply(_ http.ResponseWriter, r *http.Request, t *threads.Thread, _ string) (threads.Outcome, bool) {
	return t.DeleteReply(r.Context(), chi.URLParam(r, "comment_id"), chi.URLParam(r, "reply_id")), true
}

func (h *Threads) deleteWarning(w http.ResponseWriter, r *http.Request) {
	rid := httpserver.RequestIDFromContext(r.Context())
	subject, ok := subjectParam(w, r, rid)
	if !ok {
		return
	}
	t := h.Sessions.For(r.Context()).Engine.Thread(subject)
	replies, loaded, found := t.DeleteWarning(chi.URLParam(r, "comment_id"))
	if !found {
		api.NotFound(w, "NOT_FOUND", "This comment no longer exists.", rid)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"replies": replies, "replies_loaded": loaded})
}
