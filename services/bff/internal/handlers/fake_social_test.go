package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/example/skin-platform/internal/platform/api"
	"github.com/example/skin-platform/internal/platform/auth"
	"github.com/example/skin-platform/services/bff/internal/threads"
)

var testSecret = []byte("test-secret")

func mintToken(t *testing.T, uid, username string) string {
	t.Helper()
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: uid, ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		Username:         username,
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

// fakeSocial is a small in-memory stand-in for the social comment API.
type fakeSocial struct {
	mu       sync.Mutex
	comments map[string][]threads.Comment
	replies  map[string][]threads.Reply
	seq      int
	failPost bool
	postGate chan struct{}
	srv      *httptest.Server
}

func newFakeSocial(t *testing.T) *fakeSocial {
	t.Helper()
	f := &fakeSocial{comments: map[string][]threads.Comment{}, replies: map[string][]threads.Reply{}}
	verifier := auth.JWTVerifier{Secret: testSecret}

	r := chi.NewRouter()
	r.Route("/v1/{type}/{id}/comments", func(r chi.Router) {
		r.Use(auth.OptionalUser(verifier))
		r.Get("/", f.list)
		r.Post("/", f.post)
		r.Get("/by/{author_id}", f.byAuthor)
		r.Delete("/{comment_id}", f.deleteComment)
		r.Post("/{comment_id}/like", f.like(true))
		r.Post("/{comment_id}/unlike", f.like(false))
		r.Get("/{comment_id}/replies", f.listReplies)
		r.Post("/{comment_id}/replies", f.postReply)
	})
	f.srv = httptest.NewServer(r)
	t.Cleanup(f.srv.Close)
	return f
}

func key(r *http.Request) string { return chi.URLParam(r, "type") + ":" + chi.URLParam(r, "id") }

func (f *fakeSocial) seed(subject string, c threads.Comment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.comments[subject] = append([]threads.Comment{c}, f.comments[subject]...)
}

func (f *fakeSocial) likedBy(subject, commentID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.comments[subject] {
		if c.ID.String() == commentID {
			return slices.Clone(c.LikedBy)
		}
	}
	return nil
}

func (f *fakeSocial) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeSocial) list(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.comments[key(r)]
	if list == nil {
		list = []threads.Comment{}
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"comments": list})
}

func (f *fakeSocial) byAuthor(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.comments[key(r)] {
		if c.AuthorID == chi.URLParam(r, "author_id") {
			api.WriteJSON(w, http.StatusOK, c)
			return
		}
	}
	api.NotFound(w, "NOT_FOUND", "comment not found", "")
}

func (f *fakeSocial) post(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		api.Unauthorized(w, "AUTH_MISSING", "authentication required", "")
		return
	}
	var req textReq
	_ = json.NewDecoder(r.Body).Decode(&req)
	if f.postGate != nil {
		<-f.postGate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPost {
		api.Internal(w, "")
		return
	}
	list := f.comments[key(r)]
	for i := range list {
		if list[i].AuthorID == uid {
			list[i].Text = req.Text
			list[i].IsEdited = true
			api.WriteJSON(w, http.StatusOK, list[i])
			return
		}
	}
	profile, _ := auth.ProfileFromContext(r.Context())
	c := threads.Comment{
		ID:               threads.ConfirmedID(f.nextID("cm")),
		AuthorID:         uid,
		Author:           threads.Author{Username: profile.Username},
		Text:             req.Text,
		ModerationStatus: threads.StatusApproved,
		LikedBy:          []string{},
		Capabilities:     threads.Capabilities{CanDelete: true, CanEdit: true},
	}
	f.comments[key(r)] = append([]threads.Comment{c}, list...)
	api.WriteJSON(w, http.StatusCreated, c)
}

func (f *fakeSocial) like(liked bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, _ := auth.UserIDFromContext(r.Context())
		f.mu.Lock()
		defer f.mu.Unlock()
		list := f.comments[key(r)]
		for i := range list {
			if list[i].ID.String() != chi.URLParam(r, "comment_id") {
				continue
			}
			list[i].LikedBy = slices.DeleteFunc(list[i].LikedBy, func(s string) bool { return s == uid })
			if liked {
				list[i].LikedBy = append(list[i].LikedBy, uid)
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		api.NotFound(w, "NOT_FOUND", "comment not found", "")
	}
}

func (f *fakeSocial) deleteComment(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := chi.URLParam(r, "comment_id")
	f.comments[key(r)] = slices.DeleteFunc(f.comments[key(r)], func(c threads.Comment) bool { return c.ID.String() == id })
	delete(f.replies, id)
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeSocial) listReplies(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.replies[chi.URLParam(r, "comment_id")]
	if list == nil {
		list = []threads.Reply{}
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"replies": list})
}

func (f *fakeSocial) postReply(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var req textReq
	_ = json.NewDecoder(r.Body).Decode(&req)

	f.mu.Lock()
	defer f.mu.Unlock()
	parent := chi.URLParam(r, "comment_id")
	rep := threads.Reply{
		ID:               threads.ConfirmedID(f.nextID("r")),
		ParentCommentID:  parent,
		AuthorID:         uid,
		Text:             req.Text,
		ModerationStatus: threads.StatusApproved,
		LikedBy:          []string{},
	}
	f.replies[parent] = append(f.replies[parent], rep)
	api.WriteJSON(w, http.StatusCreated, rep)
}
