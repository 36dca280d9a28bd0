package handlers

import (
	"github.com/go-chi/chi/v5"

	"github.com/example/skin-platform/internal/platform/auth"
)

// Mount registers the comment API. Reads accept anonymous callers; the
// handlers themselves reject anonymous writes.
func Mount(r chi.Router, d Deps, verifier auth.JWTVerifier) {
	r.Route("/v1/{type}/{id}/comments", func(r chi.Router) {
		r.Use(auth.OptionalUser(verifier))

		r.Get("/", ListComments(d))
		r.Post("/", PostComment(d))
		r.Get("/by/{author_id}", GetAuthorComment(d))

		r.Route("/{comment_id}", func(r chi.Router) {
			r.Delete("/", Delete(d))
			r.Post("/like", SetLike(d, true))
			r.Post("/unlike", SetLike(d, false))
			r.Get("/replies", ListReplies(d))
			r.Post("/replies", PostReply(d))
			r.Delete("/replies/{reply_id}", Delete(d))
			r.Post("/replies/{reply_id}/like", SetLike(d, true))
			r.Post("/replies/{reply_id}/unlike", SetLike(d, false))
		})
	})
}
