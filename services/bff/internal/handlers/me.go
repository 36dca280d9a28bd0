package handlers

import (
	"net/http"

	"github.com/example/skin-platform/internal/platform/api"
)

// Me handles GET /v1/me and returns the identity the caller's comment
// session acts as.
func Me(sessions *Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who := sessions.For(r.Context()).Identity()
		if who == nil {
			api.Unauthorized(w, "AUTH_MISSING", "authentication required", "")
			return
		}
		api.WriteJSON(w, http.StatusOK, map[string]any{
			"user_id":             who.ID,
			"username":            who.Username,
			"profile_picture_url": who.ProfilePictureURL,
		})
	}
}
