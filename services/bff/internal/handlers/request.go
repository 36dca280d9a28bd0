package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/skin-platform/internal/platform/api"
	"github.com/example/skin-platform/services/bff/internal/threads"
)

// decodeJSON decodes the request body into dst. On failure it writes a 400
// response and returns false.
func decodeJSON[T any](w http.ResponseWriter, r *http.Request, rid string, dst *T) bool {
	if err := api.DecodeJSON(w, r, dst); err != nil {
		api.BadRequest(w, "INVALID_JSON", "Invalid JSON", rid, nil)
		return false
	}
	return true
}

// subjectParam reads {type}/{id} from the route. On failure it writes a 400
// response and returns false.
func subjectParam(w http.ResponseWriter, r *http.Request, rid string) (threads.Subject, bool) {
	typ, err := threads.ParseSubjectType(chi.URLParam(r, "type"))
	if err != nil {
		api.BadRequest(w, "UNKNOWN_SUBJECT_TYPE", "subject type must be skin or post", rid, nil)
		return threads.Subject{}, false
	}
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		api.BadRequest(w, "MISSING_ID", "id is required", rid, nil)
		return threads.Subject{}, false
	}
	return threads.Subject{Type: typ, ID: id}, true
}
