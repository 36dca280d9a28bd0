package auth

import (
	"context"
	"strings"
)

// IsAdmin reports whether the authenticated caller carries role=admin.
func IsAdmin(ctx context.Context) bool {
	role, _ := RoleFromContext(ctx)
	return strings.EqualFold(strings.TrimSpace(role), "admin")
}
