package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/edvin/civicwatch/internal/api/response"
)

// GetIdentity extracts the Identity from the request context.
func GetIdentity(ctx context.Context) *Identity {
	identity, _ := ctx.Value(identityKey).(*Identity)
	return identity
}

// Actor returns the caller's subject, or "anonymous".
func Actor(ctx context.Context) string {
	if id := GetIdentity(ctx); id != nil {
		return id.Subject
	}
	return "anonymous"
}

// HasRole checks the identity against roles. Admins pass every check.
func HasRole(identity *Identity, roles ...Role) bool {
	if identity == nil {
		return false
	}
	if identity.Role == RoleAdmin {
		return true
	}
	for _, r := range roles {
		if identity.Role == r {
			return true
		}
	}
	return false
}

// RequireRole returns middleware that rejects callers without one of roles.
func RequireRole(roles ...Role) func(http.Handler) http.Handler {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	msg := "insufficient role: requires " + strings.Join(names, " or ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !HasRole(GetIdentity(r.Context()), roles...) {
				response.WriteError(w, http.StatusForbidden, msg)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
