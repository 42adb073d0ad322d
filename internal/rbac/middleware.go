package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/sioms/sioms/internal/platform/httpx"
	"github.com/sioms/sioms/internal/shared"
)

// Roles known to the system, ordered by privilege.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleStaff   = "staff"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch normalize(role) {
	case RoleAdmin, RoleManager, RoleStaff:
		return true
	}
	return false
}

// Middleware wires role checks for HTTP handlers. The acting user's role
// comes from the request context.
type Middleware struct {
	Logger *slog.Logger
}

// RequireAny ensures the current user holds at least one of the roles.
func (m Middleware) RequireAny(roles ...string) func(http.Handler) http.Handler {
	allowed := normalizeRoles(roles)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(allowed) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			actor, ok := shared.ActorFromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "no acting user")
				return
			}
			if _, ok := allowed[normalize(actor.Role)]; ok {
				next.ServeHTTP(w, r)
				return
			}
			if m.Logger != nil {
				m.Logger.Warn("rbac denied",
					slog.Int64("user_id", actor.UserID),
					slog.String("role", actor.Role),
					slog.String("path", r.URL.Path),
				)
			}
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "role "+actor.Role+" may not perform this action")
		})
	}
}

func normalize(role string) string {
	return strings.TrimSpace(strings.ToLower(role))
}

func normalizeRoles(roles []string) map[string]struct{} {
	set := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		r = normalize(r)
		if r == "" {
			continue
		}
		set[r] = struct{}{}
	}
	return set
}
