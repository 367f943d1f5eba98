package middleware

import (
	"net/http"
	"strings"
)

// RequireRole lets a request through only when the token's role is one of
// allowedRoles (e.g. domain.RoleAdmin). The role is read from the token; the
// ledger still checks reviewers against the user directory.
func RequireRole(allowedRoles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, role := range allowedRoles {
		allowed[role] = struct{}{}
	}
	denied := "requires role " + strings.Join(allowedRoles, " or ")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, codeUnauthenticated, "unauthorized")
				return
			}
			if _, ok := allowed[claims.Role]; !ok {
				writeJSONError(w, http.StatusForbidden, codeRoleRequired, denied)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
