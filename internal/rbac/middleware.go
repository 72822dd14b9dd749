package rbac

import (
	"encoding/json"
	"net/http"
)

// Default is the checker behind the package-level middleware.
var Default = NewChecker(nil)

func Require(perm string) func(http.Handler) http.Handler { return Default.Require(perm) }

// Require refuses requests whose role lacks perm with a JSON 403 naming it.
func (c *Checker) Require(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if role == "" || !c.Has(role, perm) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "forbidden", "permission": perm})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
