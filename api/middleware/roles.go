package middleware

import (
	"net/http"

	"github.com/angelmondragon/cafeflow-backend/api/responses"
	"github.com/angelmondragon/cafeflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cafeflow-backend/pkg/errors"
	"github.com/angelmondragon/cafeflow-backend/pkg/logger"
)

// RequireRoles admits callers holding any of roles.
func RequireRoles(logg *logger.Logger, roles ...enums.ActorRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role required").
				WithDetails(map[string]any{"allowed": roles}))
		})
	}
}

// RequireStaff admits staff, managers and admins.
func RequireStaff(logg *logger.Logger) func(http.Handler) http.Handler {
	return RequireRoles(logg, enums.ActorRoleStaff, enums.ActorRoleManager, enums.ActorRoleAdmin)
}
