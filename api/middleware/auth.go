package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/cafeflow-backend/api/responses"
	"github.com/angelmondragon/cafeflow-backend/internal/orders"
	pkgAuth "github.com/angelmondragon/cafeflow-backend/pkg/auth"
	"github.com/angelmondragon/cafeflow-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/cafeflow-backend/pkg/errors"
	"github.com/angelmondragon/cafeflow-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the claims.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if claims.Role.IsStaff() && strings.TrimSpace(claims.StoreID) == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "staff token missing store"))
				return
			}

			ctx := WithActor(r.Context(), orders.Actor{
				ID:         claims.UserID,
				Name:       claims.Name,
				Role:       claims.Role,
				StoreID:    claims.StoreID,
				EmployeeID: claims.EmployeeID,
			})

			if logg != nil {
				fields := map[string]any{
					"user_id":    claims.UserID,
					"actor_role": string(claims.Role),
				}
				if claims.StoreID != "" {
					fields["store_id"] = claims.StoreID
				}
				ctx = logg.WithFields(ctx, fields)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
