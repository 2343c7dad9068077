package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/cafeflow-backend/api/responses"
	"github.com/angelmondragon/cafeflow-backend/pkg/config"
	"github.com/angelmondragon/cafeflow-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/cafeflow-backend/pkg/errors"
	"github.com/angelmondragon/cafeflow-backend/pkg/logger"
	"github.com/angelmondragon/cafeflow-backend/pkg/redis"
)

const readyTimeout = 2 * time.Second

const envHeader = "X-Cafeflow-Env"

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the database and redis. A nil pinger is skipped, which
// is how a deployment without redis reports ready.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		checks := map[string]string{}
		var failed bool
		for name, p := range map[string]interface{ Ping(context.Context) error }{"db": dbP, "redis": redisP} {
			if p == nil || isNilPinger(p) {
				checks[name] = "skipped"
				continue
			}
			if err := p.Ping(ctx); err != nil {
				failed = true
				checks[name] = "down"
				if logg != nil {
					logg.Error(logg.WithField(ctx, "dependency", name), "health.ready.failed", err)
				}
				continue
			}
			checks[name] = "ok"
		}
		if failed {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}

func isNilPinger(p any) bool {
	switch v := p.(type) {
	case *db.Client:
		return v == nil
	case *redis.Client:
		return v == nil
	}
	return false
}
