package controllers

import (
	"net/http"
	"time"

	"github.com/angelmondragon/returns-engine/api/middleware"
	"github.com/angelmondragon/returns-engine/api/responses"
	"github.com/angelmondragon/returns-engine/pkg/config"
	pkgerrors "github.com/angelmondragon/returns-engine/pkg/errors"
	"github.com/angelmondragon/returns-engine/pkg/logger"
	"github.com/angelmondragon/returns-engine/pkg/readiness"
)

const readinessTimeout = 2 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Returns-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when postgres and redis both answer a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP, redisP readiness.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Returns-Env", cfg.App.Env)

		report := readiness.Probe(r.Context(), readinessTimeout,
			readiness.Check{Name: "database", Target: dbP},
			readiness.Check{Name: "redis", Target: redisP},
		)
		if !report.Ready() {
			logg.Warn(logg.WithFields(r.Context(), map[string]any{
				"failed": report.Failed(),
				"error":  report.Err.Error(),
			}), "readiness probe failed")
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeDependency, "dependencies not ready").WithDetails(map[string]any{"checks": report.Statuses}))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": report.Statuses})
	}
}

// Ping answers on both the public and the authenticated router. Behind auth
// it also echoes the identity the middleware resolved.
func Ping(scope string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": scope, "status": "ok"}
		if userID := middleware.UserIDFromContext(r.Context()); userID != "" {
			payload["user_id"] = userID
		}
		if role := middleware.RoleFromContext(r.Context()); role != "" {
			payload["role"] = role
		}
		responses.WriteSuccess(w, payload)
	}
}
