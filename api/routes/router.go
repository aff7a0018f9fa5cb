package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/returns-engine/api/controllers"
	returncontrollers "github.com/angelmondragon/returns-engine/api/controllers/returns"
	"github.com/angelmondragon/returns-engine/api/middleware"
	"github.com/angelmondragon/returns-engine/internal/notifications"
	"github.com/angelmondragon/returns-engine/pkg/config"
	"github.com/angelmondragon/returns-engine/pkg/db"
	"github.com/angelmondragon/returns-engine/pkg/logger"
	"github.com/angelmondragon/returns-engine/pkg/metrics"
	"github.com/angelmondragon/returns-engine/pkg/redis"
)

// RedisStore is the redis surface the HTTP stack needs for readiness,
// idempotent replay and fixed-window rate limiting.
type RedisStore interface {
	redis.Pinger
	redis.IdempotencyStore
	RateLimitKey(parts ...string) string
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisStore RedisStore,
	httpMetrics *metrics.HTTPMetrics,
	metricsHandler http.Handler,
	returnsService returncontrollers.Service,
	notificationsService notifications.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, httpMetrics),
		middleware.CORS(cfg.App.AllowedOrigins()),
	)

	submitPolicy := middleware.NewRateLimitPolicy(
		"submit",
		cfg.RateLimit.SubmitWindow,
		cfg.RateLimit.SubmitIPLimit,
		cfg.RateLimit.SubmitUserLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisStore))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.Ping("public"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisStore, logg))

		r.Get("/ping", controllers.Ping("private"))

		r.Route("/v1/return-requests", func(r chi.Router) {
			r.Get("/", returncontrollers.ListMine(returnsService, logg))
			r.With(middleware.RateLimit(submitPolicy, redisStore, logg)).
				Post("/", returncontrollers.Submit(returnsService, logg))
			r.Post("/shipping-quote", returncontrollers.ShippingQuote(returnsService, logg))
			r.Get("/{id}", returncontrollers.Detail(returnsService, logg))
			r.With(middleware.RequireStaff(logg)).
				Put("/{id}", returncontrollers.Transition(returnsService, logg))
			r.Post("/{id}/exchange-payment", returncontrollers.ExchangePayment(returnsService, logg))
		})

		r.Route("/v1/admin/return-requests", func(r chi.Router) {
			r.Use(middleware.RequireStaff(logg))
			r.Get("/", returncontrollers.AdminList(returnsService, logg))
			r.Get("/stats", returncontrollers.AdminStats(returnsService, logg))
		})

		r.Route("/v1/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
		})
	})

	return r
}
