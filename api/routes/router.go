package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/cafeflow-backend/api/controllers"
	ordercontrollers "github.com/angelmondragon/cafeflow-backend/api/controllers/orders"
	"github.com/angelmondragon/cafeflow-backend/api/middleware"
	"github.com/angelmondragon/cafeflow-backend/internal/orders"
	"github.com/angelmondragon/cafeflow-backend/pkg/config"
	"github.com/angelmondragon/cafeflow-backend/pkg/db"
	"github.com/angelmondragon/cafeflow-backend/pkg/enums"
	"github.com/angelmondragon/cafeflow-backend/pkg/logger"
	"github.com/angelmondragon/cafeflow-backend/pkg/redis"
)

// Params carries what the router mounts. Redis is optional; without it
// idempotency and the guest order window are disabled. Closing StreamsDone
// ends open feed streams.
type Params struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          db.Pinger
	Redis       *redis.Client
	Orders      orders.Service
	Dashboard   ordercontrollers.Dashboard
	Gatherer    prometheus.Gatherer
	StreamsDone <-chan struct{}
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger

	var (
		idempotencyStore redis.IdempotencyStore
		windowStore      middleware.FixedWindowStore
		redisPinger      redis.Pinger
	)
	if p.Redis != nil {
		idempotencyStore = p.Redis
		windowStore = p.Redis
		redisPinger = p.Redis
	}
	gatherer := p.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
		middleware.RateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, redisPinger))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/public", func(r chi.Router) {
		r.Use(middleware.Idempotency(idempotencyStore, logg))
		r.With(middleware.GuestOrderRateLimit(windowStore, cfg.RateLimit.GuestOrderWindow, cfg.RateLimit.GuestOrderIPLimit, logg)).
			Post("/stores/{storeId}/guest-orders", ordercontrollers.CreateGuestOrder(p.Orders, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.CreateOrder(p.Orders, logg))
			r.Get("/", ordercontrollers.ListMine(p.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(p.Orders, logg))
			r.Post("/{orderId}/feedback", ordercontrollers.SubmitFeedback(p.Orders, logg))
		})

		r.Route("/staff", func(r chi.Router) {
			r.Use(middleware.RequireStaff(logg))
			r.Use(middleware.StoreContext(logg))

			r.Get("/cancellation-reasons", ordercontrollers.CancellationReasons())
			r.Route("/orders", func(r chi.Router) {
				r.Post("/", ordercontrollers.CreateStaffOrder(p.Orders, logg))
				r.Get("/board", ordercontrollers.Board(p.Dashboard, logg))
				r.Get("/stream", ordercontrollers.Stream(p.Dashboard, cfg.Feed.Heartbeat, p.StreamsDone, logg))
				r.Get("/statistics", ordercontrollers.Statistics(p.Orders, logg))
				r.Get("/{orderId}/actions", ordercontrollers.AvailableActions(p.Orders, logg))
				r.Post("/{orderId}/actions/{action}", ordercontrollers.PerformAction(p.Dashboard, logg))
				r.Post("/{orderId}/status", ordercontrollers.UpdateStatus(p.Orders, logg))
				r.Post("/{orderId}/cancel", ordercontrollers.Cancel(p.Orders, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRoles(logg, enums.ActorRoleAdmin))
		r.Use(middleware.StoreContext(logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Delete("/orders/{orderId}", ordercontrollers.Purge(p.Orders, logg))
		r.Post("/statistics/rebuild", ordercontrollers.RebuildStatistics(p.Orders, logg))
	})

	return r
}
