package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/library-backend/api/controllers"
	"github.com/angelmondragon/library-backend/api/middleware"
	"github.com/angelmondragon/library-backend/internal/books"
	"github.com/angelmondragon/library-backend/internal/reservations"
	"github.com/angelmondragon/library-backend/internal/users"
	"github.com/angelmondragon/library-backend/pkg/config"
	"github.com/angelmondragon/library-backend/pkg/db"
	"github.com/angelmondragon/library-backend/pkg/logger"
	"github.com/angelmondragon/library-backend/pkg/metrics"
	"github.com/angelmondragon/library-backend/pkg/redis"
)

// NewRouter wires the HTTP surface. redisClient and registry are optional: a
// nil client disables the write rate limit and a nil registry drops /metrics.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	registry *prometheus.Registry,
	bookService books.Service,
	userService users.Service,
	reservationService reservations.Service,
) http.Handler {
	r := chi.NewRouter()

	var httpMetrics *metrics.HTTPMetrics
	if registry != nil {
		httpMetrics = metrics.NewHTTPMetrics(registry)
	}

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
		middleware.Metrics(httpMetrics),
	)

	writeLimit := func(next http.Handler) http.Handler { return next }
	var cachePinger redis.Pinger
	if redisClient != nil {
		policy := middleware.WriteRateLimitPolicy{
			Window:         cfg.RateLimit.WriteWindow,
			Limit:          cfg.RateLimit.WriteLimit,
			TrustedProxies: cfg.RateLimit.TrustedProxies,
		}
		writeLimit = middleware.WriteRateLimit(policy, redisClient, logg)
		cachePinger = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, cachePinger))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(writeLimit)

		r.Route("/books", func(r chi.Router) {
			r.Get("/", controllers.ListBooks(bookService, logg))
			r.Post("/", controllers.CreateBook(bookService, logg))
			r.Get("/{bookId}", controllers.GetBook(bookService, logg))
			r.Delete("/{bookId}", controllers.DeleteBook(bookService, logg))
		})

		r.Route("/reservations", func(r chi.Router) {
			r.Post("/", controllers.CreateReservation(reservationService, logg))
			r.Get("/{bookId}/penalty", controllers.ReservationPenalty(reservationService, logg))
			r.Post("/{reservationId}/return", controllers.ReturnBook(reservationService, logg))
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/{userId}", controllers.GetUser(userService, logg))
			r.Get("/{userId}/reservations", controllers.ListUserReservations(reservationService, logg))
		})
	})

	return r
}
