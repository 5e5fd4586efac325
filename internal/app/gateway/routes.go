// Package gateway собирает HTTP-шлюз FinTrack: JSON API, прокси регистрации
// и защищённый прокси страниц.
package gateway

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	_ "github.com/magabrotheeeer/fintrack-gateway/docs"
	"github.com/magabrotheeeer/fintrack-gateway/internal/config"
	"github.com/magabrotheeeer/fintrack-gateway/internal/http/handlers/admin/payments"
	"github.com/magabrotheeeer/fintrack-gateway/internal/http/handlers/admin/plans"
	"github.com/magabrotheeeer/fintrack-gateway/internal/http/handlers/admin/users"
	"github.com/magabrotheeeer/fintrack-gateway/internal/http/handlers/auth/passwordreset"
	"github.com/magabrotheeeer/fintrack-gateway/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/fintrack-gateway/internal/http/handlers/billing"
	"github.com/magabrotheeeer/fintrack-gateway/internal/http/handlers/health"
	"github.com/magabrotheeeer/fintrack-gateway/internal/http/middlewarectx"
	"github.com/magabrotheeeer/fintrack-gateway/internal/routeguard"
	adminservice "github.com/magabrotheeeer/fintrack-gateway/internal/services/admin"
	billingservice "github.com/magabrotheeeer/fintrack-gateway/internal/services/billing"
)

// Backend сервис аутентификации, к которому обращаются открытые маршруты /api.
type Backend interface {
	register.Forwarder
	passwordreset.Service
}

// Deps зависимости маршрутов.
type Deps struct {
	Config   *config.Config
	Sessions middlewarectx.Decoder
	Backend  Backend
	Admin    *adminservice.Synchronizer
	Billing  *billingservice.Service
	Frontend http.Handler
	Health   map[string]health.Pinger
}

// RegisterRoutes регистрирует все маршруты шлюза.
func RegisterRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	cfg := deps.Config

	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
	r.Get("/healthz", health.New(logger, deps.Health).ServeHTTP)

	limiter := rate.NewLimiter(rate.Limit(cfg.RegisterRPS), cfg.RegisterBurst)
	passwordHandler := passwordreset.New(logger, deps.Backend)
	r.Group(func(r chi.Router) {
		r.Use(middlewarectx.RateLimit(limiter, logger))
		r.Post("/api/register", register.New(logger, deps.Backend, cfg.RegisterTimeout).ServeHTTP)
		r.Post("/api/password/request", passwordHandler.RequestCode)
		r.Post("/api/password/reset", passwordHandler.Reset)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
		r.Use(middlewarectx.Authenticate(deps.Sessions, cfg.CookieName))

		billingHandler := billing.New(logger, deps.Billing)

		// Открытые конечные точки
		r.Get("/plans/public", billingHandler.PublicPlans)

		// Группа с обязательной сессией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RequireSession(logger))
			r.Get("/me/plan", billingHandler.MyPlan)
			r.Post("/orders", billingHandler.CreateOrder)
			r.Post("/payments/manual", billingHandler.ManualPayment)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middlewarectx.RequireAdmin(logger))
				r.Route("/users", users.New(logger, deps.Admin).Routes)
				r.Route("/payments", payments.New(logger, deps.Admin).Routes)
				r.Route("/plans", plans.New(logger, deps.Admin).Routes)
			})
		})
	})

	// Всё остальное: страницы интерфейса за защитником маршрутов
	r.With(middlewarectx.RouteGuard(deps.Sessions, routeguard.DefaultPolicy(), cfg.CookieName, logger)).
		Handle("/*", deps.Frontend)
}
