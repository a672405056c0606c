package subtracker

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/subwatch/subtracker/internal/http/handlers/analytics/summary"
	"github.com/subwatch/subtracker/internal/http/handlers/auth/google"
	"github.com/subwatch/subtracker/internal/http/handlers/auth/login"
	"github.com/subwatch/subtracker/internal/http/handlers/auth/register"
	"github.com/subwatch/subtracker/internal/http/handlers/health"
	profileread "github.com/subwatch/subtracker/internal/http/handlers/profile/read"
	profileremove "github.com/subwatch/subtracker/internal/http/handlers/profile/remove"
	profileupdate "github.com/subwatch/subtracker/internal/http/handlers/profile/update"
	"github.com/subwatch/subtracker/internal/http/handlers/subscription/create"
	"github.com/subwatch/subtracker/internal/http/handlers/subscription/list"
	"github.com/subwatch/subtracker/internal/http/handlers/subscription/read"
	"github.com/subwatch/subtracker/internal/http/handlers/subscription/remove"
	"github.com/subwatch/subtracker/internal/http/handlers/subscription/update"
	"github.com/subwatch/subtracker/internal/http/middlewarectx"
	analyticsservice "github.com/subwatch/subtracker/internal/services/analytics"
	authservice "github.com/subwatch/subtracker/internal/services/auth"
	subservice "github.com/subwatch/subtracker/internal/services/subscription"
	userservice "github.com/subwatch/subtracker/internal/services/user"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger,
	authService *authservice.AuthService,
	subscriptionService *subservice.SubscriptionService,
	analyticsService *analyticsservice.AnalyticsService,
	userService *userservice.UserService,
) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/auth/register", register.New(logger, authService).ServeHTTP)
		r.Post("/auth/login", login.New(logger, authService).ServeHTTP)
		r.Post("/auth/google", google.New(logger, authService).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authService, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Post("/subscriptions", create.New(logger, subscriptionService).ServeHTTP)
			r.Get("/subscriptions", list.New(logger, subscriptionService).ServeHTTP)
			r.Get("/subscriptions/{id}", read.New(logger, subscriptionService).ServeHTTP)
			r.Put("/subscriptions/{id}", update.New(logger, subscriptionService).ServeHTTP)
			r.Delete("/subscriptions/{id}", remove.New(logger, subscriptionService).ServeHTTP)
			r.Get("/analytics/summary", summary.New(logger, analyticsService).ServeHTTP)
			r.Get("/users/profile", profileread.New(logger, userService).ServeHTTP)
			r.Put("/users/profile", profileupdate.New(logger, userService).ServeHTTP)
			r.Delete("/users/profile", profileremove.New(logger, userService).ServeHTTP)
		})
	})

	r.Get("/health", health.New(logger).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
