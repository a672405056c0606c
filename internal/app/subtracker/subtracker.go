// Package subtracker собирает и запускает основной HTTP-сервис трекера подписок.
package subtracker

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/subwatch/subtracker/internal/cache"
	"github.com/subwatch/subtracker/internal/config"
	"github.com/subwatch/subtracker/internal/lib/jwt"
	"github.com/subwatch/subtracker/internal/lib/rabbitmq"
	"github.com/subwatch/subtracker/internal/lib/sl"
	"github.com/subwatch/subtracker/internal/migrations"
	analyticsservice "github.com/subwatch/subtracker/internal/services/analytics"
	authservice "github.com/subwatch/subtracker/internal/services/auth"
	subservice "github.com/subwatch/subtracker/internal/services/subscription"
	userservice "github.com/subwatch/subtracker/internal/services/user"
	"github.com/subwatch/subtracker/internal/storage/repository"
)

// App инкапсулирует зависимости HTTP-сервиса.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	conn   *amqp.Connection
}

// New создает приложение: подключает хранилище, кэш и брокер,
// накатывает миграции и регистрирует все маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	// Брокер не обязателен для работы API: без него регистрация
	// просто не отправляет приветственное письмо.
	var conn *amqp.Connection
	var channel *amqp.Channel
	conn, err = rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		logger.Warn("rabbitmq is unavailable, welcome emails are disabled", sl.Err(err))
	} else {
		channel, err = rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
		if err != nil {
			logger.Warn("failed to setup rabbitmq channel, welcome emails are disabled", sl.Err(err))
			channel = nil
		}
	}

	jwtMaker := jwt.NewMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	googleVerifier := authservice.NewIDTokenVerifier(cfg.GoogleClientID)

	authService := authservice.NewAuthService(db, jwtMaker, googleVerifier, channel, logger)
	subscriptionService := subservice.NewSubscriptionService(db, cacheRedis, logger)
	analyticsService := analyticsservice.NewAnalyticsService(db, cacheRedis, logger)
	userService := userservice.NewUserService(db, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, authService, subscriptionService, analyticsService, userService)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		conn:   conn,
	}, nil
}

// Run запускает HTTP-сервер и блокируется до отмены контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if a.conn != nil {
			_ = a.conn.Close()
		}
		_ = a.db.DB.Close()
		return err
	}
}
