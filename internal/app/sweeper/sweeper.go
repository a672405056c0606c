// Package sweeper содержит приложение ежедневного прохода по подпискам.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/subwatch/subtracker/internal/config"
	"github.com/subwatch/subtracker/internal/lib/smtp"
	"github.com/subwatch/subtracker/internal/lib/sl"
	senderservice "github.com/subwatch/subtracker/internal/services/sender"
	sweepservice "github.com/subwatch/subtracker/internal/services/sweep"
	"github.com/subwatch/subtracker/internal/storage/repository"
)

// App представляет приложение прохода рассылки напоминаний.
type App struct {
	sweepService *sweepservice.SweepService
	interval     time.Duration
	db           *repository.Storage
	logger       *slog.Logger
}

func waitForDB(db *repository.Storage) error {
	for range 10 {
		err := repository.CheckDatabaseReady(db)
		if err == nil {
			return nil
		}
		time.Sleep(3 * time.Second)
	}
	return fmt.Errorf("database not ready after retries")
}

// New создает новый экземпляр приложения прохода.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}

	if err := waitForDB(db); err != nil {
		_ = db.DB.Close()
		return nil, err
	}

	transport := smtp.NewTransport(cfg.SMTP, logger)
	senderService := senderservice.NewSenderService(transport, logger)
	sweepService := sweepservice.NewSweepService(db, senderService, logger)

	return &App{
		sweepService: sweepService,
		interval:     cfg.SweepInterval,
		db:           db,
		logger:       logger,
	}, nil
}

// Run выполняет проход сразу при старте, затем по таймеру,
// пока контекст не будет отменен.
func (a *App) Run(ctx context.Context) error {
	if err := a.sweepService.Run(ctx); err != nil {
		a.logger.Error("sweep run failed", sl.Err(err))
	}

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("shutting down sweeper")
			_ = a.db.DB.Close()
			return nil
		case <-ticker.C:
			if err := a.sweepService.Run(ctx); err != nil {
				a.logger.Error("sweep run failed", sl.Err(err))
			}
		}
	}
}
