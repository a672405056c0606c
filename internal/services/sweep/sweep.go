// Package services реализует ежедневный проход по активным подпискам:
// перенос просроченных дат списания на следующий цикл и рассылку
// напоминаний о скором продлении.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/subwatch/subtracker/internal/lib/billing"
	"github.com/subwatch/subtracker/internal/lib/sl"
	"github.com/subwatch/subtracker/internal/metrics"
	"github.com/subwatch/subtracker/internal/models"
)

// Action решение по одной подписке в рамках прохода.
type Action int

const (
	// ActionSkip ничего не делать: окно напоминания не наступило,
	// напоминание уже было или уведомления выключены.
	ActionSkip Action = iota
	// ActionRollover дата списания в прошлом, сдвинуть её на следующий цикл.
	ActionRollover
	// ActionRemind отправить напоминание о скором продлении.
	ActionRemind
)

// SweepRepository определяет методы хранилища, используемые проходом.
type SweepRepository interface {
	// ListActiveWithOwner возвращает активные подписки вместе с владельцами.
	ListActiveWithOwner(ctx context.Context) ([]*models.SweepEntry, error)
	// RolloverRenewal сдвигает дату списания и сбрасывает флаг уведомления.
	RolloverRenewal(ctx context.Context, id int, nextRenewal time.Time) (int, error)
	// MarkNotificationSent выставляет флаг уведомления и время напоминания.
	MarkNotificationSent(ctx context.Context, id int, sentAt time.Time) (int, error)
}

// Gateway доставляет напоминание получателю. Возврат nil означает
// подтверждённую доставку.
type Gateway interface {
	SendRenewalReminder(info models.ReminderInfo) error
}

// SweepService однопоточно обходит активные подписки раз в сутки.
// Одновременный запуск двух проходов не защищён от гонок по схеме
// «прочитал-решил-записал», единственность экземпляра обеспечивает деплой.
type SweepService struct {
	repo    SweepRepository
	gateway Gateway
	log     *slog.Logger
	now     func() time.Time
}

// NewSweepService создает новый экземпляр SweepService.
func NewSweepService(repo SweepRepository, gateway Gateway, log *slog.Logger) *SweepService {
	return &SweepService{
		repo:    repo,
		gateway: gateway,
		log:     log,
		now:     time.Now,
	}
}

// Evaluate принимает решение по одной подписке. Порядок проверок фиксирован:
// просроченная дата всегда сдвигается первой, чтобы окно напоминания
// никогда не вычислялось от устаревшей даты.
func Evaluate(sub *models.Subscription, owner *models.User, today time.Time) Action {
	days := billing.DaysUntil(sub.RenewalDate, today)
	if days < 0 {
		return ActionRollover
	}
	if sub.IsActive &&
		owner.EmailNotifications &&
		!sub.NotificationSent &&
		days <= owner.NotificationDaysBefore {
		return ActionRemind
	}
	return ActionSkip
}

// Run выполняет один проход по всем активным подпискам.
// Ошибка на отдельной записи логируется и не прерывает обход;
// ошибка выборки фатальна для прохода целиком, он будет повторён
// следующим запуском по расписанию.
func (s *SweepService) Run(ctx context.Context) error {
	const op = "sweep.Run"
	s.log.Info("starting notification sweep")

	entries, err := s.repo.ListActiveWithOwner(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	today := s.now()
	var remindersSent, rollovers int
	for _, entry := range entries {
		sub := &entry.Subscription
		if entry.Owner == nil {
			s.log.Warn("skipping orphaned subscription",
				slog.Int("id", sub.ID), slog.String("user_uid", sub.UserUID))
			continue
		}
		if _, err := models.ParseCycle(string(sub.BillingCycle)); err != nil {
			s.log.Error("skipping subscription with malformed billing cycle",
				slog.Int("id", sub.ID), sl.Err(err))
			metrics.SweepErrors.Inc()
			continue
		}

		switch Evaluate(sub, entry.Owner, today) {
		case ActionRollover:
			next := billing.NextRenewal(sub.RenewalDate, sub.BillingCycle)
			if _, err := s.repo.RolloverRenewal(ctx, sub.ID, next); err != nil {
				s.log.Error("failed to roll over renewal date",
					slog.Int("id", sub.ID), sl.Err(err))
				metrics.SweepErrors.Inc()
				continue
			}
			rollovers++
			metrics.Rollovers.Inc()
		case ActionRemind:
			info := models.ReminderInfo{
				Email:         entry.Owner.Email,
				Name:          entry.Owner.Name,
				ServiceName:   sub.ServiceName,
				Cost:          sub.Cost,
				Currency:      sub.Currency,
				BillingCycle:  sub.BillingCycle,
				RenewalDate:   sub.RenewalDate,
				DaysUntil:     billing.DaysUntil(sub.RenewalDate, today),
				PaymentMethod: sub.PaymentMethod,
			}
			if err := s.gateway.SendRenewalReminder(info); err != nil {
				// Флаг остаётся снятым, следующий проход повторит отправку.
				s.log.Error("failed to deliver reminder",
					slog.Int("id", sub.ID), sl.Err(err))
				metrics.SweepErrors.Inc()
				continue
			}
			if _, err := s.repo.MarkNotificationSent(ctx, sub.ID, s.now()); err != nil {
				s.log.Error("failed to mark notification sent",
					slog.Int("id", sub.ID), sl.Err(err))
				metrics.SweepErrors.Inc()
				continue
			}
			remindersSent++
			metrics.RemindersSent.Inc()
		case ActionSkip:
		}
	}

	s.log.Info("notification sweep complete",
		slog.Int("scanned", len(entries)),
		slog.Int("reminders_sent", remindersSent),
		slog.Int("rollovers", rollovers))
	return nil
}
