// Package services собирает сводную аналитику по активным подпискам пользователя.
// Все значения вычисляются на лету из хранилища, без округления:
// округление выполняется только на границе HTTP.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/subwatch/subtracker/internal/lib/billing"
	"github.com/subwatch/subtracker/internal/lib/sl"
	"github.com/subwatch/subtracker/internal/models"
)

// upcomingWindowDays горизонт «ближайших продлений» в сводке.
const upcomingWindowDays = 30

// SubscriptionRepository определяет выборку активных подписок пользователя.
type SubscriptionRepository interface {
	ListActiveSubscriptions(ctx context.Context, userUID string) ([]*models.Subscription, error)
}

// Cache описывает методы для кэширования сводки.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
}

// AnalyticsService вычисляет сводку расходов по подпискам.
type AnalyticsService struct {
	repo  SubscriptionRepository
	cache Cache
	log   *slog.Logger
	now   func() time.Time
}

// NewAnalyticsService создает новый экземпляр AnalyticsService.
func NewAnalyticsService(repo SubscriptionRepository, cache Cache, log *slog.Logger) *AnalyticsService {
	return &AnalyticsService{
		repo:  repo,
		cache: cache,
		log:   log,
		now:   time.Now,
	}
}

// Summary возвращает сводку по активным подпискам пользователя:
// суммарные расходы за месяц и год, разбивку по категориям и количество
// продлений в ближайшие 30 дней.
func (s *AnalyticsService) Summary(ctx context.Context, userUID string) (models.AnalyticsSummary, error) {
	cacheKey := fmt.Sprintf("analytics:%s", userUID)
	var cached models.AnalyticsSummary
	found, err := s.cache.Get(cacheKey, &cached)
	if err != nil {
		s.log.Warn("failed to read analytics cache", slog.String("key", cacheKey), sl.Err(err))
	}
	if found {
		return cached, nil
	}

	subs, err := s.repo.ListActiveSubscriptions(ctx, userUID)
	if err != nil {
		return models.AnalyticsSummary{}, err
	}

	summary := Aggregate(subs, s.now())

	if err := s.cache.Set(cacheKey, summary, 5*time.Minute); err != nil {
		s.log.Warn("failed to cache analytics summary", slog.String("key", cacheKey), sl.Err(err))
	}
	return summary, nil
}

// Aggregate собирает сводку из набора активных подписок. Чистая функция,
// вынесена отдельно для тестируемости.
func Aggregate(subs []*models.Subscription, today time.Time) models.AnalyticsSummary {
	summary := models.AnalyticsSummary{
		TotalSubscriptions: len(subs),
		ByCategory:         make(map[models.Category]models.CategoryStat),
	}

	for _, sub := range subs {
		monthly := billing.MonthlyEquivalent(sub.Cost, sub.BillingCycle)
		summary.MonthlyTotal += monthly
		summary.YearlyTotal += billing.YearlyEquivalent(sub.Cost, sub.BillingCycle)

		stat := summary.ByCategory[sub.Category]
		stat.Count++
		stat.Total += monthly
		summary.ByCategory[sub.Category] = stat

		if days := billing.DaysUntil(sub.RenewalDate, today); days >= 0 && days <= upcomingWindowDays {
			summary.UpcomingRenewals++
		}
	}
	return summary
}
