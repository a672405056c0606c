package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/subwatch/subtracker/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) ListActiveSubscriptions(ctx context.Context, userUID string) ([]*models.Subscription, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Subscription), args.Error(1)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Get(key string, result any) (bool, error) {
	args := m.Called(key, result)
	return args.Bool(0), args.Error(1)
}

func (m *CacheMock) Set(key string, value any, expiration time.Duration) error {
	return m.Called(key, value, expiration).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

var today = time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

func sub(cost float64, cycle models.Cycle, category models.Category, renewal time.Time) *models.Subscription {
	return &models.Subscription{
		ServiceName:  "svc",
		Cost:         cost,
		Currency:     "USD",
		BillingCycle: cycle,
		Category:     category,
		RenewalDate:  renewal,
		IsActive:     true,
	}
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name string
		subs []*models.Subscription
		want models.AnalyticsSummary
	}{
		{
			name: "empty set gives zero summary",
			subs: nil,
			want: models.AnalyticsSummary{
				ByCategory: map[models.Category]models.CategoryStat{},
			},
		},
		{
			name: "mixed cycles are normalized per month and year",
			subs: []*models.Subscription{
				sub(10, models.CycleWeekly, models.CategoryMusic, today.AddDate(0, 0, 5)),
				sub(12, models.CycleMonthly, models.CategoryMusic, today.AddDate(0, 0, 40)),
				sub(30, models.CycleQuarterly, models.CategoryFitness, today.AddDate(0, 0, 20)),
				sub(120, models.CycleYearly, models.CategoryNews, today.AddDate(0, 0, -2)),
			},
			want: models.AnalyticsSummary{
				TotalSubscriptions: 4,
				MonthlyTotal:       40 + 12 + 10 + 10,
				YearlyTotal:        520 + 144 + 120 + 120,
				ByCategory: map[models.Category]models.CategoryStat{
					models.CategoryMusic:   {Count: 2, Total: 52},
					models.CategoryFitness: {Count: 1, Total: 10},
					models.CategoryNews:    {Count: 1, Total: 10},
				},
				UpcomingRenewals: 2,
			},
		},
		{
			name: "renewal exactly thirty days ahead is upcoming",
			subs: []*models.Subscription{
				sub(5, models.CycleMonthly, models.CategoryOther, today.AddDate(0, 0, 30)),
				sub(5, models.CycleMonthly, models.CategoryOther, today.AddDate(0, 0, 31)),
			},
			want: models.AnalyticsSummary{
				TotalSubscriptions: 2,
				MonthlyTotal:       10,
				YearlyTotal:        120,
				ByCategory: map[models.Category]models.CategoryStat{
					models.CategoryOther: {Count: 2, Total: 10},
				},
				UpcomingRenewals: 1,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate(tt.subs, today)
			assert.Equal(t, tt.want.TotalSubscriptions, got.TotalSubscriptions)
			assert.InDelta(t, tt.want.MonthlyTotal, got.MonthlyTotal, 1e-9)
			assert.InDelta(t, tt.want.YearlyTotal, got.YearlyTotal, 1e-9)
			assert.Equal(t, tt.want.ByCategory, got.ByCategory)
			assert.Equal(t, tt.want.UpcomingRenewals, got.UpcomingRenewals)
		})
	}
}

func TestAnalyticsService_Summary(t *testing.T) {
	cached := models.AnalyticsSummary{
		TotalSubscriptions: 1,
		MonthlyTotal:       9.99,
		YearlyTotal:        119.88,
		ByCategory: map[models.Category]models.CategoryStat{
			models.CategoryMusic: {Count: 1, Total: 9.99},
		},
	}

	tests := []struct {
		name       string
		setupMocks func(r *RepoMock, c *CacheMock)
		wantErr    bool
	}{
		{
			name: "cache hit skips repository",
			setupMocks: func(_ *RepoMock, c *CacheMock) {
				c.On("Get", "analytics:uid-1", mock.Anything).Return(true, nil).Run(func(args mock.Arguments) {
					ptr := args.Get(1).(*models.AnalyticsSummary)
					*ptr = cached
				}).Once()
			},
		},
		{
			name: "cache miss aggregates and stores summary",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				c.On("Get", "analytics:uid-1", mock.Anything).Return(false, nil).Once()
				r.On("ListActiveSubscriptions", mock.Anything, "uid-1").
					Return([]*models.Subscription{sub(9.99, models.CycleMonthly, models.CategoryMusic, today)}, nil).Once()
				c.On("Set", "analytics:uid-1", mock.Anything, 5*time.Minute).Return(nil).Once()
			},
		},
		{
			name: "cache error falls through to repository",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				c.On("Get", "analytics:uid-1", mock.Anything).Return(false, errors.New("redis down")).Once()
				r.On("ListActiveSubscriptions", mock.Anything, "uid-1").
					Return([]*models.Subscription{}, nil).Once()
				c.On("Set", "analytics:uid-1", mock.Anything, 5*time.Minute).Return(nil).Once()
			},
		},
		{
			name: "repository error is returned",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				c.On("Get", "analytics:uid-1", mock.Anything).Return(false, nil).Once()
				r.On("ListActiveSubscriptions", mock.Anything, "uid-1").
					Return(nil, errors.New("db error")).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			cache := new(CacheMock)
			svc := NewAnalyticsService(repo, cache, newNoopLogger())
			svc.now = func() time.Time { return today }

			tt.setupMocks(repo, cache)

			_, err := svc.Summary(context.Background(), "uid-1")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			repo.AssertExpectations(t)
			cache.AssertExpectations(t)
		})
	}
}

func TestAnalyticsSummary_Rounded(t *testing.T) {
	summary := models.AnalyticsSummary{
		TotalSubscriptions: 2,
		MonthlyTotal:       10.555,
		YearlyTotal:        126.664,
		ByCategory: map[models.Category]models.CategoryStat{
			models.CategoryMusic: {Count: 2, Total: 10.555},
		},
		UpcomingRenewals: 1,
	}

	got := summary.Rounded()

	assert.Equal(t, 10.56, got.MonthlyTotal)
	assert.Equal(t, 126.66, got.YearlyTotal)
	assert.Equal(t, 10.56, got.ByCategory[models.CategoryMusic].Total)
	// Исходная сводка не изменяется.
	assert.Equal(t, 10.555, summary.MonthlyTotal)
}
