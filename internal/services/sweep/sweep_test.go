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

func (m *RepoMock) ListActiveWithOwner(ctx context.Context) ([]*models.SweepEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SweepEntry), args.Error(1)
}

func (m *RepoMock) RolloverRenewal(ctx context.Context, id int, nextRenewal time.Time) (int, error) {
	args := m.Called(ctx, id, nextRenewal)
	return args.Int(0), args.Error(1)
}

func (m *RepoMock) MarkNotificationSent(ctx context.Context, id int, sentAt time.Time) (int, error) {
	args := m.Called(ctx, id, sentAt)
	return args.Int(0), args.Error(1)
}

type GatewayMock struct{ mock.Mock }

func (m *GatewayMock) SendRenewalReminder(info models.ReminderInfo) error {
	return m.Called(info).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

var today = time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

func newService(repo *RepoMock, gateway *GatewayMock) *SweepService {
	svc := NewSweepService(repo, gateway, newNoopLogger())
	svc.now = func() time.Time { return today }
	return svc
}

func owner() *models.User {
	return &models.User{
		UID:                    "uid-1",
		Name:                   "Alice",
		Email:                  "alice@example.com",
		EmailNotifications:     true,
		NotificationDaysBefore: 3,
	}
}

func subscription(id int, renewal time.Time) models.Subscription {
	return models.Subscription{
		ID:           id,
		UserUID:      "uid-1",
		ServiceName:  "Netflix",
		Cost:         15.99,
		Currency:     "USD",
		BillingCycle: models.CycleMonthly,
		Category:     models.CategoryEntertainment,
		RenewalDate:  renewal,
		IsActive:     true,
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(sub *models.Subscription, owner *models.User)
		want   Action
	}{
		{
			name:   "date within window triggers reminder",
			modify: func(sub *models.Subscription, _ *models.User) { sub.RenewalDate = today.AddDate(0, 0, 2) },
			want:   ActionRemind,
		},
		{
			name:   "renewal today triggers reminder",
			modify: func(sub *models.Subscription, _ *models.User) { sub.RenewalDate = today },
			want:   ActionRemind,
		},
		{
			name:   "date in the past triggers rollover",
			modify: func(sub *models.Subscription, _ *models.User) { sub.RenewalDate = today.AddDate(0, 0, -1) },
			want:   ActionRollover,
		},
		{
			name: "past date with sent flag still rolls over",
			modify: func(sub *models.Subscription, _ *models.User) {
				sub.RenewalDate = today.AddDate(0, 0, -1)
				sub.NotificationSent = true
			},
			want: ActionRollover,
		},
		{
			name: "already notified is skipped",
			modify: func(sub *models.Subscription, _ *models.User) {
				sub.RenewalDate = today.AddDate(0, 0, 2)
				sub.NotificationSent = true
			},
			want: ActionSkip,
		},
		{
			name: "notifications disabled is skipped",
			modify: func(sub *models.Subscription, owner *models.User) {
				sub.RenewalDate = today.AddDate(0, 0, 2)
				owner.EmailNotifications = false
			},
			want: ActionSkip,
		},
		{
			name:   "date beyond window is skipped",
			modify: func(sub *models.Subscription, _ *models.User) { sub.RenewalDate = today.AddDate(0, 0, 10) },
			want:   ActionSkip,
		},
		{
			name: "wider lead window widens the reminder",
			modify: func(sub *models.Subscription, owner *models.User) {
				sub.RenewalDate = today.AddDate(0, 0, 7)
				owner.NotificationDaysBefore = 7
			},
			want: ActionRemind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := subscription(1, today)
			ownr := owner()
			tt.modify(&sub, ownr)
			assert.Equal(t, tt.want, Evaluate(&sub, ownr, today))
		})
	}
}

func TestSweepService_Run_SendsReminderAndMarks(t *testing.T) {
	repo := new(RepoMock)
	gateway := new(GatewayMock)
	svc := newService(repo, gateway)

	sub := subscription(1, today.AddDate(0, 0, 2))
	repo.On("ListActiveWithOwner", mock.Anything).
		Return([]*models.SweepEntry{{Subscription: sub, Owner: owner()}}, nil).Once()
	gateway.On("SendRenewalReminder", mock.MatchedBy(func(info models.ReminderInfo) bool {
		return info.Email == "alice@example.com" &&
			info.ServiceName == "Netflix" &&
			info.DaysUntil == 2
	})).Return(nil).Once()
	repo.On("MarkNotificationSent", mock.Anything, 1, today).Return(1, nil).Once()

	err := svc.Run(context.Background())

	assert.NoError(t, err)
	repo.AssertExpectations(t)
	gateway.AssertExpectations(t)
}

func TestSweepService_Run_RollsOverExpiredDate(t *testing.T) {
	repo := new(RepoMock)
	gateway := new(GatewayMock)
	svc := newService(repo, gateway)

	sub := subscription(1, time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC))
	repo.On("ListActiveWithOwner", mock.Anything).
		Return([]*models.SweepEntry{{Subscription: sub, Owner: owner()}}, nil).Once()
	repo.On("RolloverRenewal", mock.Anything, 1,
		time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC)).Return(1, nil).Once()

	err := svc.Run(context.Background())

	assert.NoError(t, err)
	repo.AssertExpectations(t)
	gateway.AssertExpectations(t)
}

func TestSweepService_Run_DeliveryFailureLeavesFlagUnset(t *testing.T) {
	repo := new(RepoMock)
	gateway := new(GatewayMock)
	svc := newService(repo, gateway)

	sub := subscription(1, today.AddDate(0, 0, 1))
	repo.On("ListActiveWithOwner", mock.Anything).
		Return([]*models.SweepEntry{{Subscription: sub, Owner: owner()}}, nil).Once()
	gateway.On("SendRenewalReminder", mock.Anything).Return(errors.New("smtp down")).Once()

	err := svc.Run(context.Background())

	assert.NoError(t, err)
	repo.AssertNotCalled(t, "MarkNotificationSent", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
	gateway.AssertExpectations(t)
}

func TestSweepService_Run_RerunIsIdempotent(t *testing.T) {
	repo := new(RepoMock)
	gateway := new(GatewayMock)
	svc := newService(repo, gateway)

	// Флаг уже стоит после первого прохода, повтор ничего не отправляет.
	sub := subscription(1, today.AddDate(0, 0, 2))
	sub.NotificationSent = true
	repo.On("ListActiveWithOwner", mock.Anything).
		Return([]*models.SweepEntry{{Subscription: sub, Owner: owner()}}, nil).Once()

	err := svc.Run(context.Background())

	assert.NoError(t, err)
	gateway.AssertNotCalled(t, "SendRenewalReminder", mock.Anything)
	repo.AssertExpectations(t)
}

func TestSweepService_Run_SkipsOrphanedSubscription(t *testing.T) {
	repo := new(RepoMock)
	gateway := new(GatewayMock)
	svc := newService(repo, gateway)

	sub := subscription(1, today)
	repo.On("ListActiveWithOwner", mock.Anything).
		Return([]*models.SweepEntry{{Subscription: sub, Owner: nil}}, nil).Once()

	err := svc.Run(context.Background())

	assert.NoError(t, err)
	gateway.AssertNotCalled(t, "SendRenewalReminder", mock.Anything)
	repo.AssertExpectations(t)
}

func TestSweepService_Run_SkipsMalformedCycle(t *testing.T) {
	repo := new(RepoMock)
	gateway := new(GatewayMock)
	svc := newService(repo, gateway)

	sub := subscription(1, today)
	sub.BillingCycle = "fortnightly"
	good := subscription(2, today.AddDate(0, 0, 1))
	repo.On("ListActiveWithOwner", mock.Anything).
		Return([]*models.SweepEntry{
			{Subscription: sub, Owner: owner()},
			{Subscription: good, Owner: owner()},
		}, nil).Once()
	gateway.On("SendRenewalReminder", mock.MatchedBy(func(info models.ReminderInfo) bool {
		return info.DaysUntil == 1
	})).Return(nil).Once()
	repo.On("MarkNotificationSent", mock.Anything, 2, today).Return(1, nil).Once()

	err := svc.Run(context.Background())

	assert.NoError(t, err)
	repo.AssertExpectations(t)
	gateway.AssertExpectations(t)
}

func TestSweepService_Run_ListError(t *testing.T) {
	repo := new(RepoMock)
	gateway := new(GatewayMock)
	svc := newService(repo, gateway)

	repo.On("ListActiveWithOwner", mock.Anything).Return(nil, errors.New("db down")).Once()

	err := svc.Run(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestSweepService_Run_RolloverErrorDoesNotStopSweep(t *testing.T) {
	repo := new(RepoMock)
	gateway := new(GatewayMock)
	svc := newService(repo, gateway)

	expired := subscription(1, today.AddDate(0, 0, -3))
	due := subscription(2, today.AddDate(0, 0, 1))
	repo.On("ListActiveWithOwner", mock.Anything).
		Return([]*models.SweepEntry{
			{Subscription: expired, Owner: owner()},
			{Subscription: due, Owner: owner()},
		}, nil).Once()
	repo.On("RolloverRenewal", mock.Anything, 1, mock.Anything).
		Return(0, errors.New("db error")).Once()
	gateway.On("SendRenewalReminder", mock.Anything).Return(nil).Once()
	repo.On("MarkNotificationSent", mock.Anything, 2, today).Return(1, nil).Once()

	err := svc.Run(context.Background())

	assert.NoError(t, err)
	repo.AssertExpectations(t)
	gateway.AssertExpectations(t)
}
