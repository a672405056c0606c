package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subwatch/subtracker/internal/models"
)

var renewalDate = time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

func testSubscription(userUID string) models.Subscription {
	return models.Subscription{
		UserUID:      userUID,
		ServiceName:  "Netflix",
		Cost:         15.99,
		Currency:     "USD",
		BillingCycle: models.CycleMonthly,
		Category:     models.CategoryEntertainment,
		RenewalDate:  renewalDate,
		IsActive:     true,
	}
}

func TestStorage_CreateAndReadSubscription(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	ctx := context.Background()

	userUID := factory.CreateUser(t, "testuser", "test@example.com", "hashedpassword", true, 3)

	id, err := storage.CreateSubscription(ctx, testSubscription(userUID))
	require.NoError(t, err)
	require.Greater(t, id, 0)

	got, err := storage.ReadSubscription(ctx, id, userUID)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, userUID, got.UserUID)
	assert.Equal(t, "Netflix", got.ServiceName)
	assert.InDelta(t, 15.99, got.Cost, 0.001)
	assert.Equal(t, models.CycleMonthly, got.BillingCycle)
	assert.Equal(t, models.CategoryEntertainment, got.Category)
	assert.True(t, got.IsActive)
	assert.False(t, got.NotificationSent)
	assert.Nil(t, got.LastNotificationDate)
	assert.Equal(t, "2025-07-01", got.RenewalDate.Format("2006-01-02"))
}

func TestStorage_ReadSubscription_ForeignOwner(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	ctx := context.Background()

	ownerUID := factory.CreateUser(t, "owner", "owner@example.com", "hashedpassword", true, 3)
	otherUID := factory.CreateUser(t, "other", "other@example.com", "hashedpassword", true, 3)
	id := factory.CreateSubscription(t, ownerUID, "Netflix", 15.99, "monthly", "entertainment", renewalDate, true, false)

	// Чужой пользователь не видит подписку владельца
	_, err := storage.ReadSubscription(ctx, id, otherUID)
	require.Error(t, err)
}

func TestStorage_UpdateSubscription(t *testing.T) {
	tests := []struct {
		name      string
		ownSub    bool
		wantCount int
	}{
		{
			name:      "владелец обновляет свою подписку",
			ownSub:    true,
			wantCount: 1,
		},
		{
			name:      "чужая подписка не обновляется",
			ownSub:    false,
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, cleanup := setupTestDatabase(t)
			defer cleanup()

			factory := NewTestDataFactory(storage)
			ctx := context.Background()

			ownerUID := factory.CreateUser(t, "owner", "owner@example.com", "hashedpassword", true, 3)
			id := factory.CreateSubscription(t, ownerUID, "Netflix", 15.99, "monthly", "entertainment", renewalDate, true, false)

			actorUID := ownerUID
			if !tt.ownSub {
				actorUID = factory.CreateUser(t, "other", "other@example.com", "hashedpassword", true, 3)
			}

			updated := testSubscription(ownerUID)
			updated.ServiceName = "Netflix Premium"
			updated.Cost = 22.99

			count, err := storage.UpdateSubscription(ctx, updated, id, actorUID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCount, count)

			got, err := storage.ReadSubscription(ctx, id, ownerUID)
			require.NoError(t, err)
			if tt.ownSub {
				assert.Equal(t, "Netflix Premium", got.ServiceName)
				assert.InDelta(t, 22.99, got.Cost, 0.001)
			} else {
				assert.Equal(t, "Netflix", got.ServiceName)
			}
		})
	}
}

func TestStorage_RemoveSubscription(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	verify := NewTestVerification(storage)
	ctx := context.Background()

	userUID := factory.CreateUser(t, "testuser", "test@example.com", "hashedpassword", true, 3)
	id := factory.CreateSubscription(t, userUID, "Netflix", 15.99, "monthly", "entertainment", renewalDate, true, false)

	count, err := storage.RemoveSubscription(ctx, id, userUID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	verify.VerifySubscriptionDeleted(t, id)

	// Повторное удаление ничего не находит
	count, err = storage.RemoveSubscription(ctx, id, userUID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestStorage_ListSubscriptions(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		offset    int
		wantCount int
		wantFirst string
	}{
		{
			name:      "список отсортирован по дате списания",
			limit:     10,
			offset:    0,
			wantCount: 3,
			wantFirst: "Spotify",
		},
		{
			name:      "пагинация пропускает первую запись",
			limit:     10,
			offset:    1,
			wantCount: 2,
			wantFirst: "Netflix",
		},
		{
			name:      "лимит ограничивает выборку",
			limit:     1,
			offset:    0,
			wantCount: 1,
			wantFirst: "Spotify",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, cleanup := setupTestDatabase(t)
			defer cleanup()

			factory := NewTestDataFactory(storage)
			ctx := context.Background()

			userUID := factory.CreateUser(t, "testuser", "test@example.com", "hashedpassword", true, 3)
			otherUID := factory.CreateUser(t, "other", "other@example.com", "hashedpassword", true, 3)

			factory.CreateSubscription(t, userUID, "Netflix", 15.99, "monthly", "entertainment", renewalDate.AddDate(0, 0, 5), true, false)
			factory.CreateSubscription(t, userUID, "Spotify", 9.99, "monthly", "music", renewalDate, true, false)
			factory.CreateSubscription(t, userUID, "iCloud", 2.99, "monthly", "cloud-storage", renewalDate.AddDate(0, 0, 10), false, false)
			factory.CreateSubscription(t, otherUID, "Disney+", 8.99, "monthly", "entertainment", renewalDate, true, false)

			got, err := storage.ListSubscriptions(ctx, userUID, tt.limit, tt.offset)
			require.NoError(t, err)
			require.Len(t, got, tt.wantCount)
			assert.Equal(t, tt.wantFirst, got[0].ServiceName)
		})
	}
}

func TestStorage_ListActiveSubscriptions(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	ctx := context.Background()

	userUID := factory.CreateUser(t, "testuser", "test@example.com", "hashedpassword", true, 3)

	factory.CreateSubscription(t, userUID, "Netflix", 15.99, "monthly", "entertainment", renewalDate, true, false)
	factory.CreateSubscription(t, userUID, "Spotify", 9.99, "monthly", "music", renewalDate, true, false)
	factory.CreateSubscription(t, userUID, "iCloud", 2.99, "monthly", "cloud-storage", renewalDate, false, false)

	got, err := storage.ListActiveSubscriptions(ctx, userUID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, sub := range got {
		assert.True(t, sub.IsActive)
	}
}

func TestStorage_ListActiveWithOwner(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	ctx := context.Background()

	userUID := factory.CreateUser(t, "testuser", "test@example.com", "hashedpassword", false, 7)
	otherUID := factory.CreateUser(t, "other", "other@example.com", "hashedpassword", true, 3)

	factory.CreateSubscription(t, userUID, "Netflix", 15.99, "monthly", "entertainment", renewalDate, true, false)
	factory.CreateSubscription(t, otherUID, "Spotify", 9.99, "monthly", "music", renewalDate, true, false)
	factory.CreateSubscription(t, userUID, "iCloud", 2.99, "monthly", "cloud-storage", renewalDate, false, false)

	got, err := storage.ListActiveWithOwner(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	byService := make(map[string]*models.SweepEntry, len(got))
	for _, entry := range got {
		byService[entry.Subscription.ServiceName] = entry
	}

	netflix, ok := byService["Netflix"]
	require.True(t, ok)
	require.NotNil(t, netflix.Owner)
	assert.Equal(t, userUID, netflix.Owner.UID)
	assert.Equal(t, "testuser", netflix.Owner.Name)
	assert.Equal(t, "test@example.com", netflix.Owner.Email)
	assert.False(t, netflix.Owner.EmailNotifications)
	assert.Equal(t, 7, netflix.Owner.NotificationDaysBefore)

	spotify, ok := byService["Spotify"]
	require.True(t, ok)
	require.NotNil(t, spotify.Owner)
	assert.Equal(t, otherUID, spotify.Owner.UID)
}

func TestStorage_RolloverRenewal(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	verify := NewTestVerification(storage)
	ctx := context.Background()

	userUID := factory.CreateUser(t, "testuser", "test@example.com", "hashedpassword", true, 3)
	id := factory.CreateSubscription(t, userUID, "Netflix", 15.99, "monthly", "entertainment", renewalDate, true, true)

	next := renewalDate.AddDate(0, 1, 0)
	count, err := storage.RolloverRenewal(ctx, id, next)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Дата сдвинута, флаг напоминания сброшен для нового цикла
	verify.VerifyRenewalDate(t, id, next)
	verify.VerifyNotificationState(t, id, false)
}

func TestStorage_MarkNotificationSent(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	verify := NewTestVerification(storage)
	ctx := context.Background()

	userUID := factory.CreateUser(t, "testuser", "test@example.com", "hashedpassword", true, 3)
	id := factory.CreateSubscription(t, userUID, "Netflix", 15.99, "monthly", "entertainment", renewalDate, true, false)

	sentAt := time.Date(2025, 6, 28, 9, 0, 0, 0, time.UTC)
	count, err := storage.MarkNotificationSent(ctx, id, sentAt)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	verify.VerifyNotificationState(t, id, true)

	got, err := storage.ReadSubscription(ctx, id, userUID)
	require.NoError(t, err)
	require.NotNil(t, got.LastNotificationDate)
	assert.True(t, got.LastNotificationDate.Equal(sentAt))
}

func TestStorage_RegisterUser(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	verify := NewTestVerification(storage)
	ctx := context.Background()

	uid, err := storage.RegisterUser(ctx, models.User{
		Name:                   "testuser",
		Email:                  "test@example.com",
		PasswordHash:           "hashedpassword",
		EmailNotifications:     true,
		NotificationDaysBefore: 3,
	})
	require.NoError(t, err)
	require.NotEmpty(t, uid)
	verify.VerifyUserExists(t, uid)

	// Повторная регистрация с тем же адресом нарушает уникальность
	_, err = storage.RegisterUser(ctx, models.User{
		Name:                   "duplicate",
		Email:                  "test@example.com",
		PasswordHash:           "otherhash",
		EmailNotifications:     true,
		NotificationDaysBefore: 3,
	})
	require.Error(t, err)
}

func TestStorage_RegisterGoogleUser(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()

	uid, err := storage.RegisterGoogleUser(ctx, models.User{
		Name:                   "googleuser",
		Email:                  "google@example.com",
		GoogleID:               "google-sub-123",
		EmailNotifications:     true,
		NotificationDaysBefore: 3,
	})
	require.NoError(t, err)
	require.NotEmpty(t, uid)

	got, err := storage.GetUser(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "google-sub-123", got.GoogleID)
	assert.Empty(t, got.PasswordHash)
}

func TestStorage_LinkGoogleID(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	ctx := context.Background()

	userUID := factory.CreateUser(t, "testuser", "test@example.com", "hashedpassword", true, 3)

	err := storage.LinkGoogleID(ctx, userUID, "google-sub-456")
	require.NoError(t, err)

	got, err := storage.GetUser(ctx, userUID)
	require.NoError(t, err)
	assert.Equal(t, "google-sub-456", got.GoogleID)
	assert.Equal(t, "hashedpassword", got.PasswordHash)
}

func TestStorage_GetUserByEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr error
	}{
		{
			name:  "существующий адрес",
			email: "test@example.com",
		},
		{
			name:  "регистр адреса не важен",
			email: "Test@Example.COM",
		},
		{
			name:    "неизвестный адрес",
			email:   "missing@example.com",
			wantErr: ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, cleanup := setupTestDatabase(t)
			defer cleanup()

			factory := NewTestDataFactory(storage)
			ctx := context.Background()

			userUID := factory.CreateUser(t, "testuser", "test@example.com", "hashedpassword", true, 3)

			got, err := storage.GetUserByEmail(ctx, tt.email)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, userUID, got.UID)
			assert.Equal(t, "test@example.com", got.Email)
		})
	}
}

func TestStorage_GetUser_NotFound(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	_, err := storage.GetUser(context.Background(), uuid.New().String())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestStorage_UpdateProfile(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	ctx := context.Background()

	userUID := factory.CreateUser(t, "testuser", "test@example.com", "hashedpassword", true, 3)

	err := storage.UpdateProfile(ctx, &models.User{
		UID:                    userUID,
		Name:                   "renamed",
		EmailNotifications:     false,
		NotificationDaysBefore: 14,
	})
	require.NoError(t, err)

	got, err := storage.GetUser(ctx, userUID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.False(t, got.EmailNotifications)
	assert.Equal(t, 14, got.NotificationDaysBefore)
}

func TestStorage_DeleteUser_CascadesSubscriptions(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	verify := NewTestVerification(storage)
	ctx := context.Background()

	userUID := factory.CreateUser(t, "testuser", "test@example.com", "hashedpassword", true, 3)
	subID1 := factory.CreateSubscription(t, userUID, "Netflix", 15.99, "monthly", "entertainment", renewalDate, true, false)
	subID2 := factory.CreateSubscription(t, userUID, "Spotify", 9.99, "monthly", "music", renewalDate, true, false)

	count, err := storage.DeleteUser(ctx, userUID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	verify.VerifyUserDeleted(t, userUID)
	verify.VerifySubscriptionDeleted(t, subID1)
	verify.VerifySubscriptionDeleted(t, subID2)

	// Повторное удаление ничего не находит
	count, err = storage.DeleteUser(ctx, userUID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
