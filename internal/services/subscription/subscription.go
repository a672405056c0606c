// Package services содержит бизнес-логику для управления подписками и кешированием.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/subwatch/subtracker/internal/lib/sl"
	"github.com/subwatch/subtracker/internal/models"
)

// ErrInvalidSubscription возвращается, когда данные запроса не проходят
// доменные проверки: дата, периодичность или категория вне допустимых значений.
var ErrInvalidSubscription = errors.New("invalid subscription data")

// SubscriptionRepository определяет методы для работы с подписками в хранилище.
type SubscriptionRepository interface {
	// CreateSubscription добавляет новую подписку и возвращает её ID.
	CreateSubscription(ctx context.Context, sub models.Subscription) (int, error)
	// ReadSubscription возвращает подписку владельца по ID.
	ReadSubscription(ctx context.Context, id int, userUID string) (*models.Subscription, error)
	// UpdateSubscription обновляет данные подписки владельца по ID.
	UpdateSubscription(ctx context.Context, sub models.Subscription, id int, userUID string) (int, error)
	// RemoveSubscription удаляет подписку владельца и возвращает количество удалённых записей.
	RemoveSubscription(ctx context.Context, id int, userUID string) (int, error)
	// ListSubscriptions возвращает список подписок пользователя с пагинацией.
	ListSubscriptions(ctx context.Context, userUID string, limit, offset int) ([]*models.Subscription, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(key string, value any, expiration time.Duration) error
	// Invalidate удаляет значение из кеша по ключу.
	Invalidate(key string) error
}

// SubscriptionService реализует бизнес-логику работы с подписками, включая кеширование.
type SubscriptionService struct {
	repo  SubscriptionRepository
	cache Cache
	log   *slog.Logger
}

// NewSubscriptionService создает новый экземпляр SubscriptionService.
func NewSubscriptionService(repo SubscriptionRepository, cache Cache, log *slog.Logger) *SubscriptionService {
	return &SubscriptionService{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

func (s *SubscriptionService) fromRequest(userUID string, req models.DummySubscription) (models.Subscription, error) {
	renewalDate, err := time.Parse("2006-01-02", req.RenewalDate)
	if err != nil {
		return models.Subscription{}, fmt.Errorf("%w: renewal date must be in format 2006-01-02", ErrInvalidSubscription)
	}
	cycle, err := models.ParseCycle(req.BillingCycle)
	if err != nil {
		return models.Subscription{}, fmt.Errorf("%w: %v", ErrInvalidSubscription, err)
	}
	category, err := models.ParseCategory(req.Category)
	if err != nil {
		return models.Subscription{}, fmt.Errorf("%w: %v", ErrInvalidSubscription, err)
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	return models.Subscription{
		UserUID:       userUID,
		ServiceName:   req.ServiceName,
		Cost:          req.Cost,
		Currency:      currency,
		BillingCycle:  cycle,
		Category:      category,
		PaymentMethod: req.PaymentMethod,
		Description:   req.Description,
		RenewalDate:   renewalDate,
		IsActive:      isActive,
	}, nil
}

// Create создает новую подписку для пользователя, кеширует её и возвращает ID.
func (s *SubscriptionService) Create(ctx context.Context, userUID string, req models.DummySubscription) (int, error) {
	sub, err := s.fromRequest(userUID, req)
	if err != nil {
		return 0, err
	}

	id, err := s.repo.CreateSubscription(ctx, sub)
	if err != nil {
		return 0, err
	}
	sub.ID = id
	s.log.Info("created new subscription", slog.Int("id", id))

	cacheKey := fmt.Sprintf("subscription:%d", id)
	if err := s.cache.Set(cacheKey, sub, time.Hour); err != nil {
		s.log.Warn("failed to cache subscription", slog.String("key", cacheKey), sl.Err(err))
	}
	s.invalidateSummary(userUID)

	return id, nil
}

// Read возвращает подписку по ID, используя кеш или репозиторий.
func (s *SubscriptionService) Read(ctx context.Context, id int, userUID string) (*models.Subscription, error) {
	var result *models.Subscription
	cacheKey := fmt.Sprintf("subscription:%d", id)
	found, err := s.cache.Get(cacheKey, &result)
	if err != nil {
		return nil, err
	}
	// Ключ кеша не включает владельца, поэтому чужая запись из кеша не отдаётся.
	if found && result.UserUID == userUID {
		return result, nil
	}
	result, err = s.repo.ReadSubscription(ctx, id, userUID)
	if err != nil {
		return nil, err
	}

	if result != nil {
		if err := s.cache.Set(cacheKey, result, time.Hour); err != nil {
			s.log.Warn("failed to add to cache", slog.String("key", cacheKey), sl.Err(err))
		}
	}
	return result, nil
}

// Update обновляет подписку и кеш, возвращает количество изменённых записей.
func (s *SubscriptionService) Update(ctx context.Context, req models.DummySubscription, id int, userUID string) (int, error) {
	sub, err := s.fromRequest(userUID, req)
	if err != nil {
		return 0, err
	}

	res, err := s.repo.UpdateSubscription(ctx, sub, id, userUID)
	if err != nil {
		return 0, err
	}
	s.log.Info("updated subscription in storage", slog.Int("id", id))

	sub.ID = id
	cacheKey := fmt.Sprintf("subscription:%d", id)
	if err := s.cache.Set(cacheKey, sub, time.Hour); err != nil {
		s.log.Warn("failed to cache subscription", slog.String("key", cacheKey), sl.Err(err))
	}
	s.invalidateSummary(userUID)
	return res, nil
}

// Remove удаляет подписку по ID и инвалидирует кеш.
func (s *SubscriptionService) Remove(ctx context.Context, id int, userUID string) (int, error) {
	cacheKey := fmt.Sprintf("subscription:%d", id)
	if err := s.cache.Invalidate(cacheKey); err != nil {
		s.log.Warn("failed to remove from cache", slog.String("key", cacheKey), sl.Err(err))
	}
	s.invalidateSummary(userUID)

	count, err := s.repo.RemoveSubscription(ctx, id, userUID)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// List возвращает список подписок пользователя с пагинацией.
func (s *SubscriptionService) List(ctx context.Context, userUID string, limit, offset int) ([]*models.Subscription, error) {
	return s.repo.ListSubscriptions(ctx, userUID, limit, offset)
}

func (s *SubscriptionService) invalidateSummary(userUID string) {
	cacheKey := fmt.Sprintf("analytics:%s", userUID)
	if err := s.cache.Invalidate(cacheKey); err != nil {
		s.log.Warn("failed to invalidate analytics cache", slog.String("key", cacheKey), sl.Err(err))
	}
}
