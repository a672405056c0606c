// Package services содержит бизнес-логику работы с профилем пользователя.
package services

import (
	"context"
	"log/slog"

	"github.com/subwatch/subtracker/internal/models"
)

// UserRepository определяет методы для работы с профилем в хранилище.
type UserRepository interface {
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, userUID string) (int, error)
}

// UserService реализует операции над профилем пользователя.
type UserService struct {
	repo UserRepository
	log  *slog.Logger
}

// NewUserService создает новый экземпляр UserService.
func NewUserService(repo UserRepository, log *slog.Logger) *UserService {
	return &UserService{
		repo: repo,
		log:  log,
	}
}

// Profile возвращает профиль пользователя по UID.
func (s *UserService) Profile(ctx context.Context, userUID string) (*models.User, error) {
	return s.repo.GetUser(ctx, userUID)
}

// UpdateProfile применяет частичное обновление профиля: nil-поля запроса
// не изменяются. Возвращает обновлённый профиль.
func (s *UserService) UpdateProfile(ctx context.Context, userUID string, req models.DummyProfileUpdate) (*models.User, error) {
	user, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.EmailNotifications != nil {
		user.EmailNotifications = *req.EmailNotifications
	}
	if req.NotificationDaysBefore != nil {
		user.NotificationDaysBefore = *req.NotificationDaysBefore
	}

	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info("updated user profile", slog.String("user_uid", userUID))
	return user, nil
}

// Delete удаляет учётную запись; подписки удаляются каскадно в хранилище.
func (s *UserService) Delete(ctx context.Context, userUID string) (int, error) {
	return s.repo.DeleteUser(ctx, userUID)
}
