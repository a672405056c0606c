package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/subwatch/subtracker/internal/models"
)

// ErrUserNotFound возвращается, когда пользователь не найден в базе.
var ErrUserNotFound = errors.New("user not found")

const userColumns = `uid, name, email, COALESCE(password_hash, ''), COALESCE(google_id, ''),
			      email_notifications, notification_days_before, created_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	u := &models.User{}
	if err := row.Scan(&u.UID, &u.Name, &u.Email, &u.PasswordHash, &u.GoogleID,
		&u.EmailNotifications, &u.NotificationDaysBefore, &u.CreatedAt); err != nil {
		return nil, err
	}
	return u, nil
}

// RegisterUser сохраняет нового локального пользователя и возвращает его UID.
func (s *Storage) RegisterUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.RegisterUser"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newUID string
	query := `INSERT INTO users (name, email, password_hash, email_notifications, notification_days_before)
			  VALUES ($1, $2, NULLIF($3, ''), $4, $5)
			  RETURNING uid`
	if err := s.DB.QueryRowContext(ctx, query,
		user.Name, user.Email, user.PasswordHash,
		user.EmailNotifications, user.NotificationDaysBefore).Scan(&newUID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newUID, nil
}

// RegisterGoogleUser сохраняет нового федеративного пользователя без пароля.
func (s *Storage) RegisterGoogleUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.RegisterGoogleUser"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newUID string
	query := `INSERT INTO users (name, email, google_id, email_notifications, notification_days_before)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING uid`
	if err := s.DB.QueryRowContext(ctx, query,
		user.Name, user.Email, user.GoogleID,
		user.EmailNotifications, user.NotificationDaysBefore).Scan(&newUID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newUID, nil
}

// LinkGoogleID привязывает идентификатор Google к существующей учётной записи.
func (s *Storage) LinkGoogleID(ctx context.Context, userUID, googleID string) error {
	const op = "storage.LinkGoogleID"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET google_id = $1, updated_at = now() WHERE uid = $2`
	if _, err := s.DB.ExecContext(ctx, query, googleID, userUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetUserByEmail возвращает пользователя по электронной почте.
// Сравнение без учёта регистра: адреса хранятся в нижнем регистре.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE email = LOWER($1)`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUser возвращает пользователя по его UID.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE uid = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, userUID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// UpdateProfile обновляет настройки профиля пользователя.
func (s *Storage) UpdateProfile(ctx context.Context, user *models.User) error {
	const op = "storage.UpdateProfile"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET name = $1, email_notifications = $2, notification_days_before = $3,
			      updated_at = now()
			  WHERE uid = $4`
	if _, err := s.DB.ExecContext(ctx, query,
		user.Name, user.EmailNotifications, user.NotificationDaysBefore, user.UID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeleteUser удаляет пользователя; его подписки удаляются каскадно
// внешним ключом.
func (s *Storage) DeleteUser(ctx context.Context, userUID string) (int, error) {
	const op = "storage.DeleteUser"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM users WHERE uid = $1`
	res, err := s.DB.ExecContext(ctx, query, userUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}
