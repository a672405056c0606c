package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/subwatch/subtracker/internal/models"
)

const subscriptionColumns = `id, user_uid, service_name, cost, currency, billing_cycle,
			      category, payment_method, description, renewal_date, is_active,
			      notification_sent, last_notification_date`

func scanSubscription(row interface{ Scan(...any) error }) (*models.Subscription, error) {
	var item models.Subscription
	var lastNotification sql.NullTime
	if err := row.Scan(&item.ID, &item.UserUID, &item.ServiceName, &item.Cost, &item.Currency,
		&item.BillingCycle, &item.Category, &item.PaymentMethod, &item.Description,
		&item.RenewalDate, &item.IsActive, &item.NotificationSent, &lastNotification); err != nil {
		return nil, err
	}
	if lastNotification.Valid {
		item.LastNotificationDate = &lastNotification.Time
	}
	return &item, nil
}

// CreateSubscription вставляет новую запись подписки и возвращает её ID.
func (s *Storage) CreateSubscription(ctx context.Context, sub models.Subscription) (int, error) {
	const op = "storage.CreateSubscription"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO subscriptions (user_uid, service_name, cost, currency, billing_cycle,
			      category, payment_method, description, renewal_date, is_active)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			  RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		sub.UserUID, sub.ServiceName, sub.Cost, sub.Currency, sub.BillingCycle,
		sub.Category, sub.PaymentMethod, sub.Description, sub.RenewalDate, sub.IsActive).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ReadSubscription возвращает подписку по ID в рамках одного владельца.
func (s *Storage) ReadSubscription(ctx context.Context, id int, userUID string) (*models.Subscription, error) {
	const op = "storage.ReadSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions WHERE id = $1 AND user_uid = $2`
	result, err := scanSubscription(s.DB.QueryRowContext(ctx, query, id, userUID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// UpdateSubscription обновляет данные подписки владельца и возвращает количество изменённых строк.
func (s *Storage) UpdateSubscription(ctx context.Context, sub models.Subscription, id int, userUID string) (int, error) {
	const op = "storage.UpdateSubscription"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET service_name = $1, cost = $2, currency = $3, billing_cycle = $4,
			      category = $5, payment_method = $6, description = $7,
			      renewal_date = $8, is_active = $9, updated_at = now()
			  WHERE id = $10 AND user_uid = $11`
	result, err := s.DB.ExecContext(ctx, query,
		sub.ServiceName, sub.Cost, sub.Currency, sub.BillingCycle,
		sub.Category, sub.PaymentMethod, sub.Description,
		sub.RenewalDate, sub.IsActive, id, userUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// RemoveSubscription удаляет подписку владельца и возвращает количество удалённых строк.
func (s *Storage) RemoveSubscription(ctx context.Context, id int, userUID string) (int, error) {
	const op = "storage.RemoveSubscription"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM subscriptions WHERE id = $1 AND user_uid = $2`
	result, err := s.DB.ExecContext(ctx, query, id, userUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// ListSubscriptions возвращает список подписок пользователя с пагинацией,
// отсортированный по дате списания.
func (s *Storage) ListSubscriptions(ctx context.Context, userUID string, limit, offset int) ([]*models.Subscription, error) {
	const op = "storage.ListSubscriptions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE user_uid = $1
			  ORDER BY renewal_date
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, userUID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Subscription
	for rows.Next() {
		item, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ListActiveSubscriptions возвращает все активные подписки пользователя.
// Используется аналитикой, выборка без пагинации.
func (s *Storage) ListActiveSubscriptions(ctx context.Context, userUID string) ([]*models.Subscription, error) {
	const op = "storage.ListActiveSubscriptions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE user_uid = $1 AND is_active = true
			  ORDER BY renewal_date`
	rows, err := s.DB.QueryContext(ctx, query, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Subscription
	for rows.Next() {
		item, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ListActiveWithOwner возвращает все активные подписки вместе с владельцами
// для прохода рассылки. Соединение через LEFT JOIN: подписка без владельца
// возвращается с Owner == nil, решение о её судьбе принимает вызывающий код.
func (s *Storage) ListActiveWithOwner(ctx context.Context) ([]*models.SweepEntry, error) {
	const op = "storage.ListActiveWithOwner"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT s.id, s.user_uid, s.service_name, s.cost, s.currency, s.billing_cycle,
			      s.category, s.payment_method, s.description, s.renewal_date, s.is_active,
			      s.notification_sent, s.last_notification_date,
			      u.uid, u.name, u.email, u.email_notifications, u.notification_days_before
			  FROM subscriptions s
			  LEFT JOIN users u ON s.user_uid = u.uid
			  WHERE s.is_active = true
			  ORDER BY s.id`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.SweepEntry
	for rows.Next() {
		var entry models.SweepEntry
		var lastNotification sql.NullTime
		var ownerUID, ownerName, ownerEmail sql.NullString
		var ownerNotifications sql.NullBool
		var ownerLeadDays sql.NullInt64
		if err := rows.Scan(&entry.Subscription.ID, &entry.Subscription.UserUID,
			&entry.Subscription.ServiceName, &entry.Subscription.Cost, &entry.Subscription.Currency,
			&entry.Subscription.BillingCycle, &entry.Subscription.Category,
			&entry.Subscription.PaymentMethod, &entry.Subscription.Description,
			&entry.Subscription.RenewalDate, &entry.Subscription.IsActive,
			&entry.Subscription.NotificationSent, &lastNotification,
			&ownerUID, &ownerName, &ownerEmail, &ownerNotifications, &ownerLeadDays); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if lastNotification.Valid {
			entry.Subscription.LastNotificationDate = &lastNotification.Time
		}
		if ownerUID.Valid {
			entry.Owner = &models.User{
				UID:                    ownerUID.String,
				Name:                   ownerName.String,
				Email:                  ownerEmail.String,
				EmailNotifications:     ownerNotifications.Bool,
				NotificationDaysBefore: int(ownerLeadDays.Int64),
			}
		}
		result = append(result, &entry)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// RolloverRenewal точечно сдвигает дату списания и сбрасывает флаг уведомления.
func (s *Storage) RolloverRenewal(ctx context.Context, id int, nextRenewal time.Time) (int, error) {
	const op = "storage.RolloverRenewal"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET renewal_date = $1, notification_sent = false, updated_at = now()
			  WHERE id = $2`
	res, err := s.DB.ExecContext(ctx, query, nextRenewal, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// MarkNotificationSent точечно выставляет флаг уведомления
// и время последнего напоминания.
func (s *Storage) MarkNotificationSent(ctx context.Context, id int, sentAt time.Time) (int, error) {
	const op = "storage.MarkNotificationSent"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET notification_sent = true, last_notification_date = $1, updated_at = now()
			  WHERE id = $2`
	res, err := s.DB.ExecContext(ctx, query, sentAt, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}
