// Package models содержит доменные структуры приложения: подписки,
// пользователей и вспомогательные типы для приёма данных из JSON-запросов.
package models

import (
	"fmt"
	"time"
)

// Cycle определяет периодичность списания по подписке.
type Cycle string

// Допустимые значения периодичности списания.
const (
	CycleWeekly    Cycle = "weekly"
	CycleMonthly   Cycle = "monthly"
	CycleQuarterly Cycle = "quarterly"
	CycleYearly    Cycle = "yearly"
)

// ParseCycle проверяет строковое значение периодичности и возвращает Cycle.
// Значения вне перечисления считаются ошибкой валидации на входе,
// дальше по коду Cycle считается корректным.
func ParseCycle(s string) (Cycle, error) {
	switch Cycle(s) {
	case CycleWeekly, CycleMonthly, CycleQuarterly, CycleYearly:
		return Cycle(s), nil
	}
	return "", fmt.Errorf("unknown billing cycle: %q", s)
}

// Category определяет категорию сервиса подписки.
type Category string

// Закрытый перечень категорий.
const (
	CategoryEntertainment Category = "entertainment"
	CategoryProductivity  Category = "productivity"
	CategoryEducation     Category = "education"
	CategoryFitness       Category = "fitness"
	CategoryMusic         Category = "music"
	CategoryCloudStorage  Category = "cloud-storage"
	CategoryGaming        Category = "gaming"
	CategoryNews          Category = "news"
	CategoryOther         Category = "other"
)

// ParseCategory проверяет строковое значение категории и возвращает Category.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryEntertainment, CategoryProductivity, CategoryEducation,
		CategoryFitness, CategoryMusic, CategoryCloudStorage,
		CategoryGaming, CategoryNews, CategoryOther:
		return Category(s), nil
	}
	return "", fmt.Errorf("unknown category: %q", s)
}

// Subscription представляет основную модель подписки,
// используемую в бизнес-логике и хранилище.
// RenewalDate хранится как календарная дата (время суток не учитывается),
// LastNotificationDate может быть nil — уведомлений ещё не было.
type Subscription struct {
	ID                   int        `json:"id"`                     // Идентификатор подписки
	UserUID              string     `json:"user_uid"`               // UID владельца
	ServiceName          string     `json:"service_name"`           // Название сервиса
	Cost                 float64    `json:"cost"`                   // Стоимость за один цикл
	Currency             string     `json:"currency"`               // Код валюты ISO, информационно
	BillingCycle         Cycle      `json:"billing_cycle"`          // Периодичность списания
	Category             Category   `json:"category"`               // Категория сервиса
	PaymentMethod        string     `json:"payment_method"`         // Способ оплаты (опционально)
	Description          string     `json:"description"`            // Описание (опционально)
	RenewalDate          time.Time  `json:"renewal_date"`           // Дата следующего списания
	IsActive             bool       `json:"is_active"`              // Признак активности
	NotificationSent     bool       `json:"notification_sent"`      // Напоминание по текущему циклу отправлено
	LastNotificationDate *time.Time `json:"last_notification_date"` // Время последнего напоминания
}

// DummySubscription используется для приёма данных подписки из JSON-запроса,
// прежде чем конвертировать их в Subscription.
// Дата приходит строкой, чтобы её можно было валидировать и парсить вручную.
type DummySubscription struct {
	ServiceName   string  `json:"service_name" validate:"required"`                                                                                         // Название сервиса
	Cost          float64 `json:"cost" validate:"min=0"`                                                                                                    // Стоимость (>=0)
	Currency      string  `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`                                                                      // Код валюты
	BillingCycle  string  `json:"billing_cycle" validate:"required,oneof=weekly monthly quarterly yearly"`                                                  // Периодичность
	Category      string  `json:"category" validate:"required,oneof=entertainment productivity education fitness music cloud-storage gaming news other"`    // Категория
	PaymentMethod string  `json:"payment_method,omitempty"`                                                                                                 // Способ оплаты
	Description   string  `json:"description,omitempty"`                                                                                                    // Описание
	RenewalDate   string  `json:"renewal_date" validate:"required"`                                                                                         // Дата списания в формате 2006-01-02, парсится при конвертации
	IsActive      *bool   `json:"is_active,omitempty"`                                                                                                      // Признак активности (по умолчанию true)
}

// SweepEntry объединяет подписку с её владельцем для прохода рассылки.
// Owner равен nil, если пользователь не найден (осиротевшая запись).
type SweepEntry struct {
	Subscription Subscription
	Owner        *User
}

// ReminderInfo содержит данные для письма-напоминания о продлении подписки.
type ReminderInfo struct {
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	ServiceName   string    `json:"service_name"`
	Cost          float64   `json:"cost"`
	Currency      string    `json:"currency"`
	BillingCycle  Cycle     `json:"billing_cycle"`
	RenewalDate   time.Time `json:"renewal_date"`
	DaysUntil     int       `json:"days_until"`
	PaymentMethod string    `json:"payment_method,omitempty"`
}
