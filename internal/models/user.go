// Package models содержит доменную модель пользователя системы.
// Учётная запись может быть локальной (с хэшем пароля) или федеративной
// (вход через Google, хэш пароля отсутствует).
package models

import "time"

// User представляет зарегистрированного пользователя системы.
type User struct {
	UID                   string    // Уникальный идентификатор пользователя
	Name                  string    // Отображаемое имя
	Email                 string    // Электронная почта (уникальная, в нижнем регистре)
	PasswordHash          string    // Хэш пароля, пустой для федеративных аккаунтов
	GoogleID              string    // Идентификатор Google-аккаунта, пустой для локальных
	EmailNotifications    bool      // Разрешены ли письма-напоминания
	NotificationDaysBefore int      // За сколько дней до списания напоминать
	CreatedAt             time.Time // Дата регистрации
}

// DummyRegister используется для приёма данных регистрации из JSON-запроса.
type DummyRegister struct {
	Name     string `json:"name" validate:"required"`            // Имя пользователя
	Email    string `json:"email" validate:"required,email"`     // Электронная почта
	Password string `json:"password" validate:"required,min=8"`  // Пароль (>=8 символов)
}

// DummyLogin используется для приёма данных входа из JSON-запроса.
type DummyLogin struct {
	Email    string `json:"email" validate:"required,email"` // Электронная почта
	Password string `json:"password" validate:"required"`    // Пароль
}

// DummyGoogleLogin используется для приёма ID-токена Google из JSON-запроса.
type DummyGoogleLogin struct {
	Token string `json:"token" validate:"required"` // ID-токен, выданный Google
}

// DummyProfileUpdate используется для частичного обновления профиля.
// Nil-поля не изменяются.
type DummyProfileUpdate struct {
	Name                   *string `json:"name,omitempty" validate:"omitempty,min=1"`                  // Имя
	EmailNotifications     *bool   `json:"email_notifications,omitempty"`                              // Напоминания включены
	NotificationDaysBefore *int    `json:"notification_days_before,omitempty" validate:"omitempty,min=1,max=30"` // Срок напоминания в днях
}

// WelcomeInfo содержит данные для приветственного письма новому пользователю.
type WelcomeInfo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}
