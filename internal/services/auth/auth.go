// Package services содержит логику бизнес-уровня для работы с пользователями
// и аутентификацией: локальная регистрация, вход по паролю и федеративный
// вход через Google.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/streadway/amqp"

	"github.com/subwatch/subtracker/internal/lib/jwt"
	"github.com/subwatch/subtracker/internal/lib/password"
	"github.com/subwatch/subtracker/internal/lib/rabbitmq"
	"github.com/subwatch/subtracker/internal/lib/sl"
	"github.com/subwatch/subtracker/internal/models"
	"github.com/subwatch/subtracker/internal/storage/repository"
)

// ErrInvalidCredentials возвращается при неверной паре email/пароль
// или попытке входа по паролю в федеративную учётную запись.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrUserExists возвращается при регистрации на занятый адрес почты.
var ErrUserExists = errors.New("user already exists")

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	RegisterUser(ctx context.Context, user models.User) (string, error)
	RegisterGoogleUser(ctx context.Context, user models.User) (string, error)
	LinkGoogleID(ctx context.Context, userUID, googleID string) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUser(ctx context.Context, userUID string) (*models.User, error)
}

// GoogleVerifier проверяет ID-токен Google и возвращает данные его владельца.
type GoogleVerifier interface {
	Verify(ctx context.Context, idToken string) (*GoogleIdentity, error)
}

// GoogleIdentity данные пользователя из проверенного ID-токена.
type GoogleIdentity struct {
	GoogleID string
	Email    string
	Name     string
}

// AuthService отвечает за регистрацию, авторизацию и валидацию JWT.
type AuthService struct {
	users    UserRepository
	jwtMaker jwt.Maker
	google   GoogleVerifier
	channel  *amqp.Channel
	log      *slog.Logger
}

// NewAuthService создает новый экземпляр AuthService.
// channel может быть nil — тогда приветственные письма не рассылаются.
func NewAuthService(users UserRepository, jwtMaker jwt.Maker, google GoogleVerifier, channel *amqp.Channel, log *slog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		jwtMaker: jwtMaker,
		google:   google,
		channel:  channel,
		log:      log,
	}
}

// Register создает нового локального пользователя с хэшированием пароля
// и возвращает его вместе с токеном сессии.
func (s *AuthService) Register(ctx context.Context, req models.DummyRegister) (*models.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, "", ErrUserExists
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, "", err
	}

	hashed, err := password.GetHash(req.Password)
	if err != nil {
		return nil, "", err
	}
	user := models.User{
		Name:                   req.Name,
		Email:                  email,
		PasswordHash:           hashed,
		EmailNotifications:     true,
		NotificationDaysBefore: 3,
	}
	uid, err := s.users.RegisterUser(ctx, user)
	if err != nil {
		return nil, "", err
	}
	user.UID = uid

	token, err := s.jwtMaker.GenerateToken(uid, email)
	if err != nil {
		return nil, "", err
	}

	s.publishWelcome(user)
	return &user, token, nil
}

// Login проверяет пароль пользователя и генерирует JWT.
func (s *AuthService) Login(ctx context.Context, req models.DummyLogin) (*models.User, string, error) {
	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}
	// У федеративных учётных записей хэша нет, вход по паролю для них закрыт.
	if user.PasswordHash == "" {
		return nil, "", ErrInvalidCredentials
	}
	if err := password.CompareHash(user.PasswordHash, req.Password); err != nil {
		return nil, "", ErrInvalidCredentials
	}
	token, err := s.jwtMaker.GenerateToken(user.UID, user.Email)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// LoginWithGoogle проверяет ID-токен Google и возвращает пользователя с JWT.
// При первом входе создаётся новая учётная запись; если адрес почты уже
// зарегистрирован локально, Google-идентификатор привязывается к ней.
func (s *AuthService) LoginWithGoogle(ctx context.Context, idToken string) (*models.User, string, error) {
	const op = "auth.LoginWithGoogle"
	identity, err := s.google.Verify(ctx, idToken)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	email := strings.ToLower(identity.Email)
	user, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		newUser := models.User{
			Name:                   identity.Name,
			Email:                  email,
			GoogleID:               identity.GoogleID,
			EmailNotifications:     true,
			NotificationDaysBefore: 3,
		}
		uid, err := s.users.RegisterGoogleUser(ctx, newUser)
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", op, err)
		}
		newUser.UID = uid
		user = &newUser
		s.publishWelcome(newUser)
	case err != nil:
		return nil, "", fmt.Errorf("%s: %w", op, err)
	default:
		if user.GoogleID == "" {
			if err := s.users.LinkGoogleID(ctx, user.UID, identity.GoogleID); err != nil {
				return nil, "", fmt.Errorf("%s: %w", op, err)
			}
			user.GoogleID = identity.GoogleID
		}
	}

	token, err := s.jwtMaker.GenerateToken(user.UID, user.Email)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}
	return user, token, nil
}

// ValidateToken проверяет JWT и возвращает claims, если токен корректен.
func (s *AuthService) ValidateToken(_ context.Context, token string) (*jwt.CustomClaims, error) {
	return s.jwtMaker.ParseToken(token)
}

func (s *AuthService) publishWelcome(user models.User) {
	if s.channel == nil {
		return
	}
	info := models.WelcomeInfo{Email: user.Email, Name: user.Name}
	if err := rabbitmq.PublishMessage(s.channel, rabbitmq.Exchange, "welcome", info); err != nil {
		// Приветственное письмо некритично, регистрацию не откатываем.
		s.log.Warn("failed to publish welcome message", sl.Err(err))
	}
}
