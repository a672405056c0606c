// Package google реализует HTTP-обработчик федеративного входа через Google.
//
// Handler принимает ID-токен, выданный Google на стороне клиента,
// проверяет его через сервис аутентификации и возвращает JWT приложения.
package google

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/subwatch/subtracker/internal/http/response"
	"github.com/subwatch/subtracker/internal/lib/sl"
	"github.com/subwatch/subtracker/internal/models"
)

// Handler управляет HTTP-запросами на вход через Google.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики федеративного входа.
type Service interface {
	LoginWithGoogle(ctx context.Context, idToken string) (*models.User, string, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Войти через Google
// @Description Проверяет ID-токен Google, при первом входе создаёт учётную запись.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body models.DummyGoogleLogin true "ID-токен Google"
// @Success 200 {object} map[string]any "Успешный вход"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Токен не прошёл проверку"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /auth/google [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.google"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyGoogleLogin
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	user, token, err := h.service.LoginWithGoogle(r.Context(), req.Token)
	if err != nil {
		log.Error("google sign-in failed", sl.Err(err))
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("authentication failed"))
		return
	}

	log.Info("user logged in with google", slog.String("user_uid", user.UID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"token": token,
		"user": map[string]any{
			"id":                       user.UID,
			"name":                     user.Name,
			"email":                    user.Email,
			"email_notifications":      user.EmailNotifications,
			"notification_days_before": user.NotificationDaysBefore,
		},
	}))
}
