// Package summary реализует HTTP-обработчик сводной аналитики по подпискам.
//
// Возвращает суммарные расходы за месяц и год, разбивку по категориям
// и количество продлений в ближайшие 30 дней. Денежные значения
// округляются до двух знаков только здесь, на границе HTTP.
package summary

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/subwatch/subtracker/internal/http/middlewarectx"
	"github.com/subwatch/subtracker/internal/http/response"
	"github.com/subwatch/subtracker/internal/lib/sl"
	"github.com/subwatch/subtracker/internal/models"
)

// Handler управляет HTTP-запросами на получение сводки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики аналитики.
type Service interface {
	Summary(ctx context.Context, userUID string) (models.AnalyticsSummary, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Сводка расходов
// @Description Возвращает сводную аналитику по активным подпискам текущего пользователя.
// @Tags Analytics
// @Produce  json
// @Success 200 {object} models.AnalyticsSummary "Сводка"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /analytics/summary [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.analytics.summary"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	summary, err := h.service.Summary(r.Context(), userUID)
	if err != nil {
		log.Error("failed to build analytics summary", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not build analytics summary"))
		return
	}

	render.JSON(w, r, summary.Rounded())
}
