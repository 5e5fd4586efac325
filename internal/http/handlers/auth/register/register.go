// Package register проксирует регистрацию пользователя в сервис аутентификации.
//
// Тело запроса передаётся как есть, код ответа и тело сервиса возвращаются клиенту
// без изменений. Таймаут и недоступность сервиса превращаются в 502 с полем message.
package register

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/fintrack-gateway/internal/apiclient"
	"github.com/magabrotheeeer/fintrack-gateway/internal/lib/sl"
)

const (
	registerPath = "/api/users/register"
	maxBodyBytes = 1 << 20
)

const (
	msgTimedOut    = "Registration request timed out."
	msgUnreachable = "Unable to reach authentication service."
)

// Handler прокси регистрации.
type Handler struct {
	log     *slog.Logger
	backend Forwarder
	timeout time.Duration
}

// New создаёт Handler. timeout ограничивает один запрос к сервису аутентификации.
func New(log *slog.Logger, backend Forwarder, timeout time.Duration) *Handler {
	return &Handler{
		log:     log,
		backend: backend,
		timeout: timeout,
	}
}

// ServeHTTP godoc
// @Summary Регистрация пользователя
// @Description Передаёт тело запроса в сервис аутентификации и возвращает его ответ без изменений.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Success 201 {object} map[string]any "Ответ сервиса аутентификации"
// @Failure 502 {object} map[string]string "Сервис недоступен или не ответил вовремя"
// @Router /register [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.register"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		log.Error("failed to read request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"message": "invalid request body"})
		return
	}

	resp, err := h.backend.Forward(r.Context(), http.MethodPost, registerPath, body, h.timeout)
	if err != nil {
		msg := msgUnreachable
		if errors.Is(err, apiclient.ErrTimeout) {
			msg = msgTimedOut
		}
		log.Error("registration proxy failed", sl.Err(err))
		render.Status(r, http.StatusBadGateway)
		render.JSON(w, r, map[string]string{"message": msg})
		return
	}

	log.Info("registration forwarded", slog.Int("status", resp.StatusCode))
	if len(resp.Body) == 0 {
		w.WriteHeader(resp.StatusCode)
		return
	}
	contentType := resp.ContentType
	if contentType == "" {
		contentType = "text/plain; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(resp.StatusCode)
	if _, err := w.Write(resp.Body); err != nil {
		log.Error("failed to write response", sl.Err(err))
	}
}
