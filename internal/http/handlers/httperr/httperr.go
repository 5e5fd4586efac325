// Package httperr переводит ошибки сервисов в HTTP-ответы с конвертом response.
package httperr

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/fintrack-gateway/internal/apiclient"
	"github.com/magabrotheeeer/fintrack-gateway/internal/http/response"
	"github.com/magabrotheeeer/fintrack-gateway/internal/lib/sl"
	"github.com/magabrotheeeer/fintrack-gateway/internal/services/admin"
	"github.com/magabrotheeeer/fintrack-gateway/internal/services/billing"
)

// Status выбирает код ответа. Код 4xx внешнего API передаётся клиенту,
// 5xx внешнего API и его недоступность дают 502.
func Status(err error) int {
	switch {
	case admin.IsInvalidInput(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, billing.ErrNoSession):
		return http.StatusUnauthorized
	case errors.Is(err, apiclient.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}
	if code := apiclient.StatusCode(err); code >= 400 && code < 500 {
		return code
	}
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) || errors.Is(err, apiclient.ErrUnreachable) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// Message текст ошибки для клиента.
func Message(err error, fallback string) string {
	var mErr *admin.MutationError
	if errors.As(err, &mErr) && mErr.Message != "" {
		return mErr.Message
	}
	return apiclient.ErrorMessage(err, fallback)
}

// Write пишет ошибку в лог и отвечает клиенту.
func Write(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error, fallback string) {
	status := Status(err)
	if status >= http.StatusInternalServerError {
		log.Error(fallback, sl.Err(err))
	} else {
		log.Info(fallback, sl.Err(err), slog.Int("status", status))
	}
	render.Status(r, status)
	render.JSON(w, r, response.Error(Message(err, fallback)))
}
