package apiclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/fintrack-gateway/internal/http/response"
)

// APIError ответ внешнего API с кодом не 2xx. Body содержит разобранный JSON
// или строку, если тело не JSON.
type APIError struct {
	StatusCode int
	Body       any
}

func (e *APIError) Error() string {
	if msg := bodyMessage(e.Body); msg != "" {
		return fmt.Sprintf("backend status %d: %s", e.StatusCode, msg)
	}
	return fmt.Sprintf("backend status %d", e.StatusCode)
}

// IsRetryable сообщает, имеет ли смысл повторить запрос: таймаут, 429 или 5xx.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrTimeout) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return false
}

// StatusCode возвращает код ответа внешнего API или 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// ErrorMessage выбирает сообщение для пользователя в порядке: ошибки валидации,
// строковое тело, поле message, первое errors[].message, fallback.
func ErrorMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return response.ValidationMessage(verrs)
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if msg := bodyMessage(apiErr.Body); msg != "" {
			return msg
		}
	}
	return fallback
}

func bodyMessage(body any) string {
	switch b := body.(type) {
	case string:
		return strings.TrimSpace(b)
	case map[string]any:
		if msg, ok := b["message"].(string); ok && strings.TrimSpace(msg) != "" {
			return strings.TrimSpace(msg)
		}
		if list, ok := b["errors"].([]any); ok && len(list) > 0 {
			if first, ok := list[0].(map[string]any); ok {
				if msg, ok := first["message"].(string); ok && strings.TrimSpace(msg) != "" {
					return strings.TrimSpace(msg)
				}
			}
		}
	}
	return ""
}
