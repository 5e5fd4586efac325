// Package passwordreset реализует HTTP-обработчики восстановления пароля.
//
// Запрос кода отправляет одноразовый пароль на email, сброс принимает этот код
// вместе с новым паролем. Оба запроса проверяются до обращения к сервису
// аутентификации, сообщение сервиса возвращается клиенту.
package passwordreset

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/fintrack-gateway/internal/http/handlers/httperr"
	"github.com/magabrotheeeer/fintrack-gateway/internal/http/response"
	"github.com/magabrotheeeer/fintrack-gateway/internal/lib/normalize"
	"github.com/magabrotheeeer/fintrack-gateway/internal/lib/sl"
)

const (
	requestPath = "/api/users/request-password-reset"
	resetPath   = "/api/users/reset-password"
)

// CodeRequest запрос одноразового кода.
type CodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (r *CodeRequest) trim() {
	r.Email = strings.TrimSpace(r.Email)
}

// ResetRequest смена пароля по коду.
type ResetRequest struct {
	Email           string `json:"email" validate:"required,email"`
	OTP             string `json:"otp" validate:"required,len=6,numeric"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"eqfield=NewPassword"`
}

func (r *ResetRequest) trim() {
	r.Email = strings.TrimSpace(r.Email)
	r.OTP = strings.TrimSpace(r.OTP)
}

// trimmer приводит поля запроса к каноническому виду до валидации.
type trimmer interface {
	trim()
}

// Service вызов сервиса аутентификации.
type Service interface {
	Send(ctx context.Context, method, path string, body any) (any, error)
}

// Handler обработчики восстановления пароля.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, log *slog.Logger, dst trimmer) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return false
	}
	dst.trim()
	if err := h.validate.Struct(dst); err != nil {
		log.Info("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return false
	}
	return true
}

func message(body any, fallback string) string {
	if msg := normalize.TrimmedString(normalize.Path(body, "message")); msg != nil {
		return *msg
	}
	return fallback
}

// RequestCode godoc
// @Summary Запросить код сброса пароля
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body CodeRequest true "Email пользователя"
// @Success 200 {object} response.Response
// @Failure 422 {object} response.ErrorResponse
// @Router /password/request [post]
func (h *Handler) RequestCode(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.passwordreset.RequestCode"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req CodeRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	body, err := h.service.Send(r.Context(), http.MethodPost, requestPath, map[string]any{
		"email": req.Email,
	})
	if err != nil {
		httperr.Write(w, r, log, err, "Unable to send reset email")
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"message": message(body, "OTP sent to your email. Check your inbox."),
	}))
}

// Reset godoc
// @Summary Сменить пароль по коду
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body ResetRequest true "Email, код и новый пароль"
// @Success 200 {object} response.Response
// @Failure 422 {object} response.ErrorResponse
// @Router /password/reset [post]
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.passwordreset.Reset"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req ResetRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	body, err := h.service.Send(r.Context(), http.MethodPost, resetPath, map[string]any{
		"email":       req.Email,
		"otp":         req.OTP,
		"newPassword": req.NewPassword,
	})
	if err != nil {
		httperr.Write(w, r, log, err, "Unable to reset password")
		return
	}
	log.Info("password reset completed")
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"message": message(body, "Password updated. You can now sign in with your new password."),
	}))
}
