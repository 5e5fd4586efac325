// Package payments реализует обработчики очереди платежей консоли.
package payments

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/fintrack-gateway/internal/http/handlers/httperr"
	"github.com/magabrotheeeer/fintrack-gateway/internal/http/response"
	"github.com/magabrotheeeer/fintrack-gateway/internal/lib/sl"
	"github.com/magabrotheeeer/fintrack-gateway/internal/models"
	"github.com/magabrotheeeer/fintrack-gateway/internal/services/admin"
)

type Service interface {
	ListPayments(ctx context.Context, f models.PaymentFilter) (models.ListResult[models.AdminPayment], error)
	ApprovePayment(ctx context.Context, in admin.ApprovePaymentInput) (admin.ApprovePaymentResult, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// Routes монтирует обработчики на роутер.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/approve", h.Approve)
}

// List godoc
// @Summary Список платежей
// @Tags Admin
// @Produce json
// @Param status query string false "Статус платежа"
// @Success 200 {object} response.Response
// @Router /v1/admin/payments [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.payments.List"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	res, err := h.service.ListPayments(r.Context(), models.PaymentFilter{Status: r.URL.Query().Get("status")})
	if err != nil {
		httperr.Write(w, r, log, err, "failed to load payments")
		return
	}
	render.JSON(w, r, response.StatusOKWithData(res))
}

// Approve godoc
// @Summary Подтвердить платёж
// @Description Подтверждает ручной платёж и назначает пользователю тариф.
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body admin.ApprovePaymentInput true "Платёж, пользователь и тариф"
// @Success 200 {object} response.Response
// @Failure 422 {object} response.ErrorResponse
// @Router /v1/admin/payments/approve [post]
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.payments.Approve"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var in admin.ApprovePaymentInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	res, err := h.service.ApprovePayment(r.Context(), in)
	if err != nil {
		httperr.Write(w, r, log, err, "Failed to approve payment.")
		return
	}
	log.Info("payment approved", slog.String("payment_id", res.PaymentID))
	render.JSON(w, r, response.StatusOKWithData(res))
}
