// Package billing реализует обработчики тарифов и оплаты для клиента.
package billing

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/fintrack-gateway/internal/http/handlers/httperr"
	"github.com/magabrotheeeer/fintrack-gateway/internal/http/middlewarectx"
	"github.com/magabrotheeeer/fintrack-gateway/internal/http/response"
	"github.com/magabrotheeeer/fintrack-gateway/internal/lib/sl"
	"github.com/magabrotheeeer/fintrack-gateway/internal/models"
	"github.com/magabrotheeeer/fintrack-gateway/internal/services/billing"
)

type Service interface {
	MyPlan(ctx context.Context, userID string) (any, error)
	PublicPlans(ctx context.Context) ([]models.AdminPlan, error)
	CreateOrder(ctx context.Context, in billing.OrderInput) (billing.Result, error)
	SubmitManualPayment(ctx context.Context, userID string, in billing.ManualPaymentInput) (billing.Result, error)
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

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

func userID(r *http.Request) string {
	if s := middlewarectx.SessionFromContext(r.Context()); s != nil {
		return s.UserID
	}
	return ""
}

// MyPlan godoc
// @Summary Текущий тариф пользователя
// @Tags Billing
// @Produce json
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse
// @Router /v1/me/plan [get]
func (h *Handler) MyPlan(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.billing.MyPlan")

	plan, err := h.service.MyPlan(r.Context(), userID(r))
	if err != nil {
		httperr.Write(w, r, log, err, "failed to load current plan")
		return
	}
	render.JSON(w, r, response.StatusOKWithData(plan))
}

// PublicPlans godoc
// @Summary Публичный каталог тарифов
// @Tags Billing
// @Produce json
// @Success 200 {object} response.Response
// @Router /v1/plans/public [get]
func (h *Handler) PublicPlans(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.billing.PublicPlans")

	plans, err := h.service.PublicPlans(r.Context())
	if err != nil {
		httperr.Write(w, r, log, err, "failed to load plans")
		return
	}
	render.JSON(w, r, response.StatusOKWithData(plans))
}

// CreateOrder godoc
// @Summary Создать заказ на тариф
// @Tags Billing
// @Accept json
// @Produce json
// @Param request body billing.OrderInput true "Заказ"
// @Success 201 {object} response.Response
// @Failure 422 {object} response.ErrorResponse
// @Router /v1/orders [post]
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.billing.CreateOrder")

	var in billing.OrderInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	res, err := h.service.CreateOrder(r.Context(), in)
	if err != nil {
		httperr.Write(w, r, log, err, "Unable to create order")
		return
	}
	log.Info("order created", slog.String("payment_id", res.PaymentID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(res))
}

// ManualPayment godoc
// @Summary Отправить ручной платёж
// @Tags Billing
// @Accept json
// @Produce json
// @Param request body billing.ManualPaymentInput true "Платёж"
// @Success 200 {object} response.Response
// @Failure 422 {object} response.ErrorResponse
// @Router /v1/payments/manual [post]
func (h *Handler) ManualPayment(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.billing.ManualPayment")

	var in billing.ManualPaymentInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	res, err := h.service.SubmitManualPayment(r.Context(), userID(r), in)
	if err != nil {
		httperr.Write(w, r, log, err, "Unable to submit manual payment")
		return
	}
	render.JSON(w, r, response.StatusOKWithData(res))
}
