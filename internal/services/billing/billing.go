// Package billing обслуживает тарифы со стороны пользователя: текущий тариф,
// публичный каталог, создание заказа и отправку ручного платежа.
package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/fintrack-gateway/internal/apiclient"
	"github.com/magabrotheeeer/fintrack-gateway/internal/cache"
	"github.com/magabrotheeeer/fintrack-gateway/internal/lib/normalize"
	"github.com/magabrotheeeer/fintrack-gateway/internal/lib/sl"
	"github.com/magabrotheeeer/fintrack-gateway/internal/models"
	"github.com/magabrotheeeer/fintrack-gateway/internal/services/admin"
)

const (
	myPlanEndpoint        = "/api/plans/my-plan"
	publicPlansEndpoint   = "/api/plans/public-plans"
	orderEndpoint         = "/api/plans/order"
	manualPaymentEndpoint = "/api/plans/manual-payment"

	myPlanStaleTime      = 60 * time.Second
	publicPlansStaleTime = 60 * time.Second

	methodManual   = "manual"
	defaultPurpose = "subscription_renewal"
)

// ErrNoSession операция требует идентификатор пользователя.
var ErrNoSession = errors.New("user session required")

// OrderInput заказ тарифа.
type OrderInput struct {
	PlanID               string  `json:"planId" validate:"required"`
	Amount               float64 `json:"amount" validate:"gte=0"`
	Currency             string  `json:"currency" validate:"required"`
	PaymentGateway       string  `json:"paymentGateway" validate:"required"`
	PaymentMethodDetails string  `json:"paymentMethodDetails"`
	Purpose              string  `json:"purpose" validate:"required"`
}

// ManualPaymentInput данные ручного платежа по созданному заказу.
type ManualPaymentInput struct {
	Amount               float64 `json:"amount" validate:"gte=0"`
	Currency             string  `json:"currency" validate:"required"`
	PaymentGateway       string  `json:"paymentGateway" validate:"required"`
	PaymentID            string  `json:"paymentId" validate:"required"`
	GatewayTransactionID string  `json:"gatewayTransactionId" validate:"required,min=3"`
}

// Result ответ внешнего API на заказ или платёж.
type Result struct {
	Message   string `json:"message"`
	PaymentID string `json:"paymentId,omitempty"`
	Response  any    `json:"response,omitempty"`
}

// Service сервис пользовательских тарифов.
type Service struct {
	api      admin.API
	cache    *cache.QueryCache
	validate *validator.Validate
	log      *slog.Logger
}

// New создаёт Service.
func New(api admin.API, qc *cache.QueryCache, log *slog.Logger) *Service {
	return &Service{
		api:      api,
		cache:    qc,
		validate: validator.New(),
		log:      log,
	}
}

// MyPlanKey ключ кеша текущего тарифа пользователя.
func MyPlanKey(userID string) cache.Key {
	return cache.Key{Scope: admin.ScopeMyPlan, Params: userID}
}

// PublicPlansKey ключ кеша публичного каталога.
func PublicPlansKey() cache.Key {
	return cache.Key{Scope: admin.ScopePublicPlans}
}

// MyPlan возвращает текущий тариф пользователя в том виде, в каком его отдаёт API.
func (s *Service) MyPlan(ctx context.Context, userID string) (any, error) {
	const op = "billing.MyPlan"

	if userID == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrNoSession)
	}
	var out any
	err := s.cache.Fetch(ctx, MyPlanKey(userID), myPlanStaleTime, &out, func(ctx context.Context) (any, error) {
		return s.api.Get(ctx, myPlanEndpoint)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// PublicPlans возвращает публичный каталог тарифов.
func (s *Service) PublicPlans(ctx context.Context) ([]models.AdminPlan, error) {
	const op = "billing.PublicPlans"

	var out []models.AdminPlan
	err := s.cache.Fetch(ctx, PublicPlansKey(), publicPlansStaleTime, &out, func(ctx context.Context) (any, error) {
		body, err := s.api.Get(ctx, publicPlansEndpoint)
		if err != nil {
			return nil, err
		}
		return admin.NormalizePlans(body), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// CreateOrder создаёт заказ с ручной оплатой.
func (s *Service) CreateOrder(ctx context.Context, in OrderInput) (Result, error) {
	in.PlanID = strings.TrimSpace(in.PlanID)
	in.Currency = strings.TrimSpace(in.Currency)
	in.PaymentGateway = strings.TrimSpace(in.PaymentGateway)
	in.Purpose = strings.TrimSpace(in.Purpose)
	if in.Purpose == "" {
		in.Purpose = defaultPurpose
	}
	in.PaymentMethodDetails = methodManual

	return s.submit(ctx, "billing.CreateOrder", orderEndpoint, in, "Unable to create order", "Order created successfully")
}

// SubmitManualPayment отправляет подтверждение ручного платежа и сбрасывает
// кеш текущего тарифа пользователя.
func (s *Service) SubmitManualPayment(ctx context.Context, userID string, in ManualPaymentInput) (Result, error) {
	in.Currency = strings.TrimSpace(in.Currency)
	in.PaymentGateway = strings.TrimSpace(in.PaymentGateway)
	in.PaymentID = strings.TrimSpace(in.PaymentID)
	in.GatewayTransactionID = strings.TrimSpace(in.GatewayTransactionID)

	res, err := s.submit(ctx, "billing.SubmitManualPayment", manualPaymentEndpoint, in, "Unable to submit manual payment", "Manual payment submitted")
	if err == nil && userID != "" {
		s.cache.Invalidate(cache.ExactMatcher(MyPlanKey(userID)))
	}
	return res, err
}

func (s *Service) submit(ctx context.Context, op, path string, in any, fallback, success string) (Result, error) {
	if err := s.validate.Struct(in); err != nil {
		return Result{}, &admin.MutationError{Message: apiclient.ErrorMessage(err, fallback), Err: err}
	}

	body, err := s.api.Send(ctx, http.MethodPost, path, in)
	if err != nil {
		s.log.Info("billing request rejected", slog.String("op", op), sl.Err(err))
		return Result{}, &admin.MutationError{Message: apiclient.ErrorMessage(err, fallback), Err: err}
	}

	res := Result{Message: success, Response: body}
	if msg := normalize.TrimmedString(normalize.Path(body, "message")); msg != nil {
		res.Message = *msg
	}
	if id := normalize.ID(normalize.Coalesce(
		normalize.Path(body, "paymentId"),
		normalize.Path(body, "data", "paymentId"),
	)); id != "" {
		res.PaymentID = id
	}
	return res, nil
}
