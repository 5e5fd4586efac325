package billing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/fintrack-gateway/internal/http/middlewarectx"
	"github.com/magabrotheeeer/fintrack-gateway/internal/models"
	"github.com/magabrotheeeer/fintrack-gateway/internal/services/admin"
	"github.com/magabrotheeeer/fintrack-gateway/internal/services/billing"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) MyPlan(ctx context.Context, userID string) (any, error) {
	args := m.Called(ctx, userID)
	return args.Get(0), args.Error(1)
}

func (m *MockService) PublicPlans(ctx context.Context) ([]models.AdminPlan, error) {
	args := m.Called(ctx)
	plans, _ := args.Get(0).([]models.AdminPlan)
	return plans, args.Error(1)
}

func (m *MockService) CreateOrder(ctx context.Context, in billing.OrderInput) (billing.Result, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(billing.Result), args.Error(1)
}

func (m *MockService) SubmitManualPayment(ctx context.Context, userID string, in billing.ManualPaymentInput) (billing.Result, error) {
	args := m.Called(ctx, userID, in)
	return args.Get(0).(billing.Result), args.Error(1)
}

func withSession(r *http.Request, userID string) *http.Request {
	return r.WithContext(middlewarectx.WithSession(r.Context(), &models.Session{UserID: userID, Role: models.RoleUser}))
}

func TestBillingHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name       string
		handler    func(*Handler) http.HandlerFunc
		method     string
		body       string
		userID     string
		setupMock  func(*MockService)
		wantStatus int
		wantBody   string
	}{
		{
			name:    "my plan",
			handler: func(h *Handler) http.HandlerFunc { return h.MyPlan },
			method:  http.MethodGet,
			userID:  "u1",
			setupMock: func(m *MockService) {
				m.On("MyPlan", mock.Anything, "u1").Return(map[string]any{"slug": "pro"}, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"OK","data":{"slug":"pro"}}`,
		},
		{
			name:    "my plan without session",
			handler: func(h *Handler) http.HandlerFunc { return h.MyPlan },
			method:  http.MethodGet,
			setupMock: func(m *MockService) {
				m.On("MyPlan", mock.Anything, "").Return(nil, fmt.Errorf("billing.MyPlan: %w", billing.ErrNoSession))
			},
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"status":"Error","error":"failed to load current plan"}`,
		},
		{
			name:    "public plans",
			handler: func(h *Handler) http.HandlerFunc { return h.PublicPlans },
			method:  http.MethodGet,
			setupMock: func(m *MockService) {
				m.On("PublicPlans", mock.Anything).Return([]models.AdminPlan{{ID: "1", Name: "Free", Slug: "free"}}, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `"slug":"free"`,
		},
		{
			name:    "create order",
			handler: func(h *Handler) http.HandlerFunc { return h.CreateOrder },
			method:  http.MethodPost,
			body:    `{"planId":"plan-pro","amount":10,"currency":"USD","paymentGateway":"bank"}`,
			userID:  "u1",
			setupMock: func(m *MockService) {
				m.On("CreateOrder", mock.Anything, billing.OrderInput{PlanID: "plan-pro", Amount: 10, Currency: "USD", PaymentGateway: "bank"}).
					Return(billing.Result{Message: "Order created successfully", PaymentID: "pay-1"}, nil)
			},
			wantStatus: http.StatusCreated,
			wantBody:   `{"status":"OK","data":{"message":"Order created successfully","paymentId":"pay-1"}}`,
		},
		{
			name:    "create order invalid",
			handler: func(h *Handler) http.HandlerFunc { return h.CreateOrder },
			method:  http.MethodPost,
			body:    `{}`,
			setupMock: func(m *MockService) {
				m.On("CreateOrder", mock.Anything, billing.OrderInput{}).
					Return(billing.Result{}, &admin.MutationError{Message: "field PlanID is a required field", Err: admin.ErrInvalidInput})
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   `{"status":"Error","error":"field PlanID is a required field"}`,
		},
		{
			name:    "manual payment uses session user",
			handler: func(h *Handler) http.HandlerFunc { return h.ManualPayment },
			method:  http.MethodPost,
			body:    `{"amount":10,"currency":"USD","paymentGateway":"bank","paymentId":"pay-1","gatewayTransactionId":"TX-123"}`,
			userID:  "u7",
			setupMock: func(m *MockService) {
				m.On("SubmitManualPayment", mock.Anything, "u7", billing.ManualPaymentInput{
					Amount: 10, Currency: "USD", PaymentGateway: "bank", PaymentID: "pay-1", GatewayTransactionID: "TX-123",
				}).Return(billing.Result{Message: "Manual payment submitted"}, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"OK","data":{"message":"Manual payment submitted"}}`,
		},
		{
			name:       "manual payment invalid json",
			handler:    func(h *Handler) http.HandlerFunc { return h.ManualPayment },
			method:     http.MethodPost,
			body:       `{"amount":`,
			setupMock:  func(_ *MockService) {},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"status":"Error","error":"invalid request body"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(tt.method, "/", strings.NewReader(tt.body))
			if tt.userID != "" {
				req = withSession(req, tt.userID)
			}
			rr := httptest.NewRecorder()
			tt.handler(New(logger, svc)).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if strings.HasPrefix(tt.wantBody, "{") {
				assert.JSONEq(t, tt.wantBody, rr.Body.String())
			} else {
				assert.Contains(t, rr.Body.String(), tt.wantBody)
			}
			svc.AssertExpectations(t)
		})
	}
}
