package payments

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/fintrack-gateway/internal/apiclient"
	"github.com/magabrotheeeer/fintrack-gateway/internal/models"
	"github.com/magabrotheeeer/fintrack-gateway/internal/services/admin"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) ListPayments(ctx context.Context, f models.PaymentFilter) (models.ListResult[models.AdminPayment], error) {
	args := m.Called(ctx, f)
	return args.Get(0).(models.ListResult[models.AdminPayment]), args.Error(1)
}

func (m *MockService) ApprovePayment(ctx context.Context, in admin.ApprovePaymentInput) (admin.ApprovePaymentResult, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(admin.ApprovePaymentResult), args.Error(1)
}

func TestPaymentsHandler(t *testing.T) {
	input := admin.ApprovePaymentInput{PaymentID: "p1", UserID: "u1", PlanID: "plan-pro"}

	tests := []struct {
		name       string
		method     string
		url        string
		body       string
		setupMock  func(*MockService)
		wantStatus int
		wantBody   string
	}{
		{
			name:   "list pending",
			method: http.MethodGet,
			url:    "/admin/payments?status=pending",
			setupMock: func(m *MockService) {
				m.On("ListPayments", mock.Anything, models.PaymentFilter{Status: "pending"}).
					Return(models.ListResult[models.AdminPayment]{
						Items:             []models.AdminPayment{{ID: "p1", PaymentID: "p1", Reference: "TX-1", StatusLabel: "Pending", CanApprove: true}},
						AvailableStatuses: []string{"pending"},
					}, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `"canApprove":true`,
		},
		{
			name:   "approve",
			method: http.MethodPost,
			url:    "/admin/payments/approve",
			body:   `{"paymentId":"p1","appliedUserId":"u1","newPlanId":"plan-pro"}`,
			setupMock: func(m *MockService) {
				m.On("ApprovePayment", mock.Anything, input).
					Return(admin.ApprovePaymentResult{PaymentID: "p1", Message: "Payment p1 approved."}, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"OK","data":{"paymentId":"p1","message":"Payment p1 approved."}}`,
		},
		{
			name:   "approve rejected by backend",
			method: http.MethodPost,
			url:    "/admin/payments/approve",
			body:   `{"paymentId":"p1","appliedUserId":"u1","newPlanId":"plan-pro"}`,
			setupMock: func(m *MockService) {
				m.On("ApprovePayment", mock.Anything, input).
					Return(admin.ApprovePaymentResult{}, &admin.MutationError{
						Message: "Payment already processed",
						Err:     &apiclient.APIError{StatusCode: 409, Body: map[string]any{"message": "Payment already processed"}},
					})
			},
			wantStatus: http.StatusConflict,
			wantBody:   `{"status":"Error","error":"Payment already processed"}`,
		},
		{
			name:       "approve invalid json",
			method:     http.MethodPost,
			url:        "/admin/payments/approve",
			body:       `nope`,
			setupMock:  func(_ *MockService) {},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"status":"Error","error":"invalid request body"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			r := chi.NewRouter()
			r.Route("/admin/payments", New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).Routes)

			req := httptest.NewRequest(tt.method, tt.url, strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

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
