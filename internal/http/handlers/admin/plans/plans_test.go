package plans

import (
	"context"
	"errors"
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

func (m *MockService) ListPlans(ctx context.Context) ([]models.AdminPlan, error) {
	args := m.Called(ctx)
	plans, _ := args.Get(0).([]models.AdminPlan)
	return plans, args.Error(1)
}

func (m *MockService) CreatePlan(ctx context.Context, in admin.PlanInput) (models.AdminPlan, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(models.AdminPlan), args.Error(1)
}

func (m *MockService) UpdatePlan(ctx context.Context, targetSlug string, in admin.PlanInput) (models.AdminPlan, error) {
	args := m.Called(ctx, targetSlug, in)
	return args.Get(0).(models.AdminPlan), args.Error(1)
}

func (m *MockService) DeletePlan(ctx context.Context, slug string) error {
	args := m.Called(ctx, slug)
	return args.Error(0)
}

func TestPlansHandler(t *testing.T) {
	pro := models.AdminPlan{ID: "1", Name: "Pro", Slug: "pro", Price: 9.99, BillingCycle: "monthly", Features: []string{"Reports"}}
	proInput := admin.PlanInput{Name: "Pro", Slug: "pro", Price: 9.99, BillingCycle: "monthly", Description: "For pros", Features: []string{"Reports"}}
	proBody := `{"name":"Pro","slug":"pro","price":9.99,"billingCycle":"monthly","description":"For pros","features":["Reports"],"isPublic":false}`

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
			name:   "list",
			method: http.MethodGet,
			url:    "/admin/plans",
			setupMock: func(m *MockService) {
				m.On("ListPlans", mock.Anything).Return([]models.AdminPlan{pro}, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `"slug":"pro"`,
		},
		{
			name:   "list failure",
			method: http.MethodGet,
			url:    "/admin/plans",
			setupMock: func(m *MockService) {
				m.On("ListPlans", mock.Anything).Return(nil, errors.New("cache broken"))
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"status":"Error","error":"failed to load plans"}`,
		},
		{
			name:   "create",
			method: http.MethodPost,
			url:    "/admin/plans",
			body:   proBody,
			setupMock: func(m *MockService) {
				m.On("CreatePlan", mock.Anything, proInput).Return(pro, nil)
			},
			wantStatus: http.StatusCreated,
			wantBody:   `"name":"Pro"`,
		},
		{
			name:   "update uses path slug as target",
			method: http.MethodPut,
			url:    "/admin/plans/pro-old",
			body:   proBody,
			setupMock: func(m *MockService) {
				m.On("UpdatePlan", mock.Anything, "pro-old", proInput).Return(pro, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `"slug":"pro"`,
		},
		{
			name:   "update rejected",
			method: http.MethodPut,
			url:    "/admin/plans/pro",
			body:   proBody,
			setupMock: func(m *MockService) {
				m.On("UpdatePlan", mock.Anything, "pro", proInput).
					Return(models.AdminPlan{}, &admin.MutationError{Message: "Failed to update Pro.", Err: &apiclient.APIError{StatusCode: 502}})
			},
			wantStatus: http.StatusBadGateway,
			wantBody:   `{"status":"Error","error":"Failed to update Pro."}`,
		},
		{
			name:   "delete",
			method: http.MethodDelete,
			url:    "/admin/plans/pro",
			setupMock: func(m *MockService) {
				m.On("DeletePlan", mock.Anything, "pro").Return(nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"OK","data":{"slug":"pro"}}`,
		},
		{
			name:       "create invalid json",
			method:     http.MethodPost,
			url:        "/admin/plans",
			body:       `[`,
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
			r.Route("/admin/plans", New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).Routes)

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
