package admin

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/fintrack-gateway/internal/apiclient"
	"github.com/magabrotheeeer/fintrack-gateway/internal/cache"
	"github.com/magabrotheeeer/fintrack-gateway/internal/models"
)

const plansPayload = `{"plans": [
	{"_id": {"$oid": "a1"}, "name": "Free", "slug": "free", "price": "0", "features": ["Basic", " ", 3],
	 "isPublic": true, "createdAt": {"$date": "2024-01-01T00:00:00Z"}},
	{"name": "Pro", "slug": "pro", "price": {"$numberDecimal": "19.5"}, "billingCycle": "monthly", "displayOrder": 2}
]}`

func proInput() PlanInput {
	return PlanInput{
		Name:         "Team",
		Slug:         "team",
		Price:        49,
		BillingCycle: "monthly",
		Description:  "For small teams",
		Features:     []string{"Shared projects", " "},
		IsPublic:     true,
	}
}

func TestNormalizePlans(t *testing.T) {
	plans := NormalizePlans(body(t, plansPayload))
	require.Len(t, plans, 2)

	assert.Equal(t, "a1", plans[0].ID)
	assert.Equal(t, 0.0, plans[0].Price)
	assert.Equal(t, []string{"Basic"}, plans[0].Features)
	assert.True(t, plans[0].IsPublic)
	assert.Equal(t, "2024-01-01T00:00:00.000Z", *plans[0].CreatedAt)

	assert.Equal(t, "pro", plans[1].ID)
	assert.InDelta(t, 19.5, plans[1].Price, 1e-9)
	assert.Equal(t, 2, *plans[1].DisplayOrder)
	assert.False(t, plans[1].IsPublic)
	assert.Empty(t, plans[1].Description)

	p, ok := NormalizePlan(map[string]any{"price": "oops"})
	require.True(t, ok)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, 0.0, p.Price)
	assert.NotNil(t, p.Features)
}

func primePlans(t *testing.T, api *MockAPI, s *Synchronizer) []models.AdminPlan {
	t.Helper()
	api.On("Get", mock.Anything, "/api/plans/plan").Return(body(t, plansPayload), nil).Once()
	plans, err := s.ListPlans(context.Background())
	require.NoError(t, err)
	return plans
}

func cachedPlans(t *testing.T, qc *cache.QueryCache) []models.AdminPlan {
	t.Helper()
	var plans []models.AdminPlan
	found, err := qc.Get(context.Background(), PlansKey(), &plans)
	require.NoError(t, err)
	require.True(t, found)
	return plans
}

func TestCreatePlan(t *testing.T) {
	api := new(MockAPI)
	s, qc := newTestSynchronizer(api, nil)
	primePlans(t, api, s)
	require.NoError(t, qc.Set(context.Background(), cache.Key{Scope: ScopePublicPlans}, []models.AdminPlan{}))

	api.On("Send", mock.Anything, http.MethodPost, "/api/plans/plan", mock.Anything).
		Run(func(args mock.Arguments) {
			sent := args.Get(3).(map[string]any)
			assert.Equal(t, []any{"Shared projects"}, sent["features"])

			during := cachedPlans(t, qc)
			require.Len(t, during, 3)
			assert.Equal(t, "optimistic-fixed", during[0].ID)
			assert.Equal(t, "2024-03-01T10:00:00.000Z", *during[0].CreatedAt)
		}).
		Return(body(t, `{"data": {"_id": "a3", "name": "Team", "slug": "team", "price": 49}}`), nil).Once()

	created, err := s.CreatePlan(context.Background(), proInput())
	require.NoError(t, err)
	assert.Equal(t, "a3", created.ID)

	after := cachedPlans(t, qc)
	require.Len(t, after, 3)
	assert.Equal(t, "a3", after[0].ID)
	assert.True(t, qc.IsStale(PlansKey()))
	assert.True(t, qc.IsStale(cache.Key{Scope: ScopePublicPlans}))
	api.AssertExpectations(t)
}

func TestCreatePlan_InvalidSlug(t *testing.T) {
	api := new(MockAPI)
	s, _ := newTestSynchronizer(api, nil)

	in := proInput()
	in.Slug = "Team Plan!"
	_, err := s.CreatePlan(context.Background(), in)

	require.Error(t, err)
	assert.True(t, IsInvalidInput(err))
	api.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdatePlan_SendsTargetSlugAndRollsBack(t *testing.T) {
	api := new(MockAPI)
	s, qc := newTestSynchronizer(api, nil)
	before := primePlans(t, api, s)

	in := proInput()
	in.Name = "Pro Plus"
	in.Slug = "pro-plus"
	api.On("Send", mock.Anything, http.MethodPut, "/api/plans/plan", mock.MatchedBy(func(b map[string]any) bool {
		return b["targetSlug"] == "pro" && b["slug"] == "pro-plus"
	})).
		Run(func(mock.Arguments) {
			during := cachedPlans(t, qc)
			assert.Equal(t, "pro", during[1].ID)
			assert.Equal(t, "pro-plus", during[1].Slug)
			assert.Equal(t, "Pro Plus", during[1].Name)
			assert.Equal(t, 2, *during[1].DisplayOrder)
		}).
		Return(nil, &apiclient.APIError{StatusCode: 409, Body: "Slug already exists"}).Once()

	_, err := s.UpdatePlan(context.Background(), "pro", in)

	require.Error(t, err)
	assert.Equal(t, "Slug already exists", err.Error())
	assert.Equal(t, before, cachedPlans(t, qc))
	api.AssertExpectations(t)
}

func TestUpdatePlan_Success(t *testing.T) {
	api := new(MockAPI)
	s, _ := newTestSynchronizer(api, nil)
	primePlans(t, api, s)

	api.On("Send", mock.Anything, http.MethodPut, "/api/plans/plan", mock.Anything).Return(body(t, `{"message": "updated"}`), nil).Once()

	updated, err := s.UpdatePlan(context.Background(), "free", proInput())
	require.NoError(t, err)
	assert.Equal(t, "a1", updated.ID)
	assert.Equal(t, "team", updated.Slug)

	_, err = s.UpdatePlan(context.Background(), " ", proInput())
	assert.True(t, IsInvalidInput(err))
}

func TestUpdatePlan_ReconcilesServerRecord(t *testing.T) {
	api := new(MockAPI)
	s, qc := newTestSynchronizer(api, nil)
	primePlans(t, api, s)

	api.On("Send", mock.Anything, http.MethodPut, "/api/plans/plan", mock.Anything).
		Run(func(mock.Arguments) {
			during := cachedPlans(t, qc)
			assert.Equal(t, "team", during[0].Slug)
			assert.Equal(t, 49.0, during[0].Price)
		}).
		Return(body(t, `{"data": {"name": "Team", "slug": "team", "price": "39.5", "billingCycle": "yearly"}}`), nil).Once()

	updated, err := s.UpdatePlan(context.Background(), "free", proInput())
	require.NoError(t, err)
	assert.Equal(t, "a1", updated.ID)
	assert.InDelta(t, 39.5, updated.Price, 1e-9)

	after := cachedPlans(t, qc)
	require.Len(t, after, 2)
	assert.Equal(t, "a1", after[0].ID)
	assert.Equal(t, "team", after[0].Slug)
	assert.InDelta(t, 39.5, after[0].Price, 1e-9)
	assert.Equal(t, "yearly", after[0].BillingCycle)
	assert.Equal(t, "pro", after[1].Slug)
	assert.True(t, qc.IsStale(PlansKey()))
	api.AssertExpectations(t)
}

func TestDeletePlan(t *testing.T) {
	api := new(MockAPI)
	pub := new(MockPublisher)
	s, qc := newTestSynchronizer(api, pub)
	before := primePlans(t, api, s)

	api.On("Send", mock.Anything, http.MethodDelete, "/api/plans/plan", map[string]any{"slug": "free"}).
		Run(func(mock.Arguments) {
			during := cachedPlans(t, qc)
			require.Len(t, during, 1)
			assert.Equal(t, "pro", during[0].Slug)
		}).
		Return(nil, &apiclient.APIError{StatusCode: 409, Body: map[string]any{"errors": []any{map[string]any{"message": "Plan in use"}}}}).Once()

	err := s.DeletePlan(context.Background(), "free")
	require.Error(t, err)
	assert.Equal(t, "Plan in use", err.Error())
	assert.Equal(t, before, cachedPlans(t, qc))

	api.On("Send", mock.Anything, http.MethodDelete, "/api/plans/plan", map[string]any{"slug": "pro"}).Return(nil, nil).Once()
	pub.On("Publish", mock.Anything, "admin.plan.deleted", mock.MatchedBy(func(e Event) bool { return e.EntityID == "pro" })).Return(nil).Once()

	require.NoError(t, s.DeletePlan(context.Background(), "pro"))
	assert.Len(t, cachedPlans(t, qc), 1)
	api.AssertExpectations(t)
	pub.AssertExpectations(t)
}
