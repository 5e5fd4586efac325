package routeguard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/fintrack-gateway/internal/models"
)

func strPtr(s string) *string { return &s }

var (
	anonymous *models.Session
	user      = &models.Session{UserID: "u1", Role: models.RoleUser, PlanSlug: strPtr("pro-monthly")}
	freeUser  = &models.Session{UserID: "u2", Role: models.RoleUser, PlanSlug: strPtr("FREE-Tier")}
	noPlan    = &models.Session{UserID: "u3", Role: models.RoleUser}
	admin     = &models.Session{UserID: "a1", Role: models.RoleAdmin}
)

func TestDecide(t *testing.T) {
	policy := DefaultPolicy()

	tests := []struct {
		name    string
		path    string
		session *models.Session
		want    Decision
	}{
		{name: "asset bypass", path: "/_next/static/chunk.js", session: anonymous, want: allow(ReasonBypass)},
		{name: "api bypass", path: "/api/register", session: anonymous, want: allow(ReasonBypass)},
		{name: "favicon bypass", path: "/favicon.ico", session: anonymous, want: allow(ReasonBypass)},

		{name: "login signed in admin", path: "/login", session: admin, want: redirect("/admin/dashboard", ReasonAlreadySignedIn)},
		{name: "login signed in user", path: "/login", session: user, want: redirect("/dashboard", ReasonAlreadySignedIn)},
		{name: "register signed in user", path: "/register", session: user, want: redirect("/dashboard", ReasonAlreadySignedIn)},
		{name: "pricing signed in", path: "/pricing", session: user, want: allow(ReasonPublic)},

		{name: "dashboard anonymous", path: "/dashboard", session: anonymous, want: redirect("/login", ReasonUnauthenticated)},
		{name: "admin anonymous", path: "/admin/payments", session: anonymous, want: redirect("/login", ReasonUnauthenticated)},
		{name: "admin as user", path: "/admin/dashboard", session: user, want: redirect("/dashboard", ReasonNotAdmin)},
		{name: "admin as admin", path: "/admin/user-management/42", session: admin, want: allow(ReasonAllowed)},
		{name: "administrator is not admin prefix", path: "/administrator", session: user, want: allow(ReasonAllowed)},

		{name: "summary free plan", path: "/summary", session: freeUser, want: redirect("/pricing", ReasonFreePlan)},
		{name: "summary nested free plan", path: "/summary/2024", session: freeUser, want: redirect("/pricing", ReasonFreePlan)},
		{name: "summary paid plan", path: "/summary", session: user, want: allow(ReasonAllowed)},
		{name: "summary no plan", path: "/summary", session: noPlan, want: allow(ReasonAllowed)},
		{name: "summary anonymous", path: "/summary", session: anonymous, want: allow(ReasonAllowed)},

		{name: "dashboard admin", path: "/dashboard", session: admin, want: redirect("/admin/dashboard", ReasonAdminDashboard)},
		{name: "dashboard user", path: "/dashboard", session: user, want: allow(ReasonAllowed)},
		{name: "dashboard subpath admin", path: "/dashboard/settings", session: admin, want: allow(ReasonAllowed)},
		{name: "projects user", path: "/projects", session: user, want: allow(ReasonAllowed)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.Decide(tt.path, tt.session))
		})
	}
}

func TestDecide_PublicRoutesAllowAnonymous(t *testing.T) {
	policy := DefaultPolicy()
	for _, path := range policy.PublicRoutes {
		got := policy.Decide(path, nil)
		assert.True(t, got.Allow, path)
		assert.Empty(t, got.RedirectTo, path)
	}
}

func TestDecide_AdminPrefixRequiresAdmin(t *testing.T) {
	policy := DefaultPolicy()
	paths := []string{"/admin", "/admin/dashboard", "/admin/plan-management", "/admin/settings"}

	for _, path := range paths {
		for _, s := range []*models.Session{user, freeUser, noPlan} {
			got := policy.Decide(path, s)
			assert.Equal(t, "/dashboard", got.RedirectTo, path)
		}
		assert.True(t, policy.Decide(path, admin).Allow, path)
	}
}

func TestClassify(t *testing.T) {
	policy := DefaultPolicy()

	assert.Equal(t, ClassBypass, policy.Classify("/static/logo.svg"))
	assert.Equal(t, ClassPublic, policy.Classify("/"))
	assert.Equal(t, ClassPublic, policy.Classify("/reset-password"))
	assert.Equal(t, ClassAdminDashboard, policy.Classify("/admin/payments"))
	assert.Equal(t, ClassUserDashboard, policy.Classify("/dashboard"))
	assert.Equal(t, ClassGatedFeature, policy.Classify("/summary"))
	assert.Equal(t, ClassOtherAuthenticated, policy.Classify("/reports"))
}
