// Package routeguard решает, пропустить ли запрос к странице или перенаправить его.
//
// Правила проверяются в фиксированном порядке, срабатывает первое подходящее.
// Пакет не выполняет ввода-вывода: сессия декодируется до вызова Decide,
// nil означает анонимного пользователя.
package routeguard

import (
	"strings"

	"github.com/magabrotheeeer/fintrack-gateway/internal/models"
)

// Class категория маршрута.
type Class string

const (
	ClassBypass             Class = "bypass"
	ClassPublic             Class = "public"
	ClassUserDashboard      Class = "user-dashboard"
	ClassAdminDashboard     Class = "admin-dashboard"
	ClassGatedFeature       Class = "gated-feature"
	ClassOtherAuthenticated Class = "other-authenticated"
)

// Причины решений, попадают в логи и метрики.
const (
	ReasonBypass          = "bypass"
	ReasonPublic          = "public"
	ReasonAlreadySignedIn = "already_signed_in"
	ReasonUnauthenticated = "unauthenticated"
	ReasonNotAdmin        = "not_admin"
	ReasonFreePlan        = "free_plan"
	ReasonAdminDashboard  = "admin_dashboard"
	ReasonAllowed         = "allowed"
)

// Decision результат проверки: либо продолжить, либо перенаправить.
type Decision struct {
	Allow      bool
	RedirectTo string
	Reason     string
}

func allow(reason string) Decision { return Decision{Allow: true, Reason: reason} }

func redirect(to, reason string) Decision { return Decision{RedirectTo: to, Reason: reason} }

// Policy набор маршрутов, по которым принимаются решения.
type Policy struct {
	BypassPrefixes    []string
	PublicRoutes      []string
	AuthRoutes        []string // подмножество публичных: вход и регистрация
	ProtectedPrefixes []string
	AdminPrefix       string
	GatedPrefixes     []string
	LoginRoute        string
	PricingRoute      string
	UserDashboard     string
	AdminDashboard    string
}

// DefaultPolicy маршруты приложения FinTrack.
func DefaultPolicy() Policy {
	return Policy{
		BypassPrefixes:    []string{"/_next", "/static", "/api", "/favicon.ico"},
		PublicRoutes:      []string{"/", "/login", "/register", "/pricing", "/request-password-reset", "/reset-password"},
		AuthRoutes:        []string{"/login", "/register"},
		ProtectedPrefixes: []string{"/dashboard", "/admin"},
		AdminPrefix:       "/admin",
		GatedPrefixes:     []string{"/summary"},
		LoginRoute:        "/login",
		PricingRoute:      "/pricing",
		UserDashboard:     "/dashboard",
		AdminDashboard:    "/admin/dashboard",
	}
}

// hasPrefix сравнивает по границе сегмента: /admin совпадает с /admin и /admin/x,
// но не с /administrator.
func hasPrefix(path, prefix string) bool {
	if prefix == "" {
		return false
	}
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(prefix, "/")+"/")
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if hasPrefix(path, p) {
			return true
		}
	}
	return false
}

func contains(list []string, path string) bool {
	for _, item := range list {
		if item == path {
			return true
		}
	}
	return false
}

// Classify относит путь к одной из категорий маршрутов.
func (p Policy) Classify(path string) Class {
	switch {
	case hasAnyPrefix(path, p.BypassPrefixes):
		return ClassBypass
	case contains(p.PublicRoutes, path):
		return ClassPublic
	case hasPrefix(path, p.AdminPrefix):
		return ClassAdminDashboard
	case hasAnyPrefix(path, p.ProtectedPrefixes):
		return ClassUserDashboard
	case hasAnyPrefix(path, p.GatedPrefixes):
		return ClassGatedFeature
	default:
		return ClassOtherAuthenticated
	}
}

// Decide применяет правила к пути и сессии.
func (p Policy) Decide(path string, s *models.Session) Decision {
	if hasAnyPrefix(path, p.BypassPrefixes) {
		return allow(ReasonBypass)
	}

	authenticated := s != nil

	if contains(p.PublicRoutes, path) {
		if authenticated && contains(p.AuthRoutes, path) {
			return redirect(p.dashboardFor(s), ReasonAlreadySignedIn)
		}
		return allow(ReasonPublic)
	}

	if !authenticated && hasAnyPrefix(path, p.ProtectedPrefixes) {
		return redirect(p.LoginRoute, ReasonUnauthenticated)
	}

	if hasPrefix(path, p.AdminPrefix) && !s.IsAdmin() {
		return redirect(p.UserDashboard, ReasonNotAdmin)
	}

	if hasAnyPrefix(path, p.GatedPrefixes) && s.IsFreePlan() {
		return redirect(p.PricingRoute, ReasonFreePlan)
	}

	if path == p.UserDashboard && s.IsAdmin() {
		return redirect(p.AdminDashboard, ReasonAdminDashboard)
	}

	return allow(ReasonAllowed)
}

func (p Policy) dashboardFor(s *models.Session) string {
	if s.IsAdmin() {
		return p.AdminDashboard
	}
	return p.UserDashboard
}
