package admin

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/magabrotheeeer/fintrack-gateway/internal/cache"
	"github.com/magabrotheeeer/fintrack-gateway/internal/models"
)

const statusAll = "all"

func sanitizeStatus(status string) string {
	s := strings.ToLower(strings.TrimSpace(status))
	if s == statusAll {
		return ""
	}
	return s
}

// SanitizeUserFilter обрезает строки, приводит статус к нижнему регистру,
// отбрасывает all и неположительные page, limit.
func SanitizeUserFilter(f models.UserFilter) models.UserFilter {
	out := models.UserFilter{
		Search: strings.TrimSpace(f.Search),
		Status: sanitizeStatus(f.Status),
	}
	if f.Page > 0 {
		out.Page = f.Page
	}
	if f.Limit > 0 {
		out.Limit = f.Limit
	}
	return out
}

// SanitizePaymentFilter нормализует фильтр платежей.
func SanitizePaymentFilter(f models.PaymentFilter) models.PaymentFilter {
	return models.PaymentFilter{Status: sanitizeStatus(f.Status)}
}

func userQuery(f models.UserFilter) url.Values {
	q := url.Values{}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	return q
}

func paymentQuery(f models.PaymentFilter) url.Values {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	return q
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

// UsersKey ключ кеша списка пользователей. Одинаковые после нормализации
// фильтры дают одинаковый ключ.
func UsersKey(f models.UserFilter) cache.Key {
	return cache.Key{Scope: ScopeUsers, Params: userQuery(SanitizeUserFilter(f)).Encode()}
}

// UserProfileKey ключ кеша профиля пользователя.
func UserProfileKey(id string) cache.Key {
	return cache.Key{Scope: ScopeUserProfile, Params: id}
}

// PaymentsKey ключ кеша списка платежей, all совпадает с отсутствием фильтра.
func PaymentsKey(f models.PaymentFilter) cache.Key {
	return cache.Key{Scope: ScopePayments, Params: paymentQuery(SanitizePaymentFilter(f)).Encode()}
}

// PlansKey ключ кеша списка тарифов администратора.
func PlansKey() cache.Key {
	return cache.Key{Scope: ScopePlans}
}

func userFilterFromKey(k cache.Key) models.UserFilter {
	q, err := url.ParseQuery(k.Params)
	if err != nil {
		return models.UserFilter{}
	}
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return models.UserFilter{
		Search: q.Get("search"),
		Status: q.Get("status"),
		Page:   page,
		Limit:  limit,
	}
}

func paymentFilterFromKey(k cache.Key) models.PaymentFilter {
	q, err := url.ParseQuery(k.Params)
	if err != nil {
		return models.PaymentFilter{}
	}
	return models.PaymentFilter{Status: q.Get("status")}
}

// statusSet упорядоченное множество статусов в нижнем регистре.
type statusSet struct {
	seen map[string]struct{}
	list []string
}

func newStatusSet(initial ...string) *statusSet {
	s := &statusSet{seen: make(map[string]struct{}), list: []string{}}
	for _, v := range initial {
		s.add(v)
	}
	return s
}

func (s *statusSet) add(v string) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return
	}
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.list = append(s.list, v)
}

func (s *statusSet) addPtr(v *string) {
	if v != nil {
		s.add(*v)
	}
}
