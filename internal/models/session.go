// Package models содержит доменные структуры шлюза: контекст сессии,
// нормализованные представления пользователей, платежей и тарифов,
// а также обёртку списка с пагинацией.
package models

import "strings"

// Role роль пользователя, извлечённая из токена сессии.
type Role string

const (
	// RoleUser обычный пользователь личного кабинета.
	RoleUser Role = "user"
	// RoleAdmin администратор консоли.
	RoleAdmin Role = "admin"
)

// ParseRole приводит произвольную строку роли к одному из двух значений.
// Всё, что не admin, считается user.
func ParseRole(s string) Role {
	if strings.EqualFold(strings.TrimSpace(s), string(RoleAdmin)) {
		return RoleAdmin
	}
	return RoleUser
}

// Session контекст аутентификации, построенный из токена на время одного запроса.
type Session struct {
	UserID   string  // Идентификатор пользователя (id или sub)
	Role     Role    // Роль пользователя
	PlanSlug *string // Тариф пользователя, nil если неизвестен
	Token    string  // Исходный токен, пробрасывается во внешний API
}

// IsAdmin сообщает, является ли сессия административной.
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}

// IsFreePlan сообщает, относится ли тариф сессии к бесплатному уровню.
func (s *Session) IsFreePlan() bool {
	if s == nil || s.PlanSlug == nil {
		return false
	}
	return strings.Contains(strings.ToLower(*s.PlanSlug), "free")
}
