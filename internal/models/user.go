package models

// AdminUser нормализованное представление пользователя для административной консоли.
//
// StatusLabel всегда вычисляется из StatusCode, FullName из имени и фамилии.
// Raw хранит исходный документ, поверх которого применяются патчи.
type AdminUser struct {
	ID                      string         `json:"id"`
	Username                *string        `json:"username"`
	Email                   *string        `json:"email"`
	FirstName               *string        `json:"firstName"`
	LastName                *string        `json:"lastName"`
	FullName                *string        `json:"fullName"`
	PlanID                  *string        `json:"planId"`
	PlanSlug                *string        `json:"planSlug"`
	PlanName                *string        `json:"planName"`
	SubscriptionStatus      *string        `json:"subscriptionStatus"`
	SubscriptionStatusLabel *string        `json:"subscriptionStatusLabel"`
	SubscriptionStartDate   *string        `json:"subscriptionStartDate"`
	SubscriptionEndDate     *string        `json:"subscriptionEndDate"`
	TrialEndsAt             *string        `json:"trialEndsAt"`
	Role                    *string        `json:"role"`
	IsActive                bool           `json:"isActive"`
	IsActiveLabel           *string        `json:"isActiveLabel"`
	StatusCode              *string        `json:"statusCode"`
	StatusLabel             *string        `json:"statusLabel"`
	RegisteredAt            *string        `json:"registeredAt"`
	LastLoginAt             *string        `json:"lastLoginAt"`
	ProfilePictureURL       *string        `json:"profilePictureUrl"`
	Raw                     map[string]any `json:"raw,omitempty"`
}
