package admin

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	return v
}

// CreateUserInput данные нового пользователя.
type CreateUserInput struct {
	Username           string `json:"username" validate:"required,min=3"`
	Email              string `json:"email" validate:"required,email"`
	Password           string `json:"password" validate:"required,min=8"`
	Role               string `json:"role,omitempty"`
	PlanSlug           string `json:"planSlug,omitempty"`
	SubscriptionStatus string `json:"subscriptionStatus,omitempty"`
}

func (in CreateUserInput) trimmed() CreateUserInput {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.Role = strings.TrimSpace(in.Role)
	in.PlanSlug = strings.TrimSpace(in.PlanSlug)
	in.SubscriptionStatus = strings.ToLower(strings.TrimSpace(in.SubscriptionStatus))
	return in
}

func (in CreateUserInput) body() map[string]any {
	body := map[string]any{
		"username": in.Username,
		"email":    in.Email,
		"password": in.Password,
	}
	if in.Role != "" {
		body["role"] = in.Role
	}
	if in.PlanSlug != "" {
		body["planId"] = in.PlanSlug
	}
	if in.SubscriptionStatus != "" {
		body["subscriptionStatus"] = in.SubscriptionStatus
	}
	return body
}

// ApprovePaymentInput подтверждение ручного платежа с переводом пользователя на тариф.
type ApprovePaymentInput struct {
	PaymentID string `json:"paymentId" validate:"required"`
	UserID    string `json:"appliedUserId" validate:"required"`
	PlanID    string `json:"newPlanId" validate:"required"`
}

// PlanInput данные тарифа для создания и изменения.
type PlanInput struct {
	Name         string   `json:"name" validate:"required,min=2"`
	Slug         string   `json:"slug" validate:"required,slug"`
	Price        float64  `json:"price" validate:"gte=0"`
	BillingCycle string   `json:"billingCycle" validate:"required,min=2"`
	Description  string   `json:"description" validate:"required,min=5"`
	Features     []string `json:"features" validate:"min=1"`
	IsPublic     bool     `json:"isPublic"`
	Currency     string   `json:"currency,omitempty"`
	DisplayOrder *int     `json:"displayOrder,omitempty"`
}

func (in PlanInput) trimmed() PlanInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Slug = strings.ToLower(strings.TrimSpace(in.Slug))
	in.BillingCycle = strings.TrimSpace(in.BillingCycle)
	in.Description = strings.TrimSpace(in.Description)
	in.Currency = strings.TrimSpace(in.Currency)
	features := make([]string, 0, len(in.Features))
	for _, f := range in.Features {
		if f = strings.TrimSpace(f); f != "" {
			features = append(features, f)
		}
	}
	in.Features = features
	return in
}

func (in PlanInput) doc() map[string]any {
	features := make([]any, 0, len(in.Features))
	for _, f := range in.Features {
		features = append(features, f)
	}
	doc := map[string]any{
		"name":         in.Name,
		"slug":         in.Slug,
		"price":        in.Price,
		"billingCycle": in.BillingCycle,
		"description":  in.Description,
		"features":     features,
		"isPublic":     in.IsPublic,
	}
	if in.Currency != "" {
		doc["currency"] = in.Currency
	}
	if in.DisplayOrder != nil {
		doc["displayOrder"] = *in.DisplayOrder
	}
	return doc
}
