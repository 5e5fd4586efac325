package models

// AdminPlan нормализованное представление тарифа.
// Slug уникален и служит ключом сопоставления при оптимистичных обновлениях.
type AdminPlan struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Slug         string   `json:"slug"`
	Description  string   `json:"description"`
	Price        float64  `json:"price"`
	BillingCycle string   `json:"billingCycle"`
	Features     []string `json:"features"`
	IsPublic     bool     `json:"isPublic"`
	Currency     *string  `json:"currency"`
	DisplayOrder *int     `json:"displayOrder"`
	CreatedAt    *string  `json:"createdAt"`
	UpdatedAt    *string  `json:"updatedAt"`
}
