package models

// AdminPayment нормализованное представление платежа.
// CanApprove истинно только для статуса pending.
type AdminPayment struct {
	ID                   string         `json:"id"`
	PaymentID            string         `json:"paymentId"`
	Reference            string         `json:"reference"`
	GatewayTransactionID *string        `json:"gatewayTransactionId"`
	UserID               *string        `json:"userId"`
	UserName             *string        `json:"userName"`
	UserEmail            *string        `json:"userEmail"`
	PlanID               *string        `json:"planId"`
	PlanName             *string        `json:"planName"`
	PlanSlug             *string        `json:"planSlug"`
	Amount               *float64       `json:"amount"`
	Currency             *string        `json:"currency"`
	RefundedAmount       *float64       `json:"refundedAmount"`
	Status               *string        `json:"status"`
	StatusLabel          string         `json:"statusLabel"`
	CanApprove           bool           `json:"canApprove"`
	PaymentGateway       *string        `json:"paymentGateway"`
	PaymentMethodDetails any            `json:"paymentMethodDetails"`
	Purpose              *string        `json:"purpose"`
	OrderID              *string        `json:"orderId"`
	SubmittedAt          *string        `json:"submittedAt"`
	ProcessedAt          *string        `json:"processedAt"`
	UpdatedAt            *string        `json:"updatedAt"`
	Raw                  map[string]any `json:"raw,omitempty"`
}
