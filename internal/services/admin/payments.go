package admin

import (
	"context"
	"fmt"
	"net/http"

	"github.com/magabrotheeeer/fintrack-gateway/internal/cache"
	"github.com/magabrotheeeer/fintrack-gateway/internal/lib/normalize"
	"github.com/magabrotheeeer/fintrack-gateway/internal/models"
)

const (
	paymentsEndpoint = "/api/plans/payment"
	approveEndpoint  = "/api/plans/approve-plan"

	statusPending  = "pending"
	statusApproved = "approved"
	unknownStatus  = "Unknown"
)

type paymentList = models.ListResult[models.AdminPayment]

// NormalizePayment строит представление платежа из документа внешнего API.
// Платёж без идентификатора получает payment-<uuid>.
func (s *Synchronizer) NormalizePayment(doc map[string]any) (models.AdminPayment, bool) {
	if doc == nil {
		return models.AdminPayment{}, false
	}

	id := normalize.ID(doc)
	if id == "" {
		id = "payment-" + s.newID()
	}
	userRef := doc["userId"]
	planRef := doc["planId"]

	p := models.AdminPayment{
		ID:                   id,
		PaymentID:            id,
		GatewayTransactionID: normalize.TrimmedString(doc["gatewayTransactionId"]),
		UserID:               normalize.IDPtr(userRef),
		UserName:             normalize.FirstString(normalize.Path(userRef, "username"), normalize.Path(userRef, "name")),
		UserEmail:            normalize.TrimmedString(normalize.Path(userRef, "email")),
		PlanID:               normalize.IDPtr(planRef),
		PlanName:             normalize.TrimmedString(normalize.Path(planRef, "name")),
		PlanSlug:             normalize.TrimmedString(normalize.Path(planRef, "slug")),
		Amount:               normalize.NumberPtr(doc["amount"]),
		Currency:             normalize.TrimmedString(doc["currency"]),
		RefundedAmount:       normalize.NumberPtr(doc["refundedAmount"]),
		Status:               normalize.Lower(doc["status"]),
		PaymentGateway:       normalize.TrimmedString(doc["paymentGateway"]),
		PaymentMethodDetails: doc["paymentMethodDetails"],
		Purpose:              normalize.TrimmedString(doc["purpose"]),
		OrderID:              normalize.IDPtr(doc["order"]),
		SubmittedAt:          normalize.Date(normalize.Coalesce(doc["createdAt"], doc["processedAt"])),
		ProcessedAt:          normalize.Date(doc["processedAt"]),
		UpdatedAt:            normalize.Date(doc["updatedAt"]),
		Raw:                  doc,
	}
	p.Reference = id
	if ref := normalize.FirstString(doc["gatewayTransactionId"], doc["reference"]); ref != nil {
		p.Reference = *ref
	}
	setPaymentStatus(&p, p.Status)
	return p, true
}

// setPaymentStatus поддерживает согласованность статуса, подписи и CanApprove.
func setPaymentStatus(p *models.AdminPayment, status *string) {
	p.Status = status
	p.StatusLabel = unknownStatus
	if label := normalize.StatusLabelPtr(status); label != nil {
		p.StatusLabel = *label
	}
	p.CanApprove = status != nil && *status == statusPending
}

func (s *Synchronizer) buildPaymentList(body any, requested string) paymentList {
	items := make([]models.AdminPayment, 0)
	for _, el := range normalize.Unwrap(body) {
		if p, ok := s.NormalizePayment(normalize.Object(el)); ok {
			items = append(items, p)
		}
	}
	statuses := newStatusSet(serverStatuses(body)...)
	for _, p := range items {
		statuses.addPtr(p.Status)
	}
	statuses.add(requested)
	return paymentList{
		Items:             items,
		Pagination:        parsePagination(body),
		AvailableStatuses: statuses.list,
	}
}

// ListPayments возвращает платежи по фильтру статуса.
func (s *Synchronizer) ListPayments(ctx context.Context, f models.PaymentFilter) (paymentList, error) {
	const op = "admin.ListPayments"

	filter := SanitizePaymentFilter(f)
	var out paymentList
	err := s.cache.Fetch(ctx, PaymentsKey(filter), paymentsStaleTime, &out, func(ctx context.Context) (any, error) {
		body, err := s.api.Get(ctx, withQuery(paymentsEndpoint, paymentQuery(filter)))
		if err != nil {
			return nil, err
		}
		return s.buildPaymentList(body, filter.Status), nil
	})
	if err != nil {
		return paymentList{}, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// ApprovePaymentResult итог подтверждения платежа.
type ApprovePaymentResult struct {
	PaymentID string `json:"paymentId"`
	Message   string `json:"message"`
	Response  any    `json:"response,omitempty"`
}

// ApprovePayment подтверждает ручной платёж. Во всех закешированных списках
// платёж сразу становится approved, из списков с другим фильтром статуса он
// убирается вместе с уменьшением totalItems.
func (s *Synchronizer) ApprovePayment(ctx context.Context, in ApprovePaymentInput) (ApprovePaymentResult, error) {
	if err := s.checkInput(in, "Failed to approve payment."); err != nil {
		return ApprovePaymentResult{}, err
	}

	return runMutation(ctx, s, mutation[ApprovePaymentResult]{
		entity:   "payment",
		action:   "approved",
		fallback: "Failed to approve payment.",
		optimistic: func(ctx context.Context) (*cache.Snapshot, error) {
			return cache.ApplyOptimistic(ctx, s.cache, cache.ScopeMatcher(ScopePayments), func(k cache.Key, list paymentList) (paymentList, bool) {
				return approveInList(list, in.PaymentID, paymentFilterFromKey(k).Status)
			})
		},
		call: func(ctx context.Context) (ApprovePaymentResult, error) {
			body, err := s.api.Send(ctx, http.MethodPost, approveEndpoint, in)
			if err != nil {
				return ApprovePaymentResult{}, err
			}
			msg := fmt.Sprintf("Payment %s approved.", in.PaymentID)
			if m := normalize.TrimmedString(normalize.Path(body, "message")); m != nil {
				msg = *m
			}
			return ApprovePaymentResult{PaymentID: in.PaymentID, Message: msg, Response: body}, nil
		},
		invalidate: cache.AnyOf(
			cache.ScopeMatcher(ScopePayments),
			cache.ScopeMatcher(ScopeUsers),
			cache.ScopeMatcher(ScopeUserProfile),
			cache.ScopeMatcher(ScopeMyPlan),
			cache.ScopeMatcher(ScopePlans),
		),
		entityID: func(r ApprovePaymentResult) string { return r.PaymentID },
	})
}

func approveInList(list paymentList, id, filterStatus string) (paymentList, bool) {
	idx := -1
	for i := range list.Items {
		if list.Items[i].ID == id || list.Items[i].PaymentID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return list, false
	}

	items := make([]models.AdminPayment, 0, len(list.Items))
	for i, p := range list.Items {
		if i != idx {
			items = append(items, p)
			continue
		}
		approved := statusApproved
		setPaymentStatus(&p, &approved)
		if filterStatus != "" && filterStatus != statusApproved {
			list.Pagination = adjustTotal(list.Pagination, -1)
			continue
		}
		items = append(items, p)
	}
	list.Items = items

	statuses := newStatusSet(list.AvailableStatuses...)
	statuses.add(statusApproved)
	list.AvailableStatuses = statuses.list
	return list, true
}
