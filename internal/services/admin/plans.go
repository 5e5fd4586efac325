package admin

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/fintrack-gateway/internal/cache"
	"github.com/magabrotheeeer/fintrack-gateway/internal/lib/normalize"
	"github.com/magabrotheeeer/fintrack-gateway/internal/models"
)

const plansEndpoint = "/api/plans/plan"

// NormalizePlan строит представление тарифа. Идентификатор берётся из _id или id,
// затем из slug, в крайнем случае генерируется.
func NormalizePlan(doc map[string]any) (models.AdminPlan, bool) {
	if doc == nil {
		return models.AdminPlan{}, false
	}
	id := normalize.ID(doc)
	if id == "" {
		if slug := normalize.TrimmedString(doc["slug"]); slug != nil {
			id = *slug
		} else {
			id = uuid.NewString()
		}
	}

	features := make([]string, 0)
	if list, ok := doc["features"].([]any); ok {
		for _, f := range list {
			if s, ok := f.(string); ok && strings.TrimSpace(s) != "" {
				features = append(features, s)
			}
		}
	}

	p := models.AdminPlan{
		ID:           id,
		Price:        normalize.NumberOr(doc["price"], 0),
		Features:     features,
		Currency:     normalize.TrimmedString(doc["currency"]),
		DisplayOrder: normalize.Int(doc["displayOrder"]),
		CreatedAt:    normalize.Date(doc["createdAt"]),
		UpdatedAt:    normalize.Date(doc["updatedAt"]),
	}
	if active := normalize.Bool(doc["isPublic"]); active != nil {
		p.IsPublic = *active
	}
	p.Name = stringOrEmpty(doc["name"])
	p.Slug = stringOrEmpty(doc["slug"])
	p.Description = stringOrEmpty(doc["description"])
	p.BillingCycle = stringOrEmpty(doc["billingCycle"])
	return p, true
}

func stringOrEmpty(v any) string {
	if s := normalize.String(v); s != nil {
		return *s
	}
	return ""
}

// NormalizePlans нормализует коллекцию тарифов в любом конверте.
func NormalizePlans(body any) []models.AdminPlan {
	plans := make([]models.AdminPlan, 0)
	for _, el := range normalize.Unwrap(body) {
		if p, ok := NormalizePlan(normalize.Object(el)); ok {
			plans = append(plans, p)
		}
	}
	return plans
}

// planDoc возвращает документ тарифа, поверх которого накладываются изменения.
func planDoc(p models.AdminPlan) map[string]any {
	features := make([]any, 0, len(p.Features))
	for _, f := range p.Features {
		features = append(features, f)
	}
	doc := map[string]any{
		"id":           p.ID,
		"name":         p.Name,
		"slug":         p.Slug,
		"description":  p.Description,
		"price":        p.Price,
		"billingCycle": p.BillingCycle,
		"features":     features,
		"isPublic":     p.IsPublic,
	}
	if p.Currency != nil {
		doc["currency"] = *p.Currency
	}
	if p.DisplayOrder != nil {
		doc["displayOrder"] = *p.DisplayOrder
	}
	if p.CreatedAt != nil {
		doc["createdAt"] = *p.CreatedAt
	}
	if p.UpdatedAt != nil {
		doc["updatedAt"] = *p.UpdatedAt
	}
	return doc
}

func invalidatePlans() cache.Matcher {
	return cache.AnyOf(
		cache.ScopeMatcher(ScopePlans),
		cache.ScopeMatcher(ScopePublicPlans),
		cache.ScopeMatcher(ScopeMyPlan),
	)
}

// ListPlans возвращает все тарифы для администратора.
func (s *Synchronizer) ListPlans(ctx context.Context) ([]models.AdminPlan, error) {
	const op = "admin.ListPlans"

	var out []models.AdminPlan
	err := s.cache.Fetch(ctx, PlansKey(), plansStaleTime, &out, func(ctx context.Context) (any, error) {
		body, err := s.api.Get(ctx, plansEndpoint)
		if err != nil {
			return nil, err
		}
		return NormalizePlans(body), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// CreatePlan создаёт тариф, временная запись сразу видна в начале списка.
func (s *Synchronizer) CreatePlan(ctx context.Context, in PlanInput) (models.AdminPlan, error) {
	in = in.trimmed()
	if err := s.checkInput(in, "Failed to create plan."); err != nil {
		return models.AdminPlan{}, err
	}

	tempID := "optimistic-" + s.newID()
	doc := in.doc()
	doc["_id"] = tempID
	now := normalize.FormatTime(s.now())
	doc["createdAt"], doc["updatedAt"] = *now, *now
	optimistic, _ := NormalizePlan(doc)

	return runMutation(ctx, s, mutation[models.AdminPlan]{
		entity:   "plan",
		action:   "created",
		fallback: "Failed to create plan.",
		optimistic: func(ctx context.Context) (*cache.Snapshot, error) {
			return cache.ApplyOptimistic(ctx, s.cache, cache.ExactMatcher(PlansKey()), func(_ cache.Key, plans []models.AdminPlan) ([]models.AdminPlan, bool) {
				return append([]models.AdminPlan{optimistic}, plans...), true
			})
		},
		call: func(ctx context.Context) (models.AdminPlan, error) {
			body, err := s.api.Send(ctx, http.MethodPost, plansEndpoint, in.doc())
			if err != nil {
				return models.AdminPlan{}, err
			}
			if created, ok := NormalizePlan(normalize.UnwrapObject(body)); ok && created.Slug != "" {
				return created, nil
			}
			return optimistic, nil
		},
		reconcile: func(ctx context.Context, created models.AdminPlan) error {
			return cache.UpdateMatching(ctx, s.cache, cache.ExactMatcher(PlansKey()), func(_ cache.Key, plans []models.AdminPlan) ([]models.AdminPlan, bool) {
				for i := range plans {
					if plans[i].ID == tempID {
						next := append([]models.AdminPlan(nil), plans...)
						next[i] = created
						return next, true
					}
				}
				return plans, false
			})
		},
		invalidate: invalidatePlans(),
		entityID:   func(p models.AdminPlan) string { return p.Slug },
	})
}

// UpdatePlan заменяет тариф с slug targetSlug. Новый slug может отличаться от прежнего.
func (s *Synchronizer) UpdatePlan(ctx context.Context, targetSlug string, in PlanInput) (models.AdminPlan, error) {
	targetSlug = strings.TrimSpace(targetSlug)
	if targetSlug == "" {
		return models.AdminPlan{}, invalidInput("Plan slug is required for update")
	}
	in = in.trimmed()
	fallback := fmt.Sprintf("Failed to update %s.", planLabel(in.Name))
	if err := s.checkInput(in, fallback); err != nil {
		return models.AdminPlan{}, err
	}

	patch := in.doc()
	var merged models.AdminPlan
	return runMutation(ctx, s, mutation[models.AdminPlan]{
		entity:   "plan",
		action:   "updated",
		fallback: fallback,
		optimistic: func(ctx context.Context) (*cache.Snapshot, error) {
			return cache.ApplyOptimistic(ctx, s.cache, cache.ExactMatcher(PlansKey()), func(_ cache.Key, plans []models.AdminPlan) ([]models.AdminPlan, bool) {
				changed := false
				next := make([]models.AdminPlan, len(plans))
				for i, p := range plans {
					next[i] = p
					if p.Slug != targetSlug {
						continue
					}
					doc := planDoc(p)
					for k, v := range patch {
						doc[k] = v
					}
					if np, ok := NormalizePlan(doc); ok {
						next[i], merged, changed = np, np, true
					}
				}
				return next, changed
			})
		},
		call: func(ctx context.Context) (models.AdminPlan, error) {
			body := in.doc()
			body["targetSlug"] = targetSlug
			resp, err := s.api.Send(ctx, http.MethodPut, plansEndpoint, body)
			if err != nil {
				return models.AdminPlan{}, err
			}
			if doc := normalize.UnwrapObject(resp); doc != nil && normalize.TrimmedString(doc["slug"]) != nil {
				base := in.doc()
				if merged.Slug != "" {
					base = planDoc(merged)
				}
				for k, v := range doc {
					base[k] = v
				}
				updated, _ := NormalizePlan(base)
				return updated, nil
			}
			if merged.Slug != "" {
				return merged, nil
			}
			p, _ := NormalizePlan(in.doc())
			return p, nil
		},
		reconcile: func(ctx context.Context, updated models.AdminPlan) error {
			return cache.UpdateMatching(ctx, s.cache, cache.ExactMatcher(PlansKey()), func(_ cache.Key, plans []models.AdminPlan) ([]models.AdminPlan, bool) {
				for i := range plans {
					if plans[i].Slug == targetSlug || plans[i].Slug == updated.Slug {
						next := append([]models.AdminPlan(nil), plans...)
						next[i] = updated
						return next, true
					}
				}
				return plans, false
			})
		},
		invalidate: invalidatePlans(),
		entityID:   func(p models.AdminPlan) string { return p.Slug },
	})
}

// DeletePlan удаляет тариф по slug.
func (s *Synchronizer) DeletePlan(ctx context.Context, slug string) error {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return invalidInput("Plan slug is required for delete")
	}

	_, err := runMutation(ctx, s, mutation[string]{
		entity:   "plan",
		action:   "deleted",
		fallback: fmt.Sprintf("Failed to delete %s.", slug),
		optimistic: func(ctx context.Context) (*cache.Snapshot, error) {
			return cache.ApplyOptimistic(ctx, s.cache, cache.ExactMatcher(PlansKey()), func(_ cache.Key, plans []models.AdminPlan) ([]models.AdminPlan, bool) {
				next := make([]models.AdminPlan, 0, len(plans))
				for _, p := range plans {
					if p.Slug != slug {
						next = append(next, p)
					}
				}
				return next, len(next) != len(plans)
			})
		},
		call: func(ctx context.Context) (string, error) {
			_, err := s.api.Send(ctx, http.MethodDelete, plansEndpoint, map[string]any{"slug": slug})
			return slug, err
		},
		invalidate: invalidatePlans(),
		entityID:   func(slug string) string { return slug },
	})
	return err
}

func planLabel(name string) string {
	if name == "" {
		return "plan"
	}
	return name
}
