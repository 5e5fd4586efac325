package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/magabrotheeeer/fintrack-gateway/internal/cache"
	"github.com/magabrotheeeer/fintrack-gateway/internal/lib/normalize"
	"github.com/magabrotheeeer/fintrack-gateway/internal/lib/sl"
	"github.com/magabrotheeeer/fintrack-gateway/internal/models"
)

const usersEndpoint = "/api/admin/users"

type userList = models.ListResult[models.AdminUser]

// NormalizeUser строит представление пользователя из документа внешнего API.
// Если в документе есть объект raw, поля документа накладываются поверх него.
// Документ без идентификатора отбрасывается.
func NormalizeUser(doc map[string]any) (models.AdminUser, bool) {
	if doc == nil {
		return models.AdminUser{}, false
	}
	raw := doc
	if inner := normalize.Object(doc["raw"]); inner != nil {
		raw = inner
	}
	merged := make(map[string]any, len(raw)+len(doc))
	for k, v := range raw {
		if k != "raw" {
			merged[k] = v
		}
	}
	for k, v := range doc {
		if k != "raw" {
			merged[k] = v
		}
	}

	id := normalize.ID(normalize.Coalesce(merged["id"], merged["_id"]))
	if id == "" {
		return models.AdminUser{}, false
	}

	u := models.AdminUser{
		ID:        id,
		Username:  normalize.TrimmedString(merged["username"]),
		Email:     normalize.TrimmedString(merged["email"]),
		FirstName: normalize.TrimmedString(merged["firstName"]),
		LastName:  normalize.TrimmedString(merged["lastName"]),
	}
	u.FullName = fullName(u.FirstName, u.LastName)

	planRef := merged["planId"]
	planObj := normalize.Object(planRef)
	u.PlanID = normalize.IDPtr(planRef)
	u.PlanName = normalize.FirstString(
		normalize.Path(merged, "plan", "name"),
		merged["planName"],
		merged["plan"],
		normalize.Path(planObj, "name"),
	)
	u.PlanSlug = normalize.FirstString(
		normalize.Path(merged, "plan", "slug"),
		merged["planSlug"],
		normalize.Path(planObj, "slug"),
	)
	if u.PlanSlug == nil && u.PlanID != nil && strings.Contains(*u.PlanID, "-") {
		slug := *u.PlanID
		u.PlanSlug = &slug
	}

	u.SubscriptionStatus = normalize.TrimmedString(merged["subscriptionStatus"])
	u.SubscriptionStatusLabel = normalize.StatusLabelPtr(u.SubscriptionStatus)
	u.SubscriptionStartDate = normalize.Date(merged["subscriptionStartDate"])
	u.SubscriptionEndDate = normalize.Date(merged["subscriptionEndDate"])
	u.TrialEndsAt = normalize.Date(merged["trialEndsAt"])

	u.Role = normalize.TrimmedString(merged["role"])
	active := normalize.Bool(normalize.Coalesce(merged["isActive"], normalize.Path(merged, "metadata", "isActive")))
	if active != nil {
		u.IsActive = *active
		label := "Inactive"
		if *active {
			label = "Active"
		}
		u.IsActiveLabel = &label
	}

	u.StatusCode = normalize.Lower(normalize.FirstString(
		merged["statusCode"],
		normalize.Path(merged, "metadata", "accountStatus"),
		merged["status"],
	))
	if u.StatusCode == nil && active != nil {
		code := "inactive"
		if *active {
			code = "active"
		}
		u.StatusCode = &code
	}
	u.StatusLabel = normalize.StatusLabelPtr(u.StatusCode)

	u.RegisteredAt = normalize.Date(normalize.Coalesce(merged["registeredAt"], merged["createdAt"]))
	u.LastLoginAt = normalize.Date(normalize.Coalesce(merged["lastLoginAt"], merged["updatedAt"]))
	u.ProfilePictureURL = normalize.TrimmedString(normalize.Coalesce(merged["profilePictureUrl"], merged["avatarUrl"]))

	u.Raw = merged
	return u, true
}

func fullName(first, last *string) *string {
	parts := make([]string, 0, 2)
	if first != nil {
		parts = append(parts, *first)
	}
	if last != nil {
		parts = append(parts, *last)
	}
	if len(parts) == 0 {
		return nil
	}
	name := strings.Join(parts, " ")
	return &name
}

// MergeUser накладывает patch на исходный документ пользователя и нормализует
// результат заново. Идентификатор, имя и почта сохраняются, если patch их не задал.
func MergeUser(prev *models.AdminUser, patch map[string]any) (models.AdminUser, bool) {
	if prev == nil {
		doc := make(map[string]any, len(patch))
		for k, v := range patch {
			doc[k] = v
		}
		return NormalizeUser(doc)
	}

	base := prev.Raw
	if base == nil {
		base = userDoc(*prev)
	}
	merged := make(map[string]any, len(base)+len(patch))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range patch {
		if k != "raw" {
			merged[k] = v
		}
	}
	if normalize.ID(normalize.Coalesce(merged["id"], merged["_id"])) == "" {
		merged["id"] = prev.ID
	}
	if normalize.TrimmedString(merged["username"]) == nil && prev.Username != nil {
		merged["username"] = *prev.Username
	}
	if normalize.TrimmedString(merged["email"]) == nil && prev.Email != nil {
		merged["email"] = *prev.Email
	}
	return NormalizeUser(merged)
}

// userDoc восстанавливает документ из нормализованной записи без Raw.
func userDoc(u models.AdminUser) map[string]any {
	data, err := json.Marshal(u)
	if err != nil {
		return map[string]any{"id": u.ID}
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return map[string]any{"id": u.ID}
	}
	delete(doc, "statusLabel")
	delete(doc, "fullName")
	if u.IsActiveLabel == nil {
		delete(doc, "isActive")
	}
	return doc
}

// userMatches проверяет, попадает ли пользователь в список с фильтром.
func userMatches(u models.AdminUser, f models.UserFilter) bool {
	if f.Status != "" && (u.StatusCode == nil || *u.StatusCode != f.Status) {
		return false
	}
	if f.Search == "" {
		return true
	}
	needle := strings.ToLower(f.Search)
	for _, field := range []*string{u.Username, u.Email, u.FullName} {
		if field != nil && strings.Contains(strings.ToLower(*field), needle) {
			return true
		}
	}
	return false
}

func buildUserList(body any, requested string) userList {
	items := make([]models.AdminUser, 0)
	for _, el := range normalize.Unwrap(body) {
		if u, ok := NormalizeUser(normalize.Object(el)); ok {
			items = append(items, u)
		}
	}
	statuses := newStatusSet(serverStatuses(body)...)
	for _, u := range items {
		statuses.addPtr(u.StatusCode)
	}
	statuses.add(requested)
	return userList{
		Items:             items,
		Pagination:        parsePagination(body),
		AvailableStatuses: statuses.list,
	}
}

func serverStatuses(body any) []string {
	list, _ := normalize.Path(body, "availableStatuses").([]any)
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s := normalize.TrimmedString(v); s != nil {
			out = append(out, *s)
		}
	}
	return out
}

func parsePagination(body any) *models.Pagination {
	p := normalize.Object(normalize.Path(body, "pagination"))
	if p == nil {
		return nil
	}
	return &models.Pagination{
		CurrentPage:  normalize.Int(p["currentPage"]),
		TotalPages:   normalize.Int(p["totalPages"]),
		TotalItems:   normalize.Int(p["totalItems"]),
		ItemsPerPage: normalize.Int(p["itemsPerPage"]),
	}
}

func adjustTotal(p *models.Pagination, delta int) *models.Pagination {
	if p == nil || p.TotalItems == nil {
		return p
	}
	next := *p
	total := *p.TotalItems + delta
	if total < 0 {
		total = 0
	}
	next.TotalItems = &total
	return &next
}

// ListUsers возвращает страницу пользователей по фильтру.
func (s *Synchronizer) ListUsers(ctx context.Context, f models.UserFilter) (userList, error) {
	const op = "admin.ListUsers"

	filter := SanitizeUserFilter(f)
	var out userList
	err := s.cache.Fetch(ctx, UsersKey(filter), usersStaleTime, &out, func(ctx context.Context) (any, error) {
		body, err := s.api.Get(ctx, withQuery(usersEndpoint, userQuery(filter)))
		if err != nil {
			return nil, err
		}
		return buildUserList(body, filter.Status), nil
	})
	if err != nil {
		return userList{}, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// UserProfile возвращает профиль пользователя.
func (s *Synchronizer) UserProfile(ctx context.Context, id string) (models.AdminUser, error) {
	const op = "admin.UserProfile"

	id = strings.TrimSpace(id)
	if id == "" {
		return models.AdminUser{}, invalidInput("User ID is required")
	}
	var out models.AdminUser
	err := s.cache.Fetch(ctx, UserProfileKey(id), usersStaleTime, &out, func(ctx context.Context) (any, error) {
		body, err := s.api.Get(ctx, usersEndpoint+"/"+url.PathEscape(id))
		if err != nil {
			return nil, err
		}
		u, ok := NormalizeUser(normalize.UnwrapObject(body))
		if !ok {
			return nil, fmt.Errorf("malformed user document")
		}
		return u, nil
	})
	if err != nil {
		return models.AdminUser{}, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// lookupPlan ищет тариф по slug в закешированном списке тарифов.
func (s *Synchronizer) lookupPlan(ctx context.Context, slug string) *models.AdminPlan {
	if slug == "" {
		return nil
	}
	var plans []models.AdminPlan
	if found, err := s.cache.Get(ctx, PlansKey(), &plans); err != nil || !found {
		return nil
	}
	for i := range plans {
		if plans[i].Slug == slug {
			return &plans[i]
		}
	}
	return nil
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// CreateUser создаёт пользователя. До ответа сервера запись с временным
// идентификатором видна во всех подходящих закешированных списках.
func (s *Synchronizer) CreateUser(ctx context.Context, in CreateUserInput) (models.AdminUser, error) {
	in = in.trimmed()
	if err := s.checkInput(in, "Failed to create user."); err != nil {
		return models.AdminUser{}, err
	}

	tempID := "temp-" + s.newID()
	now := normalize.FormatTime(s.now())
	var planSlug, planName any = nilIfEmpty(in.PlanSlug), nil
	if plan := s.lookupPlan(ctx, in.PlanSlug); plan != nil {
		planSlug, planName = plan.Slug, plan.Name
	}
	optimisticDoc := map[string]any{
		"_id":                tempID,
		"id":                 tempID,
		"username":           in.Username,
		"email":              in.Email,
		"role":               nilIfEmpty(in.Role),
		"planId":             nilIfEmpty(in.PlanSlug),
		"planSlug":           planSlug,
		"plan":               planName,
		"planName":           planName,
		"subscriptionStatus": nilIfEmpty(in.SubscriptionStatus),
		"status":             nilIfEmpty(in.SubscriptionStatus),
		"statusCode":         nilIfEmpty(in.SubscriptionStatus),
		"isActive":           true,
		"registeredAt":       *now,
		"createdAt":          *now,
	}
	optimistic, _ := NormalizeUser(optimisticDoc)

	return runMutation(ctx, s, mutation[models.AdminUser]{
		entity:   "user",
		action:   "created",
		fallback: "Failed to create user.",
		optimistic: func(ctx context.Context) (*cache.Snapshot, error) {
			return cache.ApplyOptimistic(ctx, s.cache, cache.ScopeMatcher(ScopeUsers), func(k cache.Key, list userList) (userList, bool) {
				f := userFilterFromKey(k)
				if f.Page > 1 || !userMatches(optimistic, f) {
					return list, false
				}
				list.Items = append([]models.AdminUser{optimistic}, list.Items...)
				statuses := newStatusSet(list.AvailableStatuses...)
				statuses.addPtr(optimistic.StatusCode)
				list.AvailableStatuses = statuses.list
				return list, true
			})
		},
		call: func(ctx context.Context) (models.AdminUser, error) {
			body, err := s.api.Send(ctx, http.MethodPost, usersEndpoint, in.body())
			if err != nil {
				return models.AdminUser{}, err
			}
			if u, ok := NormalizeUser(normalize.UnwrapObject(body)); ok {
				return u, nil
			}
			return optimistic, nil
		},
		reconcile: func(ctx context.Context, created models.AdminUser) error {
			return cache.UpdateMatching(ctx, s.cache, cache.ScopeMatcher(ScopeUsers), func(k cache.Key, list userList) (userList, bool) {
				idx := indexUser(list.Items, tempID)
				if idx < 0 {
					return list, false
				}
				items := make([]models.AdminUser, 0, len(list.Items))
				if userMatches(created, userFilterFromKey(k)) {
					items = append(items, created)
				}
				items = append(items, list.Items[:idx]...)
				list.Items = append(items, list.Items[idx+1:]...)
				return list, true
			})
		},
		invalidate: cache.ScopeMatcher(ScopeUsers),
		settled: func(ctx context.Context) {
			_ = s.cache.Remove(ctx, cache.ExactMatcher(UserProfileKey(tempID)))
		},
		entityID: func(u models.AdminUser) string { return u.ID },
	})
}

func indexUser(items []models.AdminUser, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

// applyUserPatch применяет patch к профилю и ко всем спискам. Пользователь,
// переставший подходить под фильтр статуса, скрывается из списка.
func (s *Synchronizer) applyUserPatch(ctx context.Context, id string, patch map[string]any, optimistic bool) (*cache.Snapshot, error) {
	profilePatch := func(_ cache.Key, u models.AdminUser) (models.AdminUser, bool) {
		return MergeUser(&u, patch)
	}
	listPatch := func(k cache.Key, list userList) (userList, bool) {
		idx := indexUser(list.Items, id)
		if idx < 0 {
			return list, false
		}
		merged, ok := MergeUser(&list.Items[idx], patch)
		if !ok {
			return list, false
		}
		items := append([]models.AdminUser(nil), list.Items...)
		f := userFilterFromKey(k)
		if f.Status != "" && !userMatches(merged, models.UserFilter{Status: f.Status}) {
			list.Items = append(items[:idx], items[idx+1:]...)
			list.Pagination = adjustTotal(list.Pagination, -1)
		} else {
			items[idx] = merged
			list.Items = items
		}
		statuses := newStatusSet(list.AvailableStatuses...)
		statuses.addPtr(merged.StatusCode)
		list.AvailableStatuses = statuses.list
		return list, true
	}

	if !optimistic {
		if err := cache.UpdateMatching(ctx, s.cache, cache.ExactMatcher(UserProfileKey(id)), profilePatch); err != nil {
			return nil, err
		}
		return nil, cache.UpdateMatching(ctx, s.cache, cache.ScopeMatcher(ScopeUsers), listPatch)
	}

	snap, err := cache.ApplyOptimistic(ctx, s.cache, cache.ExactMatcher(UserProfileKey(id)), profilePatch)
	if err != nil {
		return nil, err
	}
	listSnap, err := cache.ApplyOptimistic(ctx, s.cache, cache.ScopeMatcher(ScopeUsers), listPatch)
	if err != nil {
		_ = s.cache.Rollback(ctx, snap)
		return nil, err
	}
	return snap.Merge(listSnap), nil
}

// cachedUser ищет пользователя в профиле или в любом закешированном списке.
func (s *Synchronizer) cachedUser(ctx context.Context, id string) (models.AdminUser, bool) {
	var profile models.AdminUser
	if found, err := s.cache.Get(ctx, UserProfileKey(id), &profile); err == nil && found {
		return profile, true
	}
	for _, key := range s.cache.Keys(cache.ScopeMatcher(ScopeUsers)) {
		var list userList
		if found, err := s.cache.Get(ctx, key, &list); err != nil || !found {
			continue
		}
		if idx := indexUser(list.Items, id); idx >= 0 {
			return list.Items[idx], true
		}
	}
	return models.AdminUser{}, false
}

// resultUser возвращает запись после сверки кеша, при её отсутствии строит запись из ответа.
func (s *Synchronizer) resultUser(ctx context.Context, id string, doc, fallbackPatch map[string]any) models.AdminUser {
	if u, ok := s.cachedUser(ctx, id); ok {
		return u
	}
	if u, ok := NormalizeUser(doc); ok {
		return u
	}
	u, _ := MergeUser(&models.AdminUser{ID: id}, fallbackPatch)
	return u
}

// UpdateUser частично обновляет профиль пользователя.
func (s *Synchronizer) UpdateUser(ctx context.Context, id string, updates map[string]any) (models.AdminUser, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.AdminUser{}, invalidInput("User ID is required for update")
	}
	if len(updates) == 0 {
		return models.AdminUser{}, invalidInput("Update payload is required")
	}

	return runMutation(ctx, s, mutation[models.AdminUser]{
		entity:   "user",
		action:   "updated",
		fallback: "Failed to update profile.",
		optimistic: func(ctx context.Context) (*cache.Snapshot, error) {
			return s.applyUserPatch(ctx, id, updates, true)
		},
		call: func(ctx context.Context) (models.AdminUser, error) {
			body, err := s.api.Send(ctx, http.MethodPatch, usersEndpoint+"/"+url.PathEscape(id), updates)
			if err != nil {
				return models.AdminUser{}, err
			}
			doc := normalize.UnwrapObject(body)
			if doc == nil {
				doc = map[string]any{}
			}
			if _, err := s.applyUserPatch(context.WithoutCancel(ctx), id, doc, false); err != nil {
				s.log.Warn("failed to reconcile updated user", slog.String("id", id), sl.Err(err))
			}
			return s.resultUser(ctx, id, doc, updates), nil
		},
		invalidate: cache.AnyOf(cache.ExactMatcher(UserProfileKey(id)), cache.ScopeMatcher(ScopeUsers)),
		entityID:   func(u models.AdminUser) string { return u.ID },
	})
}

// UpdateUserStatus меняет статус учётной записи.
func (s *Synchronizer) UpdateUserStatus(ctx context.Context, id, status string) (models.AdminUser, error) {
	id = strings.TrimSpace(id)
	requested := strings.ToLower(strings.TrimSpace(status))
	if id == "" {
		return models.AdminUser{}, invalidInput("User ID is required for status update")
	}
	if requested == "" {
		return models.AdminUser{}, invalidInput("Status value is required")
	}
	optimisticPatch := map[string]any{"statusCode": requested, "status": requested}

	return runMutation(ctx, s, mutation[models.AdminUser]{
		entity:   "user",
		action:   "status_changed",
		fallback: "Failed to update status.",
		optimistic: func(ctx context.Context) (*cache.Snapshot, error) {
			return s.applyUserPatch(ctx, id, optimisticPatch, true)
		},
		call: func(ctx context.Context) (models.AdminUser, error) {
			body, err := s.api.Send(ctx, http.MethodPatch, usersEndpoint+"/"+url.PathEscape(id)+"/status", map[string]any{"status": requested})
			if err != nil {
				return models.AdminUser{}, err
			}
			doc := normalize.UnwrapObject(body)
			resolved := normalize.Lower(normalize.FirstString(
				normalize.Path(doc, "statusCode"),
				normalize.Path(doc, "status"),
			))
			final := requested
			if resolved != nil {
				final = *resolved
			}
			patch := map[string]any{"statusCode": final, "status": final}
			if _, err := s.applyUserPatch(context.WithoutCancel(ctx), id, patch, false); err != nil {
				s.log.Warn("failed to reconcile user status", slog.String("id", id), sl.Err(err))
			}
			return s.resultUser(ctx, id, nil, patch), nil
		},
		invalidate: cache.AnyOf(cache.ExactMatcher(UserProfileKey(id)), cache.ScopeMatcher(ScopeUsers)),
		entityID:   func(u models.AdminUser) string { return u.ID },
	})
}

// ResetUserPassword отправляет пользователю ссылку сброса пароля. Кеш не меняется.
func (s *Synchronizer) ResetUserPassword(ctx context.Context, id, redirectURI string) (any, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, invalidInput("User ID is required to reset password")
	}
	body := map[string]any{}
	if uri := strings.TrimSpace(redirectURI); uri != "" {
		body["redirectUri"] = uri
	}

	return runMutation(ctx, s, mutation[any]{
		entity:   "user",
		action:   "password_reset",
		fallback: "Failed to reset password.",
		call: func(ctx context.Context) (any, error) {
			return s.api.Send(ctx, http.MethodPost, usersEndpoint+"/"+url.PathEscape(id)+"/reset-password", body)
		},
		entityID: func(any) string { return id },
	})
}
