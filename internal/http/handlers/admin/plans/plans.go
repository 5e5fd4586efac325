// Package plans реализует обработчики каталога тарифов консоли.
//
// Тариф адресуется по slug: он передаётся в пути для изменения и удаления.
package plans

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/fintrack-gateway/internal/http/handlers/httperr"
	"github.com/magabrotheeeer/fintrack-gateway/internal/http/response"
	"github.com/magabrotheeeer/fintrack-gateway/internal/lib/sl"
	"github.com/magabrotheeeer/fintrack-gateway/internal/models"
	"github.com/magabrotheeeer/fintrack-gateway/internal/services/admin"
)

type Service interface {
	ListPlans(ctx context.Context) ([]models.AdminPlan, error)
	CreatePlan(ctx context.Context, in admin.PlanInput) (models.AdminPlan, error)
	UpdatePlan(ctx context.Context, targetSlug string, in admin.PlanInput) (models.AdminPlan, error)
	DeletePlan(ctx context.Context, slug string) error
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// Routes монтирует обработчики на роутер.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{slug}", h.Update)
	r.Delete("/{slug}", h.Delete)
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

func decodePlan(w http.ResponseWriter, r *http.Request, log *slog.Logger) (admin.PlanInput, bool) {
	var in admin.PlanInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return in, false
	}
	return in, true
}

// List godoc
// @Summary Все тарифы
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Response
// @Router /v1/admin/plans [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.plans.List")

	plans, err := h.service.ListPlans(r.Context())
	if err != nil {
		httperr.Write(w, r, log, err, "failed to load plans")
		return
	}
	render.JSON(w, r, response.StatusOKWithData(plans))
}

// Create godoc
// @Summary Создать тариф
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body admin.PlanInput true "Тариф"
// @Success 201 {object} response.Response
// @Failure 422 {object} response.ErrorResponse
// @Router /v1/admin/plans [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.plans.Create")

	in, ok := decodePlan(w, r, log)
	if !ok {
		return
	}
	plan, err := h.service.CreatePlan(r.Context(), in)
	if err != nil {
		httperr.Write(w, r, log, err, "Failed to create plan.")
		return
	}
	log.Info("plan created", slog.String("slug", plan.Slug))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(plan))
}

// Update godoc
// @Summary Изменить тариф
// @Tags Admin
// @Accept json
// @Produce json
// @Param slug path string true "Текущий slug тарифа"
// @Param request body admin.PlanInput true "Тариф"
// @Success 200 {object} response.Response
// @Router /v1/admin/plans/{slug} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.plans.Update")

	in, ok := decodePlan(w, r, log)
	if !ok {
		return
	}
	plan, err := h.service.UpdatePlan(r.Context(), chi.URLParam(r, "slug"), in)
	if err != nil {
		httperr.Write(w, r, log, err, "Failed to update plan.")
		return
	}
	render.JSON(w, r, response.StatusOKWithData(plan))
}

// Delete godoc
// @Summary Удалить тариф
// @Tags Admin
// @Produce json
// @Param slug path string true "Slug тарифа"
// @Success 200 {object} response.Response
// @Router /v1/admin/plans/{slug} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.plans.Delete")

	slug := chi.URLParam(r, "slug")
	if err := h.service.DeletePlan(r.Context(), slug); err != nil {
		httperr.Write(w, r, log, err, "Failed to delete plan.")
		return
	}
	log.Info("plan deleted", slog.String("slug", slug))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"slug": slug,
	}))
}
