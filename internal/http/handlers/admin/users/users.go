// Package users реализует HTTP-обработчики управления пользователями консоли.
//
// Обработчики разбирают параметры запроса, вызывают синхронизатор и возвращают
// результат в конверте response. Ошибки переводятся в коды через httperr.
package users

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/fintrack-gateway/internal/http/handlers/httperr"
	"github.com/magabrotheeeer/fintrack-gateway/internal/http/response"
	"github.com/magabrotheeeer/fintrack-gateway/internal/lib/sl"
	"github.com/magabrotheeeer/fintrack-gateway/internal/models"
	"github.com/magabrotheeeer/fintrack-gateway/internal/services/admin"
)

// Service операции синхронизатора над пользователями.
type Service interface {
	ListUsers(ctx context.Context, f models.UserFilter) (models.ListResult[models.AdminUser], error)
	UserProfile(ctx context.Context, id string) (models.AdminUser, error)
	CreateUser(ctx context.Context, in admin.CreateUserInput) (models.AdminUser, error)
	UpdateUser(ctx context.Context, id string, updates map[string]any) (models.AdminUser, error)
	UpdateUserStatus(ctx context.Context, id, status string) (models.AdminUser, error)
	ResetUserPassword(ctx context.Context, id, redirectURI string) (any, error)
}

// Handler набор обработчиков /admin/users.
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
	r.Get("/{id}", h.Get)
	r.Patch("/{id}", h.Update)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Post("/{id}/reset-password", h.ResetPassword)
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

func decode(w http.ResponseWriter, r *http.Request, log *slog.Logger, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return false
	}
	return true
}

func queryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return n
}

// List godoc
// @Summary Список пользователей
// @Tags Admin
// @Produce json
// @Param search query string false "Поиск по имени и email"
// @Param status query string false "Статус аккаунта"
// @Param page query int false "Страница"
// @Param limit query int false "Размер страницы"
// @Success 200 {object} response.Response
// @Failure 502 {object} response.ErrorResponse
// @Router /v1/admin/users [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.users.List")

	q := r.URL.Query()
	filter := models.UserFilter{
		Search: q.Get("search"),
		Status: q.Get("status"),
		Page:   queryInt(r, "page"),
		Limit:  queryInt(r, "limit"),
	}
	res, err := h.service.ListUsers(r.Context(), filter)
	if err != nil {
		httperr.Write(w, r, log, err, "failed to load users")
		return
	}
	render.JSON(w, r, response.StatusOKWithData(res))
}

// Get godoc
// @Summary Профиль пользователя
// @Tags Admin
// @Produce json
// @Param id path string true "ID пользователя"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Router /v1/admin/users/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.users.Get")

	user, err := h.service.UserProfile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httperr.Write(w, r, log, err, "failed to load user")
		return
	}
	render.JSON(w, r, response.StatusOKWithData(user))
}

// Create godoc
// @Summary Создать пользователя
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body admin.CreateUserInput true "Данные пользователя"
// @Success 201 {object} response.Response
// @Failure 422 {object} response.ErrorResponse
// @Router /v1/admin/users [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.users.Create")

	var in admin.CreateUserInput
	if !decode(w, r, log, &in) {
		return
	}
	user, err := h.service.CreateUser(r.Context(), in)
	if err != nil {
		httperr.Write(w, r, log, err, "Failed to create user.")
		return
	}
	log.Info("user created", slog.String("id", user.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(user))
}

// Update godoc
// @Summary Изменить пользователя
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "ID пользователя"
// @Success 200 {object} response.Response
// @Router /v1/admin/users/{id} [patch]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.users.Update")

	var updates map[string]any
	if !decode(w, r, log, &updates) {
		return
	}
	user, err := h.service.UpdateUser(r.Context(), chi.URLParam(r, "id"), updates)
	if err != nil {
		httperr.Write(w, r, log, err, "Failed to update user.")
		return
	}
	render.JSON(w, r, response.StatusOKWithData(user))
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus godoc
// @Summary Изменить статус аккаунта
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "ID пользователя"
// @Success 200 {object} response.Response
// @Router /v1/admin/users/{id}/status [patch]
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.users.UpdateStatus")

	var req statusRequest
	if !decode(w, r, log, &req) {
		return
	}
	user, err := h.service.UpdateUserStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		httperr.Write(w, r, log, err, "Failed to update user status.")
		return
	}
	render.JSON(w, r, response.StatusOKWithData(user))
}

type resetRequest struct {
	RedirectURI string `json:"redirectUri"`
}

// ResetPassword godoc
// @Summary Отправить ссылку сброса пароля
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "ID пользователя"
// @Success 200 {object} response.Response
// @Router /v1/admin/users/{id}/reset-password [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.users.ResetPassword")

	var req resetRequest
	if r.ContentLength != 0 && !decode(w, r, log, &req) {
		return
	}
	res, err := h.service.ResetUserPassword(r.Context(), chi.URLParam(r, "id"), req.RedirectURI)
	if err != nil {
		httperr.Write(w, r, log, err, "Failed to send password reset.")
		return
	}
	render.JSON(w, r, response.StatusOKWithData(res))
}
