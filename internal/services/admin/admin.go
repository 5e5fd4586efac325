// Package admin синхронизирует данные административной консоли с внешним API:
// загружает и нормализует пользователей, платежи и тарифы, а изменения
// сначала применяет к кешу запросов и откатывает при ошибке сервера.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/fintrack-gateway/internal/apiclient"
	"github.com/magabrotheeeer/fintrack-gateway/internal/cache"
	"github.com/magabrotheeeer/fintrack-gateway/internal/lib/sl"
	"github.com/magabrotheeeer/fintrack-gateway/internal/metrics"
)

// Области кеша запросов.
const (
	ScopeUsers       = "admin/users"
	ScopeUserProfile = "admin/users/profile"
	ScopePayments    = "admin/payments"
	ScopePlans       = "admin/plans"
	ScopePublicPlans = "plans/all"
	ScopeMyPlan      = "plans/current"
)

const (
	usersStaleTime    = 30 * time.Second
	paymentsStaleTime = 15 * time.Second
	plansStaleTime    = 30 * time.Second
)

// ErrInvalidInput входные данные операции не прошли проверку.
var ErrInvalidInput = errors.New("invalid input")

// API внешний REST API.
type API interface {
	Get(ctx context.Context, path string) (any, error)
	Send(ctx context.Context, method, path string, body any) (any, error)
}

// Publisher публикует события о подтверждённых изменениях.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// Event событие административного изменения, routing key admin.<entity>.<action>.
type Event struct {
	Type       string    `json:"type"`
	EntityID   string    `json:"entityId"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data,omitempty"`
}

// MutationError ошибка изменения с сообщением для пользователя.
type MutationError struct {
	Message string
	Err     error
}

func (e *MutationError) Error() string { return e.Message }

func (e *MutationError) Unwrap() error { return e.Err }

// Synchronizer сервис синхронизации административных данных.
type Synchronizer struct {
	api       API
	cache     *cache.QueryCache
	publisher Publisher
	validate  *validator.Validate
	log       *slog.Logger
	now       func() time.Time
	newID     func() string
}

// New создаёт Synchronizer. publisher может быть nil, тогда события не публикуются.
func New(api API, qc *cache.QueryCache, publisher Publisher, log *slog.Logger) *Synchronizer {
	return &Synchronizer{
		api:       api,
		cache:     qc,
		publisher: publisher,
		validate:  newValidator(),
		log:       log,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// mutation описывает одно изменение: оптимистичную запись, вызов API,
// сверку кеша с ответом и набор ключей для инвалидации.
type mutation[R any] struct {
	entity     string
	action     string
	fallback   string
	optimistic func(ctx context.Context) (*cache.Snapshot, error)
	call       func(ctx context.Context) (R, error)
	reconcile  func(ctx context.Context, result R) error
	invalidate cache.Matcher
	settled    func(ctx context.Context)
	entityID   func(result R) string
}

// runMutation выполняет изменение: оптимистичная запись, вызов, сверка или точный
// откат, затем инвалидация в любом случае.
func runMutation[R any](ctx context.Context, s *Synchronizer, m mutation[R]) (R, error) {
	const op = "admin.runMutation"

	log := s.log.With(
		slog.String("op", op),
		slog.String("entity", m.entity),
		slog.String("action", m.action),
	)
	// Откат и инвалидация должны пройти даже после отмены запроса.
	bg := context.WithoutCancel(ctx)

	defer func() {
		if m.invalidate != nil {
			s.cache.Invalidate(m.invalidate)
		}
		if m.settled != nil {
			m.settled(bg)
		}
	}()

	var snap *cache.Snapshot
	if m.optimistic != nil {
		var err error
		snap, err = m.optimistic(ctx)
		if err != nil {
			log.Warn("failed to apply optimistic update", sl.Err(err))
		}
	}

	result, err := m.call(ctx)
	if err != nil {
		if rbErr := s.cache.Rollback(bg, snap); rbErr != nil {
			log.Error("failed to roll back optimistic update", sl.Err(rbErr))
		}
		metrics.AdminMutations.WithLabelValues(m.entity, m.action, "failed").Inc()
		log.Info("mutation rejected", sl.Err(err))
		var zero R
		return zero, &MutationError{Message: apiclient.ErrorMessage(err, m.fallback), Err: err}
	}

	if m.reconcile != nil {
		if err := m.reconcile(bg, result); err != nil {
			log.Warn("failed to reconcile cache", sl.Err(err))
		}
	}
	metrics.AdminMutations.WithLabelValues(m.entity, m.action, "succeeded").Inc()

	var id string
	if m.entityID != nil {
		id = m.entityID(result)
	}
	s.publish(bg, m.entity, m.action, id, result)
	return result, nil
}

func (s *Synchronizer) publish(ctx context.Context, entity, action, id string, data any) {
	if s.publisher == nil {
		return
	}
	routingKey := fmt.Sprintf("admin.%s.%s", entity, action)
	event := Event{Type: routingKey, EntityID: id, OccurredAt: s.now().UTC(), Data: data}
	if err := s.publisher.Publish(ctx, routingKey, event); err != nil {
		s.log.Warn("failed to publish admin event", slog.String("routing_key", routingKey), sl.Err(err))
	}
}

// checkInput проверяет структуру валидатором и оборачивает нарушения в MutationError.
func (s *Synchronizer) checkInput(in any, fallback string) error {
	if err := s.validate.Struct(in); err != nil {
		return &MutationError{Message: apiclient.ErrorMessage(err, fallback), Err: err}
	}
	return nil
}

func invalidInput(msg string) error {
	return &MutationError{Message: msg, Err: ErrInvalidInput}
}

// IsInvalidInput сообщает, отклонено ли изменение до обращения к API.
func IsInvalidInput(err error) bool {
	var verrs validator.ValidationErrors
	return errors.Is(err, ErrInvalidInput) || errors.As(err, &verrs)
}
