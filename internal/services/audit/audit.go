// Package audit ведёт журнал административных изменений по событиям из RabbitMQ.
package audit

import (
	"encoding/json"
	"log/slog"

	"github.com/magabrotheeeer/fintrack-gateway/internal/lib/sl"
	"github.com/magabrotheeeer/fintrack-gateway/internal/metrics"
	"github.com/magabrotheeeer/fintrack-gateway/internal/services/admin"
)

// Service пишет события в структурированный лог.
type Service struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Service {
	return &Service{log: log}
}

// Handle разбирает событие и пишет его в журнал. Повреждённое сообщение
// подтверждается и отбрасывается.
func (s *Service) Handle(routingKey string, body []byte) error {
	const op = "audit.Handle"

	log := s.log.With(slog.String("op", op), slog.String("routing_key", routingKey))

	var event admin.Event
	if err := json.Unmarshal(body, &event); err != nil {
		log.Warn("dropping malformed admin event", sl.Err(err))
		return nil
	}
	metrics.AuditEvents.WithLabelValues(routingKey).Inc()
	log.Info("admin event",
		slog.String("type", event.Type),
		slog.String("entity_id", event.EntityID),
		slog.Time("occurred_at", event.OccurredAt),
	)
	return nil
}
