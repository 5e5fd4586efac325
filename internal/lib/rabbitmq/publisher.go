package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/fintrack-gateway/internal/config"
	"github.com/magabrotheeeer/fintrack-gateway/internal/lib/sl"
)

// PublishMessage публикует JSON-сообщение в exchange.
func PublishMessage(ch *amqp.Channel, exchange, routingKey string, message any) error {
	const op = "rabbitmq.PublishMessage"

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	err = ch.Publish(
		exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Publisher публикует события в один exchange. Без подключения работает как noop.
type Publisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	log      *slog.Logger
}

// NewPublisher подключается к брокеру и объявляет exchange.
// Пустой URL в конфигурации даёт noop publisher.
func NewPublisher(ctx context.Context, cfg config.RabbitMQ, log *slog.Logger) (*Publisher, error) {
	const op = "rabbitmq.NewPublisher"

	p := &Publisher{exchange: cfg.Exchange, log: log}
	if cfg.URL == "" {
		log.Info("rabbitmq url is empty, admin events are not published")
		return p, nil
	}

	conn, err := Connect(ctx, cfg.URL, cfg.MaxRetries, cfg.RetryDelay)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := SetupExchange(conn, cfg.Exchange)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p.conn, p.ch = conn, ch
	return p, nil
}

// Enabled сообщает, подключён ли publisher к брокеру.
func (p *Publisher) Enabled() bool {
	return p.ch != nil
}

// Connection возвращает соединение с брокером или nil для noop publisher.
func (p *Publisher) Connection() *amqp.Connection {
	return p.conn
}

// Publish публикует payload с routing key. Канал amqp не потокобезопасен,
// поэтому публикации сериализуются.
func (p *Publisher) Publish(ctx context.Context, routingKey string, payload any) error {
	if p.ch == nil {
		p.log.Debug("event dropped, publisher disabled", slog.String("routing_key", routingKey))
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return PublishMessage(p.ch, p.exchange, routingKey, payload)
}

// Close закрывает канал и соединение.
func (p *Publisher) Close() error {
	if p.ch == nil {
		return nil
	}
	if err := p.ch.Close(); err != nil {
		p.log.Warn("failed to close rabbitmq channel", sl.Err(err))
	}
	return p.conn.Close()
}
