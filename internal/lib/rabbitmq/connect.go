// Package rabbitmq публикует события администрирования в topic exchange
// и читает их обратно для журнала аудита.
package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

// Connect подключается к брокеру, повторяя попытки retries раз с паузой delay.
// Отмена ctx прерывает ожидание между попытками.
func Connect(ctx context.Context, url string, retries int, delay time.Duration) (*amqp.Connection, error) {
	const op = "rabbitmq.Connect"

	if retries < 1 {
		retries = 1
	}
	var err error
	for attempt := 0; attempt < retries; attempt++ {
		var conn *amqp.Connection
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		if attempt == retries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("%s: %w", op, err)
}

// SetupExchange открывает канал и объявляет durable topic exchange.
func SetupExchange(conn *amqp.Connection, exchange string) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupExchange"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	err = ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ch, nil
}

// QueueConfig очередь и шаблон routing key, которым она привязана к exchange.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// AuditQueue очередь журнала аудита, получает все события admin.*.*.
func AuditQueue(name string) QueueConfig {
	return QueueConfig{QueueName: name, RoutingKey: "admin.#"}
}

// BindQueue объявляет durable очередь и привязывает её к exchange.
func BindQueue(ch *amqp.Channel, exchange string, q QueueConfig) error {
	const op = "rabbitmq.BindQueue"

	if _, err := ch.QueueDeclare(q.QueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("%s: failed to declare queue %s: %w", op, q.QueueName, err)
	}
	if err := ch.QueueBind(q.QueueName, q.RoutingKey, exchange, false, nil); err != nil {
		return fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w", op, q.QueueName, q.RoutingKey, err)
	}
	return nil
}
