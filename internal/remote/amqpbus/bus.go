// Package amqpbus carries collection snapshots over RabbitMQ. Snapshots
// are published to a topic exchange with an owner.account.kind routing key;
// each subscription gets its own auto-deleted queue bound to that key.
package amqpbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"fintrack/internal/core"
	"fintrack/internal/remote"
)

type Bus struct {
	conn     *amqp091.Connection
	pub      *amqp091.Channel
	exchange string

	mu     sync.Mutex
	closed bool
}

var _ remote.Bus = (*Bus)(nil)

func New(url, exchange string) (*Bus, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	pub, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := pub.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		pub.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &Bus{conn: conn, pub: pub, exchange: exchange}, nil
}

func routingKey(owner, accountID string, kind core.EntityKind) string {
	return fmt.Sprintf("%s.%s.%s", owner, accountID, kind)
}

func (b *Bus) PublishSnapshot(ctx context.Context, s remote.Snapshot) error {
	body, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = b.pub.PublishWithContext(
		ctx,
		b.exchange,
		routingKey(s.Owner, s.BankAccountID, s.Kind),
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}

	slog.DebugContext(ctx, "Published collection snapshot",
		"owner", s.Owner,
		"account_id", s.BankAccountID,
		"kind", s.Kind,
		"exchange", b.exchange)

	return nil
}

func (b *Bus) Subscribe(owner, accountID string, kind core.EntityKind, fn remote.SnapshotHandler) (remote.Unsubscribe, error) {
	ch, err := b.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open subscription channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // auto-delete
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare subscription queue: %w", err)
	}

	key := routingKey(owner, accountID, kind)
	if err := ch.QueueBind(q.Name, key, b.exchange, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("bind subscription queue: %w", err)
	}

	deliveries, err := ch.Consume(
		q.Name,
		"",    // consumer tag
		false, // auto-ack
		true,  // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("start consuming: %w", err)
	}

	go func() {
		for delivery := range deliveries {
			var snap remote.Snapshot
			if err := json.Unmarshal(delivery.Body, &snap); err != nil {
				slog.Error("Failed to unmarshal snapshot, dropping", "error", err, "key", key)
				delivery.Nack(false, false)
				continue
			}
			fn(snap)
			delivery.Ack(false)
		}
		slog.Debug("Snapshot subscription channel closed", "key", key)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := ch.Close(); err != nil {
				slog.Warn("Failed to close subscription channel", "error", err, "key", key)
			}
		})
	}, nil
}

func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	if b.pub != nil {
		b.pub.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}
