package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher публикует JSON в обменник по ключу маршрутизации.
type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// AMQP отправляет уведомления в шину с ключом notification.<type>.
type AMQP struct{ pub Publisher }

func NewAMQP(pub Publisher) *AMQP { return &AMQP{pub: pub} }

func RoutingKey(t Type) string {
	return "notification." + strings.ToLower(string(t))
}

func (a *AMQP) Notify(ctx context.Context, n Notification) error {
	if err := a.pub.PublishJSON(ctx, RoutingKey(n.Type), n); err != nil {
		return fmt.Errorf("publish %s: %w", n.Type, err)
	}
	return nil
}

// RabbitPublisher — Publisher поверх amqp091 с topic-обменником.
type RabbitPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func DialRabbit(url, exchange string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &RabbitPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *RabbitPublisher) PublishJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         b,
	})
}

func (p *RabbitPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
