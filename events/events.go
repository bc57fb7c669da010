package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"foodconnect/models"

	"github.com/segmentio/kafka-go"
)

const (
	TypeOrderPlaced        = "order_placed"
	TypeOrderStatusChanged = "order_status_changed"
)

// OrderEvent is the message exported for every order lifecycle change
type OrderEvent struct {
	Type         string             `json:"type"`
	OrderID      string             `json:"order_id"`
	RestaurantID string             `json:"restaurant_id"`
	FromStatus   models.OrderStatus `json:"from_status,omitempty"`
	ToStatus     models.OrderStatus `json:"to_status"`
	TotalAmount  float64            `json:"total_amount"`
	ChangedBy    string             `json:"changed_by"`
	Timestamp    time.Time          `json:"timestamp"`
}

// MessageWriter is the part of *kafka.Writer the publisher needs
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Publisher interface {
	PublishOrderEvent(ctx context.Context, ev OrderEvent) error
}

type KafkaPublisher struct {
	Writer MessageWriter
}

func NewKafkaPublisher(writer MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{Writer: writer}
}

// PublishOrderEvent keys messages by restaurant so one storefront's events stay ordered
func (p *KafkaPublisher) PublishOrderEvent(ctx context.Context, ev OrderEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode order event: %w", err)
	}
	return p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.RestaurantID),
		Value: payload,
		Time:  ev.Timestamp,
	})
}

// Nop drops events when no broker is configured
type Nop struct{}

func (Nop) PublishOrderEvent(context.Context, OrderEvent) error { return nil }
