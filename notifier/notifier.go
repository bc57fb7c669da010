// Package notifier turns order inserts on a restaurant's realtime feed into
// vendor-facing notifications.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"foodconnect/models"
	"foodconnect/realtime"
)

const (
	OrdersHref = "/dashboard/orders"
	shortIDLen = 8
)

type Action struct {
	Label string `json:"label"`
	Href  string `json:"href"`
}

// Notification is a transient message for the vendor dashboard
type Notification struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Action      Action  `json:"action"`
	OrderID     string  `json:"order_id"`
	Amount      float64 `json:"amount"`
}

// NewOrderNotification formats the notice shown when order arrives
func NewOrderNotification(order models.Order) Notification {
	short := order.ID
	if len(short) > shortIDLen {
		short = short[:shortIDLen]
	}
	return Notification{
		Title:       "New Order Received!",
		Description: fmt.Sprintf("Order #%s - R%.2f", short, order.TotalAmount),
		Action:      Action{Label: "View", Href: OrdersHref},
		OrderID:     order.ID,
		Amount:      order.TotalAmount,
	}
}

// OrderNotifier holds at most one subscription, for the restaurant last passed to Watch
type OrderNotifier struct {
	sub  realtime.Subscriber
	sink func(Notification)
	log  *slog.Logger

	mu           sync.Mutex
	restaurantID string
	active       realtime.Subscription
}

// New delivers notifications to sink. sink runs on the feed's goroutine and must not call Watch or Close.
func New(sub realtime.Subscriber, sink func(Notification), log *slog.Logger) *OrderNotifier {
	return &OrderNotifier{sub: sub, sink: sink, log: log}
}

// Watch switches the notifier to restaurantID. The same id again is a no-op; ""
// releases the current subscription. Failures are returned, not retried.
func (n *OrderNotifier) Watch(ctx context.Context, restaurantID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if restaurantID == n.restaurantID && (n.active != nil || restaurantID == "") {
		return nil
	}
	n.releaseLocked()
	if restaurantID == "" {
		return nil
	}

	filter := realtime.Filter{Column: "restaurant_id", Value: restaurantID}.String()
	s, err := n.sub.Subscribe(ctx, "orders", realtime.EventInsert, filter, func(c realtime.Change) {
		n.deliver(restaurantID, c)
	})
	if err != nil {
		return fmt.Errorf("subscribe to orders for %s: %w", restaurantID, err)
	}
	n.restaurantID = restaurantID
	n.active = s
	n.log.Info("order notifications active", "restaurant_id", restaurantID)
	return nil
}

// RestaurantID reports the restaurant currently watched, or ""
func (n *OrderNotifier) RestaurantID() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.restaurantID
}

// Close releases the subscription, if any
func (n *OrderNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.releaseLocked()
}

func (n *OrderNotifier) releaseLocked() error {
	if n.active == nil {
		n.restaurantID = ""
		return nil
	}
	err := n.active.Unsubscribe()
	if err != nil {
		n.log.Warn("releasing order subscription failed", "restaurant_id", n.restaurantID, "error", err)
	}
	n.log.Info("order notifications released", "restaurant_id", n.restaurantID)
	n.active = nil
	n.restaurantID = ""
	return err
}

func (n *OrderNotifier) deliver(restaurantID string, c realtime.Change) {
	var order models.Order
	if err := json.Unmarshal(c.New, &order); err != nil {
		n.log.Warn("dropping undecodable order insert", "error", err)
		return
	}
	if order.RestaurantID != restaurantID {
		return
	}
	n.sink(NewOrderNotification(order))
}
