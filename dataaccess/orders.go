package dataaccess

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"foodconnect/events"
	"foodconnect/models"
	"foodconnect/querycache"
	"foodconnect/realtime"
	"foodconnect/statemachine"
	"foodconnect/store"
)

const adminOverridePrefix = "[ADMIN OVERRIDE] "

type OrderLine struct {
	MenuItemID string `json:"menu_item_id" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required,min=1"`
}

// PlaceOrderInput is a customer's checkout
type PlaceOrderInput struct {
	RestaurantID    string      `json:"restaurant_id" binding:"required"`
	FirstName       string      `json:"first_name" binding:"required"`
	LastName        string      `json:"last_name" binding:"required"`
	Email           string      `json:"email" binding:"required,email"`
	Phone           string      `json:"phone" binding:"required"`
	DeliveryAddress string      `json:"delivery_address" binding:"required"`
	Items           []OrderLine `json:"items" binding:"required,min=1,dive"`
}

type Orders struct {
	base
	now func() time.Time
}

func NewOrders(d Deps) *Orders {
	return &Orders{base: base{d}, now: time.Now}
}

// List returns the restaurant's orders newest first; an unresolved restaurant has none
func (o *Orders) List(ctx context.Context, restaurantID string) ([]models.Order, error) {
	if restaurantID == "" {
		return []models.Order{}, nil
	}
	return querycache.Fetch(ctx, o.Cache, querycache.Key("orders", restaurantID), func(ctx context.Context) ([]models.Order, error) {
		return o.Store.Orders(ctx, store.OrderFilter{RestaurantID: restaurantID})
	})
}

// Get loads one of the restaurant's orders with its status history
func (o *Orders) Get(ctx context.Context, restaurantID, orderID string) (*models.Order, error) {
	order, err := o.Store.OrderWithHistory(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.RestaurantID != restaurantID {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrForbidden)
	}
	return order, nil
}

// SetStatus moves an order of restaurantID to status on behalf of the vendor vendorID
func (o *Orders) SetStatus(ctx context.Context, vendorID, restaurantID, orderID string, status models.OrderStatus, note string) (*models.Order, error) {
	const msg = "Failed to update order status"

	if restaurantID == "" {
		return nil, o.fail(msg, ErrRestaurantRequired, "order_id", orderID)
	}
	if !status.Valid() {
		return nil, o.fail(msg, fmt.Errorf("%w: %q", ErrInvalidStatus, status), "order_id", orderID)
	}
	order, err := o.Store.Order(ctx, orderID)
	if err != nil {
		return nil, o.fail(msg, err, "order_id", orderID)
	}
	if order.RestaurantID != restaurantID {
		return nil, o.fail(msg, ErrForbidden, "order_id", orderID, "restaurant_id", restaurantID)
	}
	if err := statemachine.CanTransition(order.Status, status, statemachine.ActorVendor); err != nil {
		return nil, o.fail(msg, err, "order_id", orderID)
	}
	return o.transition(ctx, msg, order, status, vendorID, note, nil)
}

// Place validates the lines against the live menu, snapshots names and prices, and
// stores the order as pending
func (o *Orders) Place(ctx context.Context, customerID string, in PlaceOrderInput) (*models.Order, error) {
	const msg = "Failed to place order"

	if len(in.Items) == 0 {
		return nil, o.fail(msg, ErrEmptyOrder, "customer_id", customerID)
	}
	restaurant, err := o.Store.RestaurantByID(ctx, in.RestaurantID)
	if err != nil {
		return nil, o.fail(msg, err, "restaurant_id", in.RestaurantID)
	}

	ids := make([]string, 0, len(in.Items))
	for _, line := range in.Items {
		if line.Quantity < 1 {
			return nil, o.fail(msg, ErrInvalidQuantity, "menu_item_id", line.MenuItemID)
		}
		ids = append(ids, line.MenuItemID)
	}
	menu, err := o.Store.MenuItemsByID(ctx, restaurant.ID, ids)
	if err != nil {
		return nil, o.fail(msg, err, "restaurant_id", restaurant.ID)
	}
	byID := make(map[string]models.MenuItem, len(menu))
	for _, item := range menu {
		byID[item.ID] = item
	}

	order := &models.Order{
		UserID:          customerID,
		RestaurantID:    restaurant.ID,
		FirstName:       strings.TrimSpace(in.FirstName),
		LastName:        strings.TrimSpace(in.LastName),
		Email:           strings.TrimSpace(in.Email),
		Phone:           strings.TrimSpace(in.Phone),
		DeliveryAddress: strings.TrimSpace(in.DeliveryAddress),
		Status:          models.StatusPending,
	}
	var total float64
	for _, line := range in.Items {
		item, ok := byID[line.MenuItemID]
		if !ok || !item.IsAvailable {
			return nil, o.fail(msg, fmt.Errorf("%w: %s", ErrItemUnavailable, line.MenuItemID), "restaurant_id", restaurant.ID)
		}
		total += item.Price * float64(line.Quantity)
		order.Items = append(order.Items, models.OrderItem{
			MenuItemID: item.ID,
			Quantity:   line.Quantity,
			Price:      item.Price,
			Name:       item.Name,
		})
	}
	order.TotalAmount = math.Round(total*100) / 100

	err = o.Store.WithTx(ctx, func(tx *store.Store) error {
		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}
		return tx.AddStatusHistory(ctx, &models.OrderStatusHistory{
			OrderID:   order.ID,
			ToStatus:  models.StatusPending,
			ChangedBy: customerID,
			Note:      "Order placed by customer",
		})
	})
	if err != nil {
		return nil, o.fail(msg, err, "restaurant_id", restaurant.ID)
	}

	o.Log.Info("order placed", "order_id", order.ID, "restaurant_id", order.RestaurantID, "total", order.TotalAmount)
	o.invalidateOrder(ctx, order)
	if err := o.Feed.Publish(ctx, "orders", realtime.EventInsert, order, nil); err != nil {
		o.Log.Warn("order insert not published", "order_id", order.ID, "error", err)
	}
	o.export(ctx, events.OrderEvent{
		Type:         events.TypeOrderPlaced,
		OrderID:      order.ID,
		RestaurantID: order.RestaurantID,
		ToStatus:     order.Status,
		TotalAmount:  order.TotalAmount,
		ChangedBy:    customerID,
		Timestamp:    o.now().UTC(),
	})
	return order, nil
}

func (o *Orders) ListForCustomer(ctx context.Context, customerID string) ([]models.Order, error) {
	if customerID == "" {
		return []models.Order{}, nil
	}
	return querycache.Fetch(ctx, o.Cache, querycache.Key("customer-orders", customerID), func(ctx context.Context) ([]models.Order, error) {
		return o.Store.Orders(ctx, store.OrderFilter{UserID: customerID})
	})
}

// GetForCustomer loads an order with history if it belongs to customerID
func (o *Orders) GetForCustomer(ctx context.Context, customerID, orderID string) (*models.Order, error) {
	order, err := o.Store.OrderWithHistory(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != customerID {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrForbidden)
	}
	return order, nil
}

// Cancel is the customer's cancellation, allowed until the kitchen starts preparing
func (o *Orders) Cancel(ctx context.Context, customerID, orderID string) (*models.Order, error) {
	const msg = "Failed to cancel order"

	order, err := o.Store.Order(ctx, orderID)
	if err != nil {
		return nil, o.fail(msg, err, "order_id", orderID)
	}
	if order.UserID != customerID {
		return nil, o.fail(msg, ErrForbidden, "order_id", orderID, "customer_id", customerID)
	}
	if err := statemachine.CanTransition(order.Status, models.StatusCancelled, statemachine.ActorCustomer); err != nil {
		return nil, o.fail(msg, err, "order_id", orderID)
	}
	return o.transition(ctx, msg, order, models.StatusCancelled, customerID, "Order cancelled by customer", nil)
}

// ListAvailableForDrivers returns ready orders nobody has picked up
func (o *Orders) ListAvailableForDrivers(ctx context.Context) ([]models.Order, error) {
	return o.Store.Orders(ctx, store.OrderFilter{Status: models.StatusReady, Unassigned: true})
}

func (o *Orders) ListForDriver(ctx context.Context, driverID string) ([]models.Order, error) {
	if driverID == "" {
		return []models.Order{}, nil
	}
	return o.Store.Orders(ctx, store.OrderFilter{DriverID: driverID})
}

// Pickup assigns the order to driverID and moves it to delivering
func (o *Orders) Pickup(ctx context.Context, driverID, orderID string) (*models.Order, error) {
	const msg = "Failed to pick up order"

	order, err := o.Store.Order(ctx, orderID)
	if err != nil {
		return nil, o.fail(msg, err, "order_id", orderID)
	}
	if order.DriverID != nil {
		return nil, o.fail(msg, ErrAlreadyAssigned, "order_id", orderID)
	}
	if err := statemachine.CanTransition(order.Status, models.StatusDelivering, statemachine.ActorDriver); err != nil {
		return nil, o.fail(msg, err, "order_id", orderID)
	}
	return o.transition(ctx, msg, order, models.StatusDelivering, driverID, "Driver picked up the order",
		map[string]any{"driver_id": driverID})
}

// Deliver completes an order; only the assigned driver may do so
func (o *Orders) Deliver(ctx context.Context, driverID, orderID string) (*models.Order, error) {
	const msg = "Failed to deliver order"

	order, err := o.Store.Order(ctx, orderID)
	if err != nil {
		return nil, o.fail(msg, err, "order_id", orderID)
	}
	if order.DriverID == nil || *order.DriverID != driverID {
		return nil, o.fail(msg, ErrForbidden, "order_id", orderID, "driver_id", driverID)
	}
	if err := statemachine.CanTransition(order.Status, models.StatusCompleted, statemachine.ActorDriver); err != nil {
		return nil, o.fail(msg, err, "order_id", orderID)
	}
	return o.transition(ctx, msg, order, models.StatusCompleted, driverID, "Order delivered to customer", nil)
}

// ForceStatus writes any known status without consulting the state machine. The
// history row is marked as an override.
func (o *Orders) ForceStatus(ctx context.Context, adminID, orderID string, status models.OrderStatus, note string) (*models.Order, error) {
	const msg = "Failed to override order status"

	if !status.Valid() {
		return nil, o.fail(msg, fmt.Errorf("%w: %q", ErrInvalidStatus, status), "order_id", orderID)
	}
	order, err := o.Store.Order(ctx, orderID)
	if err != nil {
		return nil, o.fail(msg, err, "order_id", orderID)
	}
	o.Log.Warn("admin status override", "order_id", orderID, "admin_id", adminID, "from", order.Status, "to", status)
	return o.transition(ctx, msg, order, status, adminID, adminOverridePrefix+note, nil)
}

func (o *Orders) ListAll(ctx context.Context, f store.OrderFilter) ([]models.Order, error) {
	return o.Store.Orders(ctx, f)
}

// transition writes the status change and its history row in one transaction. The
// update is conditional on order.Status, so a concurrent writer yields store.ErrConflict.
func (o *Orders) transition(ctx context.Context, msg string, order *models.Order, to models.OrderStatus, changedBy, note string, extra map[string]any) (*models.Order, error) {
	from := order.Status
	err := o.Store.WithTx(ctx, func(tx *store.Store) error {
		if err := tx.UpdateOrderStatus(ctx, order.ID, from, to, extra); err != nil {
			return err
		}
		return tx.AddStatusHistory(ctx, &models.OrderStatusHistory{
			OrderID:    order.ID,
			FromStatus: from,
			ToStatus:   to,
			ChangedBy:  changedBy,
			Note:       note,
		})
	})
	if err != nil {
		return nil, o.fail(msg, err, "order_id", order.ID, "from", from, "to", to)
	}

	updated, err := o.Store.Order(ctx, order.ID)
	if err != nil {
		return nil, o.fail(msg, err, "order_id", order.ID)
	}

	o.Log.Info("order status changed", "order_id", order.ID, "from", from, "to", to, "changed_by", changedBy)
	o.invalidateOrder(ctx, updated)
	if err := o.Feed.Publish(ctx, "orders", realtime.EventUpdate, updated, order); err != nil {
		o.Log.Warn("order update not published", "order_id", order.ID, "error", err)
	}
	o.export(ctx, events.OrderEvent{
		Type:         events.TypeOrderStatusChanged,
		OrderID:      updated.ID,
		RestaurantID: updated.RestaurantID,
		FromStatus:   from,
		ToStatus:     to,
		TotalAmount:  updated.TotalAmount,
		ChangedBy:    changedBy,
		Timestamp:    o.now().UTC(),
	})
	return updated, nil
}

func (o *Orders) invalidateOrder(ctx context.Context, order *models.Order) {
	o.invalidate(ctx,
		querycache.Key("orders", order.RestaurantID),
		querycache.Key("customer-orders", order.UserID),
		"admin-restaurants:",
	)
}

func (o *Orders) export(ctx context.Context, ev events.OrderEvent) {
	if err := o.Events.PublishOrderEvent(ctx, ev); err != nil {
		o.Log.Warn("order event not exported", "order_id", ev.OrderID, "type", ev.Type, "error", err)
	}
}
