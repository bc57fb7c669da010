package store

import (
	"context"

	"foodconnect/models"

	"gorm.io/gorm"
)

// OrderFilter narrows admin and driver listings
type OrderFilter struct {
	Status       models.OrderStatus
	RestaurantID string
	UserID       string
	DriverID     string
	Unassigned   bool
}

func (s *Store) CreateOrder(ctx context.Context, o *models.Order) error {
	return translate(s.db.WithContext(ctx).Create(o).Error, "create order")
}

func (s *Store) Order(ctx context.Context, id string) (*models.Order, error) {
	var o models.Order
	err := s.db.WithContext(ctx).Preload("Items").First(&o, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "order "+id)
	}
	return &o, nil
}

// OrderWithHistory also loads the audit trail, oldest first
func (s *Store) OrderWithHistory(ctx context.Context, id string) (*models.Order, error) {
	var o models.Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc") }).
		First(&o, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "order "+id)
	}
	return &o, nil
}

// Orders lists newest first
func (s *Store) Orders(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	orders := []models.Order{}
	q := s.db.WithContext(ctx).Preload("Items")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.RestaurantID != "" {
		q = q.Where("restaurant_id = ?", f.RestaurantID)
	}
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.DriverID != "" {
		q = q.Where("driver_id = ?", f.DriverID)
	}
	if f.Unassigned {
		q = q.Where("driver_id IS NULL")
	}
	err := q.Order("created_at desc").Find(&orders).Error
	return orders, translate(err, "list orders")
}

// UpdateOrderStatus writes status (and any extra columns) only if the row still holds from
func (s *Store) UpdateOrderStatus(ctx context.Context, id string, from, to models.OrderStatus, extra map[string]any) error {
	updates := map[string]any{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return translate(res.Error, "update order status")
	}
	if res.RowsAffected == 0 {
		return translate(ErrConflict, "order "+id+" left status "+string(from))
	}
	return nil
}

func (s *Store) AddStatusHistory(ctx context.Context, h *models.OrderStatusHistory) error {
	return translate(s.db.WithContext(ctx).Create(h).Error, "record status history")
}
