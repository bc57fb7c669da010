package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderStatus represents all possible states of a food delivery order
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusAccepted   OrderStatus = "accepted"
	StatusPreparing  OrderStatus = "preparing"
	StatusReady      OrderStatus = "ready"
	StatusDelivering OrderStatus = "delivering"
	StatusCompleted  OrderStatus = "completed"
	StatusCancelled  OrderStatus = "cancelled"
)

// OrderStatuses lists the lifecycle in display order, cancelled last
var OrderStatuses = []OrderStatus{
	StatusPending,
	StatusAccepted,
	StatusPreparing,
	StatusReady,
	StatusDelivering,
	StatusCompleted,
	StatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if known == s {
			return true
		}
	}
	return false
}

type Order struct {
	ID              string               `json:"id" gorm:"primaryKey;type:text"`
	UserID          string               `json:"user_id" gorm:"index;not null"`
	RestaurantID    string               `json:"restaurant_id" gorm:"index;not null"`
	DriverID        *string              `json:"driver_id"`
	FirstName       string               `json:"first_name" gorm:"not null"`
	LastName        string               `json:"last_name" gorm:"not null"`
	Email           string               `json:"email" gorm:"not null"`
	Phone           string               `json:"phone" gorm:"not null"`
	DeliveryAddress string               `json:"delivery_address" gorm:"not null"`
	TotalAmount     float64              `json:"total_amount" gorm:"not null"`
	Status          OrderStatus          `json:"status" gorm:"not null;default:'pending'"`
	Items           []OrderItem          `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	StatusHistory   []OrderStatusHistory `json:"status_history,omitempty" gorm:"foreignKey:OrderID"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = StatusPending
	}
	return nil
}

type OrderItem struct {
	ID         string  `json:"id" gorm:"primaryKey;type:text"`
	OrderID    string  `json:"order_id" gorm:"index;not null"`
	MenuItemID string  `json:"menu_item_id" gorm:"not null"`
	Quantity   int     `json:"quantity" gorm:"not null"`
	Price      float64 `json:"price" gorm:"not null"` // snapshot price at time of order
	Name       string  `json:"name"`                  // snapshot name
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// OrderStatusHistory tracks every status change
type OrderStatusHistory struct {
	ID         string      `json:"id" gorm:"primaryKey;type:text"`
	OrderID    string      `json:"order_id" gorm:"index;not null"`
	FromStatus OrderStatus `json:"from_status"`
	ToStatus   OrderStatus `json:"to_status" gorm:"not null"`
	ChangedBy  string      `json:"changed_by"` // user ID who triggered the transition
	Note       string      `json:"note"`
	CreatedAt  time.Time   `json:"created_at"`
}

func (h *OrderStatusHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	return nil
}
