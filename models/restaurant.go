package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Restaurant struct {
	ID           string    `json:"id" gorm:"primaryKey;type:text"`
	UserID       string    `json:"user_id" gorm:"uniqueIndex;not null"` // one storefront per vendor
	Name         string    `json:"name" gorm:"not null"`
	CuisineType  string    `json:"cuisine_type"`
	Image        string    `json:"image"`
	DeliveryTime string    `json:"delivery_time"`
	DeliveryFee  string    `json:"delivery_fee"`
	Address      string    `json:"address"`
	Rating       float64   `json:"rating" gorm:"default:0"`
	Featured     bool      `json:"featured" gorm:"default:false"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (r *Restaurant) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// MenuCategories is the fixed category vocabulary for menu items
var MenuCategories = []string{
	"Appetizers",
	"Main Course",
	"Desserts",
	"Beverages",
	"Sides",
	"Specials",
}

// IsMenuCategory reports whether c belongs to MenuCategories
func IsMenuCategory(c string) bool {
	for _, known := range MenuCategories {
		if known == c {
			return true
		}
	}
	return false
}

type MenuItem struct {
	ID           string    `json:"id" gorm:"primaryKey;type:text"`
	RestaurantID string    `json:"restaurant_id" gorm:"index;not null"`
	VendorID     string    `json:"vendor_id" gorm:"index;not null"`
	Name         string    `json:"name" gorm:"not null"`
	Description  *string   `json:"description"`
	Price        float64   `json:"price" gorm:"not null"`
	Category     *string   `json:"category"`
	ImageURL     *string   `json:"image_url"`
	IsAvailable  bool      `json:"is_available" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (m *MenuItem) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
