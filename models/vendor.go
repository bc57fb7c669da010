package models

import "time"

// VendorProfile is keyed by the vendor's user id and edited apart from the Restaurant
type VendorProfile struct {
	ID           string    `json:"id" gorm:"primaryKey;type:text"`
	BusinessName string    `json:"business_name" gorm:"not null"`
	Description  *string   `json:"description"`
	LogoURL      *string   `json:"logo_url"`
	ContactEmail *string   `json:"contact_email"`
	ContactPhone *string   `json:"contact_phone"`
	Address      *string   `json:"address"`
	Website      *string   `json:"website"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
