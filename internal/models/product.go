package models

import "time"

// Product represents a tracked item with its production and expiry dates.
// Dates are stored in canonical YYYY-MM-DD form.
type Product struct {
	ID             string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name           string    `json:"name" gorm:"type:varchar(500);not null"` // HTML-escaped
	ProductionDate string    `json:"production_date" gorm:"type:varchar(10);not null"`
	ExpiryDate     string    `json:"expiry_date" gorm:"type:varchar(10);not null;index"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// NearExpiryItem is a single row of the near-expiry view.
type NearExpiryItem struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ExpiryDate string `json:"expiry_date"`
	DaysLeft   int    `json:"days_left"`
}
