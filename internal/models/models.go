package models

import (
	"time"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
	RoleDelivery = "delivery"
)

const (
	DeliveryTypePickup   = "pickup"
	DeliveryTypeDelivery = "delivery"
)

// CancelledBy tags who asked for the cancellation.
const (
	CancelSourceCustomer = "customer"
	CancelSourceAdmin    = "admin"
)

type Order struct {
	ID           string      `gorm:"primaryKey;size:36"        json:"id"`
	UserID       *string     `gorm:"index;size:36"             json:"user_id"`
	ClientName   string      `gorm:"not null"                  json:"client_name"`
	ClientPhone  string      `json:"client_phone"`
	Items        []OrderItem `gorm:"foreignKey:OrderID"        json:"items"`
	Subtotal     float64     `gorm:"not null"                  json:"subtotal"`
	Shipping     float64     `json:"shipping"`
	Total        float64     `gorm:"not null"                  json:"total"`
	DeliveryType string      `gorm:"not null"                  json:"delivery_type"`
	Lat          *float64    `json:"lat"`
	Lng          *float64    `json:"lng"`
	Observations string      `json:"observations"`
	Status       string      `gorm:"not null;index"            json:"status"`
	DeliveryID   *string     `gorm:"index;size:36"             json:"delivery_id"`
	CancelReason *string     `json:"cancel_reason"`
	CancelledBy  *string     `json:"cancelled_by"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

type OrderItem struct {
	ID        uint    `gorm:"primaryKey;autoIncrement"  json:"id"`
	OrderID   string  `gorm:"index;size:36;not null"    json:"-"`
	Position  int     `gorm:"not null"                  json:"-"`
	ProductID string  `gorm:"size:36;not null"          json:"product_id"`
	Name      string  `gorm:"not null"                  json:"name"`
	UnitPrice float64 `gorm:"not null"                  json:"unit_price"`
	Quantity  uint    `gorm:"not null;check:quantity>0" json:"quantity"`
}

type Profile struct {
	ID             string     `gorm:"primaryKey;size:36" json:"id"`
	Role           string     `gorm:"not null;index"     json:"role"`
	FirstName      string     `json:"first_name"`
	Phone          string     `json:"phone"`
	AccessCodeHash string     `json:"-"`
	ActiveOrderID  *string    `gorm:"size:36"            json:"active_order_id"`
	LastLat        *float64   `json:"last_lat"`
	LastLng        *float64   `json:"last_lng"`
	LastSeenAt     *time.Time `json:"last_seen_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// PushSubscription is one browser endpoint of one device. Rows are never
// hard-deleted, only disabled, so the delivery history stays auditable.
type PushSubscription struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     string    `gorm:"index;size:36;not null"   json:"user_id"`
	Role       string    `gorm:"not null"                 json:"role"`
	Endpoint   string    `gorm:"uniqueIndex;not null"     json:"endpoint"`
	P256dhKey  string    `gorm:"not null"                 json:"-"`
	AuthKey    string    `gorm:"not null"                 json:"-"`
	UserAgent  string    `json:"user_agent"`
	Enabled    bool      `gorm:"default:true;index"       json:"enabled"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
