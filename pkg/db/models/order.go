package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mgastelum/freshmart-backend/pkg/enums"
)

// Order is created atomically from a non-empty cart and is immutable
// afterwards except for Status.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	Status          enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	Subtotal        decimal.Decimal     `gorm:"column:subtotal;type:numeric(10,2);not null"`
	ShippingFee     decimal.Decimal     `gorm:"column:shipping_fee;type:numeric(10,2);not null"`
	Total           decimal.Decimal     `gorm:"column:total;type:numeric(10,2);not null"`
	ShippingAddress string              `gorm:"column:shipping_address;not null"`
	PaymentMethod   enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	OrderedAt       time.Time           `gorm:"column:ordered_at;not null"`
	Items           []OrderLineItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
