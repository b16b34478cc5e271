package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mgastelum/freshmart-backend/pkg/enums"
)

// CartItem persists a product snapshot tied to a Cart. At most one row
// per (cart_id, product_id).
type CartItem struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID       uuid.UUID             `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:idx_cart_product"`
	ProductID    uuid.UUID             `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_cart_product"`
	Name         string                `gorm:"column:name;not null"`
	Price        decimal.Decimal       `gorm:"column:price;type:numeric(10,2);not null"`
	Category     enums.ProductCategory `gorm:"column:category;type:text;not null"`
	ImageURL     string                `gorm:"column:image_url;not null;default:''"`
	Quantity     int                   `gorm:"column:quantity;not null"`
	LineSubtotal decimal.Decimal       `gorm:"column:line_subtotal;type:numeric(10,2);not null"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
