package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mgastelum/freshmart-backend/pkg/enums"
)

// Product represents a catalog listing. The cart and orders treat it as
// read-only and snapshot its fields at add time.
type Product struct {
	ID        uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string                `gorm:"column:name;not null"`
	Price     decimal.Decimal       `gorm:"column:price;type:numeric(10,2);not null"`
	Category  enums.ProductCategory `gorm:"column:category;type:text;not null"`
	ImageURL  string                `gorm:"column:image_url;not null;default:''"`
	IsActive  bool                  `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
