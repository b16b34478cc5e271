package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mgastelum/freshmart-backend/pkg/db/models"
	"github.com/mgastelum/freshmart-backend/pkg/enums"
	"github.com/mgastelum/freshmart-backend/pkg/pagination"
)

// ProductDTO is the transport shape for catalog reads.
type ProductDTO struct {
	ID        uuid.UUID             `json:"id"`
	Name      string                `json:"name"`
	Price     decimal.Decimal       `json:"price"`
	Category  enums.ProductCategory `json:"category"`
	ImageURL  string                `json:"image_url"`
	IsActive  bool                  `json:"is_active"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// ListFilters describe the supported filter knobs for the browse endpoint.
type ListFilters struct {
	Category *enums.ProductCategory `json:"category,omitempty"`
	Query    string                 `json:"q,omitempty"`
}

// ListInput captures the inputs needed to paginate/filter the catalog.
type ListInput struct {
	Filters         ListFilters
	Pagination      pagination.Params
	IncludeInactive bool
}

// ListResult carries a page of products plus the cursor for the next page.
type ListResult struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// CreateProductInput holds the fields a manager supplies for a new listing.
type CreateProductInput struct {
	Name     string                `json:"name" validate:"required,min=1,max=200"`
	Price    string                `json:"price" validate:"required"`
	Category enums.ProductCategory `json:"category" validate:"required"`
	ImageURL string                `json:"image_url" validate:"omitempty,max=500"`
}

// UpdateProductInput carries optional fields for a partial product update.
type UpdateProductInput struct {
	Name     *string                `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Price    *string                `json:"price,omitempty"`
	Category *enums.ProductCategory `json:"category,omitempty"`
	ImageURL *string                `json:"image_url,omitempty" validate:"omitempty,max=500"`
	IsActive *bool                  `json:"is_active,omitempty"`
}

func FromModel(p *models.Product) *ProductDTO {
	if p == nil {
		return nil
	}
	return &ProductDTO{
		ID:        p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Category:  p.Category,
		ImageURL:  p.ImageURL,
		IsActive:  p.IsActive,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func fromModels(rows []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}
