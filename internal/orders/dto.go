package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mgastelum/freshmart-backend/pkg/db/models"
	"github.com/mgastelum/freshmart-backend/pkg/enums"
)

// LineDTO is the transport shape of an order line snapshot.
type LineDTO struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// OrderDTO is the transport shape for order reads.
type OrderDTO struct {
	ID              uuid.UUID           `json:"id"`
	UserID          uuid.UUID           `json:"user_id"`
	Status          enums.OrderStatus   `json:"status"`
	Subtotal        decimal.Decimal     `json:"subtotal"`
	ShippingFee     decimal.Decimal     `json:"shipping_fee"`
	Total           decimal.Decimal     `json:"total"`
	ShippingAddress string              `json:"shipping_address"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method"`
	OrderedAt       time.Time           `json:"ordered_at"`
	Items           []LineDTO           `json:"items"`
}

// ListResult carries a page of orders plus the cursor for the next page.
type ListResult struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// Actor identifies who is asking for an order operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.MemberRole
}

// IsManager reports whether the actor holds the back-office role.
func (a Actor) IsManager() bool {
	return a.Role == enums.MemberRoleManager
}

func FromModel(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}
	items := make([]LineDTO, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, LineDTO{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal,
		})
	}
	return &OrderDTO{
		ID:              o.ID,
		UserID:          o.UserID,
		Status:          o.Status,
		Subtotal:        o.Subtotal,
		ShippingFee:     o.ShippingFee,
		Total:           o.Total,
		ShippingAddress: o.ShippingAddress,
		PaymentMethod:   o.PaymentMethod,
		OrderedAt:       o.OrderedAt,
		Items:           items,
	}
}

func fromModels(rows []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}
