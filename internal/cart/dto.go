package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mgastelum/freshmart-backend/pkg/enums"
)

// Identity pins a cart operation to its owner: an authenticated user,
// an anonymous session, or both during the login handoff.
type Identity struct {
	UserID    *uuid.UUID
	SessionID string
}

// IsAuthenticated reports whether the identity carries a real user.
func (i Identity) IsAuthenticated() bool {
	return i.UserID != nil && *i.UserID != uuid.Nil
}

// WarningKind labels the non-fatal degradations a mutation can report.
type WarningKind string

const (
	// WarningPersistenceDegraded means the durable cart write failed and
	// only the session copy holds the mutation.
	WarningPersistenceDegraded WarningKind = "persistence_degraded"
)

// Warning surfaces a swallowed persistence failure to the caller
// instead of hiding it.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
}

// LineDTO is the transport shape of a single cart line.
type LineDTO struct {
	ProductID    uuid.UUID             `json:"product_id"`
	Name         string                `json:"name"`
	Price        decimal.Decimal       `json:"price"`
	Category     enums.ProductCategory `json:"category"`
	ImageURL     string                `json:"image_url"`
	Quantity     int                   `json:"quantity"`
	LineSubtotal decimal.Decimal       `json:"line_subtotal"`
}

// CartDTO is the full cart rendered for clients.
type CartDTO struct {
	Items []LineDTO       `json:"items"`
	Total decimal.Decimal `json:"total"`
}

// SummaryDTO is the lightweight badge payload.
type SummaryDTO struct {
	LineCount int             `json:"line_count"`
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
}

// MutationResult is returned by add/remove/clear operations.
type MutationResult struct {
	Cart    CartDTO  `json:"cart"`
	Warning *Warning `json:"warning,omitempty"`
}

// UpdateQuantityResult reports whether the targeted line existed.
type UpdateQuantityResult struct {
	Updated bool     `json:"updated"`
	Cart    CartDTO  `json:"cart"`
	Warning *Warning `json:"warning,omitempty"`
}

// RemoveItemResult reports whether a line was removed and its name.
type RemoveItemResult struct {
	Removed     bool     `json:"removed"`
	RemovedName string   `json:"removed_name,omitempty"`
	Cart        CartDTO  `json:"cart"`
	Warning     *Warning `json:"warning,omitempty"`
}

// line is the in-memory working shape shared by both cart backends.
type line struct {
	ProductID uuid.UUID             `json:"product_id"`
	Name      string                `json:"name"`
	Price     decimal.Decimal       `json:"price"`
	Category  enums.ProductCategory `json:"category"`
	ImageURL  string                `json:"image_url"`
	Quantity  int                   `json:"quantity"`
}

func (l line) subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type cartState struct {
	Lines []line `json:"lines"`
}

func (c *cartState) find(productID uuid.UUID) *line {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return &c.Lines[i]
		}
	}
	return nil
}

func (c *cartState) remove(productID uuid.UUID) (string, bool) {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			name := c.Lines[i].Name
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return name, true
		}
	}
	return "", false
}

func (c *cartState) total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.subtotal())
	}
	return total
}

func (c *cartState) toDTO() CartDTO {
	items := make([]LineDTO, 0, len(c.Lines))
	for _, l := range c.Lines {
		items = append(items, LineDTO{
			ProductID:    l.ProductID,
			Name:         l.Name,
			Price:        l.Price,
			Category:     l.Category,
			ImageURL:     l.ImageURL,
			Quantity:     l.Quantity,
			LineSubtotal: l.subtotal(),
		})
	}
	return CartDTO{Items: items, Total: c.total()}
}

func (c *cartState) summary() SummaryDTO {
	items := 0
	for _, l := range c.Lines {
		items += l.Quantity
	}
	return SummaryDTO{
		LineCount: len(c.Lines),
		ItemCount: items,
		Total:     c.total(),
	}
}
