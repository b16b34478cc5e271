package cart

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mgastelum/freshmart-backend/pkg/db/models"
	"github.com/mgastelum/freshmart-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindActiveByUser loads the user's active cart with its items.
func (r *repository) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ? AND status = ?", userID, enums.CartStatusActive).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// CreateActive inserts a fresh empty cart for the user.
func (r *repository) CreateActive(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart := &models.Cart{
		ID:     uuid.New(),
		UserID: userID,
		Status: enums.CartStatusActive,
		Total:  decimal.Zero,
	}
	if err := r.db.WithContext(ctx).Create(cart).Error; err != nil {
		return nil, err
	}
	return cart, nil
}

// ReplaceItems swaps the cart's item rows for the provided set and
// stores the new total.
func (r *repository) ReplaceItems(ctx context.Context, cartID uuid.UUID, items []models.CartItem, total decimal.Decimal) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	if len(items) > 0 {
		for i := range items {
			if items[i].ID == uuid.Nil {
				items[i].ID = uuid.New()
			}
			items[i].CartID = cartID
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}
	}
	return tx.Model(&models.Cart{}).
		Where("id = ?", cartID).
		UpdateColumn("total", total).Error
}

// ClearItems empties the cart and zeroes its total.
func (r *repository) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	return r.ReplaceItems(ctx, cartID, nil, decimal.Zero)
}

// MarkConverted flags the cart as consumed by a checkout.
func (r *repository) MarkConverted(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		UpdateColumn("status", enums.CartStatusConverted).Error
}
