package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mgastelum/freshmart-backend/internal/cart"
	"github.com/mgastelum/freshmart-backend/internal/orders"
	"github.com/mgastelum/freshmart-backend/pkg/config"
	"github.com/mgastelum/freshmart-backend/pkg/db/models"
	"github.com/mgastelum/freshmart-backend/pkg/enums"
	pkgerrors "github.com/mgastelum/freshmart-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Input carries the checkout form fields.
type Input struct {
	FullName      string              `json:"full_name" validate:"required"`
	Address       string              `json:"address" validate:"required"`
	City          string              `json:"city" validate:"required"`
	State         string              `json:"state" validate:"required"`
	Zip           string              `json:"zip" validate:"required"`
	Phone         string              `json:"phone" validate:"required"`
	Email         string              `json:"email" validate:"required,email"`
	PaymentMethod enums.PaymentMethod `json:"payment_method" validate:"required"`
	CardNumber    string              `json:"card_number,omitempty"`
	CardExpiry    string              `json:"card_expiry,omitempty"`
	CardCVC       string              `json:"card_cvc,omitempty"`
}

// Result reports the order created by a successful checkout.
type Result struct {
	OrderID     uuid.UUID         `json:"order_id"`
	Status      enums.OrderStatus `json:"status"`
	Subtotal    decimal.Decimal   `json:"subtotal"`
	ShippingFee decimal.Decimal   `json:"shipping_fee"`
	Total       decimal.Decimal   `json:"total"`
	OrderedAt   time.Time         `json:"ordered_at"`
}

// Service turns a non-empty cart into an order atomically.
type Service interface {
	Checkout(ctx context.Context, userID uuid.UUID, input Input) (*Result, error)
}

type service struct {
	carts     cart.Repository
	orders    orders.Repository
	tx        txRunner
	flatFee   decimal.Decimal
	threshold decimal.Decimal
	now       func() time.Time
}

// NewService builds a checkout service with the required dependencies.
func NewService(carts cart.Repository, orderRepo orders.Repository, tx txRunner, cfg config.CheckoutConfig) (Service, error) {
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	flatFee, err := cfg.ShippingFee()
	if err != nil {
		return nil, err
	}
	threshold, err := cfg.Threshold()
	if err != nil {
		return nil, err
	}
	return &service{
		carts:     carts,
		orders:    orderRepo,
		tx:        tx,
		flatFee:   flatFee,
		threshold: threshold,
		now:       time.Now,
	}, nil
}

func (s *service) Checkout(ctx context.Context, userID uuid.UUID, input Input) (*Result, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if details := validateInput(input); len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout form incomplete").WithDetails(details)
	}

	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.carts.WithTx(tx)
		orderRepo := s.orders.WithTx(tx)

		dbCart, err := cartRepo.FindActiveByUser(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if len(dbCart.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		subtotal := decimal.Zero
		lines := make([]models.OrderLineItem, 0, len(dbCart.Items))
		for _, item := range dbCart.Items {
			lineTotal := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
			subtotal = subtotal.Add(lineTotal)
			lines = append(lines, models.OrderLineItem{
				ID:        uuid.New(),
				ProductID: item.ProductID,
				Name:      item.Name,
				UnitPrice: item.Price,
				Quantity:  item.Quantity,
				LineTotal: lineTotal,
			})
		}

		fee := s.shippingFee(subtotal)
		orderedAt := s.now().UTC()
		order := &models.Order{
			ID:              uuid.New(),
			UserID:          userID,
			Status:          enums.OrderStatusPending,
			Subtotal:        subtotal,
			ShippingFee:     fee,
			Total:           subtotal.Add(fee),
			ShippingAddress: formatShippingAddress(input),
			PaymentMethod:   input.PaymentMethod,
			OrderedAt:       orderedAt,
			Items:           lines,
		}
		for i := range order.Items {
			order.Items[i].OrderID = order.ID
		}

		if _, err := orderRepo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if err := cartRepo.MarkConverted(ctx, dbCart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "convert cart")
		}

		result = &Result{
			OrderID:     order.ID,
			Status:      order.Status,
			Subtotal:    order.Subtotal,
			ShippingFee: order.ShippingFee,
			Total:       order.Total,
			OrderedAt:   orderedAt,
		}
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checkout transaction")
	}
	return result, nil
}

// shippingFee applies the flat fee below the free-shipping threshold;
// a subtotal at or above the threshold ships free.
func (s *service) shippingFee(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(s.threshold) {
		return decimal.Zero
	}
	return s.flatFee
}

func validateInput(input Input) map[string]string {
	details := map[string]string{}
	required := map[string]string{
		"full_name": input.FullName,
		"address":   input.Address,
		"city":      input.City,
		"state":     input.State,
		"zip":       input.Zip,
		"phone":     input.Phone,
		"email":     input.Email,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			details[field] = "required"
		}
	}

	if !input.PaymentMethod.IsValid() {
		details["payment_method"] = "must be cash or card"
	} else if input.PaymentMethod == enums.PaymentMethodCard {
		cardFields := map[string]string{
			"card_number": input.CardNumber,
			"card_expiry": input.CardExpiry,
			"card_cvc":    input.CardCVC,
		}
		for field, value := range cardFields {
			if strings.TrimSpace(value) == "" {
				details[field] = "required"
			}
		}
	}
	return details
}

func formatShippingAddress(input Input) string {
	return fmt.Sprintf("%s, %s, %s, %s %s",
		strings.TrimSpace(input.FullName),
		strings.TrimSpace(input.Address),
		strings.TrimSpace(input.City),
		strings.TrimSpace(input.State),
		strings.TrimSpace(input.Zip),
	)
}
