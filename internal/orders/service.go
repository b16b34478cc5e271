package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mgastelum/freshmart-backend/pkg/db/models"
	"github.com/mgastelum/freshmart-backend/pkg/enums"
	pkgerrors "github.com/mgastelum/freshmart-backend/pkg/errors"
	"github.com/mgastelum/freshmart-backend/pkg/pagination"
)

// Service exposes order reads and the status lifecycle.
type Service interface {
	Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ListResult, error)
	ListAll(ctx context.Context, filters ListFilters, params pagination.Params) (*ListResult, error)
	ChangeStatus(ctx context.Context, actor Actor, orderID uuid.UUID, target enums.OrderStatus) (*OrderDTO, error)
}

type service struct {
	repo Repository
}

// NewService builds an orders service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsManager() && order.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another customer")
	}
	return FromModel(order), nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ListResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	rows, err := s.repo.ListForUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return buildPage(rows, params), nil
}

func (s *service) ListAll(ctx context.Context, filters ListFilters, params pagination.Params) (*ListResult, error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status filter")
	}
	rows, err := s.repo.ListAll(ctx, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return buildPage(rows, params), nil
}

// ChangeStatus applies the lifecycle rules. Managers may set any valid
// status (administrative override); customers get the narrow shortcuts
// the storefront exposes.
func (s *service) ChangeStatus(ctx context.Context, actor Actor, orderID uuid.UUID, target enums.OrderStatus) (*OrderDTO, error) {
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if actor.IsManager() {
		return s.apply(ctx, order, target)
	}

	if order.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another customer")
	}

	switch target {
	case enums.OrderStatusReceived:
		if order.Status.IsTerminal() {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden,
				fmt.Sprintf("cannot mark a %s order as received", order.Status))
		}
	case enums.OrderStatusCancelled:
		if order.Status != enums.OrderStatusPending {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden,
				fmt.Sprintf("cannot cancel an order in %s state", order.Status))
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "customers may only cancel or confirm receipt")
	}

	return s.apply(ctx, order, target)
}

func (s *service) apply(ctx context.Context, order *models.Order, target enums.OrderStatus) (*OrderDTO, error) {
	if order.Status == target {
		return FromModel(order), nil
	}
	if err := s.repo.UpdateStatus(ctx, order.ID, target); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	order.Status = target
	return FromModel(order), nil
}

func (s *service) load(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func buildPage(rows []models.Order, params pagination.Params) *ListResult {
	limit := pagination.NormalizeLimit(params.Limit)
	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return &ListResult{
		Orders:     fromModels(rows),
		NextCursor: next,
	}
}
