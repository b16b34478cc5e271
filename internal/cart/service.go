package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mgastelum/freshmart-backend/internal/catalog"
	"github.com/mgastelum/freshmart-backend/pkg/db/models"
	pkgerrors "github.com/mgastelum/freshmart-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type catalogReader interface {
	Get(ctx context.Context, id uuid.UUID) (*catalog.ProductDTO, error)
}

type sessionCarts interface {
	Load(ctx context.Context, sessionID string) (*cartState, error)
	Save(ctx context.Context, sessionID string, state *cartState) error
	Delete(ctx context.Context, sessionID string) error
}

// Service exposes cart operations for both anonymous and authenticated
// shoppers. Every operation takes an explicit Identity.
type Service interface {
	Get(ctx context.Context, identity Identity) (*CartDTO, error)
	Summary(ctx context.Context, identity Identity) (*SummaryDTO, error)
	AddItem(ctx context.Context, identity Identity, productID uuid.UUID, qty int) (*MutationResult, error)
	UpdateQuantity(ctx context.Context, identity Identity, productID uuid.UUID, qty int) (*UpdateQuantityResult, error)
	RemoveItem(ctx context.Context, identity Identity, productID uuid.UUID) (*RemoveItemResult, error)
	Clear(ctx context.Context, identity Identity) (*MutationResult, error)
	MergeOnLogin(ctx context.Context, sessionID string, userID uuid.UUID) error
}

type service struct {
	repo     Repository
	tx       txRunner
	sessions sessionCarts
	products catalogReader
}

// NewService builds a cart service with the required dependencies.
func NewService(repo Repository, tx txRunner, sessions sessionCarts, products catalogReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session cart store required")
	}
	if products == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		sessions: sessions,
		products: products,
	}, nil
}

func (s *service) Get(ctx context.Context, identity Identity) (*CartDTO, error) {
	state, _, err := s.loadState(ctx, identity)
	if err != nil {
		return nil, err
	}
	dto := state.toDTO()
	return &dto, nil
}

func (s *service) Summary(ctx context.Context, identity Identity) (*SummaryDTO, error) {
	state, _, err := s.loadState(ctx, identity)
	if err != nil {
		return nil, err
	}
	summary := state.summary()
	return &summary, nil
}

func (s *service) AddItem(ctx context.Context, identity Identity, productID uuid.UUID, qty int) (*MutationResult, error) {
	if qty < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	product, err := s.products.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	state, dbCart, err := s.loadState(ctx, identity)
	if err != nil {
		return nil, err
	}

	if existing := state.find(productID); existing != nil {
		existing.Quantity += qty
	} else {
		state.Lines = append(state.Lines, line{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Category:  product.Category,
			ImageURL:  product.ImageURL,
			Quantity:  qty,
		})
	}

	warning, err := s.persistLines(ctx, identity, dbCart, state)
	if err != nil {
		return nil, err
	}
	return &MutationResult{Cart: state.toDTO(), Warning: warning}, nil
}

// UpdateQuantity overwrites the line's quantity. A product that is not
// in the cart yields updated=false with a success response; callers
// depend on that contract.
func (s *service) UpdateQuantity(ctx context.Context, identity Identity, productID uuid.UUID, qty int) (*UpdateQuantityResult, error) {
	if qty < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	state, dbCart, err := s.loadState(ctx, identity)
	if err != nil {
		return nil, err
	}

	target := state.find(productID)
	if target == nil {
		return &UpdateQuantityResult{Updated: false, Cart: state.toDTO()}, nil
	}
	target.Quantity = qty

	warning, err := s.persistLines(ctx, identity, dbCart, state)
	if err != nil {
		return nil, err
	}
	return &UpdateQuantityResult{Updated: true, Cart: state.toDTO(), Warning: warning}, nil
}

func (s *service) RemoveItem(ctx context.Context, identity Identity, productID uuid.UUID) (*RemoveItemResult, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	state, dbCart, err := s.loadState(ctx, identity)
	if err != nil {
		return nil, err
	}

	name, removed := state.remove(productID)
	if !removed {
		return &RemoveItemResult{Removed: false, Cart: state.toDTO()}, nil
	}

	warning, err := s.persistLines(ctx, identity, dbCart, state)
	if err != nil {
		return nil, err
	}
	return &RemoveItemResult{Removed: true, RemovedName: name, Cart: state.toDTO(), Warning: warning}, nil
}

func (s *service) Clear(ctx context.Context, identity Identity) (*MutationResult, error) {
	state, dbCart, err := s.loadState(ctx, identity)
	if err != nil {
		return nil, err
	}
	state.Lines = nil

	// Clearing deletes the rows outright instead of replacing with an
	// empty set.
	warning, err := s.persist(ctx, identity, state, func(repo Repository) error {
		return repo.ClearItems(ctx, dbCart.ID)
	})
	if err != nil {
		return nil, err
	}
	return &MutationResult{Cart: state.toDTO(), Warning: warning}, nil
}

// MergeOnLogin folds the anonymous session cart into the user's
// persisted cart, summing quantities per product, then drops the
// session copy.
func (s *service) MergeOnLogin(ctx context.Context, sessionID string, userID uuid.UUID) error {
	if strings.TrimSpace(sessionID) == "" {
		return nil
	}
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	guest, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session cart")
	}
	if len(guest.Lines) == 0 {
		if err := s.sessions.Delete(ctx, sessionID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "drop session cart")
		}
		return nil
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		dbCart, err := s.findOrCreateCart(ctx, repo, userID)
		if err != nil {
			return err
		}

		state := stateFromCart(dbCart)
		for _, guestLine := range guest.Lines {
			if existing := state.find(guestLine.ProductID); existing != nil {
				existing.Quantity += guestLine.Quantity
			} else {
				state.Lines = append(state.Lines, guestLine)
			}
		}

		return repo.ReplaceItems(ctx, dbCart.ID, itemsFromState(state), state.total())
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "merge session cart")
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "drop session cart")
	}
	return nil
}

// loadState returns the working cart and, for authenticated users, the
// backing cart row. Postgres is authoritative for authenticated users.
func (s *service) loadState(ctx context.Context, identity Identity) (*cartState, *models.Cart, error) {
	if identity.IsAuthenticated() {
		dbCart, err := s.findOrCreateCart(ctx, s.repo, *identity.UserID)
		if err != nil {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		return stateFromCart(dbCart), dbCart, nil
	}

	if strings.TrimSpace(identity.SessionID) == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required for anonymous carts")
	}
	state, err := s.sessions.Load(ctx, identity.SessionID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session cart")
	}
	return state, nil, nil
}

// persistLines replaces the cart's rows with the working state.
func (s *service) persistLines(ctx context.Context, identity Identity, dbCart *models.Cart, state *cartState) (*Warning, error) {
	return s.persist(ctx, identity, state, func(repo Repository) error {
		return repo.ReplaceItems(ctx, dbCart.ID, itemsFromState(state), state.total())
	})
}

// persist writes the mutated cart back using the supplied repo write.
// Authenticated writes that fail fall back to the session copy and
// surface a typed warning instead of silently dropping the error.
func (s *service) persist(ctx context.Context, identity Identity, state *cartState, write func(Repository) error) (*Warning, error) {
	if identity.IsAuthenticated() {
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return write(s.repo.WithTx(tx))
		})
		if err == nil {
			return nil, nil
		}
		if strings.TrimSpace(identity.SessionID) != "" {
			if saveErr := s.sessions.Save(ctx, identity.SessionID, state); saveErr == nil {
				return &Warning{
					Kind:    WarningPersistenceDegraded,
					Message: "cart saved to session only; durable write failed",
				}, nil
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart")
	}

	if err := s.sessions.Save(ctx, identity.SessionID, state); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist session cart")
	}
	return nil, nil
}

func (s *service) findOrCreateCart(ctx context.Context, repo Repository, userID uuid.UUID) (*models.Cart, error) {
	dbCart, err := repo.FindActiveByUser(ctx, userID)
	if err == nil {
		return dbCart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return repo.CreateActive(ctx, userID)
}

func stateFromCart(cart *models.Cart) *cartState {
	state := &cartState{}
	for _, item := range cart.Items {
		state.Lines = append(state.Lines, line{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Category:  item.Category,
			ImageURL:  item.ImageURL,
			Quantity:  item.Quantity,
		})
	}
	return state
}

func itemsFromState(state *cartState) []models.CartItem {
	items := make([]models.CartItem, 0, len(state.Lines))
	for _, l := range state.Lines {
		items = append(items, models.CartItem{
			ProductID:    l.ProductID,
			Name:         l.Name,
			Price:        l.Price,
			Category:     l.Category,
			ImageURL:     l.ImageURL,
			Quantity:     l.Quantity,
			LineSubtotal: l.subtotal(),
		})
	}
	return items
}
