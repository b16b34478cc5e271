package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mgastelum/freshmart-backend/internal/catalog"
	"github.com/mgastelum/freshmart-backend/pkg/db/models"
	"github.com/mgastelum/freshmart-backend/pkg/enums"
	pkgerrors "github.com/mgastelum/freshmart-backend/pkg/errors"
)

type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubCartRepo struct {
	carts      map[uuid.UUID]*models.Cart
	replaceErr error
	replaced   map[uuid.UUID][]models.CartItem
	cleared    []uuid.UUID
}

func newStubCartRepo() *stubCartRepo {
	return &stubCartRepo{
		carts:    map[uuid.UUID]*models.Cart{},
		replaced: map[uuid.UUID][]models.CartItem{},
	}
}

func (s *stubCartRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubCartRepo) FindActiveByUser(_ context.Context, userID uuid.UUID) (*models.Cart, error) {
	if cart, ok := s.carts[userID]; ok {
		return cart, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCartRepo) CreateActive(_ context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart := &models.Cart{
		ID:     uuid.New(),
		UserID: userID,
		Status: enums.CartStatusActive,
		Total:  decimal.Zero,
	}
	s.carts[userID] = cart
	return cart, nil
}

func (s *stubCartRepo) ReplaceItems(_ context.Context, cartID uuid.UUID, items []models.CartItem, total decimal.Decimal) error {
	if s.replaceErr != nil {
		return s.replaceErr
	}
	s.replaced[cartID] = items
	for _, cart := range s.carts {
		if cart.ID == cartID {
			cart.Items = items
			cart.Total = total
		}
	}
	return nil
}

func (s *stubCartRepo) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	s.cleared = append(s.cleared, cartID)
	return s.ReplaceItems(ctx, cartID, nil, decimal.Zero)
}

func (s *stubCartRepo) MarkConverted(_ context.Context, cartID uuid.UUID) error { return nil }

type stubSessions struct {
	states  map[string]*cartState
	saveErr error
	loadErr error
	deleted []string
}

func newStubSessions() *stubSessions {
	return &stubSessions{states: map[string]*cartState{}}
}

func (s *stubSessions) Load(_ context.Context, sessionID string) (*cartState, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if state, ok := s.states[sessionID]; ok {
		clone := cartState{Lines: append([]line(nil), state.Lines...)}
		return &clone, nil
	}
	return &cartState{}, nil
}

func (s *stubSessions) Save(_ context.Context, sessionID string, state *cartState) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	clone := cartState{Lines: append([]line(nil), state.Lines...)}
	s.states[sessionID] = &clone
	return nil
}

func (s *stubSessions) Delete(_ context.Context, sessionID string) error {
	s.deleted = append(s.deleted, sessionID)
	delete(s.states, sessionID)
	return nil
}

type stubCatalog struct {
	products map[uuid.UUID]*catalog.ProductDTO
}

func (s *stubCatalog) Get(_ context.Context, id uuid.UUID) (*catalog.ProductDTO, error) {
	if p, ok := s.products[id]; ok {
		return p, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

func testProduct(name, price string) *catalog.ProductDTO {
	return &catalog.ProductDTO{
		ID:       uuid.New(),
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Category: enums.ProductCategoryProduce,
		IsActive: true,
	}
}

func newTestService(t *testing.T, repo Repository, sessions sessionCarts, products catalogReader) Service {
	t.Helper()
	svc, err := NewService(repo, stubTx{}, sessions, products)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func guestIdentity(sessionID string) Identity {
	return Identity{SessionID: sessionID}
}

func userIdentity(userID uuid.UUID, sessionID string) Identity {
	return Identity{UserID: &userID, SessionID: sessionID}
}

func TestAddItemAppendsAndIncrements(t *testing.T) {
	bananas := testProduct("Bananas", "1.25")
	cat := &stubCatalog{products: map[uuid.UUID]*catalog.ProductDTO{bananas.ID: bananas}}
	sessions := newStubSessions()
	svc := newTestService(t, newStubCartRepo(), sessions, cat)

	identity := guestIdentity("sess-1")

	first, err := svc.AddItem(context.Background(), identity, bananas.ID, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first.Cart.Items) != 1 || first.Cart.Items[0].Quantity != 2 {
		t.Fatalf("unexpected cart %+v", first.Cart)
	}

	second, err := svc.AddItem(context.Background(), identity, bananas.ID, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(second.Cart.Items) != 1 {
		t.Fatalf("expected single merged line, got %d", len(second.Cart.Items))
	}
	if second.Cart.Items[0].Quantity != 5 {
		t.Fatalf("expected quantity 5, got %d", second.Cart.Items[0].Quantity)
	}
	if !second.Cart.Total.Equal(decimal.RequireFromString("6.25")) {
		t.Fatalf("expected total 6.25, got %s", second.Cart.Total)
	}
}

func TestAddItemUnknownProduct(t *testing.T) {
	cat := &stubCatalog{products: map[uuid.UUID]*catalog.ProductDTO{}}
	svc := newTestService(t, newStubCartRepo(), newStubSessions(), cat)

	_, err := svc.AddItem(context.Background(), guestIdentity("sess-1"), uuid.New(), 1)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAddItemRejectsBadQuantity(t *testing.T) {
	cat := &stubCatalog{products: map[uuid.UUID]*catalog.ProductDTO{}}
	svc := newTestService(t, newStubCartRepo(), newStubSessions(), cat)

	for _, qty := range []int{0, -1} {
		_, err := svc.AddItem(context.Background(), guestIdentity("sess-1"), uuid.New(), qty)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("qty %d: expected validation error, got %v", qty, err)
		}
	}
}

func TestUpdateQuantityMissingLineReportsNotUpdated(t *testing.T) {
	cat := &stubCatalog{products: map[uuid.UUID]*catalog.ProductDTO{}}
	sessions := newStubSessions()
	svc := newTestService(t, newStubCartRepo(), sessions, cat)

	result, err := svc.UpdateQuantity(context.Background(), guestIdentity("sess-1"), uuid.New(), 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Updated {
		t.Fatal("expected updated=false for a product missing from the cart")
	}
	if len(sessions.states) != 0 {
		t.Fatal("no-op update should not persist anything")
	}
}

func TestUpdateQuantityOverwrites(t *testing.T) {
	bananas := testProduct("Bananas", "1.25")
	cat := &stubCatalog{products: map[uuid.UUID]*catalog.ProductDTO{bananas.ID: bananas}}
	sessions := newStubSessions()
	svc := newTestService(t, newStubCartRepo(), sessions, cat)

	identity := guestIdentity("sess-1")
	if _, err := svc.AddItem(context.Background(), identity, bananas.ID, 2); err != nil {
		t.Fatalf("add: %v", err)
	}

	result, err := svc.UpdateQuantity(context.Background(), identity, bananas.ID, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Updated {
		t.Fatal("expected updated=true")
	}
	if result.Cart.Items[0].Quantity != 7 {
		t.Fatalf("expected quantity 7, got %d", result.Cart.Items[0].Quantity)
	}
	if !result.Cart.Total.Equal(decimal.RequireFromString("8.75")) {
		t.Fatalf("expected total 8.75, got %s", result.Cart.Total)
	}
}

func TestRemoveItemReturnsName(t *testing.T) {
	bananas := testProduct("Bananas", "1.25")
	cat := &stubCatalog{products: map[uuid.UUID]*catalog.ProductDTO{bananas.ID: bananas}}
	svc := newTestService(t, newStubCartRepo(), newStubSessions(), cat)

	identity := guestIdentity("sess-1")
	if _, err := svc.AddItem(context.Background(), identity, bananas.ID, 2); err != nil {
		t.Fatalf("add: %v", err)
	}

	result, err := svc.RemoveItem(context.Background(), identity, bananas.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Removed || result.RemovedName != "Bananas" {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(result.Cart.Items) != 0 || !result.Cart.Total.IsZero() {
		t.Fatalf("expected empty cart, got %+v", result.Cart)
	}

	missing, err := svc.RemoveItem(context.Background(), identity, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if missing.Removed {
		t.Fatal("expected removed=false for unknown product")
	}
}

func TestClearEmptiesCart(t *testing.T) {
	bananas := testProduct("Bananas", "1.25")
	milk := testProduct("Whole Milk", "3.50")
	cat := &stubCatalog{products: map[uuid.UUID]*catalog.ProductDTO{bananas.ID: bananas, milk.ID: milk}}
	svc := newTestService(t, newStubCartRepo(), newStubSessions(), cat)

	identity := guestIdentity("sess-1")
	svcMustAdd(t, svc, identity, bananas.ID, 1)
	svcMustAdd(t, svc, identity, milk.ID, 2)

	result, err := svc.Clear(context.Background(), identity)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Cart.Items) != 0 || !result.Cart.Total.IsZero() {
		t.Fatalf("expected empty cart, got %+v", result.Cart)
	}
}

func TestClearDeletesPersistedRows(t *testing.T) {
	bananas := testProduct("Bananas", "1.25")
	cat := &stubCatalog{products: map[uuid.UUID]*catalog.ProductDTO{bananas.ID: bananas}}
	repo := newStubCartRepo()
	svc := newTestService(t, repo, newStubSessions(), cat)

	userID := uuid.New()
	identity := userIdentity(userID, "")
	svcMustAdd(t, svc, identity, bananas.ID, 2)

	result, err := svc.Clear(context.Background(), identity)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Cart.Items) != 0 || !result.Cart.Total.IsZero() {
		t.Fatalf("expected empty cart, got %+v", result.Cart)
	}
	if len(repo.cleared) != 1 || repo.cleared[0] != repo.carts[userID].ID {
		t.Fatalf("expected a row delete for the user's cart, got %v", repo.cleared)
	}
}

func TestSummaryCountsLinesAndItems(t *testing.T) {
	bananas := testProduct("Bananas", "1.25")
	milk := testProduct("Whole Milk", "3.50")
	cat := &stubCatalog{products: map[uuid.UUID]*catalog.ProductDTO{bananas.ID: bananas, milk.ID: milk}}
	svc := newTestService(t, newStubCartRepo(), newStubSessions(), cat)

	identity := guestIdentity("sess-1")
	svcMustAdd(t, svc, identity, bananas.ID, 2)
	svcMustAdd(t, svc, identity, milk.ID, 3)

	summary, err := svc.Summary(context.Background(), identity)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.LineCount != 2 || summary.ItemCount != 5 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if !summary.Total.Equal(decimal.RequireFromString("13.00")) {
		t.Fatalf("expected total 13.00, got %s", summary.Total)
	}
}

func TestAuthenticatedWriteFailureDegradesToSession(t *testing.T) {
	bananas := testProduct("Bananas", "1.25")
	cat := &stubCatalog{products: map[uuid.UUID]*catalog.ProductDTO{bananas.ID: bananas}}
	repo := newStubCartRepo()
	repo.replaceErr = errors.New("connection reset")
	sessions := newStubSessions()
	svc := newTestService(t, repo, sessions, cat)

	userID := uuid.New()
	result, err := svc.AddItem(context.Background(), userIdentity(userID, "sess-1"), bananas.ID, 1)
	if err != nil {
		t.Fatalf("expected degraded success, got error: %v", err)
	}
	if result.Warning == nil || result.Warning.Kind != WarningPersistenceDegraded {
		t.Fatalf("expected persistence warning, got %+v", result.Warning)
	}
	if _, ok := sessions.states["sess-1"]; !ok {
		t.Fatal("expected session copy to hold the mutation")
	}
}

func TestAuthenticatedWriteFailureWithoutSessionFails(t *testing.T) {
	bananas := testProduct("Bananas", "1.25")
	cat := &stubCatalog{products: map[uuid.UUID]*catalog.ProductDTO{bananas.ID: bananas}}
	repo := newStubCartRepo()
	repo.replaceErr = errors.New("connection reset")
	svc := newTestService(t, repo, newStubSessions(), cat)

	userID := uuid.New()
	_, err := svc.AddItem(context.Background(), userIdentity(userID, ""), bananas.ID, 1)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestMergeOnLoginSumsQuantities(t *testing.T) {
	bananas := testProduct("Bananas", "1.25")
	milk := testProduct("Whole Milk", "3.50")
	cat := &stubCatalog{products: map[uuid.UUID]*catalog.ProductDTO{bananas.ID: bananas, milk.ID: milk}}
	repo := newStubCartRepo()
	sessions := newStubSessions()
	svc := newTestService(t, repo, sessions, cat)

	userID := uuid.New()

	// User already has 2 bananas persisted.
	if _, err := svc.AddItem(context.Background(), userIdentity(userID, ""), bananas.ID, 2); err != nil {
		t.Fatalf("seed user cart: %v", err)
	}

	// Guest session holds 3 bananas and 1 milk.
	guest := guestIdentity("sess-merge")
	svcMustAdd(t, svc, guest, bananas.ID, 3)
	svcMustAdd(t, svc, guest, milk.ID, 1)

	if err := svc.MergeOnLogin(context.Background(), "sess-merge", userID); err != nil {
		t.Fatalf("merge: %v", err)
	}

	cartDTO, err := svc.Get(context.Background(), userIdentity(userID, ""))
	if err != nil {
		t.Fatalf("get merged cart: %v", err)
	}
	byProduct := map[uuid.UUID]int{}
	for _, item := range cartDTO.Items {
		byProduct[item.ProductID] = item.Quantity
	}
	if byProduct[bananas.ID] != 5 {
		t.Fatalf("expected bananas quantity 5, got %d", byProduct[bananas.ID])
	}
	if byProduct[milk.ID] != 1 {
		t.Fatalf("expected milk quantity 1, got %d", byProduct[milk.ID])
	}
	if len(sessions.deleted) == 0 || sessions.deleted[0] != "sess-merge" {
		t.Fatal("expected guest cart key to be deleted after merge")
	}
}

func TestAnonymousRequiresSessionID(t *testing.T) {
	cat := &stubCatalog{products: map[uuid.UUID]*catalog.ProductDTO{}}
	svc := newTestService(t, newStubCartRepo(), newStubSessions(), cat)

	_, err := svc.Get(context.Background(), Identity{})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func svcMustAdd(t *testing.T, svc Service, identity Identity, productID uuid.UUID, qty int) {
	t.Helper()
	if _, err := svc.AddItem(context.Background(), identity, productID, qty); err != nil {
		t.Fatalf("add item: %v", err)
	}
}
