package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/barra-pos/internal/application/ports"
	"github.com/jhoicas/barra-pos/internal/domain"
	"github.com/jhoicas/barra-pos/internal/domain/entity"
	"github.com/jhoicas/barra-pos/pkg/logger"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

func i64(v int64) *int64 { return &v }

func nopLog() *logger.Logger { return logger.Nop() }

// fakeTabClient implementa ports.TabClient con ganchos por operación; las
// operaciones sin gancho devuelven un resultado neutro.
type fakeTabClient struct {
	mu sync.Mutex

	listTabsFn      func(ctx context.Context, status string) ([]*entity.Tab, error)
	getTabFn        func(ctx context.Context, id string) (*entity.Tab, error)
	updateItemFn    func(ctx context.Context, itemID string, patch ports.ItemPatch) (*entity.TabItem, error)
	closeTabFn      func(ctx context.Context, tabID string) error
	reservedFn      func(ctx context.Context, status string) ([]ports.ReservedProduct, error)
	addItemFn       func(ctx context.Context, tabID, productID string, qty int64, unitPrice decimal.Decimal) (*entity.TabItem, error)
	removeItemFn    func(ctx context.Context, itemID string) error
	updateItemCalls []ports.ItemPatch
	closeTabCalls   int
}

func (f *fakeTabClient) ListTabs(ctx context.Context, status string) ([]*entity.Tab, error) {
	if f.listTabsFn != nil {
		return f.listTabsFn(ctx, status)
	}
	return nil, nil
}

func (f *fakeTabClient) GetTab(ctx context.Context, id string) (*entity.Tab, error) {
	if f.getTabFn != nil {
		return f.getTabFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeTabClient) CreateTab(ctx context.Context, name, notes string) (*entity.Tab, error) {
	return &entity.Tab{
		ID:       uuid.New().String(),
		Name:     name,
		Notes:    notes,
		Status:   entity.TabOpen,
		OpenedAt: time.Now(),
	}, nil
}

func (f *fakeTabClient) RenameTab(ctx context.Context, id, name string) error   { return nil }
func (f *fakeTabClient) SetTabNote(ctx context.Context, id, notes string) error { return nil }

func (f *fakeTabClient) AddTabItem(ctx context.Context, tabID, productID string, qty int64, unitPrice decimal.Decimal) (*entity.TabItem, error) {
	if f.addItemFn != nil {
		return f.addItemFn(ctx, tabID, productID, qty, unitPrice)
	}
	return &entity.TabItem{
		ID:        uuid.New().String(),
		TabID:     tabID,
		ProductID: productID,
		Qty:       qty,
		UnitPrice: unitPrice,
		AddedAt:   time.Now(),
	}, nil
}

func (f *fakeTabClient) UpdateTabItem(ctx context.Context, itemID string, patch ports.ItemPatch) (*entity.TabItem, error) {
	f.mu.Lock()
	f.updateItemCalls = append(f.updateItemCalls, patch)
	f.mu.Unlock()
	if f.updateItemFn != nil {
		return f.updateItemFn(ctx, itemID, patch)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeTabClient) patches() []ports.ItemPatch {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ports.ItemPatch, len(f.updateItemCalls))
	copy(out, f.updateItemCalls)
	return out
}

func (f *fakeTabClient) RemoveTabItem(ctx context.Context, itemID string) error {
	if f.removeItemFn != nil {
		return f.removeItemFn(ctx, itemID)
	}
	return nil
}

func (f *fakeTabClient) ClearTab(ctx context.Context, tabID string) error { return nil }

func (f *fakeTabClient) CloseTab(ctx context.Context, tabID string) error {
	f.mu.Lock()
	f.closeTabCalls++
	f.mu.Unlock()
	if f.closeTabFn != nil {
		return f.closeTabFn(ctx, tabID)
	}
	return nil
}

func (f *fakeTabClient) ReopenTab(ctx context.Context, tabID string) error { return nil }
func (f *fakeTabClient) DeleteTab(ctx context.Context, tabID string) error { return nil }

func (f *fakeTabClient) GetReservedSummary(ctx context.Context, status string) ([]ports.ReservedProduct, error) {
	if f.reservedFn != nil {
		return f.reservedFn(ctx, status)
	}
	return nil, nil
}

// fakeCatalogClient implementa ports.CatalogClient sobre mapas en memoria.
type fakeCatalogClient struct {
	products map[string]*entity.Product
	recipes  map[string][]entity.RecipeItem

	recipeCalls int
	recipeErr   error
}

func (f *fakeCatalogClient) ListProducts(ctx context.Context, query string) ([]*entity.Product, error) {
	out := make([]*entity.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeCatalogClient) GetRecipe(ctx context.Context, productID string) ([]entity.RecipeItem, error) {
	f.recipeCalls++
	if f.recipeErr != nil {
		return nil, f.recipeErr
	}
	return f.recipes[productID], nil
}

// fakeSaleClient implementa ports.SaleClient.
type fakeSaleClient struct {
	createFn func(ctx context.Context, in ports.CreateSaleInput) (*entity.Sale, error)
	calls    int
}

func (f *fakeSaleClient) CreateSale(ctx context.Context, in ports.CreateSaleInput) (*entity.Sale, error) {
	f.calls++
	if f.createFn != nil {
		return f.createFn(ctx, in)
	}
	return &entity.Sale{
		ID:        uuid.New().String(),
		TabID:     in.TabID,
		Items:     in.Items,
		Payments:  in.Payments,
		Totals:    in.Totals,
		Notes:     in.Notes,
		CreatedAt: time.Now(),
	}, nil
}

// openTab arma una comanda abierta con las líneas dadas y totales calculados.
func openTab(id string, items ...*entity.TabItem) *entity.Tab {
	return &entity.Tab{
		ID:       id,
		Name:     "Mesa " + id,
		Status:   entity.TabOpen,
		OpenedAt: time.Now(),
		Items:    items,
	}
}

func tabItem(id, productID string, qty int64, unitPrice string, taxRate *decimal.Decimal) *entity.TabItem {
	return &entity.TabItem{
		ID:           id,
		ProductID:    productID,
		Qty:          qty,
		UnitPrice:    d(unitPrice),
		LineDiscount: decimal.Zero,
		TaxRate:      taxRate,
		NameSnapshot: "Producto " + productID,
		AddedAt:      time.Now(),
	}
}
