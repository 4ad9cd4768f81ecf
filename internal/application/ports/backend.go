// Package ports define el contrato lógico con el backend de persistencia.
// El motor es un consumidor puro de estas operaciones: los verbos y rutas
// HTTP concretos son asunto de la implementación en infrastructure/backend.
package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/barra-pos/internal/domain/entity"
)

// CatalogClient operaciones de solo lectura sobre catálogo y recetas.
type CatalogClient interface {
	ListProducts(ctx context.Context, query string) ([]*entity.Product, error)
	GetRecipe(ctx context.Context, productID string) ([]entity.RecipeItem, error)
}

// ItemPatch mutación parcial de un ítem de comanda. Los punteros nil no
// tocan el campo; TaxRateSet distingue "poner tarifa nil (usar catálogo)"
// de "no tocar la tarifa".
type ItemPatch struct {
	Qty          *int64
	UnitPrice    *decimal.Decimal
	LineDiscount *decimal.Decimal
	TaxRate      *decimal.Decimal
	TaxRateSet   bool
}

// Merge superpone los campos presentes de other sobre el patch.
func (p ItemPatch) Merge(other ItemPatch) ItemPatch {
	if other.Qty != nil {
		p.Qty = other.Qty
	}
	if other.UnitPrice != nil {
		p.UnitPrice = other.UnitPrice
	}
	if other.LineDiscount != nil {
		p.LineDiscount = other.LineDiscount
	}
	if other.TaxRateSet {
		p.TaxRate = other.TaxRate
		p.TaxRateSet = true
	}
	return p
}

// IsEmpty indica si el patch no toca ningún campo.
func (p ItemPatch) IsEmpty() bool {
	return p.Qty == nil && p.UnitPrice == nil && p.LineDiscount == nil && !p.TaxRateSet
}

// ReservedProduct agregado de reservas por producto crudo.
type ReservedProduct struct {
	ProductID   string
	ReservedQty decimal.Decimal
}

// TabClient operaciones sobre comandas e ítems.
type TabClient interface {
	ListTabs(ctx context.Context, status string) ([]*entity.Tab, error)
	GetTab(ctx context.Context, id string) (*entity.Tab, error)
	CreateTab(ctx context.Context, name, notes string) (*entity.Tab, error)
	RenameTab(ctx context.Context, id, name string) error
	SetTabNote(ctx context.Context, id, notes string) error
	AddTabItem(ctx context.Context, tabID, productID string, qty int64, unitPrice decimal.Decimal) (*entity.TabItem, error)
	UpdateTabItem(ctx context.Context, itemID string, patch ItemPatch) (*entity.TabItem, error)
	RemoveTabItem(ctx context.Context, itemID string) error
	ClearTab(ctx context.Context, tabID string) error
	CloseTab(ctx context.Context, tabID string) error
	ReopenTab(ctx context.Context, tabID string) error
	DeleteTab(ctx context.Context, tabID string) error
	GetReservedSummary(ctx context.Context, status string) ([]ReservedProduct, error)
}

// CreateSaleInput carga útil de createSale. Los ítems ya llevan el descuento
// de factura redistribuido por línea.
type CreateSaleInput struct {
	TabID    string
	Items    []entity.SaleItem
	Payments []entity.Payment
	Totals   entity.Totals
	Notes    string
}

// SaleClient creación de ventas.
type SaleClient interface {
	CreateSale(ctx context.Context, in CreateSaleInput) (*entity.Sale, error)
}
