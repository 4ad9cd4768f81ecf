package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateTabRequest apertura de una comanda.
type CreateTabRequest struct {
	Name  string `json:"name"`
	Notes string `json:"notes"`
}

// RenameTabRequest cambio de nombre de la comanda seleccionada.
type RenameTabRequest struct {
	Name string `json:"name"`
}

// TabNoteRequest edición de la nota de la comanda.
type TabNoteRequest struct {
	Notes string `json:"notes"`
}

// AddItemRequest agregar una línea a la comanda seleccionada.
type AddItemRequest struct {
	ProductID string `json:"product_id"`
	Qty       int64  `json:"qty"`
}

// UpdateItemRequest mutación parcial de una línea. Los campos ausentes no se
// tocan; tax_rate admite null explícito ("usar tarifa del catálogo") vía
// TaxRateSet.
type UpdateItemRequest struct {
	Qty          *int64           `json:"qty"`
	UnitPrice    *decimal.Decimal `json:"unit_price"`
	LineDiscount *decimal.Decimal `json:"line_discount"`
	TaxRate      *decimal.Decimal `json:"tax_rate"`
	TaxRateSet   bool             `json:"tax_rate_set"`
}

// OverrideRequest descuento/tarifa a nivel de factura (vista previa).
type OverrideRequest struct {
	Discount decimal.Decimal  `json:"discount"`
	TaxRate  *decimal.Decimal `json:"tax_rate"`
}

// TotalsResponse totales de la comanda.
type TotalsResponse struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountTotal  decimal.Decimal `json:"discount_total"`
	TaxTotal       decimal.Decimal `json:"tax_total"`
	Total          decimal.Decimal `json:"total"`
	TotalFormatted string          `json:"total_formatted"`
}

// ItemResponse línea de la comanda.
type ItemResponse struct {
	ID           string           `json:"id"`
	ProductID    string           `json:"product_id"`
	Name         string           `json:"name"`
	Category     string           `json:"category"`
	Qty          int64            `json:"qty"`
	UnitPrice    decimal.Decimal  `json:"unit_price"`
	LineDiscount decimal.Decimal  `json:"line_discount"`
	TaxRate      *decimal.Decimal `json:"tax_rate"`
	TaxAmount    decimal.Decimal  `json:"tax_amount"`
	LineTotal    decimal.Decimal  `json:"line_total"`
	AddedAt      time.Time        `json:"added_at"`
}

// TabResponse comanda completa con totales (base y con override si aplica).
type TabResponse struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Status   string         `json:"status"`
	Notes    string         `json:"notes"`
	OpenedAt time.Time      `json:"opened_at"`
	ClosedAt *time.Time     `json:"closed_at,omitempty"`
	SaleID   string         `json:"sale_id,omitempty"`
	Items    []ItemResponse `json:"items"`
	Totals   TotalsResponse `json:"totals"`
	Preview  *TotalsResponse `json:"preview,omitempty"` // con override de factura
}
