package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentRequest un pago parcial del cierre.
type PaymentRequest struct {
	Method    string          `json:"method"` // CASH, CARD, TRANSFER, OTHER
	Amount    decimal.Decimal `json:"amount"`
	Provider  string          `json:"provider"`
	Reference string          `json:"reference"`
}

// CloseoutRequest convierte la comanda seleccionada en venta.
type CloseoutRequest struct {
	Payments []PaymentRequest `json:"payments"`
	Notes    string           `json:"notes"`
}

// SaleResponse venta creada.
type SaleResponse struct {
	ID              string          `json:"id"`
	TabID           string          `json:"tab_id"`
	Totals          TotalsResponse  `json:"totals"`
	Paid            decimal.Decimal `json:"paid"`
	Change          decimal.Decimal `json:"change"`
	ChangeFormatted string          `json:"change_formatted"`
	TabClosed       bool            `json:"tab_closed"`
	CreatedAt       time.Time       `json:"created_at"`
}
