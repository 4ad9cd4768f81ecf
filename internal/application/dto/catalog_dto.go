package dto

import "github.com/shopspring/decimal"

// ProductResponse entrada del catálogo con su disponibilidad en tiempo real.
type ProductResponse struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Category       string          `json:"category"`
	Kind           string          `json:"kind"`
	Price          decimal.Decimal `json:"price"`
	PriceFormatted string          `json:"price_formatted"`
	Available      int64           `json:"available"`
	LowStock       bool            `json:"low_stock"`
}
