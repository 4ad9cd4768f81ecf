package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Métodos de pago aceptados en el cierre de venta.
const (
	PaymentCash     = "CASH"
	PaymentCard     = "CARD"
	PaymentTransfer = "TRANSFER"
	PaymentOther    = "OTHER"
)

// Payment es un pago parcial de una venta. Una venta tiene 1..N pagos y la
// suma de montos debe cubrir el total.
type Payment struct {
	Method    string // PaymentCash, PaymentCard, PaymentTransfer, PaymentOther
	Amount    decimal.Decimal
	Provider  string // obligatorio si Method == PaymentTransfer
	Reference string
}

// SaleItem es una línea persistida de la venta. El descuento de factura ya
// viene redistribuido sobre las líneas: el formato de venta no tiene campo de
// descuento a nivel de factura.
type SaleItem struct {
	ProductID    string
	Name         string
	Qty          int64
	UnitPrice    decimal.Decimal
	LineDiscount decimal.Decimal
	TaxRate      *decimal.Decimal
	TaxAmount    decimal.Decimal
	LineTotal    decimal.Decimal
}

// Sale es el resultado de convertir una comanda en venta cerrada.
type Sale struct {
	ID        string
	TabID     string
	Items     []SaleItem
	Payments  []Payment
	Totals    Totals
	Notes     string
	CreatedAt time.Time
}

// Paid suma los montos de todos los pagos.
func (s *Sale) Paid() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range s.Payments {
		sum = sum.Add(p.Amount)
	}
	return sum
}

// Change devuelve el cambio para el cliente: max(0, pagado - total).
// Es informativo; no se persiste como asiento aparte.
func (s *Sale) Change() decimal.Decimal {
	change := s.Paid().Sub(s.Totals.Total)
	if change.IsNegative() {
		return decimal.Zero
	}
	return change
}
