// Package pricing contiene los cálculos puros de dinero de la comanda:
// líneas, totales y redistribución del descuento de factura. Todo en COP con
// decimal; se redondea solo en los puntos de decisión que fija el negocio.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/barra-pos/internal/domain/entity"
)

var cien = decimal.NewFromInt(100)

// Line es el resultado del cálculo de una línea.
type Line struct {
	Gross     decimal.Decimal // cantidad × precio unitario
	Base      decimal.Decimal // max(0, bruto − descuento de línea)
	TaxAmount decimal.Decimal // round(base × tarifa / 100); 0 si la tarifa es nil
	LineTotal decimal.Decimal // base + impuesto
}

// CalculateLine es función pura: se reejecuta tras cada mutación local para
// que la UI quede consistente antes de cualquier respuesta de red.
func CalculateLine(qty int64, unitPrice, lineDiscount decimal.Decimal, taxRate *decimal.Decimal) Line {
	gross := unitPrice.Mul(decimal.NewFromInt(qty))
	base := gross.Sub(lineDiscount)
	if base.IsNegative() {
		base = decimal.Zero
	}
	tax := decimal.Zero
	if taxRate != nil {
		tax = base.Mul(*taxRate).Div(cien).Round(0)
	}
	return Line{Gross: gross, Base: base, TaxAmount: tax, LineTotal: base.Add(tax)}
}

// RecalculateItem actualiza los campos derivados del ítem en sitio.
func RecalculateItem(it *entity.TabItem) {
	line := CalculateLine(it.Qty, it.UnitPrice, it.LineDiscount, it.TaxRate)
	it.TaxAmount = line.TaxAmount
	it.LineTotal = line.LineTotal
}

// TabTotals suma las líneas sin override de factura: subtotal = Σ base,
// descuento = Σ descuentos de línea, impuesto = Σ impuestos, total = Σ totales.
func TabTotals(items []*entity.TabItem) entity.Totals {
	t := entity.Totals{
		Subtotal:      decimal.Zero,
		DiscountTotal: decimal.Zero,
		TaxTotal:      decimal.Zero,
		Total:         decimal.Zero,
	}
	for _, it := range items {
		line := CalculateLine(it.Qty, it.UnitPrice, it.LineDiscount, it.TaxRate)
		t.Subtotal = t.Subtotal.Add(line.Base)
		t.DiscountTotal = t.DiscountTotal.Add(it.LineDiscount)
		t.TaxTotal = t.TaxTotal.Add(line.TaxAmount)
		t.Total = t.Total.Add(line.LineTotal)
	}
	return t
}
