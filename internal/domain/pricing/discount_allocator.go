package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/barra-pos/internal/domain/entity"
)

// ClampInvoiceDiscount normaliza el descuento de factura: redondeado y
// acotado a [0, round(subtotal)].
func ClampInvoiceDiscount(discount, subtotal decimal.Decimal) decimal.Decimal {
	safe := discount.Round(0)
	if safe.IsNegative() {
		return decimal.Zero
	}
	if max := subtotal.Round(0); safe.GreaterThan(max) {
		return max
	}
	return safe
}

// ApplyInvoiceOverride aplica el descuento/tarifa a nivel de factura sobre los
// totales base. Es una transformación de vista previa: al crear la venta el
// descuento se redistribuye sobre las líneas (AllocateInvoiceDiscount) porque
// el formato de venta del backend no tiene descuento de factura.
//
// Si no se da tarifa, el impuesto existente se escala proporcionalmente al
// nuevo subtotal neto (sin efecto si el subtotal es 0).
func ApplyInvoiceOverride(base entity.Totals, invoiceDiscount decimal.Decimal, invoiceTaxRate *decimal.Decimal) entity.Totals {
	safe := ClampInvoiceDiscount(invoiceDiscount, base.Subtotal)
	net := base.Subtotal.Sub(safe)

	var tax decimal.Decimal
	switch {
	case invoiceTaxRate != nil:
		tax = net.Mul(*invoiceTaxRate).Div(cien).Round(0)
	case base.Subtotal.IsZero():
		tax = base.TaxTotal
	default:
		tax = base.TaxTotal.Mul(net).Div(base.Subtotal).Round(0)
	}

	return entity.Totals{
		Subtotal:      net,
		DiscountTotal: base.DiscountTotal.Add(safe),
		TaxTotal:      tax,
		Total:         net.Add(tax).Round(0),
	}
}

// AllocateInvoiceDiscount redistribuye el descuento de factura sobre las
// líneas en orden: cada línea toma round(descuento × baseLínea / baseTotal)
// acotado a lo aún no distribuido, y la ÚLTIMA línea absorbe el resto para
// que la suma asignada sea exactamente el descuento pedido (sin fuga de
// redondeo). El descuento resultante de cada línea nunca supera su bruto.
//
// Devuelve el descuento extra por línea, alineado con items.
func AllocateInvoiceDiscount(items []*entity.TabItem, invoiceDiscount decimal.Decimal) []decimal.Decimal {
	extras := make([]decimal.Decimal, len(items))
	for i := range extras {
		extras[i] = decimal.Zero
	}
	if len(items) == 0 {
		return extras
	}

	totalBase := decimal.Zero
	bases := make([]decimal.Decimal, len(items))
	for i, it := range items {
		bases[i] = CalculateLine(it.Qty, it.UnitPrice, it.LineDiscount, it.TaxRate).Base
		totalBase = totalBase.Add(bases[i])
	}

	safe := ClampInvoiceDiscount(invoiceDiscount, totalBase)
	if safe.IsZero() || totalBase.IsZero() {
		return extras
	}

	remaining := safe
	for i := range items {
		var extra decimal.Decimal
		if i == len(items)-1 {
			extra = remaining
		} else {
			extra = safe.Mul(bases[i]).Div(totalBase).Round(0)
			if extra.GreaterThan(remaining) {
				extra = remaining
			}
		}
		// El descuento final de la línea (actual + extra) no puede superar su
		// bruto; el margen disponible es exactamente la base de la línea.
		if extra.GreaterThan(bases[i]) {
			extra = bases[i]
		}
		extras[i] = extra
		remaining = remaining.Sub(extra)
	}
	return extras
}
