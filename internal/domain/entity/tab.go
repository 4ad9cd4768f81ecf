package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estado de una comanda (mesa o puesto de barra).
const (
	TabOpen   = "OPEN"
	TabClosed = "CLOSED"
)

// Tab es una comanda: la unidad de edición optimista. Solo una comanda está
// seleccionada a la vez; toda respuesta asíncrona cuyo id de comanda ya no
// coincida con la seleccionada se descarta.
type Tab struct {
	ID       string
	Name     string
	Status   string // TabOpen o TabClosed
	Notes    string
	OpenedAt time.Time
	ClosedAt *time.Time
	SaleID   string // venta asociada si la comanda se convirtió en venta
	Items    []*TabItem
	Totals   Totals // siempre recalculados, nunca editados a mano
}

// IsOpen indica si la comanda admite mutaciones.
func (t *Tab) IsOpen() bool { return t.Status == TabOpen }

// FindItem devuelve el ítem con ese id, o nil.
func (t *Tab) FindItem(itemID string) *TabItem {
	for _, it := range t.Items {
		if it.ID == itemID {
			return it
		}
	}
	return nil
}

// TabItem es una línea de la comanda. UnitPrice y los snapshots de nombre y
// categoría se congelan al agregar; TaxAmount y LineTotal son derivados y se
// recalculan tras cada mutación local.
type TabItem struct {
	ID               string
	TabID            string
	ProductID        string
	Qty              int64 // entero >= 0
	UnitPrice        decimal.Decimal
	LineDiscount     decimal.Decimal  // COP, >= 0, <= Qty*UnitPrice
	TaxRate          *decimal.Decimal // porcentaje; nil = usar la del catálogo
	NameSnapshot     string
	CategorySnapshot string
	AddedAt          time.Time

	// Derivados (LineCalculator).
	TaxAmount decimal.Decimal
	LineTotal decimal.Decimal
}

// Totals agrupa los totales de la comanda. Derivables siempre de la suma de
// ítems (más el override de factura cuando aplica en vista previa).
type Totals struct {
	Subtotal      decimal.Decimal
	DiscountTotal decimal.Decimal
	TaxTotal      decimal.Decimal
	Total         decimal.Decimal
}
