package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/barra-pos/internal/application/ports"
	"github.com/jhoicas/barra-pos/internal/domain"
	"github.com/jhoicas/barra-pos/internal/domain/entity"
	"github.com/jhoicas/barra-pos/internal/domain/pricing"
	"github.com/jhoicas/barra-pos/pkg/logger"
)

// Estados del flujo de cierre. SALE_UNCLOSED es el caso degenerado: la venta
// quedó creada en el backend pero el cierre de la comanda falló; reintentar
// SOLO reintenta el cierre, nunca vuelve a enviar la venta (evita duplicar
// facturación).
const (
	CloseStateOpen         = "OPEN"
	CloseStateSubmitting   = "SUBMITTING"
	CloseStateSaleUnclosed = "SALE_UNCLOSED"
)

// CloseResult resume el desenlace del cierre para la UI.
type CloseResult struct {
	Sale      *entity.Sale
	Change    decimal.Decimal
	TabClosed bool
}

// SaleCloser convierte la comanda seleccionada en venta: valida pagos,
// redistribuye el descuento de factura sobre las líneas, crea la venta y
// cierra la comanda. La venta lleva los totales calculados desde cero sobre
// el estado local, no los totales incrementales.
type SaleCloser struct {
	store        *TabStore
	coalescer    *MutationCoalescer
	tabs         ports.TabClient
	sales        ports.SaleClient
	reservations *ReservationTracker
	log          *logger.Logger

	mu        sync.Mutex
	state     string
	pending   *entity.Sale // venta creada cuyo cierre de comanda falló
	completed map[string]*entity.Sale
}

// NewSaleCloser construye el cerrador en estado OPEN.
func NewSaleCloser(
	store *TabStore,
	coalescer *MutationCoalescer,
	tabs ports.TabClient,
	sales ports.SaleClient,
	reservations *ReservationTracker,
	log *logger.Logger,
) *SaleCloser {
	return &SaleCloser{
		store:        store,
		coalescer:    coalescer,
		tabs:         tabs,
		sales:        sales,
		reservations: reservations,
		log:          log,
		state:        CloseStateOpen,
		completed:    make(map[string]*entity.Sale),
	}
}

// State devuelve el estado vigente del flujo de cierre.
func (c *SaleCloser) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Sale devuelve una venta completada en esta sesión (para el recibo).
func (c *SaleCloser) Sale(id string) (*entity.Sale, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sale, ok := c.completed[id]; ok {
		return sale, nil
	}
	return nil, domain.ErrNotFound
}

// Close ejecuta el cierre de la comanda seleccionada. Si createSale tuvo
// éxito pero closeTab falló, devuelve el resultado con TabClosed en false
// junto con ErrCloseAfterSale; el llamador debe ofrecer RetryClose.
func (c *SaleCloser) Close(ctx context.Context, payments []entity.Payment, notes string) (*CloseResult, error) {
	c.mu.Lock()
	if c.state != CloseStateOpen {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: cierre en estado %s", domain.ErrConflict, c.state)
	}
	c.state = CloseStateSubmitting
	c.mu.Unlock()

	result, err := c.submit(ctx, payments, notes)
	c.mu.Lock()
	switch {
	case err == nil:
		c.completed[result.Sale.ID] = result.Sale
		c.state = CloseStateOpen
	case result != nil && result.Sale != nil:
		// venta creada, comanda sin cerrar
		c.completed[result.Sale.ID] = result.Sale
		c.pending = result.Sale
		c.state = CloseStateSaleUnclosed
	default:
		c.state = CloseStateOpen
	}
	c.mu.Unlock()
	return result, err
}

func (c *SaleCloser) submit(ctx context.Context, payments []entity.Payment, notes string) (*CloseResult, error) {
	tab := c.store.Current()
	if tab == nil {
		return nil, domain.ErrNotFound
	}
	if !tab.IsOpen() {
		return nil, domain.ErrTabNotOpen
	}
	if len(tab.Items) == 0 {
		return nil, domain.ErrEmptyTab
	}
	if err := validatePayments(payments); err != nil {
		return nil, err
	}

	items, totals := c.buildSaleItems(tab)

	paid := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(p.Amount)
	}
	if paid.LessThan(totals.Total) {
		return nil, fmt.Errorf("%w: pagado %s, total %s",
			domain.ErrInsufficientPayment, paid.String(), totals.Total.String())
	}

	sale, err := c.sales.CreateSale(ctx, ports.CreateSaleInput{
		TabID:    tab.ID,
		Items:    items,
		Payments: payments,
		Totals:   totals,
		Notes:    notes,
	})
	if err != nil {
		return nil, err
	}

	if err := c.tabs.CloseTab(ctx, tab.ID); err != nil {
		c.log.Error().Err(err).Str("sale_id", sale.ID).Str("tab_id", tab.ID).
			Msg("venta creada pero el cierre de comanda falló")
		return &CloseResult{Sale: sale, Change: sale.Change()}, domain.ErrCloseAfterSale
	}

	c.finishClose(ctx, sale)
	return &CloseResult{Sale: sale, Change: sale.Change(), TabClosed: true}, nil
}

// RetryClose reintenta únicamente el cierre de la comanda de una venta ya
// creada. No toca la venta.
func (c *SaleCloser) RetryClose(ctx context.Context) (*CloseResult, error) {
	c.mu.Lock()
	if c.state != CloseStateSaleUnclosed || c.pending == nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: no hay cierre pendiente", domain.ErrConflict)
	}
	sale := c.pending
	c.mu.Unlock()

	if err := c.tabs.CloseTab(ctx, sale.TabID); err != nil {
		return &CloseResult{Sale: sale, Change: sale.Change()}, domain.ErrCloseAfterSale
	}

	c.finishClose(ctx, sale)
	c.mu.Lock()
	c.pending = nil
	c.state = CloseStateOpen
	c.mu.Unlock()
	return &CloseResult{Sale: sale, Change: sale.Change(), TabClosed: true}, nil
}

// finishClose: la comanda quedó cerrada en el backend; reflejarlo en local y
// soltar timers y reservas.
func (c *SaleCloser) finishClose(ctx context.Context, sale *entity.Sale) {
	if c.store.CurrentID() == sale.TabID {
		c.coalescer.CancelAll()
		c.store.MarkClosed(sale.ID)
	}
	if err := c.reservations.Refresh(ctx); err != nil {
		c.log.Warn().Err(err).Msg("refresco de reservas tras cierre de venta")
	}
}

// buildSaleItems arma las líneas de venta desde el estado local: redistribuye
// el descuento de factura (si hay override) proporcionalmente sobre las bases
// y recalcula impuesto y total línea a línea. La tarifa explícita del
// override reemplaza la de cada línea.
func (c *SaleCloser) buildSaleItems(tab *entity.Tab) ([]entity.SaleItem, entity.Totals) {
	invoiceDiscount, invoiceTaxRate, hasOverride := c.store.Override()

	var extras []decimal.Decimal
	if hasOverride && invoiceDiscount.IsPositive() {
		extras = pricing.AllocateInvoiceDiscount(tab.Items, invoiceDiscount)
	}

	items := make([]entity.SaleItem, 0, len(tab.Items))
	totals := entity.Totals{
		Subtotal:      decimal.Zero,
		DiscountTotal: decimal.Zero,
		TaxTotal:      decimal.Zero,
		Total:         decimal.Zero,
	}
	for i, it := range tab.Items {
		discount := it.LineDiscount
		if extras != nil {
			discount = discount.Add(extras[i])
		}
		taxRate := it.TaxRate
		if hasOverride && invoiceTaxRate != nil {
			taxRate = invoiceTaxRate
		}
		line := pricing.CalculateLine(it.Qty, it.UnitPrice, discount, taxRate)
		items = append(items, entity.SaleItem{
			ProductID:    it.ProductID,
			Name:         it.NameSnapshot,
			Qty:          it.Qty,
			UnitPrice:    it.UnitPrice,
			LineDiscount: discount,
			TaxRate:      taxRate,
			TaxAmount:    line.TaxAmount,
			LineTotal:    line.LineTotal,
		})
		totals.Subtotal = totals.Subtotal.Add(line.Base)
		totals.DiscountTotal = totals.DiscountTotal.Add(discount)
		totals.TaxTotal = totals.TaxTotal.Add(line.TaxAmount)
		totals.Total = totals.Total.Add(line.LineTotal)
	}
	return items, totals
}

func validatePayments(payments []entity.Payment) error {
	if len(payments) == 0 {
		return fmt.Errorf("%w: se requiere al menos un pago", domain.ErrInvalidInput)
	}
	for _, p := range payments {
		switch p.Method {
		case entity.PaymentCash, entity.PaymentCard, entity.PaymentTransfer, entity.PaymentOther:
		default:
			return fmt.Errorf("%w: método de pago %q", domain.ErrInvalidInput, p.Method)
		}
		if !p.Amount.IsPositive() {
			return fmt.Errorf("%w: monto de pago debe ser positivo", domain.ErrInvalidInput)
		}
		if p.Method == entity.PaymentTransfer && p.Provider == "" {
			return domain.ErrProviderRequired
		}
	}
	return nil
}
