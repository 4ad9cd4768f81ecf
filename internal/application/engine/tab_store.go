package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/barra-pos/internal/application/ports"
	"github.com/jhoicas/barra-pos/internal/domain"
	"github.com/jhoicas/barra-pos/internal/domain/entity"
	"github.com/jhoicas/barra-pos/internal/domain/pricing"
)

var cienDec = decimal.NewFromInt(100)

// TabStore es el dueño de la representación canónica en memoria de la
// comanda abierta en edición. Cada selección emite un token de generación;
// todo resultado asíncrono llega con el token bajo el que se emitió y se
// descarta si quedó obsoleto (el usuario navegó a otra comanda).
type TabStore struct {
	mu  sync.Mutex
	tab *entity.Tab
	gen uint64

	// baseline: última cantidad persistida por ítem. La diferencia contra la
	// cantidad local es lo editado dentro de la ventana de coalescencia, y
	// cuenta como reserva aunque todavía no haya viajado al backend.
	baseline map[string]int64

	overrideSet      bool
	overrideDiscount decimal.Decimal
	overrideTaxRate  *decimal.Decimal
}

// NewTabStore construye el store sin comanda seleccionada.
func NewTabStore() *TabStore {
	return &TabStore{baseline: make(map[string]int64)}
}

// cloneItem copia profunda de una línea (los punteros no se comparten).
func cloneItem(it *entity.TabItem) *entity.TabItem {
	cp := *it
	if it.TaxRate != nil {
		rate := *it.TaxRate
		cp.TaxRate = &rate
	}
	return &cp
}

// cloneTab copia profunda de la comanda. Los timers del coalescer mutan el
// estado interno bajo el lock; todo lo que sale del store es una copia.
func cloneTab(t *entity.Tab) *entity.Tab {
	if t == nil {
		return nil
	}
	out := *t
	if t.ClosedAt != nil {
		closed := *t.ClosedAt
		out.ClosedAt = &closed
	}
	out.Items = make([]*entity.TabItem, len(t.Items))
	for i, it := range t.Items {
		out.Items[i] = cloneItem(it)
	}
	return &out
}

// rebuildBaselineLocked reconstruye las cantidades persistidas desde un
// estado autoritativo. Llamar con el lock.
func (s *TabStore) rebuildBaselineLocked() {
	s.baseline = make(map[string]int64)
	if s.tab == nil {
		return
	}
	for _, it := range s.tab.Items {
		s.baseline[it.ID] = it.Qty
	}
}

// Select fija la comanda en edición, descarta el override anterior y avanza
// la generación, con lo que cualquier respuesta en vuelo de la comanda
// previa queda invalidada.
func (s *TabStore) Select(tab *entity.Tab) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tab = cloneTab(tab)
	s.overrideSet = false
	s.overrideDiscount = decimal.Zero
	s.overrideTaxRate = nil
	s.gen++
	s.rebuildBaselineLocked()
	s.recompute()
	return s.gen
}

// Deselect suelta la comanda actual y avanza la generación.
func (s *TabStore) Deselect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tab = nil
	s.overrideSet = false
	s.baseline = make(map[string]int64)
	s.gen++
}

// Generation devuelve el token de la selección vigente.
func (s *TabStore) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Current devuelve una instantánea profunda de la comanda seleccionada (nil
// si ninguna). Los timers del coalescer escriben el estado interno bajo el
// lock en cualquier momento; los consumidores leen siempre sobre la copia.
func (s *TabStore) Current() *entity.Tab {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneTab(s.tab)
}

// CurrentID devuelve el id de la comanda seleccionada o "".
func (s *TabStore) CurrentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tab == nil {
		return ""
	}
	return s.tab.ID
}

// matchesLocked: guardia de obsolescencia (generación y comanda).
func (s *TabStore) matchesLocked(gen uint64, tabID string) bool {
	return s.tab != nil && s.gen == gen && s.tab.ID == tabID
}

// AddItemLocal agrega la línea optimista (id temporal) y recalcula totales.
func (s *TabStore) AddItemLocal(product *entity.Product, qty int64, taxRate *decimal.Decimal) (*entity.TabItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tab == nil {
		return nil, domain.ErrNotFound
	}
	if !s.tab.IsOpen() {
		return nil, domain.ErrTabNotOpen
	}
	if qty <= 0 {
		return nil, domain.ErrInvalidInput
	}
	it := &entity.TabItem{
		ID:               uuid.New().String(),
		TabID:            s.tab.ID,
		ProductID:        product.ID,
		Qty:              qty,
		UnitPrice:        product.Price,
		LineDiscount:     decimal.Zero,
		TaxRate:          taxRate,
		NameSnapshot:     product.Name,
		CategorySnapshot: product.Category,
		AddedAt:          time.Now(),
	}
	pricing.RecalculateItem(it)
	s.tab.Items = append(s.tab.Items, it)
	s.baseline[it.ID] = 0 // aún no persistido: toda la cantidad es local
	s.recompute()
	return cloneItem(it), nil
}

// AdoptItem reemplaza la línea optimista por la autoritativa del backend,
// solo si la generación sigue vigente.
func (s *TabStore) AdoptItem(gen uint64, tempID string, authoritative *entity.TabItem) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tab == nil || s.gen != gen {
		return false
	}
	for i, it := range s.tab.Items {
		if it.ID == tempID {
			adopted := cloneItem(authoritative)
			pricing.RecalculateItem(adopted)
			s.tab.Items[i] = adopted
			delete(s.baseline, tempID)
			s.baseline[adopted.ID] = adopted.Qty
			s.recompute()
			return true
		}
	}
	return false
}

// UpdateItemLocal aplica el patch a la línea de forma síncrona y valida los
// invariantes: qty >= 0, 0 <= descuento <= bruto, tarifa en [0,100] o nil.
func (s *TabStore) UpdateItemLocal(itemID string, patch ports.ItemPatch) (*entity.TabItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tab == nil {
		return nil, domain.ErrNotFound
	}
	if !s.tab.IsOpen() {
		return nil, domain.ErrTabNotOpen
	}
	it := s.tab.FindItem(itemID)
	if it == nil {
		return nil, domain.ErrNotFound
	}

	next := *it
	if patch.Qty != nil {
		if *patch.Qty < 0 {
			return nil, domain.ErrInvalidInput
		}
		next.Qty = *patch.Qty
	}
	if patch.UnitPrice != nil {
		if patch.UnitPrice.IsNegative() {
			return nil, domain.ErrInvalidInput
		}
		next.UnitPrice = *patch.UnitPrice
	}
	if patch.LineDiscount != nil {
		next.LineDiscount = *patch.LineDiscount
	}
	if patch.TaxRateSet {
		next.TaxRate = patch.TaxRate
	}
	gross := next.UnitPrice.Mul(decimal.NewFromInt(next.Qty))
	if next.LineDiscount.IsNegative() || next.LineDiscount.GreaterThan(gross) {
		return nil, domain.ErrInvalidInput
	}
	if next.TaxRate != nil && (next.TaxRate.IsNegative() || next.TaxRate.GreaterThan(cienDec)) {
		return nil, domain.ErrInvalidInput
	}

	*it = next
	pricing.RecalculateItem(it)
	s.recompute()
	return cloneItem(it), nil
}

// ReconcileItem aplica la respuesta autoritativa de una persistencia solo si
// la generación y la comanda siguen vigentes Y el valor local aún coincide
// con lo que se envió (si no, una edición más nueva tiene su propio timer
// pendiente que la reemplazará).
func (s *TabStore) ReconcileItem(gen uint64, tabID string, authoritative *entity.TabItem, sent ports.ItemPatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.matchesLocked(gen, tabID) {
		return false
	}
	it := s.tab.FindItem(authoritative.ID)
	if it == nil {
		return false
	}
	if sent.Qty != nil && it.Qty != *sent.Qty {
		return false
	}
	if sent.UnitPrice != nil && !it.UnitPrice.Equal(*sent.UnitPrice) {
		return false
	}
	if sent.LineDiscount != nil && !it.LineDiscount.Equal(*sent.LineDiscount) {
		return false
	}
	if sent.TaxRateSet {
		switch {
		case it.TaxRate == nil && sent.TaxRate != nil,
			it.TaxRate != nil && sent.TaxRate == nil,
			it.TaxRate != nil && sent.TaxRate != nil && !it.TaxRate.Equal(*sent.TaxRate):
			return false
		}
	}

	*it = *cloneItem(authoritative)
	pricing.RecalculateItem(it)
	s.baseline[it.ID] = it.Qty
	s.recompute()
	return true
}

// RemoveItemLocal quita la línea y recalcula.
func (s *TabStore) RemoveItemLocal(itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tab == nil {
		return domain.ErrNotFound
	}
	if !s.tab.IsOpen() {
		return domain.ErrTabNotOpen
	}
	for i, it := range s.tab.Items {
		if it.ID == itemID {
			s.tab.Items = append(s.tab.Items[:i], s.tab.Items[i+1:]...)
			delete(s.baseline, itemID)
			s.recompute()
			return nil
		}
	}
	return domain.ErrNotFound
}

// ClearLocal vacía los ítems sin cambiar el estado de la comanda.
func (s *TabStore) ClearLocal() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tab == nil {
		return domain.ErrNotFound
	}
	if !s.tab.IsOpen() {
		return domain.ErrTabNotOpen
	}
	s.tab.Items = nil
	s.baseline = make(map[string]int64)
	s.recompute()
	return nil
}

// RenameLocal y SetNoteLocal mutan los metadatos de la comanda.
func (s *TabStore) RenameLocal(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tab == nil {
		return domain.ErrNotFound
	}
	s.tab.Name = name
	return nil
}

func (s *TabStore) SetNoteLocal(notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tab == nil {
		return domain.ErrNotFound
	}
	s.tab.Notes = notes
	return nil
}

// ReplaceTab recarga el estado autoritativo (recuperación tras un fallo de
// persistencia) solo si la generación sigue vigente y es la misma comanda.
func (s *TabStore) ReplaceTab(gen uint64, tab *entity.Tab) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.matchesLocked(gen, tab.ID) {
		return false
	}
	s.tab = cloneTab(tab)
	s.rebuildBaselineLocked()
	s.recompute()
	return true
}

// MarkClosed marca la comanda seleccionada como cerrada y enlaza la venta.
func (s *TabStore) MarkClosed(saleID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tab == nil {
		return
	}
	now := time.Now()
	s.tab.Status = entity.TabClosed
	s.tab.ClosedAt = &now
	if saleID != "" {
		s.tab.SaleID = saleID
	}
}

// SetOverride fija el descuento/tarifa a nivel de factura (vista previa).
func (s *TabStore) SetOverride(discount decimal.Decimal, taxRate *decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tab == nil {
		return domain.ErrNotFound
	}
	if discount.IsNegative() {
		return domain.ErrInvalidInput
	}
	if taxRate != nil && (taxRate.IsNegative() || taxRate.GreaterThan(cienDec)) {
		return domain.ErrInvalidInput
	}
	s.overrideSet = true
	s.overrideDiscount = discount
	s.overrideTaxRate = taxRate
	return nil
}

// ClearOverride descarta el override de factura.
func (s *TabStore) ClearOverride() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrideSet = false
	s.overrideDiscount = decimal.Zero
	s.overrideTaxRate = nil
}

// Override devuelve el override vigente (descuento, tarifa, activo).
func (s *TabStore) Override() (decimal.Decimal, *decimal.Decimal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overrideDiscount, s.overrideTaxRate, s.overrideSet
}

// PreviewTotals devuelve los totales con el override aplicado, si hay.
func (s *TabStore) PreviewTotals() (entity.Totals, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tab == nil || !s.overrideSet {
		return entity.Totals{}, false
	}
	return pricing.ApplyInvoiceOverride(s.tab.Totals, s.overrideDiscount, s.overrideTaxRate), true
}

// LocalReservationDelta devuelve, por producto, la cantidad editada localmente
// que todavía no viajó al backend (local menos persistido). El agregado de
// reservas del backend no ve esas ediciones durante la ventana de
// coalescencia; este delta las suma al cálculo de disponibilidad.
func (s *TabStore) LocalReservationDelta() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tab == nil || !s.tab.IsOpen() {
		return nil
	}
	delta := make(map[string]int64)
	for _, it := range s.tab.Items {
		delta[it.ProductID] += it.Qty - s.baseline[it.ID]
	}
	for id, d := range delta {
		if d == 0 {
			delete(delta, id)
		}
	}
	if len(delta) == 0 {
		return nil
	}
	return delta
}

// recompute reejecuta el cálculo de líneas y totales. Llamar con el lock.
func (s *TabStore) recompute() {
	if s.tab == nil {
		return
	}
	for _, it := range s.tab.Items {
		pricing.RecalculateItem(it)
	}
	s.tab.Totals = pricing.TabTotals(s.tab.Items)
}
