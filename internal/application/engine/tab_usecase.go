package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/barra-pos/internal/application/dto"
	"github.com/jhoicas/barra-pos/internal/application/ports"
	"github.com/jhoicas/barra-pos/internal/domain"
	"github.com/jhoicas/barra-pos/internal/domain/availability"
	"github.com/jhoicas/barra-pos/internal/domain/entity"
	"github.com/jhoicas/barra-pos/pkg/logger"
	"github.com/jhoicas/barra-pos/pkg/money"
)

// TabUseCase orquesta el motor: aplica cada intención de la UI primero en
// local (síncrono, optimista) y después resuelve la persistencia — inmediata
// para altas/bajas y disparadores explícitos, coalescida para la ráfaga de
// ediciones de una línea. Ante cualquier fallo de mutación recarga el estado
// autoritativo en vez de confiar en el valor optimista.
type TabUseCase struct {
	store        *TabStore
	coalescer    *MutationCoalescer
	resolver     *RecipeResolver
	reservations *ReservationTracker
	availability *availability.Calculator
	tabs         ports.TabClient
	catalog      ports.CatalogClient
	log          *logger.Logger

	bearerMu sync.Mutex
	bearer   string // credencial de la última petición, para persistencias en background
}

// NewTabUseCase construye el caso de uso y engancha el coalescer a la
// persistencia de ítems.
func NewTabUseCase(
	store *TabStore,
	resolver *RecipeResolver,
	reservations *ReservationTracker,
	calc *availability.Calculator,
	tabs ports.TabClient,
	catalog ports.CatalogClient,
	debounce time.Duration,
	log *logger.Logger,
) *TabUseCase {
	uc := &TabUseCase{
		store:        store,
		resolver:     resolver,
		reservations: reservations,
		availability: calc,
		tabs:         tabs,
		catalog:      catalog,
		log:          log,
	}
	uc.coalescer = NewMutationCoalescer(debounce, uc.persistItem)
	return uc
}

// Coalescer expone el coalescer (lo comparte el cierre de venta para cancelar
// pendientes).
func (u *TabUseCase) Coalescer() *MutationCoalescer { return u.coalescer }

// rememberBearer guarda la credencial de la petición para los timers.
func (u *TabUseCase) rememberBearer(ctx context.Context) {
	if token := ports.Bearer(ctx); token != "" {
		u.bearerMu.Lock()
		u.bearer = token
		u.bearerMu.Unlock()
	}
}

// backgroundCtx arma el contexto de una persistencia disparada por timer.
func (u *TabUseCase) backgroundCtx() context.Context {
	u.bearerMu.Lock()
	token := u.bearer
	u.bearerMu.Unlock()
	return ports.WithBearer(context.Background(), token)
}

// ── Lectura ───────────────────────────────────────────────────────────────────

// ListTabs lista comandas por estado ("" = todas).
func (u *TabUseCase) ListTabs(ctx context.Context, status string) ([]*entity.Tab, error) {
	u.rememberBearer(ctx)
	return u.tabs.ListTabs(ctx, status)
}

// Get trae una comanda del backend sin seleccionarla.
func (u *TabUseCase) Get(ctx context.Context, id string) (*entity.Tab, error) {
	u.rememberBearer(ctx)
	return u.tabs.GetTab(ctx, id)
}

// Catalog lista el catálogo con disponibilidad en tiempo real. La
// disponibilidad decide qué entradas puede agregar la UI.
func (u *TabUseCase) Catalog(ctx context.Context, query string) ([]dto.ProductResponse, error) {
	u.rememberBearer(ctx)
	products, err := u.catalog.ListProducts(ctx, query)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*entity.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	lookup := func(id string) *entity.Product { return byID[id] }
	reserved := u.reservedWithLocal()

	out := make([]dto.ProductResponse, 0, len(products))
	for _, p := range products {
		var recipe []entity.RecipeItem
		if p.IsCocktail() {
			recipe = u.resolver.Resolve(ctx, p.ID)
		}
		res := u.availability.ForProduct(p, recipe, lookup, reserved)
		out = append(out, dto.ProductResponse{
			ID:             p.ID,
			Name:           p.Name,
			Category:       p.Category,
			Kind:           p.Kind,
			Price:          p.Price,
			PriceFormatted: money.FormatCOP(p.Price),
			Available:      res.Available,
			LowStock:       res.LowStock,
		})
	}
	return out, nil
}

// ReloadCatalog invalida la caché de recetas y recarga reservas (acción
// manual "recargar catálogo": única invalidación de la caché de sesión).
func (u *TabUseCase) ReloadCatalog(ctx context.Context) error {
	u.rememberBearer(ctx)
	u.resolver.Invalidate()
	return u.reservations.Refresh(ctx)
}

// ── Ciclo de vida de la comanda ───────────────────────────────────────────────

// Create abre una comanda nueva (estado OPEN, sin ítems) y la selecciona.
func (u *TabUseCase) Create(ctx context.Context, name, notes string) (*entity.Tab, error) {
	u.rememberBearer(ctx)
	if name == "" {
		return nil, fmt.Errorf("%w: nombre requerido", domain.ErrInvalidInput)
	}
	tab, err := u.tabs.CreateTab(ctx, name, notes)
	if err != nil {
		return nil, err
	}
	u.coalescer.CancelAll()
	u.store.Select(tab)
	return tab, nil
}

// Select trae la comanda del backend y la fija como editable. Cancela los
// timers pendientes de la comanda anterior y refresca reservas.
func (u *TabUseCase) Select(ctx context.Context, id string) (*entity.Tab, error) {
	u.rememberBearer(ctx)
	tab, err := u.tabs.GetTab(ctx, id)
	if err != nil {
		return nil, err
	}
	u.coalescer.CancelAll()
	u.store.Select(tab)
	if err := u.reservations.Refresh(ctx); err != nil {
		u.log.Warn().Err(err).Msg("refresco de reservas tras seleccionar comanda")
	}
	return tab, nil
}

// Rename renombra la comanda seleccionada: local primero, backend después.
func (u *TabUseCase) Rename(ctx context.Context, name string) error {
	u.rememberBearer(ctx)
	if name == "" {
		return fmt.Errorf("%w: nombre requerido", domain.ErrInvalidInput)
	}
	if err := u.store.RenameLocal(name); err != nil {
		return err
	}
	gen := u.store.Generation()
	if err := u.tabs.RenameTab(ctx, u.store.CurrentID(), name); err != nil {
		u.recover(ctx, gen)
		return err
	}
	return nil
}

// SetNote edita la nota de la comanda seleccionada.
func (u *TabUseCase) SetNote(ctx context.Context, notes string) error {
	u.rememberBearer(ctx)
	if err := u.store.SetNoteLocal(notes); err != nil {
		return err
	}
	gen := u.store.Generation()
	if err := u.tabs.SetTabNote(ctx, u.store.CurrentID(), notes); err != nil {
		u.recover(ctx, gen)
		return err
	}
	return nil
}

// Reopen reabre una comanda CERRADA. Una comanda ya convertida en venta no
// se reabre: reabrirla duplicaría la facturación.
func (u *TabUseCase) Reopen(ctx context.Context, id string) (*entity.Tab, error) {
	u.rememberBearer(ctx)
	tab, err := u.tabs.GetTab(ctx, id)
	if err != nil {
		return nil, err
	}
	if tab.SaleID != "" {
		return nil, domain.ErrTabHasSale
	}
	if tab.IsOpen() {
		return nil, domain.ErrConflict
	}
	if err := u.tabs.ReopenTab(ctx, id); err != nil {
		return nil, err
	}
	tab.Status = entity.TabOpen
	tab.ClosedAt = nil
	if err := u.reservations.Refresh(ctx); err != nil {
		u.log.Warn().Err(err).Msg("refresco de reservas tras reabrir")
	}
	return tab, nil
}

// CloseWithoutSale cierra la comanda seleccionada sin producir venta.
func (u *TabUseCase) CloseWithoutSale(ctx context.Context) error {
	u.rememberBearer(ctx)
	tab := u.store.Current()
	if tab == nil {
		return domain.ErrNotFound
	}
	if !tab.IsOpen() {
		return domain.ErrTabNotOpen
	}
	u.coalescer.CancelAll()
	if err := u.tabs.CloseTab(ctx, tab.ID); err != nil {
		return err
	}
	u.store.MarkClosed("")
	u.refreshReservations(ctx)
	return nil
}

// Delete elimina una comanda; solo mientras está ABIERTA.
func (u *TabUseCase) Delete(ctx context.Context, id string) error {
	u.rememberBearer(ctx)
	tab, err := u.tabs.GetTab(ctx, id)
	if err != nil {
		return err
	}
	if !tab.IsOpen() {
		return domain.ErrTabNotOpen
	}
	if err := u.tabs.DeleteTab(ctx, id); err != nil {
		return err
	}
	if u.store.CurrentID() == id {
		u.coalescer.CancelAll()
		u.store.Deselect()
	}
	u.refreshReservations(ctx)
	return nil
}

// ── Ítems ─────────────────────────────────────────────────────────────────────

// AddItem agrega una línea a la comanda seleccionada. La disponibilidad
// (stock menos reservas de todas las comandas abiertas) decide si el alta
// procede. El alta es un commit explícito: no pasa por el debounce.
func (u *TabUseCase) AddItem(ctx context.Context, productID string, qty int64) (*entity.TabItem, error) {
	u.rememberBearer(ctx)
	if qty <= 0 {
		return nil, fmt.Errorf("%w: cantidad debe ser positiva", domain.ErrInvalidInput)
	}

	products, err := u.catalog.ListProducts(ctx, "")
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*entity.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	product := byID[productID]
	if product == nil {
		return nil, domain.ErrNotFound
	}

	var recipe []entity.RecipeItem
	if product.IsCocktail() {
		recipe = u.resolver.Resolve(ctx, productID)
	}
	res := u.availability.ForProduct(product, recipe, func(id string) *entity.Product { return byID[id] }, u.reservedWithLocal())
	if qty > res.Available {
		return nil, fmt.Errorf("%w: disponibles %d", domain.ErrNoAvailability, res.Available)
	}

	item, err := u.store.AddItemLocal(product, qty, nil)
	if err != nil {
		return nil, err
	}
	gen := u.store.Generation()
	tabID := u.store.CurrentID()

	authoritative, err := u.tabs.AddTabItem(ctx, tabID, productID, qty, product.Price)
	if err != nil {
		u.recover(ctx, gen)
		return nil, err
	}
	if !u.store.AdoptItem(gen, item.ID, authoritative) {
		u.log.Debug().Str("tab_id", tabID).Msg("alta reconciliada descartada por obsolescencia")
		return authoritative, nil
	}
	u.refreshReservations(ctx)
	return authoritative, nil
}

// UpdateItem aplica la mutación en local de inmediato y programa la
// persistencia: coalescida dentro de la ventana, o inmediata si commit es
// true (blur, Enter, botones +/−).
func (u *TabUseCase) UpdateItem(ctx context.Context, itemID string, patch ports.ItemPatch, commit bool) (*entity.TabItem, error) {
	u.rememberBearer(ctx)
	if patch.IsEmpty() {
		return nil, fmt.Errorf("%w: patch vacío", domain.ErrInvalidInput)
	}
	item, err := u.store.UpdateItemLocal(itemID, patch)
	if err != nil {
		return nil, err
	}
	u.coalescer.Schedule(itemID, patch)
	if commit {
		u.coalescer.Flush(itemID)
	}
	return item, nil
}

// RemoveItem elimina la línea: descarta pendientes del ítem y va directo al
// backend.
func (u *TabUseCase) RemoveItem(ctx context.Context, itemID string) error {
	u.rememberBearer(ctx)
	u.coalescer.Cancel(itemID)
	if err := u.store.RemoveItemLocal(itemID); err != nil {
		return err
	}
	gen := u.store.Generation()
	if err := u.tabs.RemoveTabItem(ctx, itemID); err != nil {
		u.recover(ctx, gen)
		return err
	}
	u.refreshReservations(ctx)
	return nil
}

// Clear vacía los ítems de la comanda seleccionada (el estado no cambia).
func (u *TabUseCase) Clear(ctx context.Context) error {
	u.rememberBearer(ctx)
	u.coalescer.CancelAll()
	if err := u.store.ClearLocal(); err != nil {
		return err
	}
	gen := u.store.Generation()
	if err := u.tabs.ClearTab(ctx, u.store.CurrentID()); err != nil {
		u.recover(ctx, gen)
		return err
	}
	u.refreshReservations(ctx)
	return nil
}

// SelectedID devuelve el id de la comanda en edición ("" si ninguna).
func (u *TabUseCase) SelectedID() string { return u.store.CurrentID() }

// ClearOverride descarta el override de factura vigente.
func (u *TabUseCase) ClearOverride() { u.store.ClearOverride() }

// SetOverride fija el descuento/tarifa de factura y devuelve la vista previa.
func (u *TabUseCase) SetOverride(discount decimal.Decimal, taxRate *decimal.Decimal) (entity.Totals, error) {
	if err := u.store.SetOverride(discount, taxRate); err != nil {
		return entity.Totals{}, err
	}
	preview, _ := u.store.PreviewTotals()
	return preview, nil
}

// reservedWithLocal combina el agregado de reservas del backend con las
// ediciones locales de la comanda seleccionada que aún no viajaron (ventana
// de coalescencia): la disponibilidad ve la cantidad que el mesero ya pidió,
// no la que el backend alcanzó a persistir.
func (u *TabUseCase) reservedWithLocal() func(productID string) decimal.Decimal {
	delta := u.store.LocalReservationDelta()
	return func(productID string) decimal.Decimal {
		r := u.reservations.Reserved(productID)
		if d, ok := delta[productID]; ok {
			r = r.Add(decimal.NewFromInt(d))
		}
		return r
	}
}

// ── Persistencia coalescida ───────────────────────────────────────────────────

// persistItem corre en el goroutine del timer del coalescer. Reconciliar la
// respuesta exige que la generación siga vigente y que el valor local aún
// sea el solicitado; un fallo recarga el estado autoritativo y se propaga al
// coalescer para que el valor no quede marcado como enviado.
func (u *TabUseCase) persistItem(itemID string, patch ports.ItemPatch) error {
	ctx := u.backgroundCtx()
	gen := u.store.Generation()
	tabID := u.store.CurrentID()
	if tabID == "" {
		return nil
	}

	authoritative, err := u.tabs.UpdateTabItem(ctx, itemID, patch)
	if err != nil {
		u.log.Warn().Err(err).Str("item_id", itemID).Msg("persistencia de ítem falló, recargando estado autoritativo")
		u.recover(ctx, gen)
		return err
	}
	if !u.store.ReconcileItem(gen, tabID, authoritative, patch) {
		u.log.Debug().Str("item_id", itemID).Msg("respuesta de persistencia descartada (edición más nueva o comanda cambiada)")
	}
	u.refreshReservations(ctx)
	return nil
}

// recover recarga la comanda autoritativa y las reservas; descarta la
// recarga si la selección cambió entre tanto.
func (u *TabUseCase) recover(ctx context.Context, gen uint64) {
	tabID := u.store.CurrentID()
	if tabID == "" {
		return
	}
	tab, err := u.tabs.GetTab(ctx, tabID)
	if err != nil {
		u.log.Error().Err(err).Str("tab_id", tabID).Msg("recarga de comanda tras fallo de persistencia")
		return
	}
	if !u.store.ReplaceTab(gen, tab) {
		return
	}
	u.refreshReservations(ctx)
}

func (u *TabUseCase) refreshReservations(ctx context.Context) {
	if err := u.reservations.Refresh(ctx); err != nil {
		u.log.Warn().Err(err).Msg("refresco de reservas")
	}
}

// ── Respuesta ─────────────────────────────────────────────────────────────────

// CurrentResponse arma la respuesta de la comanda seleccionada, con vista
// previa del override si está activo.
func (u *TabUseCase) CurrentResponse() (*dto.TabResponse, error) {
	tab := u.store.Current()
	if tab == nil {
		return nil, domain.ErrNotFound
	}
	resp := ToTabResponse(tab)
	if preview, ok := u.store.PreviewTotals(); ok {
		p := toTotalsResponse(preview)
		resp.Preview = &p
	}
	return resp, nil
}

// ToTabResponse mapea la entidad a DTO.
func ToTabResponse(tab *entity.Tab) *dto.TabResponse {
	items := make([]dto.ItemResponse, 0, len(tab.Items))
	for _, it := range tab.Items {
		items = append(items, dto.ItemResponse{
			ID:           it.ID,
			ProductID:    it.ProductID,
			Name:         it.NameSnapshot,
			Category:     it.CategorySnapshot,
			Qty:          it.Qty,
			UnitPrice:    it.UnitPrice,
			LineDiscount: it.LineDiscount,
			TaxRate:      it.TaxRate,
			TaxAmount:    it.TaxAmount,
			LineTotal:    it.LineTotal,
			AddedAt:      it.AddedAt,
		})
	}
	return &dto.TabResponse{
		ID:       tab.ID,
		Name:     tab.Name,
		Status:   tab.Status,
		Notes:    tab.Notes,
		OpenedAt: tab.OpenedAt,
		ClosedAt: tab.ClosedAt,
		SaleID:   tab.SaleID,
		Items:    items,
		Totals:   toTotalsResponse(tab.Totals),
	}
}

func toTotalsResponse(t entity.Totals) dto.TotalsResponse {
	return dto.TotalsResponse{
		Subtotal:       t.Subtotal,
		DiscountTotal:  t.DiscountTotal,
		TaxTotal:       t.TaxTotal,
		Total:          t.Total,
		TotalFormatted: money.FormatCOP(t.Total),
	}
}
