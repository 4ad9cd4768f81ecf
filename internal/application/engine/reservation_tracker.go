package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/barra-pos/internal/application/ports"
	"github.com/jhoicas/barra-pos/internal/domain"
	"github.com/jhoicas/barra-pos/internal/domain/entity"
	"github.com/jhoicas/barra-pos/pkg/logger"
)

// ReservationTracker agrega, sobre todas las comandas ABIERTAS (no solo la
// seleccionada), cuántas unidades de cada producto crudo ya están
// comprometidas. Se refresca tras cualquier mutación que cambie cantidades
// en cualquier comanda; las CERRADAS y las ventas completadas no cuentan.
type ReservationTracker struct {
	mu       sync.RWMutex
	tabs     ports.TabClient
	reserved map[string]decimal.Decimal
	log      *logger.Logger
}

// NewReservationTracker construye el tracker con el mapa vacío.
func NewReservationTracker(tabs ports.TabClient, log *logger.Logger) *ReservationTracker {
	return &ReservationTracker{
		tabs:     tabs,
		reserved: make(map[string]decimal.Decimal),
		log:      log,
	}
}

// Refresh recarga el agregado desde el backend. Si el backend no expone el
// resumen, se recalcula desde cero listando las comandas abiertas.
func (t *ReservationTracker) Refresh(ctx context.Context) error {
	summary, err := t.tabs.GetReservedSummary(ctx, entity.TabOpen)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		open, err := t.tabs.ListTabs(ctx, entity.TabOpen)
		if err != nil {
			return err
		}
		t.replace(Aggregate(open))
		return nil
	}

	next := make(map[string]decimal.Decimal, len(summary))
	for _, row := range summary {
		next[row.ProductID] = row.ReservedQty
	}
	t.replace(next)
	return nil
}

func (t *ReservationTracker) replace(next map[string]decimal.Decimal) {
	t.mu.Lock()
	t.reserved = next
	t.mu.Unlock()
}

// Reserved devuelve las unidades comprometidas del producto (0 si ninguna).
func (t *ReservationTracker) Reserved(productID string) decimal.Decimal {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if v, ok := t.reserved[productID]; ok {
		return v
	}
	return decimal.Zero
}

// Aggregate recalcula desde cero el agregado de reservas: suma de qty por
// producto en los ítems de cada comanda ABIERTA.
func Aggregate(tabs []*entity.Tab) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, tab := range tabs {
		if !tab.IsOpen() {
			continue
		}
		for _, it := range tab.Items {
			cur, ok := out[it.ProductID]
			if !ok {
				cur = decimal.Zero
			}
			out[it.ProductID] = cur.Add(decimal.NewFromInt(it.Qty))
		}
	}
	return out
}
