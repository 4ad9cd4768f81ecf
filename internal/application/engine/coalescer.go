package engine

import (
	"strconv"
	"sync"
	"time"

	"github.com/jhoicas/barra-pos/internal/application/ports"
)

// PersistFunc envía el patch acumulado de un ítem al backend. El coalescer
// la invoca desde el goroutine del timer (o del llamador en un Flush). Un
// error significa que el valor NO quedó persistido: no se registra como
// "último enviado" y una reedición al mismo valor vuelve a viajar.
type PersistFunc func(itemID string, patch ports.ItemPatch) error

// MutationCoalescer convierte ráfagas de ediciones locales al mismo ítem en
// una sola petición de persistencia: cada edición reinicia el timer del ítem
// y solo el valor final viaja. El marcador "último enviado" evita llamadas
// redundantes cuando el valor decantado es igual al ya persistido. Los
// disparadores explícitos (blur, Enter, botones +/−) saltan la ventana con
// Flush.
type MutationCoalescer struct {
	mu       sync.Mutex
	window   time.Duration
	persist  PersistFunc
	timers   map[string]*time.Timer
	pending  map[string]ports.ItemPatch
	lastSent map[string]string
}

// NewMutationCoalescer construye el coalescer con la ventana dada.
func NewMutationCoalescer(window time.Duration, persist PersistFunc) *MutationCoalescer {
	return &MutationCoalescer{
		window:   window,
		persist:  persist,
		timers:   make(map[string]*time.Timer),
		pending:  make(map[string]ports.ItemPatch),
		lastSent: make(map[string]string),
	}
}

// Schedule acumula el patch del ítem y (re)arma su timer: si otra edición al
// mismo ítem llega antes de vencer la ventana, el timer anterior se cancela.
func (c *MutationCoalescer) Schedule(itemID string, patch ports.ItemPatch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[itemID] = c.pending[itemID].Merge(patch)
	if t, ok := c.timers[itemID]; ok {
		t.Stop()
	}
	c.timers[itemID] = time.AfterFunc(c.window, func() { c.fire(itemID) })
}

// Flush persiste de inmediato lo pendiente del ítem, cancelando su timer.
// Sin pendiente es un no-op.
func (c *MutationCoalescer) Flush(itemID string) {
	c.fire(itemID)
}

// fire saca el patch pendiente y lo envía si difiere del último enviado.
func (c *MutationCoalescer) fire(itemID string) {
	c.mu.Lock()
	if t, ok := c.timers[itemID]; ok {
		t.Stop()
		delete(c.timers, itemID)
	}
	patch, ok := c.pending[itemID]
	if !ok || patch.IsEmpty() {
		c.mu.Unlock()
		return
	}
	delete(c.pending, itemID)
	fp := fingerprint(patch)
	if c.lastSent[itemID] == fp {
		c.mu.Unlock()
		return
	}
	persist := c.persist
	c.mu.Unlock()

	if err := persist(itemID, patch); err != nil {
		return
	}
	c.mu.Lock()
	c.lastSent[itemID] = fp
	c.mu.Unlock()
}

// Cancel descarta el pendiente del ítem sin enviarlo (p. ej. la línea se
// eliminó antes de vencer la ventana).
func (c *MutationCoalescer) Cancel(itemID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.timers[itemID]; ok {
		t.Stop()
		delete(c.timers, itemID)
	}
	delete(c.pending, itemID)
	delete(c.lastSent, itemID)
}

// CancelAll descarta todos los pendientes (cambio de comanda seleccionada).
func (c *MutationCoalescer) CancelAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
	c.pending = make(map[string]ports.ItemPatch)
	c.lastSent = make(map[string]string)
}

// HasPending indica si el ítem tiene una edición sin persistir (tests y
// diagnóstico).
func (c *MutationCoalescer) HasPending(itemID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[itemID]
	return ok
}

// fingerprint serializa el patch para comparar "¿ya se envió este valor?".
func fingerprint(p ports.ItemPatch) string {
	s := ""
	if p.Qty != nil {
		s += "q:" + strconv.FormatInt(*p.Qty, 10) + ";"
	}
	if p.UnitPrice != nil {
		s += "p:" + p.UnitPrice.String() + ";"
	}
	if p.LineDiscount != nil {
		s += "d:" + p.LineDiscount.String() + ";"
	}
	if p.TaxRateSet {
		if p.TaxRate == nil {
			s += "t:nil;"
		} else {
			s += "t:" + p.TaxRate.String() + ";"
		}
	}
	return s
}
