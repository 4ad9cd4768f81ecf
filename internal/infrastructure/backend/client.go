// Package backend implementa los puertos del motor contra el backend de
// persistencia vía HTTP/JSON. El backend es la autoridad sobre catálogo,
// comandas y ventas; este cliente no guarda estado.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/barra-pos/internal/application/ports"
	"github.com/jhoicas/barra-pos/internal/domain"
	"github.com/jhoicas/barra-pos/internal/domain/entity"
	"github.com/jhoicas/barra-pos/pkg/config"
	"github.com/jhoicas/barra-pos/pkg/logger"
)

// Client habla con el backend. Implementa ports.CatalogClient,
// ports.TabClient y ports.SaleClient.
type Client struct {
	baseURL string
	token   string // bearer de respaldo si el contexto no trae uno
	http    *http.Client
	log     *logger.Logger
}

// NewClient construye el cliente con el timeout configurado.
func NewClient(cfg config.BackendConfig, log *logger.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		http: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		log: log,
	}
}

// do ejecuta la petición y decodifica la respuesta en out (nil si no
// interesa el cuerpo). Traduce los códigos HTTP a errores de dominio.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("serializando cuerpo: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creando petición: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.bearer(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBackend, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return domain.ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound
	case resp.StatusCode >= 400:
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.log.Warn().Int("status", resp.StatusCode).Str("path", path).Msg("respuesta de error del backend")
		return fmt.Errorf("%w: %s %s: %d %s", domain.ErrBackend, method, path, resp.StatusCode, string(payload))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decodificando respuesta de %s: %v", domain.ErrBackend, path, err)
	}
	return nil
}

func (c *Client) bearer(ctx context.Context) string {
	if token := ports.Bearer(ctx); token != "" {
		return token
	}
	return c.token
}

// ── Catálogo ──────────────────────────────────────────────────────────────────

type productPayload struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	RawStock decimal.Decimal `json:"raw_stock"`
	MinStock decimal.Decimal `json:"min_stock"`
	Kind     string          `json:"kind"`
	Measure  string          `json:"measure"`
}

func (p productPayload) toEntity() *entity.Product {
	return &entity.Product{
		ID:       p.ID,
		Name:     p.Name,
		Category: p.Category,
		Price:    p.Price,
		RawStock: p.RawStock,
		MinStock: p.MinStock,
		Kind:     p.Kind,
		Measure:  p.Measure,
	}
}

// ListProducts lista el catálogo, opcionalmente filtrado por nombre.
func (c *Client) ListProducts(ctx context.Context, query string) ([]*entity.Product, error) {
	path := "/products"
	if query != "" {
		path += "?query=" + url.QueryEscape(query)
	}
	var payload []productPayload
	if err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}
	out := make([]*entity.Product, 0, len(payload))
	for _, p := range payload {
		out = append(out, p.toEntity())
	}
	return out, nil
}

type recipePayload struct {
	IngredientID string          `json:"ingredient_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	Unit         string          `json:"unit"`
	Role         string          `json:"role"`
}

// GetRecipe trae la receta del cóctel. Un 404 significa "sin receta": se
// devuelve la lista vacía (cacheable), no un error.
func (c *Client) GetRecipe(ctx context.Context, productID string) ([]entity.RecipeItem, error) {
	var payload []recipePayload
	err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(productID)+"/recipe", nil, &payload)
	if errors.Is(err, domain.ErrNotFound) {
		return []entity.RecipeItem{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]entity.RecipeItem, 0, len(payload))
	for _, r := range payload {
		out = append(out, entity.RecipeItem{
			CocktailID:   productID,
			IngredientID: r.IngredientID,
			Quantity:     r.Quantity,
			Unit:         r.Unit,
			Role:         r.Role,
		})
	}
	return out, nil
}

// ── Comandas ──────────────────────────────────────────────────────────────────

type tabItemPayload struct {
	ID           string           `json:"id"`
	TabID        string           `json:"tab_id"`
	ProductID    string           `json:"product_id"`
	Qty          int64            `json:"qty"`
	UnitPrice    decimal.Decimal  `json:"unit_price"`
	LineDiscount decimal.Decimal  `json:"line_discount"`
	TaxRate      *decimal.Decimal `json:"tax_rate"`
	Name         string           `json:"name"`
	Category     string           `json:"category"`
	AddedAt      time.Time        `json:"added_at"`
}

func (p tabItemPayload) toEntity() *entity.TabItem {
	return &entity.TabItem{
		ID:               p.ID,
		TabID:            p.TabID,
		ProductID:        p.ProductID,
		Qty:              p.Qty,
		UnitPrice:        p.UnitPrice,
		LineDiscount:     p.LineDiscount,
		TaxRate:          p.TaxRate,
		NameSnapshot:     p.Name,
		CategorySnapshot: p.Category,
		AddedAt:          p.AddedAt,
	}
}

type tabPayload struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Status   string           `json:"status"`
	Notes    string           `json:"notes"`
	SaleID   string           `json:"sale_id"`
	OpenedAt time.Time        `json:"opened_at"`
	ClosedAt *time.Time       `json:"closed_at"`
	Items    []tabItemPayload `json:"items"`
}

func (p tabPayload) toEntity() *entity.Tab {
	items := make([]*entity.TabItem, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, it.toEntity())
	}
	return &entity.Tab{
		ID:       p.ID,
		Name:     p.Name,
		Status:   p.Status,
		Notes:    p.Notes,
		SaleID:   p.SaleID,
		OpenedAt: p.OpenedAt,
		ClosedAt: p.ClosedAt,
		Items:    items,
	}
}

// ListTabs lista comandas; status vacío lista todas.
func (c *Client) ListTabs(ctx context.Context, status string) ([]*entity.Tab, error) {
	path := "/tabs"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var payload []tabPayload
	if err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}
	out := make([]*entity.Tab, 0, len(payload))
	for _, t := range payload {
		out = append(out, t.toEntity())
	}
	return out, nil
}

// GetTab trae la comanda completa con sus ítems.
func (c *Client) GetTab(ctx context.Context, id string) (*entity.Tab, error) {
	var payload tabPayload
	if err := c.do(ctx, http.MethodGet, "/tabs/"+url.PathEscape(id), nil, &payload); err != nil {
		return nil, err
	}
	return payload.toEntity(), nil
}

// CreateTab abre una comanda nueva.
func (c *Client) CreateTab(ctx context.Context, name, notes string) (*entity.Tab, error) {
	body := map[string]string{"name": name, "notes": notes}
	var payload tabPayload
	if err := c.do(ctx, http.MethodPost, "/tabs", body, &payload); err != nil {
		return nil, err
	}
	return payload.toEntity(), nil
}

// RenameTab cambia el nombre de la comanda.
func (c *Client) RenameTab(ctx context.Context, id, name string) error {
	return c.do(ctx, http.MethodPatch, "/tabs/"+url.PathEscape(id)+"/name", map[string]string{"name": name}, nil)
}

// SetTabNote cambia la nota de la comanda.
func (c *Client) SetTabNote(ctx context.Context, id, notes string) error {
	return c.do(ctx, http.MethodPatch, "/tabs/"+url.PathEscape(id)+"/note", map[string]string{"notes": notes}, nil)
}

// AddTabItem agrega una línea y devuelve la versión autoritativa.
func (c *Client) AddTabItem(ctx context.Context, tabID, productID string, qty int64, unitPrice decimal.Decimal) (*entity.TabItem, error) {
	body := map[string]any{
		"product_id": productID,
		"qty":        qty,
		"unit_price": unitPrice,
	}
	var payload tabItemPayload
	if err := c.do(ctx, http.MethodPost, "/tabs/"+url.PathEscape(tabID)+"/items", body, &payload); err != nil {
		return nil, err
	}
	return payload.toEntity(), nil
}

// UpdateTabItem persiste el patch acumulado de la línea. Solo viajan los
// campos presentes.
func (c *Client) UpdateTabItem(ctx context.Context, itemID string, patch ports.ItemPatch) (*entity.TabItem, error) {
	body := map[string]any{}
	if patch.Qty != nil {
		body["qty"] = *patch.Qty
	}
	if patch.UnitPrice != nil {
		body["unit_price"] = *patch.UnitPrice
	}
	if patch.LineDiscount != nil {
		body["line_discount"] = *patch.LineDiscount
	}
	if patch.TaxRateSet {
		body["tax_rate"] = patch.TaxRate
		body["tax_rate_set"] = true
	}
	var payload tabItemPayload
	if err := c.do(ctx, http.MethodPatch, "/tab-items/"+url.PathEscape(itemID), body, &payload); err != nil {
		return nil, err
	}
	return payload.toEntity(), nil
}

// RemoveTabItem elimina la línea.
func (c *Client) RemoveTabItem(ctx context.Context, itemID string) error {
	return c.do(ctx, http.MethodDelete, "/tab-items/"+url.PathEscape(itemID), nil, nil)
}

// ClearTab vacía los ítems de la comanda.
func (c *Client) ClearTab(ctx context.Context, tabID string) error {
	return c.do(ctx, http.MethodPost, "/tabs/"+url.PathEscape(tabID)+"/clear", nil, nil)
}

// CloseTab marca la comanda como cerrada.
func (c *Client) CloseTab(ctx context.Context, tabID string) error {
	return c.do(ctx, http.MethodPost, "/tabs/"+url.PathEscape(tabID)+"/close", nil, nil)
}

// ReopenTab vuelve la comanda a ABIERTA.
func (c *Client) ReopenTab(ctx context.Context, tabID string) error {
	return c.do(ctx, http.MethodPost, "/tabs/"+url.PathEscape(tabID)+"/reopen", nil, nil)
}

// DeleteTab elimina la comanda.
func (c *Client) DeleteTab(ctx context.Context, tabID string) error {
	return c.do(ctx, http.MethodDelete, "/tabs/"+url.PathEscape(tabID), nil, nil)
}

type reservedPayload struct {
	ProductID   string          `json:"product_id"`
	ReservedQty decimal.Decimal `json:"reserved_qty"`
}

// GetReservedSummary trae el agregado de reservas por producto. Los backends
// sin el endpoint devuelven 404 y el tracker recalcula listando comandas.
func (c *Client) GetReservedSummary(ctx context.Context, status string) ([]ports.ReservedProduct, error) {
	path := "/tabs/reserved-summary"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var payload []reservedPayload
	if err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}
	out := make([]ports.ReservedProduct, 0, len(payload))
	for _, row := range payload {
		out = append(out, ports.ReservedProduct{ProductID: row.ProductID, ReservedQty: row.ReservedQty})
	}
	return out, nil
}

// ── Ventas ────────────────────────────────────────────────────────────────────

type saleItemPayload struct {
	ProductID    string           `json:"product_id"`
	Name         string           `json:"name"`
	Qty          int64            `json:"qty"`
	UnitPrice    decimal.Decimal  `json:"unit_price"`
	LineDiscount decimal.Decimal  `json:"line_discount"`
	TaxRate      *decimal.Decimal `json:"tax_rate"`
	TaxAmount    decimal.Decimal  `json:"tax_amount"`
	LineTotal    decimal.Decimal  `json:"line_total"`
}

type paymentPayload struct {
	Method    string          `json:"method"`
	Amount    decimal.Decimal `json:"amount"`
	Provider  string          `json:"provider,omitempty"`
	Reference string          `json:"reference,omitempty"`
}

type salePayload struct {
	ID        string            `json:"id"`
	TabID     string            `json:"tab_id"`
	Items     []saleItemPayload `json:"items"`
	Payments  []paymentPayload  `json:"payments"`
	Subtotal  decimal.Decimal   `json:"subtotal"`
	Discount  decimal.Decimal   `json:"discount_total"`
	TaxTotal  decimal.Decimal   `json:"tax_total"`
	Total     decimal.Decimal   `json:"total"`
	Notes     string            `json:"notes"`
	CreatedAt time.Time         `json:"created_at"`
}

// CreateSale crea la venta con las líneas ya redistribuidas. El backend
// asigna id y fecha.
func (c *Client) CreateSale(ctx context.Context, in ports.CreateSaleInput) (*entity.Sale, error) {
	items := make([]saleItemPayload, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, saleItemPayload{
			ProductID:    it.ProductID,
			Name:         it.Name,
			Qty:          it.Qty,
			UnitPrice:    it.UnitPrice,
			LineDiscount: it.LineDiscount,
			TaxRate:      it.TaxRate,
			TaxAmount:    it.TaxAmount,
			LineTotal:    it.LineTotal,
		})
	}
	payments := make([]paymentPayload, 0, len(in.Payments))
	for _, p := range in.Payments {
		payments = append(payments, paymentPayload{
			Method:    p.Method,
			Amount:    p.Amount,
			Provider:  p.Provider,
			Reference: p.Reference,
		})
	}
	body := salePayload{
		TabID:    in.TabID,
		Items:    items,
		Payments: payments,
		Subtotal: in.Totals.Subtotal,
		Discount: in.Totals.DiscountTotal,
		TaxTotal: in.Totals.TaxTotal,
		Total:    in.Totals.Total,
		Notes:    in.Notes,
	}

	var created salePayload
	if err := c.do(ctx, http.MethodPost, "/sales", body, &created); err != nil {
		return nil, err
	}

	outItems := make([]entity.SaleItem, 0, len(created.Items))
	for _, it := range created.Items {
		outItems = append(outItems, entity.SaleItem{
			ProductID:    it.ProductID,
			Name:         it.Name,
			Qty:          it.Qty,
			UnitPrice:    it.UnitPrice,
			LineDiscount: it.LineDiscount,
			TaxRate:      it.TaxRate,
			TaxAmount:    it.TaxAmount,
			LineTotal:    it.LineTotal,
		})
	}
	outPayments := make([]entity.Payment, 0, len(created.Payments))
	for _, p := range created.Payments {
		outPayments = append(outPayments, entity.Payment{
			Method:    p.Method,
			Amount:    p.Amount,
			Provider:  p.Provider,
			Reference: p.Reference,
		})
	}
	return &entity.Sale{
		ID:       created.ID,
		TabID:    created.TabID,
		Items:    outItems,
		Payments: outPayments,
		Totals: entity.Totals{
			Subtotal:      created.Subtotal,
			DiscountTotal: created.Discount,
			TaxTotal:      created.TaxTotal,
			Total:         created.Total,
		},
		Notes:     created.Notes,
		CreatedAt: created.CreatedAt,
	}, nil
}
