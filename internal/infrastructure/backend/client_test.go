package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/barra-pos/internal/application/ports"
	"github.com/jhoicas/barra-pos/internal/domain"
	"github.com/jhoicas/barra-pos/internal/domain/entity"
	"github.com/jhoicas/barra-pos/pkg/config"
	"github.com/jhoicas/barra-pos/pkg/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.BackendConfig{
		BaseURL:        srv.URL,
		TimeoutSeconds: 5,
		Token:          "token-de-respaldo",
	}, logger.Nop())
}

func TestClient_BearerDelContextoTienePrioridad(t *testing.T) {
	var got string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode([]any{})
	})

	ctx := ports.WithBearer(context.Background(), "token-de-la-ui")
	_, err := c.ListProducts(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "Bearer token-de-la-ui", got)

	_, err = c.ListProducts(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "Bearer token-de-respaldo", got, "sin bearer en contexto se usa el configurado")
}

func TestClient_TraduceCodigosAErroresDeDominio(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, domain.ErrUnauthorized},
		{http.StatusForbidden, domain.ErrUnauthorized},
		{http.StatusNotFound, domain.ErrNotFound},
		{http.StatusInternalServerError, domain.ErrBackend},
		{http.StatusUnprocessableEntity, domain.ErrBackend},
	}
	for _, tc := range cases {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		})
		_, err := c.GetTab(context.Background(), "t1")
		assert.ErrorIs(t, err, tc.want, "status %d", tc.status)
	}
}

func TestClient_GetTabDecodificaLaComanda(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tabs/t1", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"id": "t1", "name": "Mesa 4", "status": "OPEN", "notes": "",
			"opened_at": "2026-08-30T20:15:00Z",
			"items": [
				{"id": "i1", "tab_id": "t1", "product_id": "p1", "qty": 3,
				 "unit_price": "10000", "line_discount": "0", "tax_rate": "19",
				 "name": "Cerveza", "category": "Bar",
				 "added_at": "2026-08-30T20:16:00Z"}
			]
		}`))
	})

	tab, err := c.GetTab(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "Mesa 4", tab.Name)
	require.Len(t, tab.Items, 1)
	assert.Equal(t, int64(3), tab.Items[0].Qty)
	assert.True(t, tab.Items[0].UnitPrice.Equal(decimal.NewFromInt(10000)))
	require.NotNil(t, tab.Items[0].TaxRate)
	assert.True(t, tab.Items[0].TaxRate.Equal(decimal.NewFromInt(19)))
	assert.Equal(t, "Cerveza", tab.Items[0].NameSnapshot)
}

func TestClient_GetRecipeSinReceta(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/p1/recipe", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	})

	recipe, err := c.GetRecipe(context.Background(), "p1")
	require.NoError(t, err, "404 es 'sin receta', no un fallo")
	assert.NotNil(t, recipe)
	assert.Empty(t, recipe, "la lista vacía es cacheable por el resolutor")
}

func TestClient_UpdateTabItemSoloEnviaCamposPresentes(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/tab-items/i1", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"id": "i1", "tab_id": "t1", "product_id": "p1", "qty": 4,
			"unit_price": "10000", "line_discount": "0",
			"name": "Cerveza", "added_at": "2026-08-30T20:16:00Z"}`))
	})

	qty := int64(4)
	it, err := c.UpdateTabItem(context.Background(), "i1", ports.ItemPatch{Qty: &qty})
	require.NoError(t, err)
	assert.Equal(t, int64(4), it.Qty)
	assert.Contains(t, body, "qty")
	assert.NotContains(t, body, "unit_price", "los campos no tocados no viajan")
	assert.NotContains(t, body, "tax_rate")
}

func TestClient_UpdateTabItemTarifaNulaExplicita(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"id": "i1", "qty": 1, "unit_price": "0", "line_discount": "0",
			"added_at": "2026-08-30T20:16:00Z"}`))
	})

	_, err := c.UpdateTabItem(context.Background(), "i1", ports.ItemPatch{TaxRateSet: true})
	require.NoError(t, err)
	v, ok := body["tax_rate"]
	assert.True(t, ok, "poner la tarifa en nil viaja explícito")
	assert.Nil(t, v)
	assert.Equal(t, true, body["tax_rate_set"])
}

func TestClient_CreateSaleEnviaTotalesYPagos(t *testing.T) {
	var body salePayload
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sales", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		body.ID = "s1"
		body.CreatedAt = time.Now()
		_ = json.NewEncoder(w).Encode(body)
	})

	rate := decimal.NewFromInt(19)
	sale, err := c.CreateSale(context.Background(), ports.CreateSaleInput{
		TabID: "t1",
		Items: []entity.SaleItem{{
			ProductID:    "p1",
			Name:         "Cerveza",
			Qty:          3,
			UnitPrice:    decimal.NewFromInt(10000),
			LineDiscount: decimal.Zero,
			TaxRate:      &rate,
			TaxAmount:    decimal.NewFromInt(5700),
			LineTotal:    decimal.NewFromInt(35700),
		}},
		Payments: []entity.Payment{
			{Method: entity.PaymentCash, Amount: decimal.NewFromInt(20000)},
			{Method: entity.PaymentTransfer, Amount: decimal.NewFromInt(15700), Provider: "Nequi"},
		},
		Totals: entity.Totals{
			Subtotal:      decimal.NewFromInt(30000),
			DiscountTotal: decimal.Zero,
			TaxTotal:      decimal.NewFromInt(5700),
			Total:         decimal.NewFromInt(35700),
		},
		Notes: "sin hielo",
	})
	require.NoError(t, err)
	assert.Equal(t, "s1", sale.ID)
	assert.Equal(t, "t1", body.TabID)
	require.Len(t, body.Items, 1)
	assert.True(t, body.Total.Equal(decimal.NewFromInt(35700)))
	require.Len(t, body.Payments, 2)
	assert.Equal(t, "Nequi", body.Payments[1].Provider)
	assert.True(t, sale.Change().IsZero())
}

func TestClient_TokenExpired(t *testing.T) {
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	expiredStr, err := expired.SignedString([]byte("clave"))
	require.NoError(t, err)
	assert.True(t, TokenExpired(expiredStr))

	valid := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	validStr, err := valid.SignedString([]byte("clave"))
	require.NoError(t, err)
	assert.False(t, TokenExpired(validStr))

	assert.False(t, TokenExpired("no-es-un-jwt"), "lo que no parsea lo decide el backend")

	sinExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user"})
	sinExpStr, err := sinExp.SignedString([]byte("clave"))
	require.NoError(t, err)
	assert.False(t, TokenExpired(sinExpStr), "sin exp no se bloquea localmente")
}
