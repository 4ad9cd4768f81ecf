package engine

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/barra-pos/internal/application/ports"
	"github.com/jhoicas/barra-pos/internal/domain"
	"github.com/jhoicas/barra-pos/internal/domain/availability"
	"github.com/jhoicas/barra-pos/internal/domain/entity"
)

func product(id, name string, price string, stock string) *entity.Product {
	return &entity.Product{
		ID:       id,
		Name:     name,
		Category: "Bar",
		Price:    d(price),
		RawStock: d(stock),
		MinStock: decimal.Zero,
		Kind:     entity.KindStandard,
		Measure:  entity.MeasureUnit,
	}
}

func newUseCaseFixture(debounce time.Duration, catalog *fakeCatalogClient, tabs *fakeTabClient) (*TabUseCase, *TabStore) {
	store := NewTabStore()
	resolver := NewRecipeResolver(catalog, nopLog())
	reservations := NewReservationTracker(tabs, nopLog())
	uc := NewTabUseCase(store, resolver, reservations, availability.New(2), tabs, catalog, debounce, nopLog())
	return uc, store
}

func TestTabUseCase_AddItemRespetaDisponibilidad(t *testing.T) {
	catalog := &fakeCatalogClient{products: map[string]*entity.Product{
		"cerveza": product("cerveza", "Cerveza", "8000", "3"),
	}}
	tabs := &fakeTabClient{}
	uc, store := newUseCaseFixture(time.Hour, catalog, tabs)
	store.Select(openTab("t1"))
	ctx := context.Background()

	_, err := uc.AddItem(ctx, "cerveza", 5)
	assert.ErrorIs(t, err, domain.ErrNoAvailability, "stock 3, pedir 5 se rechaza")

	it, err := uc.AddItem(ctx, "cerveza", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), it.Qty)
	assert.NotNil(t, store.Current().FindItem(it.ID), "la línea autoritativa queda en la comanda")
}

func TestTabUseCase_AddItemCoctelUsaLaReceta(t *testing.T) {
	catalog := &fakeCatalogClient{
		products: map[string]*entity.Product{
			"mojito": {ID: "mojito", Name: "Mojito", Price: d("25000"), Kind: entity.KindCocktail, Measure: entity.MeasureUnit},
			"ron":    {ID: "ron", Name: "Ron", Price: d("0"), RawStock: d("500"), Kind: entity.KindBase, Measure: entity.MeasureML},
		},
		recipes: map[string][]entity.RecipeItem{
			"mojito": {{CocktailID: "mojito", IngredientID: "ron", Quantity: d("50"), Unit: "ML", Role: entity.RoleBase}},
		},
	}
	tabs := &fakeTabClient{}
	uc, store := newUseCaseFixture(time.Hour, catalog, tabs)
	store.Select(openTab("t1"))
	ctx := context.Background()

	// 500 mL de ron / 50 mL por trago = 10 disponibles
	_, err := uc.AddItem(ctx, "mojito", 11)
	assert.ErrorIs(t, err, domain.ErrNoAvailability)

	_, err = uc.AddItem(ctx, "mojito", 10)
	assert.NoError(t, err)
}

func TestTabUseCase_AddItemProductoInexistente(t *testing.T) {
	catalog := &fakeCatalogClient{products: map[string]*entity.Product{}}
	uc, store := newUseCaseFixture(time.Hour, catalog, &fakeTabClient{})
	store.Select(openTab("t1"))

	_, err := uc.AddItem(context.Background(), "fantasma", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTabUseCase_AddItemFallidoRecargaLaComanda(t *testing.T) {
	catalog := &fakeCatalogClient{products: map[string]*entity.Product{
		"cerveza": product("cerveza", "Cerveza", "8000", "10"),
	}}
	authoritative := openTab("t1")
	tabs := &fakeTabClient{
		addItemFn: func(ctx context.Context, tabID, productID string, qty int64, unitPrice decimal.Decimal) (*entity.TabItem, error) {
			return nil, domain.ErrBackend
		},
		getTabFn: func(ctx context.Context, id string) (*entity.Tab, error) {
			return authoritative, nil
		},
	}
	uc, store := newUseCaseFixture(time.Hour, catalog, tabs)
	store.Select(openTab("t1"))

	_, err := uc.AddItem(context.Background(), "cerveza", 1)
	assert.ErrorIs(t, err, domain.ErrBackend)
	assert.Empty(t, store.Current().Items, "el alta optimista se revierte con el estado autoritativo")
}

func TestTabUseCase_UpdateItemConCommitPersisteDeInmediato(t *testing.T) {
	catalog := &fakeCatalogClient{products: map[string]*entity.Product{}}
	tabs := &fakeTabClient{
		updateItemFn: func(ctx context.Context, itemID string, patch ports.ItemPatch) (*entity.TabItem, error) {
			return tabItem(itemID, "p1", *patch.Qty, "10000", nil), nil
		},
	}
	uc, store := newUseCaseFixture(time.Hour, catalog, tabs)
	store.Select(openTab("t1", tabItem("i1", "p1", 1, "10000", nil)))

	it, err := uc.UpdateItem(context.Background(), "i1", ports.ItemPatch{Qty: i64(3)}, true)
	require.NoError(t, err)
	assert.Equal(t, int64(3), it.Qty, "la mutación local es síncrona")
	assert.Len(t, tabs.patches(), 1, "commit salta la ventana de coalescencia")
}

func TestTabUseCase_UpdateItemSinCommitEsperaLaVentana(t *testing.T) {
	catalog := &fakeCatalogClient{products: map[string]*entity.Product{}}
	tabs := &fakeTabClient{
		updateItemFn: func(ctx context.Context, itemID string, patch ports.ItemPatch) (*entity.TabItem, error) {
			return tabItem(itemID, "p1", *patch.Qty, "10000", nil), nil
		},
	}
	uc, store := newUseCaseFixture(30*time.Millisecond, catalog, tabs)
	store.Select(openTab("t1", tabItem("i1", "p1", 1, "10000", nil)))
	ctx := context.Background()

	for q := int64(2); q <= 6; q++ {
		_, err := uc.UpdateItem(ctx, "i1", ports.ItemPatch{Qty: i64(q)}, false)
		require.NoError(t, err)
	}
	assert.Empty(t, tabs.patches(), "dentro de la ventana nada viaja")
	assert.Equal(t, int64(6), store.Current().FindItem("i1").Qty, "lo local ya refleja la última edición")

	time.Sleep(120 * time.Millisecond)
	patches := tabs.patches()
	require.Len(t, patches, 1, "la ráfaga decanta en una sola petición")
	assert.Equal(t, int64(6), *patches[0].Qty)
}

func TestTabUseCase_PersistenciaFallidaRecargaEstado(t *testing.T) {
	catalog := &fakeCatalogClient{products: map[string]*entity.Product{}}
	authoritative := openTab("t1", tabItem("i1", "p1", 2, "10000", nil))
	tabs := &fakeTabClient{
		updateItemFn: func(ctx context.Context, itemID string, patch ports.ItemPatch) (*entity.TabItem, error) {
			return nil, domain.ErrBackend
		},
		getTabFn: func(ctx context.Context, id string) (*entity.Tab, error) {
			return authoritative, nil
		},
	}
	uc, store := newUseCaseFixture(10*time.Millisecond, catalog, tabs)
	store.Select(openTab("t1", tabItem("i1", "p1", 2, "10000", nil)))

	_, err := uc.UpdateItem(context.Background(), "i1", ports.ItemPatch{Qty: i64(9)}, false)
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int64(2), store.Current().FindItem("i1").Qty,
		"tras el fallo se recarga el valor autoritativo, no se confía en el optimista")
}

func TestTabUseCase_ReeditarTrasFalloDePersistenciaVuelveAViajar(t *testing.T) {
	catalog := &fakeCatalogClient{products: map[string]*entity.Product{}}
	authoritative := openTab("t1", tabItem("i1", "p1", 3, "10000", nil))
	backendCaido := true
	tabs := &fakeTabClient{
		updateItemFn: func(ctx context.Context, itemID string, patch ports.ItemPatch) (*entity.TabItem, error) {
			if backendCaido {
				return nil, domain.ErrBackend
			}
			return tabItem(itemID, "p1", *patch.Qty, "10000", nil), nil
		},
		getTabFn: func(ctx context.Context, id string) (*entity.Tab, error) {
			return authoritative, nil
		},
	}
	uc, store := newUseCaseFixture(time.Hour, catalog, tabs)
	store.Select(openTab("t1", tabItem("i1", "p1", 3, "10000", nil)))
	ctx := context.Background()

	// el commit falla y la recarga devuelve qty=3
	_, err := uc.UpdateItem(ctx, "i1", ports.ItemPatch{Qty: i64(5)}, true)
	require.NoError(t, err)
	require.Equal(t, int64(3), store.Current().FindItem("i1").Qty, "la recarga restauró el valor autoritativo")
	require.Len(t, tabs.patches(), 1)

	// el backend se recupera: reeditar al MISMO valor debe volver a viajar,
	// el intento fallido no puede quedar marcado como enviado
	backendCaido = false
	_, err = uc.UpdateItem(ctx, "i1", ports.ItemPatch{Qty: i64(5)}, true)
	require.NoError(t, err)
	assert.Len(t, tabs.patches(), 2, "la reedición llega al backend")
	assert.Equal(t, int64(5), store.Current().FindItem("i1").Qty)
}

func TestTabUseCase_DisponibilidadVeEdicionesEnVentana(t *testing.T) {
	catalog := &fakeCatalogClient{products: map[string]*entity.Product{
		"cerveza": product("cerveza", "Cerveza", "8000", "10"),
	}}
	tabs := &fakeTabClient{
		reservedFn: func(ctx context.Context, status string) ([]ports.ReservedProduct, error) {
			return []ports.ReservedProduct{{ProductID: "cerveza", ReservedQty: d("2")}}, nil
		},
	}
	uc, store := newUseCaseFixture(time.Hour, catalog, tabs)
	store.Select(openTab("t1", tabItem("i1", "cerveza", 2, "8000", nil)))
	ctx := context.Background()
	require.NoError(t, uc.ReloadCatalog(ctx))

	out, err := uc.Catalog(ctx, "")
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, int64(8), out[0].Available, "10 en stock menos 2 reservadas")

	// edición local sin persistir (dentro de la ventana): 2 → 7
	_, err = uc.UpdateItem(ctx, "i1", ports.ItemPatch{Qty: i64(7)}, false)
	require.NoError(t, err)

	out, err = uc.Catalog(ctx, "")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(3), out[0].Available,
		"el agregado del backend aún ve 2, pero las 5 unidades locales ya reservan")
}

func TestTabUseCase_RemoveItemCancelaPendientes(t *testing.T) {
	catalog := &fakeCatalogClient{products: map[string]*entity.Product{}}
	tabs := &fakeTabClient{}
	uc, store := newUseCaseFixture(30*time.Millisecond, catalog, tabs)
	store.Select(openTab("t1", tabItem("i1", "p1", 1, "10000", nil)))
	ctx := context.Background()

	_, err := uc.UpdateItem(ctx, "i1", ports.ItemPatch{Qty: i64(5)}, false)
	require.NoError(t, err)
	require.NoError(t, uc.RemoveItem(ctx, "i1"))

	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, tabs.patches(), "la edición pendiente del ítem eliminado se descarta")
	assert.Empty(t, store.Current().Items)
}

func TestTabUseCase_ReopenConVentaSeRechaza(t *testing.T) {
	closed := openTab("t1")
	closed.Status = entity.TabClosed
	closed.SaleID = "s1"
	tabs := &fakeTabClient{
		getTabFn: func(ctx context.Context, id string) (*entity.Tab, error) { return closed, nil },
	}
	uc, _ := newUseCaseFixture(time.Hour, &fakeCatalogClient{}, tabs)

	_, err := uc.Reopen(context.Background(), "t1")
	assert.ErrorIs(t, err, domain.ErrTabHasSale, "reabrir una comanda facturada duplicaría la venta")
}

func TestTabUseCase_ReopenComandaAbiertaEsConflicto(t *testing.T) {
	tabs := &fakeTabClient{
		getTabFn: func(ctx context.Context, id string) (*entity.Tab, error) { return openTab("t1"), nil },
	}
	uc, _ := newUseCaseFixture(time.Hour, &fakeCatalogClient{}, tabs)

	_, err := uc.Reopen(context.Background(), "t1")
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestTabUseCase_DeleteSoloComandasAbiertas(t *testing.T) {
	closed := openTab("t1")
	closed.Status = entity.TabClosed
	tabs := &fakeTabClient{
		getTabFn: func(ctx context.Context, id string) (*entity.Tab, error) { return closed, nil },
	}
	uc, _ := newUseCaseFixture(time.Hour, &fakeCatalogClient{}, tabs)

	err := uc.Delete(context.Background(), "t1")
	assert.ErrorIs(t, err, domain.ErrTabNotOpen)
}

func TestTabUseCase_CatalogoIncluyeDisponibilidadYPrecioFormateado(t *testing.T) {
	catalog := &fakeCatalogClient{products: map[string]*entity.Product{
		"cerveza": product("cerveza", "Cerveza", "8000", "12"),
	}}
	tabs := &fakeTabClient{
		reservedFn: func(ctx context.Context, status string) ([]ports.ReservedProduct, error) {
			return []ports.ReservedProduct{{ProductID: "cerveza", ReservedQty: d("4")}}, nil
		},
	}
	uc, _ := newUseCaseFixture(time.Hour, catalog, tabs)
	ctx := context.Background()
	require.NoError(t, uc.ReloadCatalog(ctx))

	out, err := uc.Catalog(ctx, "")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(8), out[0].Available, "12 en stock menos 4 reservadas")
	assert.Equal(t, "$ 8.000", out[0].PriceFormatted)
}

func TestTabUseCase_SelectCancelaPendientesDeLaAnterior(t *testing.T) {
	catalog := &fakeCatalogClient{products: map[string]*entity.Product{}}
	tabs := &fakeTabClient{
		getTabFn: func(ctx context.Context, id string) (*entity.Tab, error) { return openTab(id), nil },
	}
	uc, store := newUseCaseFixture(30*time.Millisecond, catalog, tabs)
	store.Select(openTab("t1", tabItem("i1", "p1", 1, "10000", nil)))
	ctx := context.Background()

	_, err := uc.UpdateItem(ctx, "i1", ports.ItemPatch{Qty: i64(5)}, false)
	require.NoError(t, err)

	_, err = uc.Select(ctx, "t2")
	require.NoError(t, err)

	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, tabs.patches(), "navegar a otra comanda descarta las ediciones en ventana")
}

func TestTabUseCase_CurrentResponseConVistaPrevia(t *testing.T) {
	uc, store := newUseCaseFixture(time.Hour, &fakeCatalogClient{}, &fakeTabClient{})
	store.Select(openTab("t1", tabItem("i1", "p1", 1, "100000", nil)))
	_, err := uc.SetOverride(d("10000"), nil)
	require.NoError(t, err)

	resp, err := uc.CurrentResponse()
	require.NoError(t, err)
	assert.True(t, resp.Totals.Total.Equal(d("100000")))
	require.NotNil(t, resp.Preview)
	assert.True(t, resp.Preview.Total.Equal(d("90000")))
	assert.Equal(t, "$ 90.000", resp.Preview.TotalFormatted)
}
