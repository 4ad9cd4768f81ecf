package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/barra-pos/internal/application/engine"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	TabUC   *engine.TabUseCase
	Closer  *engine.SaleCloser
	Receipt ReceiptGenerator
}

// Router registra las rutas de la API. Todo requiere Bearer Token: la
// autenticación la emite el backend, acá solo se exige y se propaga.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware())

	catalogo := api.Group("/catalogo")
	catalogHandler := NewCatalogHandler(deps.TabUC)
	catalogo.Get("/productos", catalogHandler.List)
	catalogo.Post("/recargar", catalogHandler.Reload)

	comandas := api.Group("/comandas")
	tabHandler := NewTabHandler(deps.TabUC)
	comandas.Get("/", tabHandler.List)
	comandas.Post("/", tabHandler.Create)
	comandas.Get("/:id", tabHandler.Get)
	comandas.Post("/:id/seleccionar", tabHandler.Select)
	comandas.Put("/:id/nombre", tabHandler.Rename)
	comandas.Put("/:id/nota", tabHandler.SetNote)
	comandas.Post("/:id/items", tabHandler.AddItem)
	comandas.Post("/:id/limpiar", tabHandler.Clear)
	comandas.Post("/:id/cerrar", tabHandler.CloseWithoutSale)
	comandas.Post("/:id/reabrir", tabHandler.Reopen)
	comandas.Delete("/:id", tabHandler.Delete)
	comandas.Put("/:id/override", tabHandler.SetOverride)
	comandas.Delete("/:id/override", tabHandler.ClearOverride)

	items := api.Group("/items")
	items.Put("/:id", tabHandler.UpdateItem)
	items.Delete("/:id", tabHandler.RemoveItem)

	saleHandler := NewSaleHandler(deps.TabUC, deps.Closer, deps.Receipt)
	comandas.Post("/:id/venta", saleHandler.Close)
	comandas.Post("/:id/venta/reintentar-cierre", saleHandler.RetryClose)

	ventas := api.Group("/ventas")
	ventas.Get("/:id", saleHandler.Get)
	ventas.Get("/:id/recibo.pdf", saleHandler.Receipt)
}
