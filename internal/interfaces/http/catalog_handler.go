package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/barra-pos/internal/application/engine"
)

// CatalogHandler maneja las peticiones del catálogo (protegido).
type CatalogHandler struct {
	uc *engine.TabUseCase
}

// NewCatalogHandler construye el handler.
func NewCatalogHandler(uc *engine.TabUseCase) *CatalogHandler {
	return &CatalogHandler{uc: uc}
}

// List godoc
// @Summary      Listar catálogo con disponibilidad
// @Tags         catalogo
// @Security     Bearer
// @Produce      json
// @Param        query  query  string  false  "Filtro por nombre"
// @Success      200  {array}   dto.ProductResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/catalogo/productos [get]
func (h *CatalogHandler) List(c *fiber.Ctx) error {
	out, err := h.uc.Catalog(RequestContext(c), c.Query("query"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Reload godoc
// @Summary      Recargar catálogo (invalida caché de recetas y reservas)
// @Tags         catalogo
// @Security     Bearer
// @Success      204
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/catalogo/recargar [post]
func (h *CatalogHandler) Reload(c *fiber.Ctx) error {
	if err := h.uc.ReloadCatalog(RequestContext(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
