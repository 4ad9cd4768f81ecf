package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/barra-pos/internal/application/dto"
	"github.com/jhoicas/barra-pos/internal/application/engine"
	"github.com/jhoicas/barra-pos/internal/application/ports"
)

// TabHandler maneja las peticiones sobre comandas e ítems (protegido).
type TabHandler struct {
	uc *engine.TabUseCase
}

// NewTabHandler construye el handler.
func NewTabHandler(uc *engine.TabUseCase) *TabHandler {
	return &TabHandler{uc: uc}
}

// requireSelected valida que la operación apunte a la comanda en edición.
func (h *TabHandler) requireSelected(c *fiber.Ctx) (string, bool) {
	id := c.Params("id")
	if id == "" {
		_ = c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_ID", Message: "id es requerido"})
		return "", false
	}
	if h.uc.SelectedID() != id {
		_ = c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "NOT_SELECTED", Message: "la comanda no está seleccionada para edición"})
		return "", false
	}
	return id, true
}

// List godoc
// @Summary      Listar comandas
// @Tags         comandas
// @Security     Bearer
// @Produce      json
// @Param        status  query  string  false  "OPEN o CLOSED"
// @Success      200  {array}   dto.TabResponse
// @Router       /api/comandas [get]
func (h *TabHandler) List(c *fiber.Ctx) error {
	tabs, err := h.uc.ListTabs(RequestContext(c), c.Query("status"))
	if err != nil {
		return respondError(c, err)
	}
	out := make([]*dto.TabResponse, 0, len(tabs))
	for _, tab := range tabs {
		out = append(out, engine.ToTabResponse(tab))
	}
	return c.JSON(out)
}

// Create godoc
// @Summary      Abrir comanda (queda seleccionada)
// @Tags         comandas
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateTabRequest  true  "Nombre y nota"
// @Success      201   {object}  dto.TabResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/comandas [post]
func (h *TabHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateTabRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	tab, err := h.uc.Create(RequestContext(c), in.Name, in.Notes)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(engine.ToTabResponse(tab))
}

// Get godoc
// @Summary      Obtener comanda por ID
// @Tags         comandas
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la comanda"
// @Success      200  {object}  dto.TabResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/comandas/{id} [get]
func (h *TabHandler) Get(c *fiber.Ctx) error {
	tab, err := h.uc.Get(RequestContext(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(engine.ToTabResponse(tab))
}

// Select godoc
// @Summary      Seleccionar comanda para edición
// @Tags         comandas
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la comanda"
// @Success      200  {object}  dto.TabResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/comandas/{id}/seleccionar [post]
func (h *TabHandler) Select(c *fiber.Ctx) error {
	if _, err := h.uc.Select(RequestContext(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	resp, err := h.uc.CurrentResponse()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

// Rename godoc
// @Summary      Renombrar la comanda seleccionada
// @Tags         comandas
// @Security     Bearer
// @Accept       json
// @Param        id    path  string                true  "ID de la comanda"
// @Param        body  body  dto.RenameTabRequest  true  "Nuevo nombre"
// @Success      200  {object}  dto.TabResponse
// @Router       /api/comandas/{id}/nombre [put]
func (h *TabHandler) Rename(c *fiber.Ctx) error {
	if _, ok := h.requireSelected(c); !ok {
		return nil
	}
	var in dto.RenameTabRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := h.uc.Rename(RequestContext(c), in.Name); err != nil {
		return respondError(c, err)
	}
	return h.current(c)
}

// SetNote godoc
// @Summary      Editar la nota de la comanda seleccionada
// @Tags         comandas
// @Security     Bearer
// @Accept       json
// @Param        id    path  string              true  "ID de la comanda"
// @Param        body  body  dto.TabNoteRequest  true  "Nota"
// @Success      200  {object}  dto.TabResponse
// @Router       /api/comandas/{id}/nota [put]
func (h *TabHandler) SetNote(c *fiber.Ctx) error {
	if _, ok := h.requireSelected(c); !ok {
		return nil
	}
	var in dto.TabNoteRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := h.uc.SetNote(RequestContext(c), in.Notes); err != nil {
		return respondError(c, err)
	}
	return h.current(c)
}

// AddItem godoc
// @Summary      Agregar línea a la comanda seleccionada
// @Tags         comandas
// @Security     Bearer
// @Accept       json
// @Param        id    path  string              true  "ID de la comanda"
// @Param        body  body  dto.AddItemRequest  true  "Producto y cantidad"
// @Success      201  {object}  dto.TabResponse
// @Failure      409  {object}  dto.ErrorResponse  "Sin disponibilidad"
// @Router       /api/comandas/{id}/items [post]
func (h *TabHandler) AddItem(c *fiber.Ctx) error {
	if _, ok := h.requireSelected(c); !ok {
		return nil
	}
	var in dto.AddItemRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if _, err := h.uc.AddItem(RequestContext(c), in.ProductID, in.Qty); err != nil {
		return respondError(c, err)
	}
	resp, err := h.uc.CurrentResponse()
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// UpdateItem godoc
// @Summary      Mutar una línea (coalescido; ?commit=true persiste ya)
// @Tags         items
// @Security     Bearer
// @Accept       json
// @Param        id      path   string                 true   "ID del ítem"
// @Param        commit  query  bool                   false  "Persistir de inmediato"
// @Param        body    body   dto.UpdateItemRequest  true   "Campos a mutar"
// @Success      200  {object}  dto.TabResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/items/{id} [put]
func (h *TabHandler) UpdateItem(c *fiber.Ctx) error {
	var in dto.UpdateItemRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	patch := ports.ItemPatch{
		Qty:          in.Qty,
		UnitPrice:    in.UnitPrice,
		LineDiscount: in.LineDiscount,
		TaxRate:      in.TaxRate,
		TaxRateSet:   in.TaxRateSet,
	}
	commit := c.QueryBool("commit", false)
	if _, err := h.uc.UpdateItem(RequestContext(c), c.Params("id"), patch, commit); err != nil {
		return respondError(c, err)
	}
	return h.current(c)
}

// RemoveItem godoc
// @Summary      Eliminar una línea de la comanda seleccionada
// @Tags         items
// @Security     Bearer
// @Param        id   path  string  true  "ID del ítem"
// @Success      200  {object}  dto.TabResponse
// @Router       /api/items/{id} [delete]
func (h *TabHandler) RemoveItem(c *fiber.Ctx) error {
	if err := h.uc.RemoveItem(RequestContext(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return h.current(c)
}

// Clear godoc
// @Summary      Vaciar los ítems de la comanda seleccionada
// @Tags         comandas
// @Security     Bearer
// @Param        id   path  string  true  "ID de la comanda"
// @Success      200  {object}  dto.TabResponse
// @Router       /api/comandas/{id}/limpiar [post]
func (h *TabHandler) Clear(c *fiber.Ctx) error {
	if _, ok := h.requireSelected(c); !ok {
		return nil
	}
	if err := h.uc.Clear(RequestContext(c)); err != nil {
		return respondError(c, err)
	}
	return h.current(c)
}

// CloseWithoutSale godoc
// @Summary      Cerrar la comanda seleccionada sin generar venta
// @Tags         comandas
// @Security     Bearer
// @Param        id   path  string  true  "ID de la comanda"
// @Success      200  {object}  dto.TabResponse
// @Router       /api/comandas/{id}/cerrar [post]
func (h *TabHandler) CloseWithoutSale(c *fiber.Ctx) error {
	if _, ok := h.requireSelected(c); !ok {
		return nil
	}
	if err := h.uc.CloseWithoutSale(RequestContext(c)); err != nil {
		return respondError(c, err)
	}
	return h.current(c)
}

// Reopen godoc
// @Summary      Reabrir una comanda cerrada (sin venta asociada)
// @Tags         comandas
// @Security     Bearer
// @Param        id   path  string  true  "ID de la comanda"
// @Success      200  {object}  dto.TabResponse
// @Failure      409  {object}  dto.ErrorResponse  "Ya tiene venta"
// @Router       /api/comandas/{id}/reabrir [post]
func (h *TabHandler) Reopen(c *fiber.Ctx) error {
	tab, err := h.uc.Reopen(RequestContext(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(engine.ToTabResponse(tab))
}

// Delete godoc
// @Summary      Eliminar una comanda abierta
// @Tags         comandas
// @Security     Bearer
// @Param        id   path  string  true  "ID de la comanda"
// @Success      204
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/comandas/{id} [delete]
func (h *TabHandler) Delete(c *fiber.Ctx) error {
	if err := h.uc.Delete(RequestContext(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SetOverride godoc
// @Summary      Fijar descuento/tarifa a nivel de factura (vista previa)
// @Tags         comandas
// @Security     Bearer
// @Accept       json
// @Param        id    path  string               true  "ID de la comanda"
// @Param        body  body  dto.OverrideRequest  true  "Descuento y tarifa"
// @Success      200  {object}  dto.TabResponse
// @Router       /api/comandas/{id}/override [put]
func (h *TabHandler) SetOverride(c *fiber.Ctx) error {
	if _, ok := h.requireSelected(c); !ok {
		return nil
	}
	var in dto.OverrideRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if _, err := h.uc.SetOverride(in.Discount, in.TaxRate); err != nil {
		return respondError(c, err)
	}
	return h.current(c)
}

// ClearOverride godoc
// @Summary      Descartar el override de factura
// @Tags         comandas
// @Security     Bearer
// @Param        id   path  string  true  "ID de la comanda"
// @Success      200  {object}  dto.TabResponse
// @Router       /api/comandas/{id}/override [delete]
func (h *TabHandler) ClearOverride(c *fiber.Ctx) error {
	if _, ok := h.requireSelected(c); !ok {
		return nil
	}
	h.uc.ClearOverride()
	return h.current(c)
}

// current responde con la comanda seleccionada tras una mutación.
func (h *TabHandler) current(c *fiber.Ctx) error {
	resp, err := h.uc.CurrentResponse()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}
