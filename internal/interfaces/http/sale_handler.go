package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/barra-pos/internal/application/dto"
	"github.com/jhoicas/barra-pos/internal/application/engine"
	"github.com/jhoicas/barra-pos/internal/domain"
	"github.com/jhoicas/barra-pos/internal/domain/entity"
	"github.com/jhoicas/barra-pos/pkg/money"
)

// ReceiptGenerator genera el PDF del recibo de una venta.
type ReceiptGenerator interface {
	GenerateReceipt(ctx context.Context, sale *entity.Sale) ([]byte, error)
}

// SaleHandler maneja el cierre de venta y el recibo (protegido).
type SaleHandler struct {
	tabs    *engine.TabUseCase
	closer  *engine.SaleCloser
	receipt ReceiptGenerator
}

// NewSaleHandler construye el handler.
func NewSaleHandler(tabs *engine.TabUseCase, closer *engine.SaleCloser, receipt ReceiptGenerator) *SaleHandler {
	return &SaleHandler{tabs: tabs, closer: closer, receipt: receipt}
}

// Close godoc
// @Summary      Convertir la comanda seleccionada en venta
// @Tags         ventas
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string               true  "ID de la comanda"
// @Param        body  body  dto.CloseoutRequest  true  "Pagos y nota"
// @Success      201  {object}  dto.SaleResponse
// @Failure      422  {object}  dto.ErrorResponse  "Pago insuficiente o inválido"
// @Failure      502  {object}  dto.SaleResponse   "Venta creada, comanda sin cerrar"
// @Router       /api/comandas/{id}/venta [post]
func (h *SaleHandler) Close(c *fiber.Ctx) error {
	id := c.Params("id")
	if h.tabs.SelectedID() != id {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "NOT_SELECTED", Message: "la comanda no está seleccionada para edición"})
	}
	var in dto.CloseoutRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}

	payments := make([]entity.Payment, 0, len(in.Payments))
	for _, p := range in.Payments {
		payments = append(payments, entity.Payment{
			Method:    p.Method,
			Amount:    p.Amount,
			Provider:  p.Provider,
			Reference: p.Reference,
		})
	}

	res, err := h.closer.Close(RequestContext(c), payments, in.Notes)
	if errors.Is(err, domain.ErrCloseAfterSale) {
		// la venta quedó creada: la UI debe ofrecer reintentar el cierre,
		// nunca volver a enviar el pago
		return c.Status(fiber.StatusBadGateway).JSON(toSaleResponse(res))
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toSaleResponse(res))
}

// RetryClose godoc
// @Summary      Reintentar el cierre de la comanda de una venta ya creada
// @Tags         ventas
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la comanda"
// @Success      200  {object}  dto.SaleResponse
// @Failure      409  {object}  dto.ErrorResponse  "Sin cierre pendiente"
// @Router       /api/comandas/{id}/venta/reintentar-cierre [post]
func (h *SaleHandler) RetryClose(c *fiber.Ctx) error {
	res, err := h.closer.RetryClose(RequestContext(c))
	if errors.Is(err, domain.ErrCloseAfterSale) {
		return c.Status(fiber.StatusBadGateway).JSON(toSaleResponse(res))
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toSaleResponse(res))
}

// Get godoc
// @Summary      Obtener una venta completada en esta sesión
// @Tags         ventas
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la venta"
// @Success      200  {object}  dto.SaleResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/ventas/{id} [get]
func (h *SaleHandler) Get(c *fiber.Ctx) error {
	sale, err := h.closer.Sale(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toSaleResponse(&engine.CloseResult{Sale: sale, Change: sale.Change(), TabClosed: true}))
}

// Receipt godoc
// @Summary      Recibo de la venta en PDF
// @Tags         ventas
// @Security     Bearer
// @Produce      application/pdf
// @Param        id   path  string  true  "ID de la venta"
// @Success      200  {file}    binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/ventas/{id}/recibo.pdf [get]
func (h *SaleHandler) Receipt(c *fiber.Ctx) error {
	sale, err := h.closer.Sale(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	pdfBytes, err := h.receipt.GenerateReceipt(RequestContext(c), sale)
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="recibo-`+sale.ID+`.pdf"`)
	return c.Send(pdfBytes)
}

func toSaleResponse(res *engine.CloseResult) dto.SaleResponse {
	sale := res.Sale
	return dto.SaleResponse{
		ID:    sale.ID,
		TabID: sale.TabID,
		Totals: dto.TotalsResponse{
			Subtotal:       sale.Totals.Subtotal,
			DiscountTotal:  sale.Totals.DiscountTotal,
			TaxTotal:       sale.Totals.TaxTotal,
			Total:          sale.Totals.Total,
			TotalFormatted: money.FormatCOP(sale.Totals.Total),
		},
		Paid:            sale.Paid(),
		Change:          res.Change,
		ChangeFormatted: money.FormatCOP(res.Change),
		TabClosed:       res.TabClosed,
		CreatedAt:       sale.CreatedAt,
	}
}
