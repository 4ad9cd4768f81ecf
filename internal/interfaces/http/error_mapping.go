package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/barra-pos/internal/application/dto"
	"github.com/jhoicas/barra-pos/internal/domain"
)

// respondError traduce los errores de dominio a la respuesta HTTP. Los
// handlers delegan acá para que la taxonomía quede en un solo lugar.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: err.Error()})
	case errors.Is(err, domain.ErrNoAvailability):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "NO_AVAILABILITY", Message: err.Error()})
	case errors.Is(err, domain.ErrEmptyTab):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "EMPTY_TAB", Message: err.Error()})
	case errors.Is(err, domain.ErrInsufficientPayment):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "INSUFFICIENT_PAYMENT", Message: err.Error()})
	case errors.Is(err, domain.ErrProviderRequired):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "PROVIDER_REQUIRED", Message: err.Error()})
	case errors.Is(err, domain.ErrTabHasSale):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "TAB_HAS_SALE", Message: err.Error()})
	case errors.Is(err, domain.ErrTabNotOpen):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "TAB_NOT_OPEN", Message: err.Error()})
	case errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONFLICT", Message: err.Error()})
	case errors.Is(err, domain.ErrCloseAfterSale):
		// la venta existe; el llamador debe ofrecer el reintento de cierre
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "SALE_UNCLOSED", Message: err.Error()})
	case errors.Is(err, domain.ErrBackend):
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "BACKEND", Message: err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}
