package http

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/barra-pos/internal/application/dto"
	"github.com/jhoicas/barra-pos/internal/application/ports"
	"github.com/jhoicas/barra-pos/internal/infrastructure/backend"
)

// LocalBearer key del token en c.Locals.
const LocalBearer = "bearer_token"

// AuthMiddleware exige un Bearer token y lo deja en c.Locals para propagarlo
// al backend. La firma la verifica el backend; acá solo se corta en seco el
// caso obvio de un token ya vencido para ahorrar el viaje.
func AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "Authorization header requerido"})
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "formato: Bearer <token>"})
		}
		token := strings.TrimSpace(parts[1])
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "token vacío"})
		}
		if backend.TokenExpired(token) {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "EXPIRED_TOKEN", Message: "token expirado"})
		}
		c.Locals(LocalBearer, token)
		return c.Next()
	}
}

// RequestContext arma el contexto de la petición con el bearer adjunto.
func RequestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if v, ok := c.Locals(LocalBearer).(string); ok && v != "" {
		ctx = ports.WithBearer(ctx, v)
	}
	return ctx
}
