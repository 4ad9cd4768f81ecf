package domain

import "errors"

// Errores de dominio (sin dependencias externas).
//
// Taxonomía: validación (rechazo local, sin llamada de red), backend/red
// (recuperación por recarga), obsolescencia (descarte silencioso) y
// autorización (se expone, nunca se reintenta).
var (
	ErrNotFound            = errors.New("recurso no encontrado")
	ErrInvalidInput        = errors.New("entrada inválida")
	ErrUnauthorized        = errors.New("no autorizado")
	ErrBackend             = errors.New("error del backend")
	ErrStaleResponse       = errors.New("respuesta obsoleta")
	ErrConflict            = errors.New("conflicto con el estado actual")
	ErrNoAvailability      = errors.New("producto sin disponibilidad suficiente")
	ErrEmptyTab            = errors.New("la comanda no tiene ítems")
	ErrInsufficientPayment = errors.New("pago insuficiente")
	ErrProviderRequired    = errors.New("las transferencias requieren proveedor")
	ErrTabHasSale          = errors.New("la comanda ya tiene una venta asociada")
	ErrTabNotOpen          = errors.New("la comanda no está abierta")
	ErrCloseAfterSale      = errors.New("venta creada pero la comanda no se pudo cerrar")
)
