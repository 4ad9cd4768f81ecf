package ports

import "context"

type bearerKey struct{}

// WithBearer adjunta la credencial bearer al contexto. Toda llamada al
// backend la lleva; la emite el colaborador de autenticación, el motor no
// acuña tokens.
func WithBearer(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerKey{}, token)
}

// Bearer devuelve la credencial del contexto o "".
func Bearer(ctx context.Context) string {
	if v, ok := ctx.Value(bearerKey{}).(string); ok {
		return v
	}
	return ""
}
