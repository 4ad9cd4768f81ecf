// Package engine contiene el núcleo con estado del motor de comandas: la
// comanda seleccionada, las cachés de sesión, la coalescencia de ediciones y
// el cierre de venta. El backend de persistencia se consume solo a través de
// los puertos de application/ports.
package engine

import (
	"context"
	"sync"

	"github.com/jhoicas/barra-pos/internal/application/ports"
	"github.com/jhoicas/barra-pos/internal/domain/entity"
	"github.com/jhoicas/barra-pos/pkg/logger"
)

// RecipeResolver cachea por sesión la receta de cada cóctel. La caché nunca
// se desaloja sola: la recarga manual del catálogo es la única invalidación.
// Es un objeto explícito con vida inyectada, no un singleton de paquete.
type RecipeResolver struct {
	mu      sync.Mutex
	catalog ports.CatalogClient
	cache   map[string][]entity.RecipeItem
	log     *logger.Logger
}

// NewRecipeResolver construye el resolutor con caché vacía.
func NewRecipeResolver(catalog ports.CatalogClient, log *logger.Logger) *RecipeResolver {
	return &RecipeResolver{
		catalog: catalog,
		cache:   make(map[string][]entity.RecipeItem),
		log:     log,
	}
}

// Resolve devuelve la receta del cóctel, de caché si existe. Ante un error
// del colaborador falla abierta a lista vacía (el calculador la trata como
// disponibilidad 0) sin cachear, para que un error transitorio no deje el
// cóctel en cero hasta la recarga manual.
func (r *RecipeResolver) Resolve(ctx context.Context, productID string) []entity.RecipeItem {
	r.mu.Lock()
	if cached, ok := r.cache[productID]; ok {
		r.mu.Unlock()
		return cached
	}
	r.mu.Unlock()

	recipe, err := r.catalog.GetRecipe(ctx, productID)
	if err != nil {
		r.log.Warn().Err(err).Str("product_id", productID).Msg("receta no disponible, se trata como vacía")
		return nil
	}
	if recipe == nil {
		recipe = []entity.RecipeItem{}
	}

	r.mu.Lock()
	r.cache[productID] = recipe
	r.mu.Unlock()
	return recipe
}

// Invalidate vacía toda la caché (acción "recargar catálogo").
func (r *RecipeResolver) Invalidate() {
	r.mu.Lock()
	r.cache = make(map[string][]entity.RecipeItem)
	r.mu.Unlock()
}
