package entity

import "github.com/shopspring/decimal"

// Rol del insumo dentro de la receta de un cóctel.
const (
	RoleBase   = "BASE"
	RoleAccomp = "ACCOMP"
)

// RecipeItem es una línea de la receta de un cóctel: cuánto insumo se
// necesita para producir una unidad. Inmutable una vez obtenida del backend;
// se cachea por sesión y solo se invalida con la recarga manual del catálogo.
type RecipeItem struct {
	CocktailID   string
	IngredientID string
	Quantity     decimal.Decimal
	Unit         string // ML, G, UNIT, L, KG; vacío = medida del insumo
	Role         string // RoleBase o RoleAccomp
}
