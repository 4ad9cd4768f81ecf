// Package availability calcula cuántas unidades adicionales de un producto se
// pueden vender ahora mismo, combinando stock crudo, reservas de otras
// comandas abiertas y, para cócteles, la receta resuelta.
package availability

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/barra-pos/internal/domain/entity"
	"github.com/jhoicas/barra-pos/internal/domain/units"
)

// ReservedFunc devuelve las unidades del producto ya comprometidas por
// comandas abiertas (en la medida declarada del producto).
type ReservedFunc func(productID string) decimal.Decimal

// LookupFunc resuelve un producto del catálogo por id; nil si no existe.
type LookupFunc func(productID string) *entity.Product

// Result es la disponibilidad de un producto del catálogo.
type Result struct {
	Available int64
	LowStock  bool // 0 < disponible <= umbral (minStock o umbral de cóctel)
}

// Calculator evalúa disponibilidad. CocktailLowStock es el umbral fijo de
// "queda poco" para cócteles (los estándar usan su propio minStock).
type Calculator struct {
	CocktailLowStock int64
}

// New construye el calculador con el umbral de cóctel dado.
func New(cocktailLowStock int64) *Calculator {
	return &Calculator{CocktailLowStock: cocktailLowStock}
}

// ForProduct calcula la disponibilidad de cualquier entrada del catálogo.
// resolve entrega la receta ya resuelta cuando el producto es cóctel.
func (c *Calculator) ForProduct(p *entity.Product, recipe []entity.RecipeItem, lookup LookupFunc, reserved ReservedFunc) Result {
	if p.IsCocktail() {
		return c.forCocktail(p, recipe, lookup, reserved)
	}
	avail := unitsLeft(p, reserved)
	return Result{
		Available: avail,
		LowStock:  avail > 0 && decimal.NewFromInt(avail).LessThanOrEqual(p.MinStock),
	}
}

// unitsLeft: max(0, floor(stockBase − reservadoBase)) para productos crudos.
func unitsLeft(p *entity.Product, reserved ReservedFunc) int64 {
	left := units.ToBaseUnit(p.RawStock.Sub(reserved(p.ID)), p.Measure)
	if left.IsNegative() {
		return 0
	}
	return left.Floor().IntPart()
}

// forCocktail: receta vacía o insumo irresoluble → 0 (falla segura). En otro
// caso floor(min sobre líneas de disponibleBase/necesarioBase), acotado a ≥0.
// Las líneas con necesidad <= 0 se saltan.
func (c *Calculator) forCocktail(p *entity.Product, recipe []entity.RecipeItem, lookup LookupFunc, reserved ReservedFunc) Result {
	if len(recipe) == 0 {
		return Result{}
	}

	var minRatio decimal.Decimal
	counted := false
	for _, line := range recipe {
		ing := lookup(line.IngredientID)
		if ing == nil {
			return Result{}
		}
		unit := units.EffectiveUnit(line.Unit, ing.Measure)
		needed := units.ToBaseUnit(line.Quantity, unit)
		if needed.LessThanOrEqual(decimal.Zero) {
			continue
		}
		availBase := units.ToBaseUnit(ing.RawStock.Sub(reserved(ing.ID)), ing.Measure)
		ratio := availBase.Div(needed)
		if !counted || ratio.LessThan(minRatio) {
			minRatio = ratio
			counted = true
		}
	}
	if !counted {
		return Result{}
	}

	avail := minRatio.Floor().IntPart()
	if avail < 0 {
		avail = 0
	}
	return Result{
		Available: avail,
		LowStock:  avail > 0 && avail <= c.CocktailLowStock,
	}
}
