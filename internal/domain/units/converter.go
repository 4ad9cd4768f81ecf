// Package units canonicaliza cantidades a la unidad base (mL, g o unidades)
// para poder comparar stock y recetas expresados en unidades distintas.
package units

import (
	"strings"

	"github.com/shopspring/decimal"
)

var mil = decimal.NewFromInt(1000)

// conocidas: unidades que el convertidor reconoce. Cualquier otra cadena se
// resuelve con EffectiveUnit contra la medida declarada del insumo.
var known = map[string]bool{
	"L": true, "KG": true, "ML": true, "G": true, "UNIT": true,
}

// ToBaseUnit convierte una cantidad etiquetada a la unidad base: L y KG
// multiplican por 1000; ML, G y UNIT (o sin etiqueta) pasan sin cambio.
// No redondea: los consumidores redondean solo en el punto de decisión final.
func ToBaseUnit(qty decimal.Decimal, unit string) decimal.Decimal {
	switch strings.ToUpper(strings.TrimSpace(unit)) {
	case "L", "KG":
		return qty.Mul(mil)
	default:
		return qty
	}
}

// EffectiveUnit resuelve la unidad a usar para una línea de receta: la unidad
// declarada en la línea si es reconocida, si no la medida del insumo, y como
// último recurso UNIT.
func EffectiveUnit(unit, measure string) string {
	u := strings.ToUpper(strings.TrimSpace(unit))
	if known[u] {
		return u
	}
	m := strings.ToUpper(strings.TrimSpace(measure))
	if known[m] {
		return m
	}
	return "UNIT"
}
