package units_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/barra-pos/internal/domain/units"
)

func TestToBaseUnit_EscalaLitrosYKilos(t *testing.T) {
	casos := []struct {
		nombre   string
		qty      string
		unit     string
		esperado string
	}{
		{"litros a mililitros", "1.5", "L", "1500"},
		{"kilos a gramos", "0.25", "KG", "250"},
		{"mililitros pasan sin cambio", "50", "ML", "50"},
		{"gramos pasan sin cambio", "30", "G", "30"},
		{"unidades pasan sin cambio", "2", "UNIT", "2"},
		{"sin etiqueta pasa sin cambio", "7", "", "7"},
		{"minúsculas también escalan", "2", "l", "2000"},
	}
	for _, c := range casos {
		t.Run(c.nombre, func(t *testing.T) {
			qty := decimal.RequireFromString(c.qty)
			got := units.ToBaseUnit(qty, c.unit)
			assert.True(t, got.Equal(decimal.RequireFromString(c.esperado)),
				"esperado %s, obtenido %s", c.esperado, got)
		})
	}
}

func TestToBaseUnit_NoRedondea(t *testing.T) {
	got := units.ToBaseUnit(decimal.RequireFromString("0.0335"), "L")
	assert.True(t, got.Equal(decimal.RequireFromString("33.5")),
		"la conversión no debe redondear: %s", got)
}

func TestEffectiveUnit_FallbackAMedidaDelInsumo(t *testing.T) {
	assert.Equal(t, "ML", units.EffectiveUnit("ml", "UNIT"), "unidad reconocida gana")
	assert.Equal(t, "ML", units.EffectiveUnit("onzas", "ML"), "desconocida usa la medida del insumo")
	assert.Equal(t, "UNIT", units.EffectiveUnit("", ""), "último recurso es UNIT")
	assert.Equal(t, "KG", units.EffectiveUnit("KG", "G"), "la etiqueta de la línea tiene prioridad")
}
