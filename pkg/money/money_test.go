package money_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/barra-pos/pkg/money"
)

func TestFormatCOP_AgrupaConPunto(t *testing.T) {
	assert.Equal(t, "$ 35.700", money.FormatCOP(decimal.NewFromInt(35700)))
	assert.Equal(t, "$ 1.190.000", money.FormatCOP(decimal.NewFromInt(1190000)))
	assert.Equal(t, "$ 0", money.FormatCOP(decimal.Zero))
}

func TestFormatCOP_RedondeaALaUnidad(t *testing.T) {
	assert.Equal(t, "$ 5.700", money.FormatCOP(decimal.RequireFromString("5699.5")))
}
