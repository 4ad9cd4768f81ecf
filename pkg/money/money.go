// Package money formatea montos en pesos colombianos para recibos y
// respuestas de la API. El peso no usa centavos en mostrador: se redondea a
// la unidad y se agrupa con punto (es-CO).
package money

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.MustParse("es-CO"))

// FormatCOP devuelve el monto como "$ 35.700".
func FormatCOP(amount decimal.Decimal) string {
	return printer.Sprintf("$ %v", number.Decimal(amount.Round(0).IntPart()))
}
