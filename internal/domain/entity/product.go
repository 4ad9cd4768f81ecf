package entity

import "github.com/shopspring/decimal"

// Tipo de producto en el catálogo del bar.
const (
	KindStandard = "STANDARD" // se vende tal cual (cerveza, gaseosa, plato)
	KindCocktail = "COCKTAIL" // compuesto, se arma según receta
	KindBase     = "BASE"     // insumo base de coctelería (licores)
	KindAccomp   = "ACCOMP"   // acompañante (jugos, sodas, garnish)
)

// Medida declarada del producto. El stock crudo se guarda en esta unidad.
const (
	MeasureUnit = "UNIT"
	MeasureML   = "ML"
	MeasureG    = "G"
)

// Product representa una entrada del catálogo. Es propiedad del colaborador
// de catálogo: el motor solo la lee.
type Product struct {
	ID       string
	Name     string
	Category string
	Price    decimal.Decimal // COP
	RawStock decimal.Decimal // en la medida declarada (Measure)
	MinStock decimal.Decimal
	Kind     string // KindStandard, KindCocktail, KindBase, KindAccomp
	Measure  string // MeasureUnit, MeasureML, MeasureG
}

// IsCocktail indica si el producto se arma a partir de una receta.
func (p *Product) IsCocktail() bool { return p.Kind == KindCocktail }
