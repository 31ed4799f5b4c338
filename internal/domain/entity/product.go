package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultReorderPoint punto de reorden cuando el alta no lo indica.
const DefaultReorderPoint int64 = 10

// Product representa un producto del catálogo.
// Stock solo lo modifica el libro de existencias (ledger); AvgCost es promedio ponderado de entradas.
type Product struct {
	ID           string
	SKU          string
	Name         string
	Category     string
	Price        decimal.Decimal // precio de venta
	Unit         string          // unidad de medida (ud, kg, caja...)
	Stock        int64
	ReorderPoint int64
	AvgCost      decimal.Decimal
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsLowStock indica stock bajo: hay existencias pero no superan el punto de reorden.
func (p *Product) IsLowStock() bool {
	return p.Stock > 0 && p.Stock <= p.ReorderPoint
}

// IsOutOfStock indica que no quedan existencias.
func (p *Product) IsOutOfStock() bool {
	return p.Stock == 0
}
