package inventory

import "github.com/shopspring/decimal"

// WeightedAverageCost costo promedio ponderado tras una entrada de qty unidades a unitCost.
// Con stock previo en cero el resultado es el costo de la entrada. Redondea a 4 decimales.
func WeightedAverageCost(stock int64, avg decimal.Decimal, qty int64, unitCost decimal.Decimal) decimal.Decimal {
	if qty <= 0 {
		return avg
	}
	if stock <= 0 {
		return unitCost.Round(4)
	}
	prev := decimal.NewFromInt(stock).Mul(avg)
	in := decimal.NewFromInt(qty).Mul(unitCost)
	return prev.Add(in).Div(decimal.NewFromInt(stock + qty)).Round(4)
}
