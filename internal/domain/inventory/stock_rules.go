package inventory

import (
	"math"
	"sort"

	"github.com/jhoicas/stockmaster-api/internal/domain"
	"github.com/jhoicas/stockmaster-api/internal/domain/entity"
)

// ProductIDs devuelve los productos referenciados por los movimientos, sin repetir y en orden ascendente.
// Bloquear filas siempre en este orden evita interbloqueos entre transacciones concurrentes.
func ProductIDs(movs ...*entity.Movement) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, m := range movs {
		for _, it := range m.Items {
			if _, ok := seen[it.ProductID]; ok {
				continue
			}
			seen[it.ProductID] = struct{}{}
			ids = append(ids, it.ProductID)
		}
	}
	sort.Strings(ids)
	return ids
}

// MaxLineQuantity tope de unidades por línea de movimiento.
const MaxLineQuantity int64 = 1_000_000_000

// AddStock suma dos cantidades y falla con domain.ErrInvalidInput si el resultado desborda int64.
func AddStock(a, b int64) (int64, error) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, domain.Invalid("la cantidad excede el máximo representable")
	}
	return a + b, nil
}

// AggregateDeltas suma el delta neto por producto de todos los movimientos de una operación.
// Dos líneas del mismo producto cuentan juntas para la verificación de suficiencia.
func AggregateDeltas(movs ...*entity.Movement) (map[string]int64, error) {
	out := make(map[string]int64)
	for _, m := range movs {
		for _, it := range m.Items {
			sum, err := AddStock(out[it.ProductID], it.Quantity)
			if err != nil {
				return nil, err
			}
			out[it.ProductID] = sum
		}
	}
	return out, nil
}

// CheckAvailability verifica que ningún producto quede con stock negativo tras aplicar deltas.
// Devuelve *domain.InsufficientStockError con el primer producto (en orden de id) que no alcanza.
func CheckAvailability(stock map[string]int64, deltas map[string]int64) error {
	ids := make([]string, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		d := deltas[id]
		if d >= 0 {
			continue
		}
		if stock[id]+d < 0 {
			return &domain.InsufficientStockError{ProductID: id, Requested: -d, Available: stock[id]}
		}
	}
	return nil
}
