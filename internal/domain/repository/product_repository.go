package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stockmaster-api/internal/domain/entity"
)

// StockSummary conteos agregados del catálogo para el tablero.
type StockSummary struct {
	TotalProducts int64
	LowStock      int64 // 0 < stock <= reorder_point
	OutOfStock    int64 // stock == 0
}

// ProductRepository define el puerto de persistencia para Product (DIP).
// GetByID devuelve (nil, nil) si no existe.
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Product, error)
	Summary(ctx context.Context) (StockSummary, error)

	// LockForUpdate bloquea (en orden de id) y devuelve los productos existentes entre ids.
	// Los ids ausentes simplemente no aparecen en el mapa. Solo tiene sentido dentro de una transacción.
	LockForUpdate(ctx context.Context, ids []string) (map[string]*entity.Product, error)
	// SetStock fija stock y costo promedio. Solo lo invoca el libro de existencias.
	SetStock(ctx context.Context, id string, stock int64, avgCost decimal.Decimal) error
}
