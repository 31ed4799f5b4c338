package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stockmaster-api/internal/domain/entity"
)

// MovementRepository define el puerto de persistencia para movimientos (solo inserción y lectura).
type MovementRepository interface {
	// Create inserta el movimiento. Si IdempotencyKey ya existe devuelve domain.ErrDuplicate.
	Create(ctx context.Context, movement *entity.Movement) error
	GetByIdempotencyKey(ctx context.Context, key string) (*entity.Movement, error)
	ListByTransaction(ctx context.Context, transactionID string) ([]*entity.Movement, error)
	// List devuelve movimientos de los tipos indicados (todos si kinds está vacío), más recientes primero.
	List(ctx context.Context, kinds []entity.MovementKind, limit, offset int) ([]*entity.Movement, error)
	ListSince(ctx context.Context, kinds []entity.MovementKind, since time.Time) ([]*entity.Movement, error)
	CountByKind(ctx context.Context) (map[entity.MovementKind]int64, error)
}
