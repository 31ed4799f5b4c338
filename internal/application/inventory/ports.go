package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/stockmaster-api/internal/domain/repository"
)

// Repos repositorios atados a una misma transacción.
type Repos struct {
	Products  repository.ProductRepository
	Movements repository.MovementRepository
	Vendors   repository.VendorRepository
	Outbox    repository.OutboxRepository
}

// TxRunner ejecuta una función dentro de una transacción, pasando repositorios atados a esa tx.
// Si fn devuelve error no queda ningún efecto observable (Rollback); si no, se confirma todo junto.
type TxRunner interface {
	Run(ctx context.Context, fn func(r Repos) error) error
}

// Recorder recibe métricas del libro de existencias. Puede ser nil.
type Recorder interface {
	ObserveMovement(kind, result string, elapsed time.Duration)
}
