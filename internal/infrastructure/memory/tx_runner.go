package memory

import (
	"context"

	"github.com/jhoicas/stockmaster-api/internal/application/inventory"
)

var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks con el Store bloqueado en exclusiva.
// Si fn falla, el estado vuelve a la instantánea tomada al inicio.
type TxRunner struct {
	s *Store
}

// NewTxRunner construye el runner sobre el Store.
func NewTxRunner(s *Store) *TxRunner {
	return &TxRunner{s: s}
}

// Run serializa la transacción completa: a lo sumo una mutación de stock en vuelo a la vez.
func (r *TxRunner) Run(ctx context.Context, fn func(inventory.Repos) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	snap := r.s.snapshot()
	defer func() {
		if p := recover(); p != nil {
			r.s.restore(snap)
			panic(p)
		}
		if err != nil {
			r.s.restore(snap)
		}
	}()

	g := guard{s: r.s, inTx: true}
	if err = fn(inventory.Repos{
		Products:  &ProductRepo{g: g},
		Movements: &MovementRepo{g: g},
		Vendors:   &VendorRepo{g: g},
		Outbox:    &OutboxRepo{g: g},
	}); err != nil {
		return err
	}
	return ctx.Err()
}
