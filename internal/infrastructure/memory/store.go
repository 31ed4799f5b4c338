// Package memory implementa los repositorios en la memoria del proceso.
//
// Es un backend explícito (DB_DRIVER=memory) para demos locales y tests: nunca se usa
// como respaldo de PostgreSQL ni escribe en paralelo con él. Las transacciones se
// serializan con el lock del Store y se deshacen restaurando una instantánea.
package memory

import (
	"sort"
	"sync"

	"github.com/jhoicas/stockmaster-api/internal/domain/entity"
)

// Store estado compartido por todos los repositorios en memoria.
type Store struct {
	mu sync.RWMutex

	products  map[string]entity.Product
	movements []*entity.Movement
	idemKeys  map[string]string // idempotency key -> movement id
	vendors   map[string]entity.Vendor
	locations []*entity.Location
	payments  []*entity.Payment
	users     map[string]entity.User
	outbox    []*entity.OutboxEvent
}

// NewStore crea un almacenamiento vacío.
func NewStore() *Store {
	return &Store{
		products: make(map[string]entity.Product),
		idemKeys: make(map[string]string),
		vendors:  make(map[string]entity.Vendor),
		users:    make(map[string]entity.User),
	}
}

// snapshot captura lo que una transacción del libro puede modificar.
type snapshot struct {
	products  map[string]entity.Product
	movements int
	idemKeys  map[string]string
	outbox    int
}

func (s *Store) snapshot() snapshot {
	products := make(map[string]entity.Product, len(s.products))
	for k, v := range s.products {
		products[k] = v
	}
	keys := make(map[string]string, len(s.idemKeys))
	for k, v := range s.idemKeys {
		keys[k] = v
	}
	return snapshot{products: products, movements: len(s.movements), idemKeys: keys, outbox: len(s.outbox)}
}

func (s *Store) restore(snap snapshot) {
	s.products = snap.products
	s.movements = s.movements[:snap.movements]
	s.idemKeys = snap.idemKeys
	s.outbox = s.outbox[:snap.outbox]
}

// guard toma el lock del Store salvo que el repositorio opere dentro de una transacción,
// en cuyo caso el TxRunner ya lo tiene.
type guard struct {
	s    *Store
	inTx bool
}

func (g guard) read() func() {
	if g.inTx {
		return func() {}
	}
	g.s.mu.RLock()
	return g.s.mu.RUnlock
}

func (g guard) write() func() {
	if g.inTx {
		return func() {}
	}
	g.s.mu.Lock()
	return g.s.mu.Unlock
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]T, end-offset)
	copy(out, items[offset:end])
	return out
}

func sortedProducts(m map[string]entity.Product) []entity.Product {
	out := make([]entity.Product, 0, len(m))
	for _, p := range m {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
