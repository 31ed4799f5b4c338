package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stockmaster-api/internal/domain"
	"github.com/jhoicas/stockmaster-api/internal/domain/entity"
	"github.com/jhoicas/stockmaster-api/internal/domain/repository"
)

var (
	_ repository.ProductRepository  = (*ProductRepo)(nil)
	_ repository.MovementRepository = (*MovementRepo)(nil)
	_ repository.VendorRepository   = (*VendorRepo)(nil)
	_ repository.LocationRepository = (*LocationRepo)(nil)
	_ repository.PaymentRepository  = (*PaymentRepo)(nil)
	_ repository.UserRepository     = (*UserRepo)(nil)
	_ repository.OutboxRepository   = (*OutboxRepo)(nil)
)

// ── Productos ─────────────────────────────────────────────────────────────────

// ProductRepo productos en memoria.
type ProductRepo struct{ g guard }

// NewProductRepository construye el repositorio.
func NewProductRepository(s *Store) *ProductRepo { return &ProductRepo{g: guard{s: s}} }

func (r *ProductRepo) Create(_ context.Context, p *entity.Product) error {
	defer r.g.write()()
	if _, ok := r.g.s.products[p.ID]; ok {
		return domain.ErrDuplicate
	}
	if p.SKU != "" {
		for _, other := range r.g.s.products {
			if strings.EqualFold(other.SKU, p.SKU) {
				return domain.ErrDuplicate
			}
		}
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = p.CreatedAt
	r.g.s.products[p.ID] = *p
	return nil
}

func (r *ProductRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	defer r.g.read()()
	p, ok := r.g.s.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *ProductRepo) List(_ context.Context, limit, offset int) ([]*entity.Product, error) {
	defer r.g.read()()
	all := sortedProducts(r.g.s.products)
	out := make([]*entity.Product, 0, len(all))
	for _, p := range page(all, limit, offset) {
		out = append(out, &p)
	}
	return out, nil
}

func (r *ProductRepo) Summary(_ context.Context) (repository.StockSummary, error) {
	defer r.g.read()()
	var s repository.StockSummary
	for _, p := range r.g.s.products {
		s.TotalProducts++
		if p.IsLowStock() {
			s.LowStock++
		}
		if p.IsOutOfStock() {
			s.OutOfStock++
		}
	}
	return s, nil
}

func (r *ProductRepo) LockForUpdate(_ context.Context, ids []string) (map[string]*entity.Product, error) {
	defer r.g.read()()
	out := make(map[string]*entity.Product, len(ids))
	for _, id := range ids {
		if p, ok := r.g.s.products[id]; ok {
			out[id] = &p
		}
	}
	return out, nil
}

func (r *ProductRepo) SetStock(_ context.Context, id string, stock int64, avgCost decimal.Decimal) error {
	defer r.g.write()()
	p, ok := r.g.s.products[id]
	if !ok {
		return domain.ErrNotFound
	}
	if stock < 0 {
		return &domain.InsufficientStockError{ProductID: id, Requested: p.Stock - stock, Available: p.Stock}
	}
	p.Stock = stock
	p.AvgCost = avgCost
	p.UpdatedAt = time.Now().UTC()
	r.g.s.products[id] = p
	return nil
}

// ── Movimientos ───────────────────────────────────────────────────────────────

// MovementRepo movimientos en memoria (solo inserción).
type MovementRepo struct{ g guard }

// NewMovementRepository construye el repositorio.
func NewMovementRepository(s *Store) *MovementRepo { return &MovementRepo{g: guard{s: s}} }

func cloneMovement(m *entity.Movement) *entity.Movement {
	c := *m
	c.Items = make([]entity.LineItem, len(m.Items))
	copy(c.Items, m.Items)
	return &c
}

func (r *MovementRepo) Create(_ context.Context, m *entity.Movement) error {
	defer r.g.write()()
	if m.IdempotencyKey != "" {
		if _, ok := r.g.s.idemKeys[m.IdempotencyKey]; ok {
			return domain.ErrDuplicate
		}
		r.g.s.idemKeys[m.IdempotencyKey] = m.ID
	}
	r.g.s.movements = append(r.g.s.movements, cloneMovement(m))
	return nil
}

func (r *MovementRepo) GetByIdempotencyKey(_ context.Context, key string) (*entity.Movement, error) {
	defer r.g.read()()
	id, ok := r.g.s.idemKeys[key]
	if !ok {
		return nil, nil
	}
	for _, m := range r.g.s.movements {
		if m.ID == id {
			return cloneMovement(m), nil
		}
	}
	return nil, nil
}

func (r *MovementRepo) ListByTransaction(_ context.Context, txID string) ([]*entity.Movement, error) {
	defer r.g.read()()
	var out []*entity.Movement
	for _, m := range r.g.s.movements {
		if m.TransactionID == txID {
			out = append(out, cloneMovement(m))
		}
	}
	return out, nil
}

func matchKind(kinds []entity.MovementKind, k entity.MovementKind) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, want := range kinds {
		if want == k {
			return true
		}
	}
	return false
}

// newestFirst recorre en orden inverso de inserción, que coincide con orden de fecha descendente.
func (r *MovementRepo) newestFirst(kinds []entity.MovementKind, keep func(*entity.Movement) bool) []*entity.Movement {
	var out []*entity.Movement
	for i := len(r.g.s.movements) - 1; i >= 0; i-- {
		m := r.g.s.movements[i]
		if matchKind(kinds, m.Kind) && keep(m) {
			out = append(out, cloneMovement(m))
		}
	}
	return out
}

func (r *MovementRepo) List(_ context.Context, kinds []entity.MovementKind, limit, offset int) ([]*entity.Movement, error) {
	defer r.g.read()()
	all := r.newestFirst(kinds, func(*entity.Movement) bool { return true })
	return page(all, limit, offset), nil
}

func (r *MovementRepo) ListSince(_ context.Context, kinds []entity.MovementKind, since time.Time) ([]*entity.Movement, error) {
	defer r.g.read()()
	return r.newestFirst(kinds, func(m *entity.Movement) bool { return !m.Date.Before(since) }), nil
}

func (r *MovementRepo) CountByKind(_ context.Context) (map[entity.MovementKind]int64, error) {
	defer r.g.read()()
	out := make(map[entity.MovementKind]int64)
	for _, m := range r.g.s.movements {
		out[m.Kind]++
	}
	return out, nil
}

// ── Catálogo de referencia ────────────────────────────────────────────────────

// VendorRepo proveedores en memoria.
type VendorRepo struct{ g guard }

// NewVendorRepository construye el repositorio.
func NewVendorRepository(s *Store) *VendorRepo { return &VendorRepo{g: guard{s: s}} }

func (r *VendorRepo) Create(_ context.Context, v *entity.Vendor) error {
	defer r.g.write()()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	r.g.s.vendors[v.ID] = *v
	return nil
}

func (r *VendorRepo) GetByID(_ context.Context, id string) (*entity.Vendor, error) {
	defer r.g.read()()
	v, ok := r.g.s.vendors[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (r *VendorRepo) List(_ context.Context, limit, offset int) ([]*entity.Vendor, error) {
	defer r.g.read()()
	all := make([]*entity.Vendor, 0, len(r.g.s.vendors))
	for _, v := range r.g.s.vendors {
		all = append(all, &v)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return page(all, limit, offset), nil
}

// LocationRepo ubicaciones en memoria.
type LocationRepo struct{ g guard }

// NewLocationRepository construye el repositorio.
func NewLocationRepository(s *Store) *LocationRepo { return &LocationRepo{g: guard{s: s}} }

func (r *LocationRepo) Create(_ context.Context, l *entity.Location) error {
	defer r.g.write()()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	c := *l
	r.g.s.locations = append(r.g.s.locations, &c)
	return nil
}

func (r *LocationRepo) List(_ context.Context, limit, offset int) ([]*entity.Location, error) {
	defer r.g.read()()
	return page(r.g.s.locations, limit, offset), nil
}

// PaymentRepo pagos en memoria.
type PaymentRepo struct{ g guard }

// NewPaymentRepository construye el repositorio.
func NewPaymentRepository(s *Store) *PaymentRepo { return &PaymentRepo{g: guard{s: s}} }

func (r *PaymentRepo) Create(_ context.Context, p *entity.Payment) error {
	defer r.g.write()()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	c := *p
	r.g.s.payments = append(r.g.s.payments, &c)
	return nil
}

func (r *PaymentRepo) List(_ context.Context, limit, offset int) ([]*entity.Payment, error) {
	defer r.g.read()()
	return page(r.g.s.payments, limit, offset), nil
}

// ── Usuarios ──────────────────────────────────────────────────────────────────

// UserRepo usuarios en memoria, indexados por id.
type UserRepo struct{ g guard }

// NewUserRepository construye el repositorio.
func NewUserRepository(s *Store) *UserRepo { return &UserRepo{g: guard{s: s}} }

func (r *UserRepo) Create(_ context.Context, u *entity.User) error {
	defer r.g.write()()
	for _, other := range r.g.s.users {
		if strings.EqualFold(other.Email, u.Email) {
			return domain.ErrEmailAlreadyExists
		}
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	r.g.s.users[u.ID] = *u
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	defer r.g.read()()
	u, ok := r.g.s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	defer r.g.read()()
	for _, u := range r.g.s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *UserRepo) UpdatePassword(_ context.Context, id, hash string) error {
	defer r.g.write()()
	u, ok := r.g.s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = time.Now().UTC()
	r.g.s.users[id] = u
	return nil
}

// ── Outbox ────────────────────────────────────────────────────────────────────

// OutboxRepo cola de eventos en memoria.
type OutboxRepo struct{ g guard }

// NewOutboxRepository construye el repositorio.
func NewOutboxRepository(s *Store) *OutboxRepo { return &OutboxRepo{g: guard{s: s}} }

func (r *OutboxRepo) Enqueue(_ context.Context, e *entity.OutboxEvent) error {
	defer r.g.write()()
	c := *e
	r.g.s.outbox = append(r.g.s.outbox, &c)
	return nil
}

func (r *OutboxRepo) FetchPending(_ context.Context, limit int) ([]*entity.OutboxEvent, error) {
	defer r.g.read()()
	var out []*entity.OutboxEvent
	for _, e := range r.g.s.outbox {
		if e.PublishedAt != nil {
			continue
		}
		c := *e
		out = append(out, &c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *OutboxRepo) MarkPublished(_ context.Context, ids []string) error {
	defer r.g.write()()
	now := time.Now().UTC()
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	for _, e := range r.g.s.outbox {
		if _, ok := set[e.ID]; ok && e.PublishedAt == nil {
			t := now
			e.PublishedAt = &t
		}
	}
	return nil
}

func (r *OutboxRepo) MarkFailed(_ context.Context, id, reason string) error {
	defer r.g.write()()
	for _, e := range r.g.s.outbox {
		if e.ID == id {
			e.Attempts++
			e.LastError = reason
		}
	}
	return nil
}
