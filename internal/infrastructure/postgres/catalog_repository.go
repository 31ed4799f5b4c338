package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stockmaster-api/internal/domain/entity"
	"github.com/jhoicas/stockmaster-api/internal/domain/repository"
)

var (
	_ repository.VendorRepository   = (*VendorRepo)(nil)
	_ repository.LocationRepository = (*LocationRepo)(nil)
	_ repository.PaymentRepository  = (*PaymentRepo)(nil)
)

// ── Proveedores ───────────────────────────────────────────────────────────────

// VendorRepo proveedores sobre PostgreSQL.
type VendorRepo struct {
	q Querier
}

// NewVendorRepository construye el adaptador. Pasar pool o tx (Querier).
func NewVendorRepository(q Querier) *VendorRepo {
	return &VendorRepo{q: q}
}

func (r *VendorRepo) Create(ctx context.Context, v *entity.Vendor) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO vendors (id, name, email, phone, address) VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		v.ID, v.Name, v.Email, v.Phone, v.Address,
	).Scan(&v.CreatedAt)
	if err != nil {
		return storeErr("insert vendor", err)
	}
	return nil
}

func (r *VendorRepo) GetByID(ctx context.Context, id string) (*entity.Vendor, error) {
	var v entity.Vendor
	err := r.q.QueryRow(ctx,
		`SELECT id, name, email, phone, address, created_at FROM vendors WHERE id::text = $1`, id,
	).Scan(&v.ID, &v.Name, &v.Email, &v.Phone, &v.Address, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr("get vendor", err)
	}
	return &v, nil
}

func (r *VendorRepo) List(ctx context.Context, limit, offset int) ([]*entity.Vendor, error) {
	rows, err := r.q.Query(ctx,
		`SELECT id, name, email, phone, address, created_at FROM vendors ORDER BY created_at, id LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, storeErr("list vendors", err)
	}
	defer rows.Close()
	list := make([]*entity.Vendor, 0)
	for rows.Next() {
		var v entity.Vendor
		if err := rows.Scan(&v.ID, &v.Name, &v.Email, &v.Phone, &v.Address, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan vendor: %w", err)
		}
		list = append(list, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list vendors", err)
	}
	return list, nil
}

// ── Ubicaciones ───────────────────────────────────────────────────────────────

// LocationRepo ubicaciones sobre PostgreSQL.
type LocationRepo struct {
	q Querier
}

// NewLocationRepository construye el adaptador.
func NewLocationRepository(q Querier) *LocationRepo {
	return &LocationRepo{q: q}
}

func (r *LocationRepo) Create(ctx context.Context, l *entity.Location) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO locations (id, name, type, capacity) VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		l.ID, l.Name, l.Type, l.Capacity,
	).Scan(&l.CreatedAt)
	if err != nil {
		return storeErr("insert location", err)
	}
	return nil
}

func (r *LocationRepo) List(ctx context.Context, limit, offset int) ([]*entity.Location, error) {
	rows, err := r.q.Query(ctx,
		`SELECT id, name, type, capacity, created_at FROM locations ORDER BY created_at, id LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, storeErr("list locations", err)
	}
	defer rows.Close()
	list := make([]*entity.Location, 0)
	for rows.Next() {
		var l entity.Location
		if err := rows.Scan(&l.ID, &l.Name, &l.Type, &l.Capacity, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		list = append(list, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list locations", err)
	}
	return list, nil
}

// ── Pagos ─────────────────────────────────────────────────────────────────────

// PaymentRepo pagos sobre PostgreSQL.
type PaymentRepo struct {
	q Querier
}

// NewPaymentRepository construye el adaptador.
func NewPaymentRepository(q Querier) *PaymentRepo {
	return &PaymentRepo{q: q}
}

func (r *PaymentRepo) Create(ctx context.Context, p *entity.Payment) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO payments (id, invoice_ref, type, amount, status, method, due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		p.ID, p.InvoiceRef, p.Type, p.Amount, p.Status, p.Method, p.DueDate,
	).Scan(&p.CreatedAt)
	if err != nil {
		return storeErr("insert payment", err)
	}
	return nil
}

func (r *PaymentRepo) List(ctx context.Context, limit, offset int) ([]*entity.Payment, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, invoice_ref, type, amount, status, method, due_date, created_at
		FROM payments ORDER BY created_at, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, storeErr("list payments", err)
	}
	defer rows.Close()
	list := make([]*entity.Payment, 0)
	for rows.Next() {
		var p entity.Payment
		if err := rows.Scan(&p.ID, &p.InvoiceRef, &p.Type, &p.Amount, &p.Status, &p.Method, &p.DueDate, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		list = append(list, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list payments", err)
	}
	return list, nil
}
