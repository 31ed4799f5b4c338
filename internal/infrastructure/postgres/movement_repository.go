package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stockmaster-api/internal/domain"
	"github.com/jhoicas/stockmaster-api/internal/domain/entity"
	"github.com/jhoicas/stockmaster-api/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

const movementColumns = `id, transaction_id, kind, reference, status, COALESCE(vendor_id::text, ''), customer,
	location, from_location, to_location, reason, COALESCE(idempotency_key, ''), items, created_by, created_at`

// MovementRepo movimientos del libro sobre PostgreSQL. Las líneas van embebidas en una columna JSONB.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

// itemJSON forma persistida de una línea.
type itemJSON struct {
	ProductID string           `json:"productId"`
	Delta     int64            `json:"delta"`
	UnitCost  *decimal.Decimal `json:"unitCost,omitempty"`
}

// Create inserta el movimiento. Una idempotency_key repetida devuelve domain.ErrDuplicate.
func (r *MovementRepo) Create(ctx context.Context, m *entity.Movement) error {
	items := make([]itemJSON, 0, len(m.Items))
	for _, it := range m.Items {
		items = append(items, itemJSON{ProductID: it.ProductID, Delta: it.Quantity, UnitCost: it.UnitCost})
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("serializar líneas: %w", err)
	}
	query := `
		INSERT INTO movements (id, transaction_id, kind, reference, status, vendor_id, customer,
			location, from_location, to_location, reason, idempotency_key, items, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, '')::uuid, $7, $8, $9, $10, $11, NULLIF($12, ''), $13, $14, $15)`
	_, err = r.q.Exec(ctx, query,
		m.ID, m.TransactionID, string(m.Kind), m.Reference, string(m.Status), m.VendorID, m.Customer,
		m.Location, m.FromLocation, m.ToLocation, m.Reason, m.IdempotencyKey, raw, m.CreatedBy, m.Date,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return storeErr("insert movement", err)
	}
	return nil
}

func (r *MovementRepo) GetByIdempotencyKey(ctx context.Context, key string) (*entity.Movement, error) {
	m, err := scanMovement(r.q.QueryRow(ctx, `SELECT `+movementColumns+` FROM movements WHERE idempotency_key = $1`, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr("get movement by key", err)
	}
	return m, nil
}

// ListByTransaction devuelve los movimientos de una operación; en traslados el transfer-out primero.
func (r *MovementRepo) ListByTransaction(ctx context.Context, txID string) ([]*entity.Movement, error) {
	return r.list(ctx, "list movements by transaction",
		`SELECT `+movementColumns+` FROM movements WHERE transaction_id = $1
		 ORDER BY CASE kind WHEN 'transfer-in' THEN 1 ELSE 0 END, id`, txID)
}

func (r *MovementRepo) List(ctx context.Context, kinds []entity.MovementKind, limit, offset int) ([]*entity.Movement, error) {
	return r.list(ctx, "list movements",
		`SELECT `+movementColumns+` FROM movements
		 WHERE ($1::text[] IS NULL OR kind = ANY($1))
		 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`, kindStrings(kinds), limitOrAll(limit), offset)
}

func (r *MovementRepo) ListSince(ctx context.Context, kinds []entity.MovementKind, since time.Time) ([]*entity.Movement, error) {
	return r.list(ctx, "list movements since",
		`SELECT `+movementColumns+` FROM movements
		 WHERE ($1::text[] IS NULL OR kind = ANY($1)) AND created_at >= $2
		 ORDER BY created_at DESC, id DESC`, kindStrings(kinds), since)
}

func (r *MovementRepo) CountByKind(ctx context.Context) (map[entity.MovementKind]int64, error) {
	rows, err := r.q.Query(ctx, `SELECT kind, count(*) FROM movements GROUP BY kind`)
	if err != nil {
		return nil, storeErr("count movements", err)
	}
	defer rows.Close()
	out := make(map[entity.MovementKind]int64)
	for rows.Next() {
		var kind string
		var n int64
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out[entity.MovementKind(kind)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("count movements", err)
	}
	return out, nil
}

func (r *MovementRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.Movement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr(op, err)
	}
	defer rows.Close()
	out := make([]*entity.Movement, 0)
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(op, err)
	}
	return out, nil
}

func scanMovement(row pgx.Row) (*entity.Movement, error) {
	var m entity.Movement
	var kind, status string
	var raw []byte
	err := row.Scan(&m.ID, &m.TransactionID, &kind, &m.Reference, &status, &m.VendorID, &m.Customer,
		&m.Location, &m.FromLocation, &m.ToLocation, &m.Reason, &m.IdempotencyKey, &raw, &m.CreatedBy, &m.Date)
	if err != nil {
		return nil, err
	}
	m.Kind = entity.MovementKind(kind)
	m.Status = entity.MovementStatus(status)

	var items []itemJSON
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("deserializar líneas de %s: %w", m.ID, err)
	}
	m.Items = make([]entity.LineItem, 0, len(items))
	for _, it := range items {
		m.Items = append(m.Items, entity.LineItem{ProductID: it.ProductID, Quantity: it.Delta, UnitCost: it.UnitCost})
	}
	return &m, nil
}

func kindStrings(kinds []entity.MovementKind) []string {
	if len(kinds) == 0 {
		return nil
	}
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}

// limitOrAll traduce limit <= 0 a NULL (LIMIT ALL).
func limitOrAll(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}
