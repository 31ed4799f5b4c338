package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/stockmaster-api/internal/domain/entity"
	"github.com/jhoicas/stockmaster-api/internal/domain/repository"
)

var _ repository.OutboxRepository = (*OutboxRepo)(nil)

// OutboxRepo cola de eventos sobre la tabla outbox_events.
type OutboxRepo struct {
	q Querier
}

// NewOutboxRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOutboxRepository(q Querier) *OutboxRepo {
	return &OutboxRepo{q: q}
}

func (r *OutboxRepo) Enqueue(ctx context.Context, e *entity.OutboxEvent) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO outbox_events (id, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.AggregateID, e.EventType, e.Payload, e.CreatedAt)
	if err != nil {
		return storeErr("insert outbox event", err)
	}
	return nil
}

// FetchPending devuelve los eventos no publicados en orden de creación. Pensado para un único relay por base.
func (r *OutboxRepo) FetchPending(ctx context.Context, limit int) ([]*entity.OutboxEvent, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, aggregate_id, event_type, payload, attempts, last_error, created_at
		FROM outbox_events WHERE published_at IS NULL
		ORDER BY created_at, id LIMIT $1`, limitOrAll(limit))
	if err != nil {
		return nil, storeErr("fetch outbox", err)
	}
	defer rows.Close()
	out := make([]*entity.OutboxEvent, 0)
	for rows.Next() {
		var e entity.OutboxEvent
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.Payload, &e.Attempts, &e.LastError, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("fetch outbox", err)
	}
	return out, nil
}

func (r *OutboxRepo) MarkPublished(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.q.Exec(ctx,
		`UPDATE outbox_events SET published_at = now() WHERE id = ANY($1::uuid[]) AND published_at IS NULL`, ids)
	if err != nil {
		return storeErr("mark outbox published", err)
	}
	return nil
}

func (r *OutboxRepo) MarkFailed(ctx context.Context, id, reason string) error {
	_, err := r.q.Exec(ctx,
		`UPDATE outbox_events SET attempts = attempts + 1, last_error = $2 WHERE id = $1`, id, reason)
	if err != nil {
		return storeErr("mark outbox failed", err)
	}
	return nil
}
