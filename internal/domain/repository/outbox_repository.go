package repository

import (
	"context"

	"github.com/jhoicas/stockmaster-api/internal/domain/entity"
)

// OutboxRepository cola de eventos pendientes de publicar.
type OutboxRepository interface {
	Enqueue(ctx context.Context, event *entity.OutboxEvent) error
	FetchPending(ctx context.Context, limit int) ([]*entity.OutboxEvent, error)
	MarkPublished(ctx context.Context, ids []string) error
	MarkFailed(ctx context.Context, id string, reason string) error
}
