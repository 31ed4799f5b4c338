package ports

import (
	"context"

	"github.com/jhoicas/stockmaster-api/internal/domain/entity"
)

// EventPublisher publica eventos del outbox hacia un broker externo.
type EventPublisher interface {
	Publish(ctx context.Context, event *entity.OutboxEvent) error
}
