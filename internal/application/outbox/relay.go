// Package outbox publica los eventos de movimientos confirmados. Los eventos se escriben en la
// misma transacción que el movimiento; el relay los lee después y los entrega al broker
// al menos una vez.
package outbox

import (
	"context"
	"time"

	"github.com/jhoicas/stockmaster-api/internal/application/ports"
	"github.com/jhoicas/stockmaster-api/internal/domain/entity"
	"github.com/jhoicas/stockmaster-api/internal/domain/repository"
	"github.com/jhoicas/stockmaster-api/pkg/logger"
)

const (
	DefaultBatchSize = 50
	DefaultInterval  = 2 * time.Second
)

// Counter recibe el número de eventos publicados. Puede ser nil.
type Counter interface {
	OutboxPublished(n int)
}

// Relay sondea la tabla outbox y publica los eventos pendientes en orden de creación.
type Relay struct {
	repo      repository.OutboxRepository
	publisher ports.EventPublisher
	log       *logger.Logger
	metrics   Counter
	batch     int
	interval  time.Duration
}

// NewRelay construye el relay con lote de 50 eventos cada 2s.
func NewRelay(repo repository.OutboxRepository, publisher ports.EventPublisher, log *logger.Logger, metrics Counter) *Relay {
	if log == nil {
		log = logger.Nop()
	}
	return &Relay{
		repo:      repo,
		publisher: publisher,
		log:       log.Component("outbox"),
		metrics:   metrics,
		batch:     DefaultBatchSize,
		interval:  DefaultInterval,
	}
}

// Run publica hasta que ctx se cancele.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	r.log.Info().Dur("interval", r.interval).Int("batch", r.batch).Msg("relay de outbox iniciado")
	for {
		if _, err := r.Flush(ctx); err != nil && ctx.Err() == nil {
			r.log.Error().Err(err).Msg("no se pudo leer el outbox")
		}
		select {
		case <-ctx.Done():
			r.log.Info().Msg("relay de outbox detenido")
			return
		case <-ticker.C:
		}
	}
}

// Flush publica un lote. Se detiene en el primer fallo para no adelantar eventos posteriores
// del mismo agregado; el evento fallido se reintenta en el siguiente ciclo.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	events, err := r.repo.FetchPending(ctx, r.batch)
	if err != nil {
		return 0, err
	}
	published := make([]string, 0, len(events))
	var failed *entity.OutboxEvent
	var pubErr error
	for _, e := range events {
		if err := r.publisher.Publish(ctx, e); err != nil {
			failed, pubErr = e, err
			break
		}
		published = append(published, e.ID)
	}

	if len(published) > 0 {
		if err := r.repo.MarkPublished(ctx, published); err != nil {
			return 0, err
		}
		if r.metrics != nil {
			r.metrics.OutboxPublished(len(published))
		}
	}
	if failed != nil {
		r.log.Warn().Err(pubErr).Str("event_id", failed.ID).Int("attempts", failed.Attempts+1).Msg("publicación fallida, se reintentará")
		if err := r.repo.MarkFailed(ctx, failed.ID, pubErr.Error()); err != nil {
			return len(published), err
		}
	}
	return len(published), nil
}

// LogPublisher publica en el log. Se usa cuando no hay brokers configurados.
type LogPublisher struct {
	log *logger.Logger
}

// NewLogPublisher construye el publicador de log.
func NewLogPublisher(log *logger.Logger) *LogPublisher {
	if log == nil {
		log = logger.Nop()
	}
	return &LogPublisher{log: log.Component("events")}
}

func (p *LogPublisher) Publish(_ context.Context, e *entity.OutboxEvent) error {
	p.log.Info().
		Str("event_id", e.ID).
		Str("event_type", e.EventType).
		Str("aggregate_id", e.AggregateID).
		RawJSON("payload", e.Payload).
		Msg("evento de movimiento")
	return nil
}
