package entity

import "time"

// Tipos de evento publicados por el outbox.
const (
	EventMovementRecorded = "movement.recorded"
)

// OutboxEvent evento escrito en la misma transacción que el movimiento y publicado después por el relay.
type OutboxEvent struct {
	ID          string
	AggregateID string
	EventType   string
	Payload     []byte
	Attempts    int
	LastError   string
	CreatedAt   time.Time
	PublishedAt *time.Time
}
