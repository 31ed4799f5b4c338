// Package kafka entrega los eventos del outbox a un tópico de Kafka.
package kafka

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/jhoicas/stockmaster-api/internal/application/ports"
	"github.com/jhoicas/stockmaster-api/internal/domain/entity"
	"github.com/jhoicas/stockmaster-api/pkg/logger"
)

var _ ports.EventPublisher = (*Publisher)(nil)

// Publisher productor síncrono: Publish vuelve cuando el broker confirmó la escritura.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
	log      *logger.Logger
}

// NewPublisher conecta con los brokers con acks de todas las réplicas.
func NewPublisher(brokers []string, topic string, log *logger.Logger) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.Retry.Max = 3
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	cfg.Producer.Compression = sarama.CompressionSnappy

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka: crear productor: %w", err)
	}
	p := NewPublisherWithProducer(producer, topic, log)
	p.log.Info().Strs("brokers", brokers).Str("topic", topic).Msg("publicador Kafka inicializado")
	return p, nil
}

// NewPublisherWithProducer envuelve un productor existente.
func NewPublisherWithProducer(producer sarama.SyncProducer, topic string, log *logger.Logger) *Publisher {
	if log == nil {
		log = logger.Nop()
	}
	return &Publisher{producer: producer, topic: topic, log: log.Component("kafka")}
}

// Publish usa el AggregateID (id del movimiento) como clave de partición.
func (p *Publisher) Publish(ctx context.Context, event *entity.OutboxEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.AggregateID),
		Value: sarama.ByteEncoder(event.Payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.EventType)},
			{Key: []byte("event_id"), Value: []byte(event.ID)},
		},
		Timestamp: event.CreatedAt,
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("kafka: enviar %s: %w", event.ID, err)
	}
	p.log.Debug().
		Str("event_id", event.ID).
		Str("event_type", event.EventType).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("evento publicado")
	return nil
}

// Close cierra el productor.
func (p *Publisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
