package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockmaster-api/internal/domain/entity"
)

func TestPublisher_ClavePorAgregado(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		if string(val) != `{"kind":"receipt"}` {
			return errors.New("payload inesperado")
		}
		return nil
	})
	p := NewPublisherWithProducer(producer, "stockmaster.movements", nil)

	err := p.Publish(context.Background(), &entity.OutboxEvent{
		ID: "e1", AggregateID: "tx-1", EventType: entity.EventMovementRecorded, Payload: []byte(`{"kind":"receipt"}`),
	})
	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestPublisher_ErrorDelBroker(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrNotLeaderForPartition)
	p := NewPublisherWithProducer(producer, "t", nil)

	err := p.Publish(context.Background(), &entity.OutboxEvent{ID: "e1", Payload: []byte("{}")})
	assert.ErrorIs(t, err, sarama.ErrNotLeaderForPartition)
	require.NoError(t, p.Close())
}
