package inventory_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockmaster-api/internal/application/dto"
	"github.com/jhoicas/stockmaster-api/internal/application/inventory"
	"github.com/jhoicas/stockmaster-api/internal/domain/entity"
)

func TestActivity_SoloEntradasYSalidasConTope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Tuerca", 100) // genera un ajuste que no debe aparecer

	for i := 0; i < 7; i++ {
		_, err := f.ledger.RecordReceipt(ctx, inventory.Meta{}, dto.ReceiptRequest{ReceiptNo: fmt.Sprintf("R-%d", i), Items: []dto.LineItemRequest{line(p, 1)}})
		require.NoError(t, err)
		_, err = f.ledger.RecordDelivery(ctx, inventory.Meta{}, dto.DeliveryRequest{DeliveryNo: fmt.Sprintf("D-%d", i), Items: []dto.LineItemRequest{line(p, 1)}})
		require.NoError(t, err)
	}

	items, err := inventory.NewActivityUseCase(f.movements).Recent(ctx)
	require.NoError(t, err)
	require.Len(t, items, 10)
	for _, it := range items {
		assert.Contains(t, []string{"Receipt", "Delivery"}, it.Type)
		require.Len(t, it.Items, 1)
		assert.Equal(t, p, it.Items[0].ProductID)
	}
	for i := 1; i < len(items); i++ {
		assert.False(t, items[i].Date.After(items[i-1].Date), "más recientes primero")
	}
}

func TestReplenishment_SugerenciasPorVelocidadDeSalida(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	deliver := func(id string, qty int64) {
		_, err := f.ledger.RecordDelivery(ctx, inventory.Meta{}, dto.DeliveryRequest{Items: []dto.LineItemRequest{line(id, qty)}})
		require.NoError(t, err)
	}

	sano := f.product(t, "Sano", 100)
	deliver(sano, 60) // 2/día, 40 en stock → 20 días, sobre el punto de reorden
	bajo := f.product(t, "Bajo", 30)
	deliver(bajo, 24) // 0.8/día, 6 en stock → 7.5 días
	quieto := f.product(t, "Quieto", 5)
	rapido := f.product(t, "Rapido", 200)
	deliver(rapido, 150) // 5/día, 50 en stock → 10 días

	got, err := inventory.NewReplenishmentUseCase(f.products, f.movements).Suggest(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, bajo, got[0].ProductID)
	require.NotNil(t, got[0].DaysToStockout)
	assert.InDelta(t, 7.5, *got[0].DaysToStockout, 0.001)
	assert.Equal(t, int64(28), got[0].RecommendedOrderQty) // ceil(24 + 10 - 6)

	assert.Equal(t, rapido, got[1].ProductID)
	assert.InDelta(t, 5.0, got[1].DailyOut, 0.001)
	assert.Equal(t, int64(110), got[1].RecommendedOrderQty)

	assert.Equal(t, quieto, got[2].ProductID, "sin salidas va al final")
	assert.Nil(t, got[2].DaysToStockout)
	assert.Equal(t, int64(5), got[2].RecommendedOrderQty)

	for _, s := range got {
		assert.NotEqual(t, sano, s.ProductID)
	}
}

func TestReplenishment_IgnoraMovimientosQueNoSonSalidas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Perno", 8)
	_, err := f.ledger.RecordTransfer(ctx, inventory.Meta{}, dto.TransferRequest{FromLocation: "A", ToLocation: "B", Items: []dto.LineItemRequest{line(p, 5)}})
	require.NoError(t, err)
	_, err = f.ledger.RecordAdjustment(ctx, inventory.Meta{}, dto.AdjustmentRequest{ProductID: p, CountedQuantity: counted(4)})
	require.NoError(t, err)

	got, err := inventory.NewReplenishmentUseCase(f.products, f.movements).Suggest(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Zero(t, got[0].DailyOut)
	assert.Nil(t, got[0].DaysToStockout)
	assert.Equal(t, int64(entity.DefaultReorderPoint-4), got[0].RecommendedOrderQty)
}

func TestActivitySince_DelMasAntiguoAlMasReciente(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	since := time.Now().Add(-time.Minute)
	p := f.product(t, "Bisagra", 5)
	_, err := f.ledger.RecordTransfer(ctx, inventory.Meta{}, dto.TransferRequest{Reference: "T-1", FromLocation: "A", ToLocation: "B", Items: []dto.LineItemRequest{line(p, 2)}})
	require.NoError(t, err)

	events, err := inventory.NewActivityUseCase(f.movements).Since(ctx, since)
	require.NoError(t, err)
	require.Len(t, events, 2, "el traslado se emite una sola vez")
	assert.Equal(t, "adjustment", events[0].Kind)
	assert.Equal(t, "warn", events[0].Level)
	assert.Equal(t, "transfer-out", events[1].Kind)
	assert.Equal(t, int64(2), events[1].Units)
	assert.Equal(t, "Traslado T-1: 2 unidades de A a B", events[1].Message)

	none, err := inventory.NewActivityUseCase(f.movements).Since(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, none)
}
