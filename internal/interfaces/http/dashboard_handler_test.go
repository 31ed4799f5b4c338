package http

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockmaster-api/internal/application/dto"
	"github.com/jhoicas/stockmaster-api/internal/application/inventory"
	"github.com/jhoicas/stockmaster-api/internal/domain/entity"
	"github.com/jhoicas/stockmaster-api/internal/infrastructure/memory"
	"github.com/jhoicas/stockmaster-api/pkg/logger"
)

func TestActivityStream_EmiteMovimientosDelLibro(t *testing.T) {
	s := memory.NewStore()
	products := memory.NewProductRepository(s)
	movements := memory.NewMovementRepository(s)
	ledger := inventory.NewLedgerUseCase(memory.NewTxRunner(s), products, movements, time.Second, nil)
	ctx := context.Background()

	since := time.Now().UTC().Add(-time.Minute)
	p := &entity.Product{ID: "7d3c1c1e-4a4b-4f59-9a57-3c8c2f0f7b11", Name: "Tornillo", ReorderPoint: 5}
	require.NoError(t, ledger.OpenProduct(ctx, inventory.Meta{}, p, 10))
	_, err := ledger.RecordReceipt(ctx, inventory.Meta{}, dto.ReceiptRequest{ReceiptNo: "R-1", Items: []dto.LineItemRequest{{ProductID: p.ID, Quantity: 12}}})
	require.NoError(t, err)
	_, err = ledger.RecordDelivery(ctx, inventory.Meta{}, dto.DeliveryRequest{DeliveryNo: "D-1", Items: []dto.LineItemRequest{{ProductID: p.ID, Quantity: 4}}})
	require.NoError(t, err)

	h := NewDashboardHandler(DashboardDeps{Activity: inventory.NewActivityUseCase(movements)}, logger.Nop())
	h.streamEvery = 5 * time.Millisecond
	h.streamMax = 0

	app := fiber.New()
	app.Get("/stream", h.ActivityStream)
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/stream?since="+since.Format(time.RFC3339Nano), nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get(fiber.HeaderContentType))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := string(raw)
	assert.Equal(t, 3, strings.Count(body, "event: movement\n"), body)
	assert.Contains(t, body, "Entrada R-1: 12 unidades recibidas")
	assert.Contains(t, body, "Salida D-1: 4 unidades entregadas")
	assert.Less(t, strings.Index(body, "R-1"), strings.Index(body, "D-1"), "del más antiguo al más reciente")
}

func TestActivityStream_SinMovimientosNuevosSoloLatido(t *testing.T) {
	s := memory.NewStore()
	movements := memory.NewMovementRepository(s)
	h := NewDashboardHandler(DashboardDeps{Activity: inventory.NewActivityUseCase(movements)}, logger.Nop())
	h.streamEvery = 5 * time.Millisecond
	h.streamMax = 0

	app := fiber.New()
	app.Get("/stream", h.ActivityStream)
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/stream", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "event: movement")
	assert.Contains(t, string(raw), ": ping")
}

func TestActivityStream_ReanudaDesdeLastEventID(t *testing.T) {
	s := memory.NewStore()
	products := memory.NewProductRepository(s)
	movements := memory.NewMovementRepository(s)
	ledger := inventory.NewLedgerUseCase(memory.NewTxRunner(s), products, movements, time.Second, nil)
	ctx := context.Background()

	p := &entity.Product{ID: "0b6f0a52-9b3e-4f0a-8f43-1f7f8d8e2c33", Name: "Perno", ReorderPoint: 5}
	require.NoError(t, ledger.OpenProduct(ctx, inventory.Meta{}, p, 10))
	first, err := movements.List(ctx, nil, 1, 0)
	require.NoError(t, err)
	require.Len(t, first, 1)
	_, err = ledger.RecordReceipt(ctx, inventory.Meta{}, dto.ReceiptRequest{ReceiptNo: "R-2", Items: []dto.LineItemRequest{{ProductID: p.ID, Quantity: 3}}})
	require.NoError(t, err)

	h := NewDashboardHandler(DashboardDeps{Activity: inventory.NewActivityUseCase(movements)}, logger.Nop())
	h.streamEvery = 5 * time.Millisecond
	h.streamMax = 0

	app := fiber.New()
	app.Get("/stream", h.ActivityStream)
	req := httptest.NewRequest(fiber.MethodGet, "/stream", nil)
	req.Header.Set("Last-Event-ID", first[0].Date.Format(time.RFC3339Nano))
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := string(raw)
	assert.NotContains(t, body, "stock inicial", "el evento ya entregado no se repite")
	assert.Contains(t, body, "Entrada R-2: 3 unidades recibidas")
}
