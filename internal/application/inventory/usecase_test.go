package inventory_test

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockmaster-api/internal/application/dto"
	"github.com/jhoicas/stockmaster-api/internal/application/inventory"
	"github.com/jhoicas/stockmaster-api/internal/domain"
	"github.com/jhoicas/stockmaster-api/internal/domain/entity"
	"github.com/jhoicas/stockmaster-api/internal/domain/repository"
	"github.com/jhoicas/stockmaster-api/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

type fixture struct {
	store     *memory.Store
	ledger    *inventory.LedgerUseCase
	products  *memory.ProductRepo
	movements *memory.MovementRepo
	outbox    *memory.OutboxRepo
	vendors   *memory.VendorRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := memory.NewStore()
	f := &fixture{
		store:     s,
		products:  memory.NewProductRepository(s),
		movements: memory.NewMovementRepository(s),
		outbox:    memory.NewOutboxRepository(s),
		vendors:   memory.NewVendorRepository(s),
	}
	f.ledger = inventory.NewLedgerUseCase(memory.NewTxRunner(s), f.products, f.movements, 0, nil)
	return f
}

func (f *fixture) product(t *testing.T, name string, stock int64) string {
	t.Helper()
	p := &entity.Product{ID: uuid.NewString(), Name: name, ReorderPoint: entity.DefaultReorderPoint}
	require.NoError(t, f.ledger.OpenProduct(context.Background(), inventory.Meta{}, p, stock))
	return p.ID
}

func (f *fixture) stock(t *testing.T, id string) int64 {
	t.Helper()
	s, err := f.ledger.CurrentStock(context.Background(), id)
	require.NoError(t, err)
	return s
}

// ledgerSum recalcula el stock como suma de deltas de todos los movimientos.
func (f *fixture) ledgerSum(t *testing.T, id string) int64 {
	t.Helper()
	all, err := f.movements.List(context.Background(), nil, 0, 0)
	require.NoError(t, err)
	var sum int64
	for _, m := range all {
		sum += m.DeltaFor(id)
	}
	return sum
}

func line(id string, qty int64) dto.LineItemRequest {
	return dto.LineItemRequest{ProductID: id, Quantity: qty}
}

func counted(n int64) *int64 { return &n }

// ──────────────────────────────────────────────────────────────────────────────
// Entradas y salidas
// ──────────────────────────────────────────────────────────────────────────────

func TestRecordReceipt_SumaStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Tornillo", 0)

	res, err := f.ledger.RecordReceipt(ctx, inventory.Meta{UserID: "u1"}, dto.ReceiptRequest{
		ReceiptNo: "REC-1",
		Items:     []dto.LineItemRequest{line(p, 5)},
	})
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.Equal(t, "receipt", res.Movement.Kind)
	assert.Equal(t, "completed", res.Movement.Status)
	assert.Equal(t, int64(5), res.Movement.Items[0].Delta)
	assert.Equal(t, "u1", res.Movement.CreatedBy)

	assert.Equal(t, int64(5), f.stock(t, p))
}

func TestRecordReceipt_ActualizaCostoPromedio(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Cable", 0)

	c100, c200 := decimal.NewFromInt(100), decimal.NewFromInt(200)
	_, err := f.ledger.RecordReceipt(ctx, inventory.Meta{}, dto.ReceiptRequest{Items: []dto.LineItemRequest{{ProductID: p, Quantity: 10, Cost: &c100}}})
	require.NoError(t, err)
	_, err = f.ledger.RecordReceipt(ctx, inventory.Meta{}, dto.ReceiptRequest{Items: []dto.LineItemRequest{{ProductID: p, Quantity: 10, Cost: &c200}}})
	require.NoError(t, err)

	got, err := f.products.GetByID(ctx, p)
	require.NoError(t, err)
	assert.True(t, got.AvgCost.Equal(decimal.NewFromInt(150)), got.AvgCost.String())
}

func TestRecordReceipt_ProductoDesconocidoEsValidacion(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.RecordReceipt(context.Background(), inventory.Meta{}, dto.ReceiptRequest{
		Items: []dto.LineItemRequest{line(uuid.NewString(), 1)},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRecordReceipt_ProveedorDesconocido(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Tuerca", 0)
	_, err := f.ledger.RecordReceipt(context.Background(), inventory.Meta{}, dto.ReceiptRequest{
		VendorID: uuid.NewString(),
		Items:    []dto.LineItemRequest{line(p, 1)},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, int64(0), f.stock(t, p))
}

func TestRecord_CantidadNoPositivaRechazada(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Arandela", 10)

	for _, qty := range []int64{0, -3} {
		_, err := f.ledger.RecordReceipt(ctx, inventory.Meta{}, dto.ReceiptRequest{Items: []dto.LineItemRequest{line(p, qty)}})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		_, err = f.ledger.RecordDelivery(ctx, inventory.Meta{}, dto.DeliveryRequest{Items: []dto.LineItemRequest{line(p, qty)}})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}
	_, err := f.ledger.RecordDelivery(ctx, inventory.Meta{}, dto.DeliveryRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "sin líneas")

	assert.Equal(t, int64(10), f.stock(t, p))
}

func TestRecordDelivery_RestaStock(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Panel LED", 12)

	_, err := f.ledger.RecordDelivery(context.Background(), inventory.Meta{}, dto.DeliveryRequest{
		DeliveryNo: "DEL-1", Customer: "ACME",
		Items: []dto.LineItemRequest{line(p, 12)},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), f.stock(t, p))
}

func TestRecordDelivery_StockInsuficienteNoModificaNada(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", 100)
	b := f.product(t, "B", 40)
	before, _ := f.movements.List(ctx, nil, 0, 0)

	_, err := f.ledger.RecordDelivery(ctx, inventory.Meta{}, dto.DeliveryRequest{
		Items: []dto.LineItemRequest{line(a, 10), line(b, 100)},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))

	var ise *domain.InsufficientStockError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, b, ise.ProductID)
	assert.Equal(t, int64(40), ise.Available)
	assert.Contains(t, err.Error(), "40")

	assert.Equal(t, int64(100), f.stock(t, a), "la línea válida tampoco se aplica")
	assert.Equal(t, int64(40), f.stock(t, b))
	after, _ := f.movements.List(ctx, nil, 0, 0)
	assert.Len(t, after, len(before), "no se persiste el movimiento")
}

func TestRecordDelivery_LineasRepetidasSeAgregan(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Cinta", 40)

	_, err := f.ledger.RecordDelivery(context.Background(), inventory.Meta{}, dto.DeliveryRequest{
		Items: []dto.LineItemRequest{line(p, 25), line(p, 20)},
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, int64(40), f.stock(t, p))
}

func TestRecordDelivery_ProductoDesconocidoEsNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.RecordDelivery(context.Background(), inventory.Meta{}, dto.DeliveryRequest{
		Items: []dto.LineItemRequest{line(uuid.NewString(), 1)},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.ledger.RecordDelivery(context.Background(), inventory.Meta{}, dto.DeliveryRequest{
		Items: []dto.LineItemRequest{line("no-es-uuid", 1)},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Ajustes, traslados e invariante
// ──────────────────────────────────────────────────────────────────────────────

func TestRecordAdjustment_DeltaEsConteoMenosPrevio(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Pintura", 30)

	res, err := f.ledger.RecordAdjustment(ctx, inventory.Meta{}, dto.AdjustmentRequest{ProductID: p, CountedQuantity: counted(22), Reason: "conteo"})
	require.NoError(t, err)
	assert.Equal(t, int64(-8), res.Movement.Items[0].Delta)
	assert.Equal(t, int64(22), f.stock(t, p))

	_, err = f.ledger.RecordAdjustment(ctx, inventory.Meta{}, dto.AdjustmentRequest{ProductID: p, CountedQuantity: counted(-1)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.ledger.RecordAdjustment(ctx, inventory.Meta{}, dto.AdjustmentRequest{ProductID: p})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRecordTransfer_NoCambiaStockYRegistraPar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Caja", 5)

	res, err := f.ledger.RecordTransfer(ctx, inventory.Meta{}, dto.TransferRequest{
		Reference: "TR-1", FromLocation: "Zona A", ToLocation: "Zona B",
		Items: []dto.LineItemRequest{line(p, 50)},
	})
	require.NoError(t, err)
	assert.Equal(t, "transfer-out", res.Movement.Kind)
	assert.Equal(t, "Zona A", res.Movement.FromLocation)
	assert.Equal(t, "Zona B", res.Movement.ToLocation)
	assert.Equal(t, int64(5), f.stock(t, p))

	pair, err := f.movements.ListByTransaction(ctx, res.Movement.TransactionID)
	require.NoError(t, err)
	require.Len(t, pair, 2)
	assert.Equal(t, entity.KindTransferIn, pair[1].Kind)
}

func TestRecordTransfer_MismoOrigenYDestino(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.RecordTransfer(context.Background(), inventory.Meta{}, dto.TransferRequest{FromLocation: "A", ToLocation: "a"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.ledger.RecordTransfer(context.Background(), inventory.Meta{}, dto.TransferRequest{FromLocation: "A"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestInvariante_StockIgualASumaDeDeltas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Varilla", 7)

	ops := []func() error{
		func() error {
			_, err := f.ledger.RecordReceipt(ctx, inventory.Meta{}, dto.ReceiptRequest{Items: []dto.LineItemRequest{line(p, 5)}})
			return err
		},
		func() error {
			_, err := f.ledger.RecordDelivery(ctx, inventory.Meta{}, dto.DeliveryRequest{Items: []dto.LineItemRequest{line(p, 3)}})
			return err
		},
		func() error {
			_, err := f.ledger.RecordDelivery(ctx, inventory.Meta{}, dto.DeliveryRequest{Items: []dto.LineItemRequest{line(p, 100)}})
			return err
		},
		func() error {
			_, err := f.ledger.RecordAdjustment(ctx, inventory.Meta{}, dto.AdjustmentRequest{ProductID: p, CountedQuantity: counted(4)})
			return err
		},
		func() error {
			_, err := f.ledger.RecordTransfer(ctx, inventory.Meta{}, dto.TransferRequest{FromLocation: "A", ToLocation: "B", Items: []dto.LineItemRequest{line(p, 2)}})
			return err
		},
		func() error {
			_, err := f.ledger.RecordReceipt(ctx, inventory.Meta{}, dto.ReceiptRequest{Items: []dto.LineItemRequest{line(p, 11)}})
			return err
		},
	}
	for _, op := range ops {
		_ = op()
		assert.Equal(t, f.ledgerSum(t, p), f.stock(t, p))
	}
	assert.Equal(t, int64(15), f.stock(t, p))
}

// ──────────────────────────────────────────────────────────────────────────────
// Concurrencia e idempotencia
// ──────────────────────────────────────────────────────────────────────────────

func TestRecordDelivery_ConcurrentesNuncaDejanStockNegativo(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Rodamiento", 100)

	const workers = 10
	var ok, rejected int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.RecordDelivery(context.Background(), inventory.Meta{}, dto.DeliveryRequest{
				Items: []dto.LineItemRequest{line(p, 30)},
			})
			switch {
			case err == nil:
				atomic.AddInt32(&ok, 1)
			case errors.Is(err, domain.ErrInsufficientStock):
				atomic.AddInt32(&rejected, 1)
			default:
				t.Errorf("error inesperado: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(3), ok)
	assert.Equal(t, int32(7), rejected)
	assert.Equal(t, int64(10), f.stock(t, p))
	assert.Equal(t, f.ledgerSum(t, p), f.stock(t, p))
}

func TestRecordDelivery_DosConcurrentesQueExcedenSoloUnaGana(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Pastilla freno", 40)

	var ok int32
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.ledger.RecordDelivery(context.Background(), inventory.Meta{}, dto.DeliveryRequest{
				Items: []dto.LineItemRequest{line(p, 30)},
			}); err == nil {
				atomic.AddInt32(&ok, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok)
	assert.Equal(t, int64(10), f.stock(t, p))
}

func TestIdempotencia_ReintentoDevuelveMismoMovimiento(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Bisagra", 0)
	meta := inventory.Meta{IdempotencyKey: "rec-abc"}
	req := dto.ReceiptRequest{ReceiptNo: "R-9", Items: []dto.LineItemRequest{line(p, 5)}}

	first, err := f.ledger.RecordReceipt(ctx, meta, req)
	require.NoError(t, err)
	second, err := f.ledger.RecordReceipt(ctx, meta, req)
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.Movement.ID, second.Movement.ID)
	assert.Equal(t, int64(5), f.stock(t, p), "el reintento no vuelve a sumar")

	_, err = f.ledger.RecordDelivery(ctx, meta, dto.DeliveryRequest{Items: []dto.LineItemRequest{line(p, 1)}})
	assert.ErrorIs(t, err, domain.ErrConflict, "misma clave para otro tipo")
}

func TestIdempotencia_ConcurrenteAplicaUnaSolaVez(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Clavo", 0)
	meta := inventory.Meta{IdempotencyKey: "same-key"}

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.ledger.RecordReceipt(context.Background(), meta, dto.ReceiptRequest{Items: []dto.LineItemRequest{line(p, 2)}})
			if assert.NoError(t, err) {
				ids[i] = res.Movement.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, int64(2), f.stock(t, p))
}

func TestOutbox_UnEventoPorMovimientoConfirmado(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Perno", 1) // alta con stock inicial = 1 ajuste

	_, err := f.ledger.RecordDelivery(ctx, inventory.Meta{}, dto.DeliveryRequest{Items: []dto.LineItemRequest{line(p, 5)}})
	require.Error(t, err)
	_, err = f.ledger.RecordTransfer(ctx, inventory.Meta{}, dto.TransferRequest{FromLocation: "A", ToLocation: "B"})
	require.NoError(t, err)

	pending, err := f.outbox.FetchPending(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 3, "ajuste inicial + par de traslado; la salida rechazada no deja evento")
}

func TestOpenProduct_StockInicialQuedaEnElLibro(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Cemento", 25)

	assert.Equal(t, int64(25), f.stock(t, p))
	assert.Equal(t, int64(25), f.ledgerSum(t, p))
}

func TestCurrentStock_Desconocido(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.CurrentStock(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Límites y fallas del almacenamiento
// ──────────────────────────────────────────────────────────────────────────────

type downProducts struct {
	repository.ProductRepository
}

func (downProducts) SetStock(context.Context, string, int64, decimal.Decimal) error {
	return domain.ErrStoreUnavailable
}

type downRunner struct {
	inner inventory.TxRunner
}

func (r downRunner) Run(ctx context.Context, fn func(inventory.Repos) error) error {
	return r.inner.Run(ctx, func(repos inventory.Repos) error {
		repos.Products = downProducts{repos.Products}
		return fn(repos)
	})
}

func TestRecordDelivery_AlmacenamientoCaidoNoDejaRastro(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Arandela", 20)
	pendingBefore, err := f.outbox.FetchPending(ctx, 0)
	require.NoError(t, err)

	ledger := inventory.NewLedgerUseCase(downRunner{inner: memory.NewTxRunner(f.store)}, f.products, f.movements, 0, nil)
	_, err = ledger.RecordDelivery(ctx, inventory.Meta{IdempotencyKey: "k-down"}, dto.DeliveryRequest{Items: []dto.LineItemRequest{line(p, 3)}})
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)

	assert.Equal(t, int64(20), f.stock(t, p))
	deliveries, err := f.movements.List(ctx, []entity.MovementKind{entity.KindDelivery}, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, deliveries)
	prev, err := f.movements.GetByIdempotencyKey(ctx, "k-down")
	require.NoError(t, err)
	assert.Nil(t, prev)
	pendingAfter, err := f.outbox.FetchPending(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, pendingAfter, len(pendingBefore))
}

func TestRecordReceipt_CantidadFueraDeRangoEsValidacion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Clavo", 10)

	_, err := f.ledger.RecordReceipt(ctx, inventory.Meta{}, dto.ReceiptRequest{Items: []dto.LineItemRequest{line(p, math.MaxInt64)}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.False(t, errors.Is(err, domain.ErrInsufficientStock))

	_, err = f.ledger.RecordReceipt(ctx, inventory.Meta{}, dto.ReceiptRequest{Items: []dto.LineItemRequest{
		line(p, math.MaxInt64/2+1), line(p, math.MaxInt64/2+1),
	}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.ledger.RecordAdjustment(ctx, inventory.Meta{}, dto.AdjustmentRequest{ProductID: p, CountedQuantity: counted(math.MaxInt64)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, int64(10), f.stock(t, p))
}

func TestRecord_IdEnMayusculasSeNormaliza(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Remache", 10)
	upper := "{" + strings.ToUpper(p) + "}"

	res, err := f.ledger.RecordDelivery(ctx, inventory.Meta{}, dto.DeliveryRequest{Items: []dto.LineItemRequest{line(upper, 4)}})
	require.NoError(t, err)
	assert.Equal(t, p, res.Movement.Items[0].ProductID)

	_, err = f.ledger.RecordAdjustment(ctx, inventory.Meta{}, dto.AdjustmentRequest{ProductID: strings.ToUpper(p), CountedQuantity: counted(2)})
	require.NoError(t, err)
	got, err := f.ledger.CurrentStock(ctx, strings.ToUpper(p))
	require.NoError(t, err)
	assert.Equal(t, int64(2), got)
	assert.Equal(t, int64(2), f.ledgerSum(t, p))
}

func TestRecordTransfer_ProductoDesconocidoEsValidacion(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.RecordTransfer(context.Background(), inventory.Meta{}, dto.TransferRequest{
		FromLocation: "A", ToLocation: "B", Items: []dto.LineItemRequest{line(uuid.NewString(), 1)},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.False(t, errors.Is(err, domain.ErrNotFound))
}
