package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stockmaster-api/internal/application/dto"
	"github.com/jhoicas/stockmaster-api/internal/domain"
	"github.com/jhoicas/stockmaster-api/internal/domain/entity"
	"github.com/jhoicas/stockmaster-api/internal/domain/inventory"
	"github.com/jhoicas/stockmaster-api/internal/domain/repository"
)

const defaultTimeout = 5 * time.Second

// Meta datos de la petición que origina un movimiento.
type Meta struct {
	UserID         string
	IdempotencyKey string
}

// Result movimiento registrado. Replayed indica que la clave de idempotencia ya existía
// y se devolvió el movimiento original sin aplicar nada.
type Result struct {
	Movement dto.MovementResponse
	Replayed bool
}

// LedgerUseCase es el libro de existencias: único escritor del stock de productos.
// Cada operación aplica todos sus deltas y persiste sus movimientos en una sola transacción,
// con las filas de producto bloqueadas en orden de id (SELECT FOR UPDATE), o no aplica nada.
type LedgerUseCase struct {
	txRunner  TxRunner
	products  repository.ProductRepository
	movements repository.MovementRepository
	timeout   time.Duration
	metrics   Recorder
	now       func() time.Time
}

// NewLedgerUseCase construye el caso de uso. timeout <= 0 usa 5s; metrics puede ser nil.
func NewLedgerUseCase(
	txRunner TxRunner,
	products repository.ProductRepository,
	movements repository.MovementRepository,
	timeout time.Duration,
	metrics Recorder,
) *LedgerUseCase {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &LedgerUseCase{
		txRunner:  txRunner,
		products:  products,
		movements: movements,
		timeout:   timeout,
		metrics:   metrics,
		now:       time.Now,
	}
}

// operation describe un registro en el libro. build arma los movimientos a partir de los productos
// ya bloqueados, de modo que lee el stock autoritativo dentro de la transacción.
type operation struct {
	kind       entity.MovementKind
	meta       Meta
	productIDs []string
	unknown    error
	vendorID   string
	build      func(locked map[string]*entity.Product) ([]*entity.Movement, error)
}

// RecordReceipt registra una entrada de proveedor: suma cada cantidad al stock.
// Producto desconocido es un error de validación.
func (uc *LedgerUseCase) RecordReceipt(ctx context.Context, meta Meta, in dto.ReceiptRequest) (*Result, error) {
	lines, err := parseLines(in.Items, 1, true, false)
	if err != nil {
		return nil, err
	}
	mov := &entity.Movement{
		Kind:      entity.KindReceipt,
		Reference: strings.TrimSpace(in.ReceiptNo),
		VendorID:  strings.TrimSpace(in.VendorID),
		Items:     lines,
	}
	return uc.single(ctx, operation{
		kind:       entity.KindReceipt,
		meta:       meta,
		productIDs: inventory.ProductIDs(mov),
		unknown:    domain.ErrInvalidInput,
		vendorID:   mov.VendorID,
		build: func(map[string]*entity.Product) ([]*entity.Movement, error) {
			return []*entity.Movement{mov}, nil
		},
	})
}

// RecordDelivery registra una salida a cliente. Si alguna línea excede el stock actual
// se rechaza el movimiento completo con *domain.InsufficientStockError.
func (uc *LedgerUseCase) RecordDelivery(ctx context.Context, meta Meta, in dto.DeliveryRequest) (*Result, error) {
	lines, err := parseLines(in.Items, -1, false, false)
	if err != nil {
		return nil, err
	}
	mov := &entity.Movement{
		Kind:      entity.KindDelivery,
		Reference: strings.TrimSpace(in.DeliveryNo),
		Customer:  strings.TrimSpace(in.Customer),
		Items:     lines,
	}
	return uc.single(ctx, operation{
		kind:       entity.KindDelivery,
		meta:       meta,
		productIDs: inventory.ProductIDs(mov),
		unknown:    domain.ErrNotFound,
		build: func(map[string]*entity.Product) ([]*entity.Movement, error) {
			return []*entity.Movement{mov}, nil
		},
	})
}

// RecordAdjustment fija el stock al conteo físico. El delta del movimiento es conteo - stock previo.
func (uc *LedgerUseCase) RecordAdjustment(ctx context.Context, meta Meta, in dto.AdjustmentRequest) (*Result, error) {
	productID := normalizeID(strings.TrimSpace(in.ProductID))
	if productID == "" {
		return nil, domain.Invalid("productId es requerido")
	}
	if in.CountedQuantity == nil {
		return nil, domain.Invalid("countedQuantity es requerido")
	}
	counted := *in.CountedQuantity
	if counted < 0 {
		return nil, domain.Invalid("countedQuantity no puede ser negativo")
	}
	if counted > inventory.MaxLineQuantity {
		return nil, domain.Invalid("countedQuantity no puede superar %d", inventory.MaxLineQuantity)
	}
	reason := strings.TrimSpace(in.Reason)
	return uc.single(ctx, operation{
		kind:       entity.KindAdjustment,
		meta:       meta,
		productIDs: []string{productID},
		unknown:    domain.ErrNotFound,
		build: func(locked map[string]*entity.Product) ([]*entity.Movement, error) {
			prev := locked[productID].Stock
			return []*entity.Movement{{
				Kind:      entity.KindAdjustment,
				Reference: "ADJ-" + uc.now().UTC().Format("20060102-150405"),
				Reason:    reason,
				Items:     []entity.LineItem{{ProductID: productID, Quantity: counted - prev}},
			}}, nil
		},
	})
}

// RecordTransfer registra un traslado entre ubicaciones. No cambia el stock global:
// persiste un transfer-out (deltas negativos) y un transfer-in (positivos) con el mismo TransactionID.
func (uc *LedgerUseCase) RecordTransfer(ctx context.Context, meta Meta, in dto.TransferRequest) (*Result, error) {
	from := strings.TrimSpace(in.FromLocation)
	to := strings.TrimSpace(in.ToLocation)
	if from == "" || to == "" {
		return nil, domain.Invalid("fromLocation y toLocation son requeridos")
	}
	if strings.EqualFold(from, to) {
		return nil, domain.Invalid("el origen y el destino del traslado deben ser distintos")
	}
	outLines, err := parseLines(in.Items, -1, false, true)
	if err != nil {
		return nil, err
	}
	inLines := make([]entity.LineItem, len(outLines))
	for i, l := range outLines {
		inLines[i] = entity.LineItem{ProductID: l.ProductID, Quantity: -l.Quantity}
	}
	ref := strings.TrimSpace(in.Reference)
	out := &entity.Movement{Kind: entity.KindTransferOut, Reference: ref, Location: from, FromLocation: from, ToLocation: to, Items: outLines}
	inMov := &entity.Movement{Kind: entity.KindTransferIn, Reference: ref, Location: to, FromLocation: from, ToLocation: to, Items: inLines}

	return uc.single(ctx, operation{
		kind:       entity.KindTransferOut,
		meta:       meta,
		productIDs: inventory.ProductIDs(out),
		unknown:    domain.ErrInvalidInput,
		build: func(map[string]*entity.Product) ([]*entity.Movement, error) {
			return []*entity.Movement{out, inMov}, nil
		},
	})
}

// OpenProduct da de alta el producto y, si initialStock > 0, registra en la misma transacción
// el ajuste que lo lleva a ese stock, de modo que el stock siempre es la suma de sus movimientos.
func (uc *LedgerUseCase) OpenProduct(ctx context.Context, meta Meta, p *entity.Product, initialStock int64) error {
	if initialStock < 0 || initialStock > inventory.MaxLineQuantity {
		return domain.Invalid("initialStock debe estar entre 0 y %d", inventory.MaxLineQuantity)
	}
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	start := time.Now()
	err := uc.txRunner.Run(ctx, func(r Repos) error {
		p.Stock = initialStock
		if err := r.Products.Create(ctx, p); err != nil {
			return err
		}
		if initialStock == 0 {
			return nil
		}
		mov := &entity.Movement{
			Kind:      entity.KindAdjustment,
			Reference: "INIT-" + p.ID,
			Reason:    "stock inicial",
			Items:     []entity.LineItem{{ProductID: p.ID, Quantity: initialStock}},
		}
		uc.stamp([]*entity.Movement{mov}, meta)
		return uc.persist(ctx, r, []*entity.Movement{mov})
	})
	if initialStock > 0 {
		uc.observe(entity.KindAdjustment, err, false, start)
	}
	return err
}

// CurrentStock devuelve el stock autoritativo leído del almacenamiento.
func (uc *LedgerUseCase) CurrentStock(ctx context.Context, productID string) (int64, error) {
	if _, err := uuid.Parse(productID); err != nil {
		return 0, domain.ErrNotFound
	}
	productID = normalizeID(productID)
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	p, err := uc.products.GetByID(ctx, productID)
	if err != nil {
		return 0, err
	}
	if p == nil {
		return 0, domain.ErrNotFound
	}
	return p.Stock, nil
}

// ListMovements lista movimientos de un tipo, más recientes primero.
func (uc *LedgerUseCase) ListMovements(ctx context.Context, kind entity.MovementKind, page dto.PageRequest) ([]dto.MovementResponse, error) {
	page.DefaultPage()
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	list, err := uc.movements.List(ctx, []entity.MovementKind{kind}, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := make([]dto.MovementResponse, 0, len(list))
	for _, m := range list {
		out = append(out, ToMovementResponse(m))
	}
	return out, nil
}

func (uc *LedgerUseCase) single(ctx context.Context, op operation) (*Result, error) {
	movs, replayed, err := uc.run(ctx, op)
	if err != nil {
		return nil, err
	}
	return &Result{Movement: ToMovementResponse(primary(movs)), Replayed: replayed}, nil
}

func (uc *LedgerUseCase) run(ctx context.Context, op operation) (movs []*entity.Movement, replayed bool, err error) {
	start := time.Now()
	defer func() { uc.observe(op.kind, err, replayed, start) }()

	for _, id := range op.productIDs {
		if _, perr := uuid.Parse(id); perr != nil {
			return nil, false, unknownProduct(op.unknown, id)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	err = uc.txRunner.Run(ctx, func(r Repos) error {
		movs, replayed = nil, false
		if key := op.meta.IdempotencyKey; key != "" {
			prev, err := uc.replay(ctx, r.Movements, key, op.kind)
			if err != nil {
				return err
			}
			if prev != nil {
				movs, replayed = prev, true
				return nil
			}
		}

		if op.vendorID != "" {
			v, err := r.Vendors.GetByID(ctx, op.vendorID)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			if v == nil {
				return domain.Invalid("el proveedor %s no existe", op.vendorID)
			}
		}

		locked, err := r.Products.LockForUpdate(ctx, op.productIDs)
		if err != nil {
			return err
		}
		for _, id := range op.productIDs {
			if locked[id] == nil {
				return unknownProduct(op.unknown, id)
			}
		}

		built, err := op.build(locked)
		if err != nil {
			return err
		}
		deltas, err := inventory.AggregateDeltas(built...)
		if err != nil {
			return err
		}
		stock := make(map[string]int64, len(locked))
		for id, p := range locked {
			stock[id] = p.Stock
		}
		if err := inventory.CheckAvailability(stock, deltas); err != nil {
			return err
		}

		for _, id := range op.productIDs {
			p := locked[id]
			avg := p.AvgCost
			if op.kind == entity.KindReceipt {
				avg = weightedCost(p, built)
			}
			if deltas[id] == 0 && avg.Equal(p.AvgCost) {
				continue
			}
			next, err := inventory.AddStock(p.Stock, deltas[id])
			if err != nil {
				return err
			}
			if err := r.Products.SetStock(ctx, id, next, avg); err != nil {
				return err
			}
		}

		uc.stamp(built, op.meta)
		if err := uc.persist(ctx, r, built); err != nil {
			return err
		}
		movs = built
		return nil
	})

	if err != nil && errors.Is(err, domain.ErrDuplicate) && op.meta.IdempotencyKey != "" {
		// Otra petición con la misma clave confirmó primero.
		prev, rerr := uc.replay(ctx, uc.movements, op.meta.IdempotencyKey, op.kind)
		if rerr == nil && prev != nil {
			return prev, true, nil
		}
	}
	if err != nil {
		return nil, false, err
	}
	return movs, replayed, nil
}

// stamp asigna ids, fecha y estado. Todos los movimientos de una operación comparten TransactionID;
// la clave de idempotencia va solo en el primero.
func (uc *LedgerUseCase) stamp(movs []*entity.Movement, meta Meta) {
	txID := uuid.NewString()
	now := uc.now().UTC()
	for i, m := range movs {
		m.ID = uuid.NewString()
		m.TransactionID = txID
		m.Status = entity.StatusCompleted
		m.Date = now
		m.CreatedBy = meta.UserID
		if i == 0 {
			m.IdempotencyKey = meta.IdempotencyKey
		}
	}
}

func (uc *LedgerUseCase) persist(ctx context.Context, r Repos, movs []*entity.Movement) error {
	for _, m := range movs {
		if err := r.Movements.Create(ctx, m); err != nil {
			return err
		}
		evt, err := newMovementEvent(m)
		if err != nil {
			return err
		}
		if err := r.Outbox.Enqueue(ctx, evt); err != nil {
			return err
		}
	}
	return nil
}

// replay devuelve los movimientos ya registrados con esa clave, o nil si no hay.
// Reusar una clave para otro tipo de operación es un conflicto.
func (uc *LedgerUseCase) replay(ctx context.Context, repo repository.MovementRepository, key string, kind entity.MovementKind) ([]*entity.Movement, error) {
	prev, err := repo.GetByIdempotencyKey(ctx, key)
	if err != nil || prev == nil {
		return nil, err
	}
	if prev.Kind != kind {
		return nil, fmt.Errorf("%w: la clave de idempotencia ya se usó para un movimiento %s", domain.ErrConflict, prev.Kind)
	}
	group, err := repo.ListByTransaction(ctx, prev.TransactionID)
	if err != nil {
		return nil, err
	}
	if len(group) == 0 {
		group = []*entity.Movement{prev}
	}
	return group, nil
}

func (uc *LedgerUseCase) observe(kind entity.MovementKind, err error, replayed bool, start time.Time) {
	if uc.metrics == nil {
		return
	}
	uc.metrics.ObserveMovement(string(kind), resultLabel(err, replayed), time.Since(start))
}

func resultLabel(err error, replayed bool) string {
	switch {
	case err == nil && replayed:
		return "replayed"
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrStoreUnavailable), errors.Is(err, context.DeadlineExceeded):
		return "unavailable"
	default:
		return "error"
	}
}

// parseLines valida las líneas y les aplica el signo del tipo de movimiento.
func parseLines(items []dto.LineItemRequest, sign int64, withCost, allowEmpty bool) ([]entity.LineItem, error) {
	if len(items) == 0 && !allowEmpty {
		return nil, domain.Invalid("el movimiento debe tener al menos una línea")
	}
	lines := make([]entity.LineItem, 0, len(items))
	for i, it := range items {
		pid := strings.TrimSpace(it.ProductID)
		if pid == "" {
			return nil, domain.Invalid("línea %d: productId es requerido", i+1)
		}
		if it.Quantity <= 0 {
			return nil, domain.Invalid("línea %d: la cantidad debe ser mayor a 0", i+1)
		}
		if it.Quantity > inventory.MaxLineQuantity {
			return nil, domain.Invalid("línea %d: la cantidad no puede superar %d", i+1, inventory.MaxLineQuantity)
		}
		line := entity.LineItem{ProductID: normalizeID(pid), Quantity: sign * it.Quantity}
		if it.Cost != nil {
			if it.Cost.IsNegative() {
				return nil, domain.Invalid("línea %d: el costo no puede ser negativo", i+1)
			}
			if withCost {
				c := *it.Cost
				line.UnitCost = &c
			}
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// weightedCost recalcula el costo promedio del producto con las entradas que traen costo.
func weightedCost(p *entity.Product, movs []*entity.Movement) decimal.Decimal {
	stock, avg := p.Stock, p.AvgCost
	for _, m := range movs {
		for _, it := range m.Items {
			if it.ProductID != p.ID || it.Quantity <= 0 {
				continue
			}
			if it.UnitCost != nil {
				avg = inventory.WeightedAverageCost(stock, avg, it.Quantity, *it.UnitCost)
			}
			stock += it.Quantity
		}
	}
	return avg
}

// normalizeID lleva un uuid a su forma canónica (minúsculas, sin llaves ni prefijo urn).
// Un id que no es uuid se deja igual y lo rechaza la validación posterior.
func normalizeID(id string) string {
	u, err := uuid.Parse(id)
	if err != nil {
		return id
	}
	return u.String()
}

func unknownProduct(kind error, id string) error {
	if errors.Is(kind, domain.ErrNotFound) {
		return fmt.Errorf("%w: producto %s", domain.ErrNotFound, id)
	}
	return domain.Invalid("el producto %s no existe", id)
}

func newMovementEvent(m *entity.Movement) (*entity.OutboxEvent, error) {
	payload, err := json.Marshal(ToMovementResponse(m))
	if err != nil {
		return nil, fmt.Errorf("serializar evento: %w", err)
	}
	return &entity.OutboxEvent{
		ID:          uuid.NewString(),
		AggregateID: m.ID,
		EventType:   entity.EventMovementRecorded,
		Payload:     payload,
		CreatedAt:   m.Date,
	}, nil
}
