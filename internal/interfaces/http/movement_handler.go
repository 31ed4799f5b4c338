package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stockmaster-api/internal/application/dto"
	"github.com/jhoicas/stockmaster-api/internal/application/inventory"
	"github.com/jhoicas/stockmaster-api/internal/domain"
	"github.com/jhoicas/stockmaster-api/internal/domain/entity"
	"github.com/jhoicas/stockmaster-api/pkg/logger"
)

// Headers de idempotencia de los movimientos.
const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"
	maxIdempotencyKeyLen = 200
)

// MovementHandler entradas, salidas, traslados y ajustes del libro de existencias.
type MovementHandler struct {
	ledger *inventory.LedgerUseCase
	log    *logger.Logger
}

// NewMovementHandler construye el handler.
func NewMovementHandler(ledger *inventory.LedgerUseCase, log *logger.Logger) *MovementHandler {
	return &MovementHandler{ledger: ledger, log: log}
}

// CreateReceipt godoc
// @Summary      Registrar entrada de proveedor
// @Tags         movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string              false  "Clave para reintentos seguros"
// @Param        body             body    dto.ReceiptRequest  true   "receiptNo, vendorId, items"
// @Success      201   {object}  dto.MovementResponse
// @Success      200   {object}  dto.MovementResponse  "Reintento con la misma Idempotency-Key"
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/receipts [post]
func (h *MovementHandler) CreateReceipt(c *fiber.Ctx) error {
	var in dto.ReceiptRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	meta, err := movementMeta(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	res, err := h.ledger.RecordReceipt(c.UserContext(), meta, in)
	return h.respond(c, res, err)
}

// CreateDelivery godoc
// @Summary      Registrar salida a cliente
// @Description  Todo o nada: si una línea no tiene stock suficiente no se aplica ninguna.
// @Tags         movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string               false  "Clave para reintentos seguros"
// @Param        body             body    dto.DeliveryRequest  true   "deliveryNo, customer, items"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse  "Entrada inválida o stock insuficiente (incluye available)"
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/deliveries [post]
func (h *MovementHandler) CreateDelivery(c *fiber.Ctx) error {
	var in dto.DeliveryRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	meta, err := movementMeta(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	res, err := h.ledger.RecordDelivery(c.UserContext(), meta, in)
	return h.respond(c, res, err)
}

// CreateTransfer godoc
// @Summary      Registrar traslado entre ubicaciones
// @Tags         movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string               false  "Clave para reintentos seguros"
// @Param        body             body    dto.TransferRequest  true   "reference, fromLocation, toLocation, items"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/transfers [post]
func (h *MovementHandler) CreateTransfer(c *fiber.Ctx) error {
	var in dto.TransferRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	meta, err := movementMeta(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	res, err := h.ledger.RecordTransfer(c.UserContext(), meta, in)
	return h.respond(c, res, err)
}

// CreateAdjustment godoc
// @Summary      Registrar ajuste por conteo físico
// @Tags         movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string                 false  "Clave para reintentos seguros"
// @Param        body             body    dto.AdjustmentRequest  true   "productId, countedQuantity, reason"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/adjustments [post]
func (h *MovementHandler) CreateAdjustment(c *fiber.Ctx) error {
	var in dto.AdjustmentRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	meta, err := movementMeta(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	res, err := h.ledger.RecordAdjustment(c.UserContext(), meta, in)
	return h.respond(c, res, err)
}

// List devuelve el handler de listado para un tipo de movimiento.
// @Summary      Listar movimientos por tipo
// @Tags         movements
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "Límite"  default(50)
// @Param        offset  query  int  false  "Offset"  default(0)
// @Success      200     {array}   dto.MovementResponse
// @Router       /api/receipts [get]
// @Router       /api/deliveries [get]
// @Router       /api/transfers [get]
// @Router       /api/adjustments [get]
func (h *MovementHandler) List(kind entity.MovementKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		out, err := h.ledger.ListMovements(c.UserContext(), kind, pageFromQuery(c))
		if err != nil {
			return writeError(c, h.log, err)
		}
		return c.JSON(out)
	}
}

func (h *MovementHandler) respond(c *fiber.Ctx, res *inventory.Result, err error) error {
	if err != nil {
		return writeError(c, h.log, err)
	}
	if res.Replayed {
		c.Set(HeaderReplayed, "true")
		return c.Status(fiber.StatusOK).JSON(res.Movement)
	}
	return c.Status(fiber.StatusCreated).JSON(res.Movement)
}

func movementMeta(c *fiber.Ctx) (inventory.Meta, error) {
	key := strings.TrimSpace(c.Get(HeaderIdempotencyKey))
	if len(key) > maxIdempotencyKeyLen {
		return inventory.Meta{}, domain.Invalid("%s admite como máximo %d caracteres", HeaderIdempotencyKey, maxIdempotencyKeyLen)
	}
	return inventory.Meta{UserID: GetUserID(c), IdempotencyKey: key}, nil
}
