package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementKind tipo de movimiento del libro de existencias.
type MovementKind string

const (
	KindReceipt     MovementKind = "receipt"      // entrada de proveedor
	KindDelivery    MovementKind = "delivery"     // salida a cliente
	KindAdjustment  MovementKind = "adjustment"   // conteo físico
	KindTransferOut MovementKind = "transfer-out" // traslado, lado origen
	KindTransferIn  MovementKind = "transfer-in"  // traslado, lado destino
)

// Valid indica si el tipo es conocido.
func (k MovementKind) Valid() bool {
	switch k {
	case KindReceipt, KindDelivery, KindAdjustment, KindTransferOut, KindTransferIn:
		return true
	}
	return false
}

// MovementStatus estado del movimiento.
type MovementStatus string

const (
	StatusPending   MovementStatus = "pending"
	StatusCompleted MovementStatus = "completed"
)

// LineItem línea de un movimiento. Quantity es el delta con signo aplicado al stock del producto.
type LineItem struct {
	ProductID string
	Quantity  int64
	UnitCost  *decimal.Decimal
}

// Movement registro inmutable de un cambio de inventario con sus líneas embebidas.
// Un traslado produce dos movimientos (transfer-out y transfer-in) con el mismo TransactionID.
type Movement struct {
	ID             string
	TransactionID  string
	Kind           MovementKind
	Reference      string // número de recepción/entrega, no necesariamente único
	Status         MovementStatus
	VendorID       string
	Customer       string
	Location       string // ubicación donde ocurre (traslados)
	FromLocation   string
	ToLocation     string
	Reason         string
	IdempotencyKey string
	Items          []LineItem
	CreatedBy      string
	Date           time.Time
}

// DeltaFor suma los deltas del movimiento para un producto.
func (m *Movement) DeltaFor(productID string) int64 {
	var total int64
	for _, it := range m.Items {
		if it.ProductID == productID {
			total += it.Quantity
		}
	}
	return total
}
