package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de pago.
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentOverdue = "overdue"
)

// Payment pago asociado a una factura; no está ligado a movimientos de stock.
type Payment struct {
	ID         string
	InvoiceRef string
	Type       string // incoming, outgoing
	Amount     decimal.Decimal
	Status     string
	Method     string
	DueDate    *time.Time
	CreatedAt  time.Time
}
