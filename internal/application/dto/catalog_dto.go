package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateVendorRequest body de POST /api/vendors.
type CreateVendorRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// VendorResponse salida de un proveedor.
type VendorResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateLocationRequest body de POST /api/locations.
type CreateLocationRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Capacity int64  `json:"capacity"`
}

// LocationResponse salida de una ubicación.
type LocationResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Capacity  int64     `json:"capacity"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreatePaymentRequest body de POST /api/payments. DueDate en formato YYYY-MM-DD o RFC3339.
type CreatePaymentRequest struct {
	InvoiceRef string          `json:"invoiceRef"`
	Type       string          `json:"type"`
	Amount     decimal.Decimal `json:"amount"`
	Status     string          `json:"status"`
	Method     string          `json:"method"`
	DueDate    string          `json:"dueDate"`
}

// PaymentResponse salida de un pago.
type PaymentResponse struct {
	ID         string          `json:"id"`
	InvoiceRef string          `json:"invoiceRef"`
	Type       string          `json:"type"`
	Amount     decimal.Decimal `json:"amount"`
	Status     string          `json:"status"`
	Method     string          `json:"method"`
	DueDate    *time.Time      `json:"dueDate,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}
