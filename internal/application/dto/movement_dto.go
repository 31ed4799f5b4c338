package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItemRequest línea de entrada de un movimiento. Quantity siempre positiva; el signo lo pone el tipo.
type LineItemRequest struct {
	ProductID string           `json:"productId"`
	Quantity  int64            `json:"quantity"`
	Cost      *decimal.Decimal `json:"cost,omitempty"`
}

// ReceiptRequest body de POST /api/receipts.
type ReceiptRequest struct {
	ReceiptNo string            `json:"receiptNo"`
	VendorID  string            `json:"vendorId"`
	Items     []LineItemRequest `json:"items"`
}

// DeliveryRequest body de POST /api/deliveries.
type DeliveryRequest struct {
	DeliveryNo string            `json:"deliveryNo"`
	Customer   string            `json:"customer"`
	Items      []LineItemRequest `json:"items"`
}

// AdjustmentRequest body de POST /api/adjustments.
type AdjustmentRequest struct {
	ProductID       string `json:"productId"`
	CountedQuantity *int64 `json:"countedQuantity"`
	Reason          string `json:"reason"`
}

// TransferRequest body de POST /api/transfers.
type TransferRequest struct {
	Reference    string            `json:"reference"`
	FromLocation string            `json:"fromLocation"`
	ToLocation   string            `json:"toLocation"`
	Items        []LineItemRequest `json:"items"`
}

// LineItemResponse línea de un movimiento: Quantity en valor absoluto y Delta con signo.
type LineItemResponse struct {
	ProductID string           `json:"productId"`
	Quantity  int64            `json:"quantity"`
	Delta     int64            `json:"delta"`
	UnitCost  *decimal.Decimal `json:"cost,omitempty"`
}

// MovementResponse salida de un movimiento registrado.
type MovementResponse struct {
	ID            string             `json:"id"`
	TransactionID string             `json:"transactionId"`
	Kind          string             `json:"kind"`
	Reference     string             `json:"reference"`
	Status        string             `json:"status"`
	VendorID      string             `json:"vendorId,omitempty"`
	Customer      string             `json:"customer,omitempty"`
	FromLocation  string             `json:"fromLocation,omitempty"`
	ToLocation    string             `json:"toLocation,omitempty"`
	Reason        string             `json:"reason,omitempty"`
	Items         []LineItemResponse `json:"items"`
	CreatedBy     string             `json:"createdBy,omitempty"`
	Date          time.Time          `json:"date"`
}

// ActivityItem entrada del feed de actividad reciente.
type ActivityItem struct {
	Type  string             `json:"type"` // Receipt | Delivery
	Ref   string             `json:"ref"`
	Date  time.Time          `json:"date"`
	Items []LineItemResponse `json:"items"`
}

// ActivityEvent evento del flujo en vivo GET /api/activity/stream.
type ActivityEvent struct {
	ID      string    `json:"id"`
	Kind    string    `json:"kind"`
	Ref     string    `json:"ref,omitempty"`
	Units   int64     `json:"units"`
	Message string    `json:"message"`
	Level   string    `json:"level"` // info | warn
	Date    time.Time `json:"date"`
}

// RecentActivityResponse salida de GET /api/recent-activity.
type RecentActivityResponse struct {
	Activity []ActivityItem `json:"activity"`
	Heatmap  []HeatmapCell  `json:"heatmap"`
}

// ReplenishmentSuggestionDTO sugerencia de reposición calculada con la velocidad de salidas.
type ReplenishmentSuggestionDTO struct {
	ProductID           string   `json:"productId"`
	SKU                 string   `json:"sku,omitempty"`
	Name                string   `json:"name"`
	CurrentStock        int64    `json:"currentStock"`
	ReorderPoint        int64    `json:"reorderPoint"`
	DailyOut            float64  `json:"dailyOut"`
	DaysToStockout      *float64 `json:"daysToStockout"` // nil = sin salidas recientes
	RecommendedOrderQty int64    `json:"recommendedOrderQty"`
}

// PredictInventoryResponse salida de GET /api/predict-inventory.
type PredictInventoryResponse struct {
	Suggestions []ReplenishmentSuggestionDTO `json:"suggestions"`
}
