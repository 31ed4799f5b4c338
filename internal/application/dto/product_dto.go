package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateProductRequest body de POST /api/products. ReorderPoint nil = 10; InitialStock nil = 0.
type CreateProductRequest struct {
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	Price        decimal.Decimal `json:"price"`
	Unit         string          `json:"unit"`
	ReorderPoint *int64          `json:"reorderPoint,omitempty"`
	InitialStock *int64          `json:"initialStock,omitempty"`
}

// ProductResponse salida de un producto.
type ProductResponse struct {
	ID           string          `json:"id"`
	SKU          string          `json:"sku,omitempty"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	Price        decimal.Decimal `json:"price"`
	Unit         string          `json:"unit"`
	Stock        int64           `json:"stock"`
	ReorderPoint int64           `json:"reorderPoint"`
	AvgCost      decimal.Decimal `json:"avgCost"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// StockResponse salida de GET /api/products/:id/stock.
type StockResponse struct {
	ProductID string `json:"productId"`
	Stock     int64  `json:"stock"`
}
