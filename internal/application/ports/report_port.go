package ports

import (
	"context"
	"time"

	"github.com/jhoicas/stockmaster-api/internal/application/dto"
)

// StockReportRenderer genera el documento del reporte de existencias.
type StockReportRenderer interface {
	RenderStockReport(ctx context.Context, rows []dto.StockReportRow, generatedAt time.Time) ([]byte, error)
}
