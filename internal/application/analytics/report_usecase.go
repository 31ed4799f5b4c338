package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/stockmaster-api/internal/application/dto"
	"github.com/jhoicas/stockmaster-api/internal/application/ports"
	"github.com/jhoicas/stockmaster-api/internal/domain"
	"github.com/jhoicas/stockmaster-api/internal/domain/entity"
	"github.com/jhoicas/stockmaster-api/internal/domain/repository"
)

const reportMaxProducts = 1000

// ReportUseCase arma las filas del reporte de existencias y delega el render.
type ReportUseCase struct {
	products repository.ProductRepository
	renderer ports.StockReportRenderer
	now      func() time.Time
}

// NewReportUseCase construye el caso de uso.
func NewReportUseCase(products repository.ProductRepository, renderer ports.StockReportRenderer) *ReportUseCase {
	return &ReportUseCase{products: products, renderer: renderer, now: time.Now}
}

// Rows devuelve una fila por producto con su estado de existencias.
func (uc *ReportUseCase) Rows(ctx context.Context) ([]dto.StockReportRow, error) {
	list, err := uc.products.List(ctx, reportMaxProducts, 0)
	if err != nil {
		return nil, err
	}
	rows := make([]dto.StockReportRow, 0, len(list))
	for _, p := range list {
		rows = append(rows, dto.StockReportRow{
			SKU:          p.SKU,
			Name:         p.Name,
			Category:     p.Category,
			Unit:         p.Unit,
			Stock:        p.Stock,
			ReorderPoint: p.ReorderPoint,
			AvgCost:      p.AvgCost.StringFixed(2),
			Status:       stockStatus(p),
		})
	}
	return rows, nil
}

// StockPDF genera el PDF con todas las filas.
func (uc *ReportUseCase) StockPDF(ctx context.Context) ([]byte, error) {
	if uc.renderer == nil {
		return nil, fmt.Errorf("%w: generador de reportes no configurado", domain.ErrServiceUnavailable)
	}
	rows, err := uc.Rows(ctx)
	if err != nil {
		return nil, err
	}
	return uc.renderer.RenderStockReport(ctx, rows, uc.now())
}

func stockStatus(p *entity.Product) string {
	switch {
	case p.IsOutOfStock():
		return "Agotado"
	case p.IsLowStock():
		return "Bajo"
	default:
		return "OK"
	}
}
