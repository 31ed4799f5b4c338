// Package analytics contiene los casos de uso de lectura del tablero: contadores de
// existencias, mapa de calor de traslados y el reporte de stock.
package analytics

import (
	"context"
	"fmt"

	"github.com/jhoicas/stockmaster-api/internal/application/dto"
	"github.com/jhoicas/stockmaster-api/internal/domain/entity"
	"github.com/jhoicas/stockmaster-api/internal/domain/repository"
	"github.com/jhoicas/stockmaster-api/pkg/logger"
)

// DashboardUseCase genera los contadores del tablero.
//
// Fuente de datos: ProductRepository.Summary y MovementRepository.CountByKind (solo lectura).
// Si el almacenamiento falla devuelve ceros con Degraded=true en lugar de un error.
type DashboardUseCase struct {
	products  repository.ProductRepository
	movements repository.MovementRepository
	log       *logger.Logger
}

// NewDashboardUseCase construye el caso de uso.
func NewDashboardUseCase(products repository.ProductRepository, movements repository.MovementRepository, log *logger.Logger) *DashboardUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &DashboardUseCase{products: products, movements: movements, log: log.Component("dashboard")}
}

// GetStats construye el DashboardStatsDTO.
//
// Dos consultas en paralelo:
//  1. Summary      → totalProducts, lowStock, outOfStock
//  2. CountByKind  → pendingReceipts, pendingDeliveries, scheduledTransfers
//
// Los contadores "pending" cuentan todos los movimientos del tipo: las entradas y salidas
// se registran ya completadas, así que contar solo status=pending daría siempre 0.
func (uc *DashboardUseCase) GetStats(ctx context.Context) *dto.DashboardStatsDTO {
	type summaryResult struct {
		s   repository.StockSummary
		err error
	}
	type countsResult struct {
		c   map[entity.MovementKind]int64
		err error
	}

	sumCh := make(chan summaryResult, 1)
	cntCh := make(chan countsResult, 1)

	go func() {
		s, err := uc.products.Summary(ctx)
		sumCh <- summaryResult{s, err}
	}()
	go func() {
		c, err := uc.movements.CountByKind(ctx)
		cntCh <- countsResult{c, err}
	}()

	sum := <-sumCh
	cnt := <-cntCh

	if err := firstErr(sum.err, cnt.err); err != nil {
		uc.log.Warn().Err(err).Msg("tablero degradado: se devuelven contadores en cero")
		return &dto.DashboardStatsDTO{Degraded: true}
	}

	return &dto.DashboardStatsDTO{
		TotalProducts:      sum.s.TotalProducts,
		LowStock:           sum.s.LowStock,
		OutOfStock:         sum.s.OutOfStock,
		PendingReceipts:    cnt.c[entity.KindReceipt],
		PendingDeliveries:  cnt.c[entity.KindDelivery],
		ScheduledTransfers: cnt.c[entity.KindTransferOut],
	}
}

func firstErr(errs ...error) error {
	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("consulta %d: %w", i+1, err)
		}
	}
	return nil
}
