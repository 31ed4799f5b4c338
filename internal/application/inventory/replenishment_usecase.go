package inventory

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/jhoicas/stockmaster-api/internal/application/dto"
	"github.com/jhoicas/stockmaster-api/internal/domain/entity"
	"github.com/jhoicas/stockmaster-api/internal/domain/repository"
)

const (
	velocityWindowDays = 30
	coverageDays       = 30
	stockoutAlertDays  = 14
	maxCatalogScan     = 1000
)

// ReplenishmentUseCase sugiere reposiciones a partir de la velocidad de salidas de los últimos 30 días.
type ReplenishmentUseCase struct {
	products  repository.ProductRepository
	movements repository.MovementRepository
	now       func() time.Time
}

// NewReplenishmentUseCase construye el caso de uso de reposición.
func NewReplenishmentUseCase(products repository.ProductRepository, movements repository.MovementRepository) *ReplenishmentUseCase {
	return &ReplenishmentUseCase{products: products, movements: movements, now: time.Now}
}

// Suggest devuelve los productos bajo punto de reorden o con menos de 14 días de cobertura,
// ordenados por días hasta agotarse (los que no tienen salidas al final).
//
//	dailyOut            = unidades entregadas en 30 días / 30
//	daysToStockout      = stock / dailyOut
//	recommendedOrderQty = max(0, ceil(dailyOut*30 + reorderPoint - stock))
func (uc *ReplenishmentUseCase) Suggest(ctx context.Context) ([]dto.ReplenishmentSuggestionDTO, error) {
	products, err := uc.products.List(ctx, maxCatalogScan, 0)
	if err != nil {
		return nil, err
	}
	since := uc.now().AddDate(0, 0, -velocityWindowDays)
	deliveries, err := uc.movements.ListSince(ctx, []entity.MovementKind{entity.KindDelivery}, since)
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64)
	for _, m := range deliveries {
		for _, it := range m.Items {
			if it.Quantity < 0 {
				out[it.ProductID] += -it.Quantity
			}
		}
	}

	suggestions := make([]dto.ReplenishmentSuggestionDTO, 0)
	for _, p := range products {
		daily := float64(out[p.ID]) / velocityWindowDays
		var days *float64
		if daily > 0 {
			d := math.Round(float64(p.Stock)/daily*10) / 10
			days = &d
		}
		if p.Stock > p.ReorderPoint && (days == nil || *days > stockoutAlertDays) {
			continue
		}
		qty := int64(math.Ceil(daily*coverageDays + float64(p.ReorderPoint) - float64(p.Stock)))
		if qty < 0 {
			qty = 0
		}
		suggestions = append(suggestions, dto.ReplenishmentSuggestionDTO{
			ProductID:           p.ID,
			SKU:                 p.SKU,
			Name:                p.Name,
			CurrentStock:        p.Stock,
			ReorderPoint:        p.ReorderPoint,
			DailyOut:            math.Round(daily*100) / 100,
			DaysToStockout:      days,
			RecommendedOrderQty: qty,
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i].DaysToStockout, suggestions[j].DaysToStockout
		switch {
		case a == nil && b == nil:
			return suggestions[i].CurrentStock < suggestions[j].CurrentStock
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return *a < *b
	})
	return suggestions, nil
}
