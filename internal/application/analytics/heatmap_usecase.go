package analytics

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jhoicas/stockmaster-api/internal/application/dto"
	"github.com/jhoicas/stockmaster-api/internal/domain/entity"
	"github.com/jhoicas/stockmaster-api/internal/domain/repository"
)

const (
	heatmapWindowDays = 30
	hotThreshold      = 20
	normalThreshold   = 5
)

// HeatmapUseCase cuenta los traslados que tocaron cada ubicación en los últimos 30 días.
type HeatmapUseCase struct {
	movements repository.MovementRepository
	locations repository.LocationRepository
	now       func() time.Time
}

// NewHeatmapUseCase construye el caso de uso. locations puede ser nil.
func NewHeatmapUseCase(movements repository.MovementRepository, locations repository.LocationRepository) *HeatmapUseCase {
	return &HeatmapUseCase{movements: movements, locations: locations, now: time.Now}
}

// Cells devuelve una celda por ubicación, de mayor a menor actividad. Las ubicaciones
// registradas sin traslados aparecen como Cold con 0.
func (uc *HeatmapUseCase) Cells(ctx context.Context) ([]dto.HeatmapCell, error) {
	since := uc.now().AddDate(0, 0, -heatmapWindowDays)
	movs, err := uc.movements.ListSince(ctx,
		[]entity.MovementKind{entity.KindTransferOut, entity.KindTransferIn}, since)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64)
	names := make(map[string]string) // clave normalizada -> nombre visible
	touch := func(loc string) {
		loc = strings.TrimSpace(loc)
		if loc == "" {
			return
		}
		key := strings.ToLower(loc)
		if _, ok := names[key]; !ok {
			names[key] = loc
		}
		counts[key]++
	}
	for _, m := range movs {
		touch(m.Location)
	}

	if uc.locations != nil {
		locs, err := uc.locations.List(ctx, dto.MaxPageSize, 0)
		if err != nil {
			return nil, err
		}
		for _, l := range locs {
			key := strings.ToLower(strings.TrimSpace(l.Name))
			if _, ok := names[key]; !ok && key != "" {
				names[key] = l.Name
				counts[key] = 0
			}
		}
	}

	cells := make([]dto.HeatmapCell, 0, len(names))
	for key, name := range names {
		cells = append(cells, dto.HeatmapCell{Location: name, Movement: counts[key], Status: heatStatus(counts[key])})
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Movement == cells[j].Movement {
			return cells[i].Location < cells[j].Location
		}
		return cells[i].Movement > cells[j].Movement
	})
	return cells, nil
}

func heatStatus(n int64) string {
	switch {
	case n >= hotThreshold:
		return "Hot"
	case n >= normalThreshold:
		return "Normal"
	default:
		return "Cold"
	}
}
