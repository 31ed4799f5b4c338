package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/stockmaster-api/internal/application/dto"
	"github.com/jhoicas/stockmaster-api/internal/domain/entity"
	"github.com/jhoicas/stockmaster-api/internal/domain/repository"
)

const recentActivityLimit = 10

// ActivityUseCase arma el feed de actividad a partir de los movimientos reales del libro.
type ActivityUseCase struct {
	movements repository.MovementRepository
}

// NewActivityUseCase construye el caso de uso.
func NewActivityUseCase(movements repository.MovementRepository) *ActivityUseCase {
	return &ActivityUseCase{movements: movements}
}

// Recent devuelve las últimas 10 entradas y salidas, más recientes primero.
func (uc *ActivityUseCase) Recent(ctx context.Context) ([]dto.ActivityItem, error) {
	list, err := uc.movements.List(ctx,
		[]entity.MovementKind{entity.KindReceipt, entity.KindDelivery}, recentActivityLimit, 0)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ActivityItem, 0, len(list))
	for _, m := range list {
		typ := "Receipt"
		if m.Kind == entity.KindDelivery {
			typ = "Delivery"
		}
		r := ToMovementResponse(m)
		out = append(out, dto.ActivityItem{Type: typ, Ref: m.Reference, Date: m.Date, Items: r.Items})
	}
	return out, nil
}

var streamKinds = []entity.MovementKind{
	entity.KindReceipt, entity.KindDelivery, entity.KindAdjustment, entity.KindTransferOut,
}

// Since devuelve los movimientos con fecha >= after, del más antiguo al más reciente,
// listos para el flujo en vivo. El llamador descarta los ids que ya emitió.
func (uc *ActivityUseCase) Since(ctx context.Context, after time.Time) ([]dto.ActivityEvent, error) {
	list, err := uc.movements.ListSince(ctx, streamKinds, after)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ActivityEvent, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		out = append(out, toActivityEvent(list[i]))
	}
	return out, nil
}

func toActivityEvent(m *entity.Movement) dto.ActivityEvent {
	var units int64
	for _, it := range m.Items {
		if it.Quantity < 0 {
			units -= it.Quantity
		} else {
			units += it.Quantity
		}
	}
	ev := dto.ActivityEvent{ID: m.ID, Kind: string(m.Kind), Ref: m.Reference, Units: units, Level: "info", Date: m.Date}
	switch m.Kind {
	case entity.KindReceipt:
		ev.Message = fmt.Sprintf("Entrada %s: %d unidades recibidas", m.Reference, units)
	case entity.KindDelivery:
		ev.Message = fmt.Sprintf("Salida %s: %d unidades entregadas", m.Reference, units)
	case entity.KindTransferOut:
		ev.Message = fmt.Sprintf("Traslado %s: %d unidades de %s a %s", m.Reference, units, m.FromLocation, m.ToLocation)
	case entity.KindAdjustment:
		ev.Message = fmt.Sprintf("Ajuste de inventario %s (%s)", m.Reference, m.Reason)
		ev.Level = "warn"
	}
	return ev
}
