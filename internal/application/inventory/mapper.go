package inventory

import (
	"github.com/jhoicas/stockmaster-api/internal/application/dto"
	"github.com/jhoicas/stockmaster-api/internal/domain/entity"
)

// ToMovementResponse convierte un movimiento a su DTO de salida.
func ToMovementResponse(m *entity.Movement) dto.MovementResponse {
	items := make([]dto.LineItemResponse, 0, len(m.Items))
	for _, it := range m.Items {
		qty := it.Quantity
		if qty < 0 {
			qty = -qty
		}
		items = append(items, dto.LineItemResponse{
			ProductID: it.ProductID,
			Quantity:  qty,
			Delta:     it.Quantity,
			UnitCost:  it.UnitCost,
		})
	}
	return dto.MovementResponse{
		ID:            m.ID,
		TransactionID: m.TransactionID,
		Kind:          string(m.Kind),
		Reference:     m.Reference,
		Status:        string(m.Status),
		VendorID:      m.VendorID,
		Customer:      m.Customer,
		FromLocation:  m.FromLocation,
		ToLocation:    m.ToLocation,
		Reason:        m.Reason,
		Items:         items,
		CreatedBy:     m.CreatedBy,
		Date:          m.Date,
	}
}

// primary devuelve el movimiento que representa la operación: el transfer-out en traslados, el único en el resto.
func primary(movs []*entity.Movement) *entity.Movement {
	for _, m := range movs {
		if m.Kind == entity.KindTransferOut {
			return m
		}
	}
	if len(movs) == 0 {
		return nil
	}
	return movs[0]
}
