package repository

import (
	"context"

	"github.com/jhoicas/stockmaster-api/internal/domain/entity"
)

// VendorRepository puerto de persistencia de proveedores. GetByID devuelve (nil, nil) si no existe.
type VendorRepository interface {
	Create(ctx context.Context, vendor *entity.Vendor) error
	GetByID(ctx context.Context, id string) (*entity.Vendor, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Vendor, error)
}

// LocationRepository puerto de persistencia de ubicaciones.
type LocationRepository interface {
	Create(ctx context.Context, location *entity.Location) error
	List(ctx context.Context, limit, offset int) ([]*entity.Location, error)
}

// PaymentRepository puerto de persistencia de pagos.
type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	List(ctx context.Context, limit, offset int) ([]*entity.Payment, error)
}
