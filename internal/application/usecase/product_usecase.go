package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stockmaster-api/internal/application/dto"
	"github.com/jhoicas/stockmaster-api/internal/application/inventory"
	"github.com/jhoicas/stockmaster-api/internal/domain"
	"github.com/jhoicas/stockmaster-api/internal/domain/entity"
	"github.com/jhoicas/stockmaster-api/internal/domain/repository"
)

const defaultUnit = "ud"

// ProductUseCase casos de uso del catálogo de productos. Stock y costo promedio se manejan vía el libro.
type ProductUseCase struct {
	repo   repository.ProductRepository
	ledger *inventory.LedgerUseCase
}

// NewProductUseCase construye el caso de uso.
func NewProductUseCase(repo repository.ProductRepository, ledger *inventory.LedgerUseCase) *ProductUseCase {
	return &ProductUseCase{repo: repo, ledger: ledger}
}

// Create da de alta un producto. El stock inicial se registra como ajuste en el libro.
func (uc *ProductUseCase) Create(ctx context.Context, userID string, in dto.CreateProductRequest) (*dto.ProductResponse, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.Invalid("name es requerido")
	}
	if in.Price.IsNegative() {
		return nil, domain.Invalid("price no puede ser negativo")
	}
	reorder := entity.DefaultReorderPoint
	if in.ReorderPoint != nil {
		if *in.ReorderPoint < 0 {
			return nil, domain.Invalid("reorderPoint no puede ser negativo")
		}
		reorder = *in.ReorderPoint
	}
	var initial int64
	if in.InitialStock != nil {
		initial = *in.InitialStock
	}
	unit := strings.TrimSpace(in.Unit)
	if unit == "" {
		unit = defaultUnit
	}

	product := &entity.Product{
		ID:           uuid.New().String(),
		SKU:          strings.TrimSpace(in.SKU),
		Name:         name,
		Category:     strings.TrimSpace(in.Category),
		Price:        in.Price,
		Unit:         unit,
		ReorderPoint: reorder,
		AvgCost:      decimal.Zero,
	}
	if err := uc.ledger.OpenProduct(ctx, inventory.Meta{UserID: userID}, product, initial); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, fmt.Errorf("%w: ya existe un producto con SKU %s", domain.ErrConflict, product.SKU)
		}
		return nil, err
	}
	return toProductResponse(product), nil
}

// GetByID obtiene un producto por ID. Devuelve domain.ErrNotFound si no existe.
func (uc *ProductUseCase) GetByID(ctx context.Context, id string) (*dto.ProductResponse, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	product, err := uc.repo.GetByID(ctx, uid.String())
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	return toProductResponse(product), nil
}

// List lista productos con paginación acotada.
func (uc *ProductUseCase) List(ctx context.Context, page dto.PageRequest) ([]dto.ProductResponse, error) {
	page.DefaultPage()
	list, err := uc.repo.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ProductResponse, 0, len(list))
	for _, p := range list {
		items = append(items, *toProductResponse(p))
	}
	return items, nil
}

func toProductResponse(p *entity.Product) *dto.ProductResponse {
	if p == nil {
		return nil
	}
	return &dto.ProductResponse{
		ID:           p.ID,
		SKU:          p.SKU,
		Name:         p.Name,
		Category:     p.Category,
		Price:        p.Price,
		Unit:         p.Unit,
		Stock:        p.Stock,
		ReorderPoint: p.ReorderPoint,
		AvgCost:      p.AvgCost,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}
