package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/stockmaster-api/internal/application/dto"
	"github.com/jhoicas/stockmaster-api/internal/domain"
	"github.com/jhoicas/stockmaster-api/internal/domain/entity"
	"github.com/jhoicas/stockmaster-api/internal/domain/repository"
)

// PaymentUseCase casos de uso para pagos. Los pagos no afectan el stock.
type PaymentUseCase struct {
	repo repository.PaymentRepository
}

// NewPaymentUseCase construye el caso de uso.
func NewPaymentUseCase(repo repository.PaymentRepository) *PaymentUseCase {
	return &PaymentUseCase{repo: repo}
}

// Create registra un pago. Status por defecto pending.
func (uc *PaymentUseCase) Create(ctx context.Context, in dto.CreatePaymentRequest) (*dto.PaymentResponse, error) {
	ref := strings.TrimSpace(in.InvoiceRef)
	if ref == "" {
		return nil, domain.Invalid("invoiceRef es requerido")
	}
	if in.Amount.IsNegative() {
		return nil, domain.Invalid("amount no puede ser negativo")
	}
	status := strings.ToLower(strings.TrimSpace(in.Status))
	switch status {
	case "":
		status = entity.PaymentPending
	case entity.PaymentPending, entity.PaymentPaid, entity.PaymentOverdue:
	default:
		return nil, domain.Invalid("status inválido: %s", in.Status)
	}
	due, err := parseDueDate(in.DueDate)
	if err != nil {
		return nil, err
	}
	payment := &entity.Payment{
		ID:         uuid.New().String(),
		InvoiceRef: ref,
		Type:       strings.TrimSpace(in.Type),
		Amount:     in.Amount,
		Status:     status,
		Method:     strings.TrimSpace(in.Method),
		DueDate:    due,
	}
	if err := uc.repo.Create(ctx, payment); err != nil {
		return nil, err
	}
	return toPaymentResponse(payment), nil
}

// List lista pagos con paginación.
func (uc *PaymentUseCase) List(ctx context.Context, page dto.PageRequest) ([]dto.PaymentResponse, error) {
	page.DefaultPage()
	list, err := uc.repo.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.PaymentResponse, 0, len(list))
	for _, p := range list {
		items = append(items, *toPaymentResponse(p))
	}
	return items, nil
}

// parseDueDate acepta YYYY-MM-DD o RFC3339; vacío = sin vencimiento.
func parseDueDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, domain.Invalid("dueDate debe tener formato YYYY-MM-DD")
}

func toPaymentResponse(p *entity.Payment) *dto.PaymentResponse {
	return &dto.PaymentResponse{
		ID:         p.ID,
		InvoiceRef: p.InvoiceRef,
		Type:       p.Type,
		Amount:     p.Amount,
		Status:     p.Status,
		Method:     p.Method,
		DueDate:    p.DueDate,
		CreatedAt:  p.CreatedAt,
	}
}
