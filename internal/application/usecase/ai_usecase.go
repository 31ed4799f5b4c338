package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/stockmaster-api/internal/application/dto"
	"github.com/jhoicas/stockmaster-api/internal/application/ports"
	"github.com/jhoicas/stockmaster-api/internal/domain"
	"github.com/jhoicas/stockmaster-api/internal/domain/repository"
)

const (
	defaultChatTimeout = 20 * time.Second
	chatSnapshotSize   = 100
	maxChatMessage     = 2000
)

const chatSystemPrompt = `Eres StockBot, el asistente de inventario de StockMaster.
Responde en el idioma del usuario, de forma breve y concreta, usando SOLO los datos del inventario que se listan.
Si un producto tiene stock en 0 o igual o menor a su punto de reorden, inclúyelo en "shortages" por su nombre.
Devuelve ÚNICAMENTE un objeto JSON con la forma {"reply": "<respuesta>", "shortages": ["<producto>", ...]}.`

// AIUseCase orquesta el chat del asistente. Cada llamada al LLM lleva su propio timeout
// para que la latencia del proveedor no bloquee los goroutines del servidor.
type AIUseCase struct {
	llm      ports.LLMService
	products repository.ProductRepository
	timeout  time.Duration
}

// NewAIUseCase construye el caso de uso. llm nil significa proveedor no configurado (503).
func NewAIUseCase(llm ports.LLMService, products repository.ProductRepository, timeout time.Duration) *AIUseCase {
	if timeout <= 0 {
		timeout = defaultChatTimeout
	}
	return &AIUseCase{llm: llm, products: products, timeout: timeout}
}

// Chat arma el prompt con la foto actual del inventario y delega en el proveedor.
//   - mensaje vacío                → domain.ErrInvalidInput
//   - proveedor no configurado     → domain.ErrServiceUnavailable
//   - timeout del proveedor        → domain.ErrTimeout
//   - cualquier otro fallo externo → domain.ErrServiceUnavailable
func (uc *AIUseCase) Chat(ctx context.Context, req dto.ChatRequest) (*dto.ChatResponse, error) {
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return nil, domain.Invalid("message es obligatorio")
	}
	if len(msg) > maxChatMessage {
		return nil, domain.Invalid("message supera %d caracteres", maxChatMessage)
	}
	if uc.llm == nil {
		return nil, fmt.Errorf("%w: asistente IA no configurado", domain.ErrServiceUnavailable)
	}

	snapshot, err := uc.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	prompt := chatSystemPrompt + "\n\nInventario actual:\n" + snapshot + "\nPregunta del usuario: " + msg
	resp, err := uc.llm.Chat(ctx, prompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", domain.ErrTimeout, err)
		}
		if errors.Is(err, domain.ErrServiceUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}
	if resp.Shortages == nil {
		resp.Shortages = []string{}
	}
	return resp, nil
}

// snapshot una línea por producto: nombre, stock y punto de reorden.
func (uc *AIUseCase) snapshot(ctx context.Context) (string, error) {
	list, err := uc.products.List(ctx, chatSnapshotSize, 0)
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		return "(sin productos registrados)\n", nil
	}
	var b strings.Builder
	for _, p := range list {
		fmt.Fprintf(&b, "- %s: stock %d, punto de reorden %d\n", p.Name, p.Stock, p.ReorderPoint)
	}
	return b.String(), nil
}
