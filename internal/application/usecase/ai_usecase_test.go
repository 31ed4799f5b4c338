package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockmaster-api/internal/application/dto"
	"github.com/jhoicas/stockmaster-api/internal/application/usecase"
	"github.com/jhoicas/stockmaster-api/internal/domain"
	"github.com/jhoicas/stockmaster-api/internal/domain/entity"
	"github.com/jhoicas/stockmaster-api/internal/infrastructure/memory"
)

type fakeLLM struct {
	prompt string
	reply  *dto.ChatResponse
	err    error
	block  bool
}

func (f *fakeLLM) Chat(ctx context.Context, prompt string) (*dto.ChatResponse, error) {
	f.prompt = prompt
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.reply, f.err
}

func productsWith(t *testing.T, items ...entity.Product) *memory.ProductRepo {
	t.Helper()
	repo := memory.NewProductRepository(memory.NewStore())
	for i := range items {
		items[i].ID = uuid.NewString()
		require.NoError(t, repo.Create(context.Background(), &items[i]))
	}
	return repo
}

func TestChat_IncluyeInventarioEnPrompt(t *testing.T) {
	llm := &fakeLLM{reply: &dto.ChatResponse{Reply: "Revisa la cinta"}}
	repo := productsWith(t, entity.Product{Name: "Cinta", Stock: 2, ReorderPoint: 10})
	uc := usecase.NewAIUseCase(llm, repo, time.Second)

	resp, err := uc.Chat(context.Background(), dto.ChatRequest{Message: "¿Qué me falta?"})
	require.NoError(t, err)
	assert.Equal(t, "Revisa la cinta", resp.Reply)
	assert.NotNil(t, resp.Shortages)
	assert.Contains(t, llm.prompt, "Cinta: stock 2, punto de reorden 10")
	assert.Contains(t, llm.prompt, "¿Qué me falta?")
}

func TestChat_MensajeVacio(t *testing.T) {
	uc := usecase.NewAIUseCase(&fakeLLM{}, productsWith(t), time.Second)
	_, err := uc.Chat(context.Background(), dto.ChatRequest{Message: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestChat_SinProveedorEsNoDisponible(t *testing.T) {
	uc := usecase.NewAIUseCase(nil, productsWith(t), time.Second)
	_, err := uc.Chat(context.Background(), dto.ChatRequest{Message: "hola"})
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
}

func TestChat_ErrorDelProveedor(t *testing.T) {
	uc := usecase.NewAIUseCase(&fakeLLM{err: errors.New("HTTP 500")}, productsWith(t), time.Second)
	_, err := uc.Chat(context.Background(), dto.ChatRequest{Message: "hola"})
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
}

func TestChat_Timeout(t *testing.T) {
	uc := usecase.NewAIUseCase(&fakeLLM{block: true}, productsWith(t), 20*time.Millisecond)
	_, err := uc.Chat(context.Background(), dto.ChatRequest{Message: "hola"})
	assert.ErrorIs(t, err, domain.ErrTimeout)
}
