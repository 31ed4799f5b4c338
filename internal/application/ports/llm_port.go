package ports

import (
	"context"

	"github.com/jhoicas/stockmaster-api/internal/application/dto"
)

// LLMService define el puerto de salida hacia el proveedor de IA generativa.
// Cualquier adaptador (Gemini, OpenAI, mock) debe implementar esta interfaz.
type LLMService interface {
	// Chat envía el prompt completo (instrucciones + inventario + pregunta) y devuelve la respuesta
	// estructurada. El contexto debe llevar un timeout para evitar bloqueos en llamadas externas.
	Chat(ctx context.Context, prompt string) (*dto.ChatResponse, error)
}
