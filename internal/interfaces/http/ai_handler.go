package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stockmaster-api/internal/application/dto"
	"github.com/jhoicas/stockmaster-api/internal/application/usecase"
	"github.com/jhoicas/stockmaster-api/pkg/logger"
)

// AIHandler asistente de inventario.
type AIHandler struct {
	uc  *usecase.AIUseCase
	log *logger.Logger
}

// NewAIHandler construye el handler.
func NewAIHandler(uc *usecase.AIUseCase, log *logger.Logger) *AIHandler {
	return &AIHandler{uc: uc, log: log}
}

// Chat godoc
// @Summary      Preguntar al asistente de inventario
// @Description  El modelo recibe el inventario actual (nombre, stock y punto de reorden por producto).
// @Tags         ai
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ChatRequest  true  "message"
// @Success      200   {object}  dto.ChatResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse  "Proveedor de IA no configurado o con error"
// @Failure      504   {object}  dto.ErrorResponse
// @Router       /api/chat [post]
func (h *AIHandler) Chat(c *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	out, err := h.uc.Chat(c.UserContext(), req)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}
