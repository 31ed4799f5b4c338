package dto

// ChatRequest body de POST /api/chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse respuesta del asistente. Shortages lista los productos que el modelo marcó como críticos.
type ChatResponse struct {
	Reply     string   `json:"reply"`
	Shortages []string `json:"shortages,omitempty"`
}
