package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/jhoicas/stockmaster-api/internal/application/dto"
)

// chatPayload es el JSON que esperamos recibir del modelo, con cualquier proveedor.
type chatPayload struct {
	Reply     string   `json:"reply" jsonschema_description:"Respuesta en español para el usuario, concisa y basada solo en el inventario recibido"`
	Shortages []string `json:"shortages" jsonschema_description:"Nombres de productos con stock crítico mencionados en la respuesta; lista vacía si no hay"`
}

// replySchema esquema JSON de chatPayload para las salidas estructuradas.
func replySchema() (map[string]any, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	raw, err := json.Marshal(reflector.Reflect(&chatPayload{}))
	if err != nil {
		return nil, fmt.Errorf("AI: serializar esquema: %w", err)
	}
	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, fmt.Errorf("AI: esquema a mapa: %w", err)
	}
	// Las salidas estrictas no aceptan $schema ni $id en la raíz.
	delete(schema, "$schema")
	delete(schema, "$id")
	return schema, nil
}

// parseReply decodifica el texto del modelo. Si no es JSON se usa como respuesta libre.
func parseReply(raw string) (*dto.ChatResponse, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("AI: respuesta vacía del modelo")
	}

	var p chatPayload
	if err := json.Unmarshal([]byte(text), &p); err != nil || strings.TrimSpace(p.Reply) == "" {
		return &dto.ChatResponse{Reply: text, Shortages: []string{}}, nil
	}
	if p.Shortages == nil {
		p.Shortages = []string{}
	}
	return &dto.ChatResponse{Reply: strings.TrimSpace(p.Reply), Shortages: p.Shortages}, nil
}
