package ai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"github.com/openai/openai-go/shared/constant"

	"github.com/jhoicas/stockmaster-api/internal/application/dto"
	"github.com/jhoicas/stockmaster-api/internal/application/ports"
)

var _ ports.LLMService = (*OpenAIService)(nil)

// OpenAIService adaptador LLMService sobre la Responses API con salida JSON estricta.
type OpenAIService struct {
	client *openai.Client
	model  string
	schema map[string]any
}

// NewOpenAIService construye el cliente. model vacío usa gpt-4o-mini.
func NewOpenAIService(apiKey, model string, opts ...option.RequestOption) (*OpenAIService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("AI: OPENAI_API_KEY no configurado")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	schema, err := replySchema()
	if err != nil {
		return nil, err
	}
	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &OpenAIService{client: &client, model: model, schema: schema}, nil
}

func (s *OpenAIService) Chat(ctx context.Context, prompt string) (*dto.ChatResponse, error) {
	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(s.model),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: param.NewOpt(prompt),
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Type:        constant.JSONSchema("json_schema"),
					Name:        "stock_chat_reply",
					Strict:      param.NewOpt(true),
					Schema:      s.schema,
					Description: param.NewOpt("Respuesta del asistente de inventario"),
				},
			},
		},
	}

	resp, err := s.client.Responses.New(ctx, params)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("AI: timeout o cancelación: %w", ctx.Err())
		}
		return nil, fmt.Errorf("AI: OpenAI responses: %w", err)
	}
	return parseReply(resp.OutputText())
}
