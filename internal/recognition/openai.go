package recognition

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const chatModel = openai.ChatModelGPT4_1Mini

type OpenAIProvider struct {
	usageMeter
	client *openai.Client
}

func NewOpenAIProvider(apiKey string, pricing RequestPricing, opts ...option.RequestOption) *OpenAIProvider {
	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &OpenAIProvider{
		usageMeter: usageMeter{pricing: pricing},
		client:     &client,
	}
}

func (p *OpenAIProvider) Name() string {
	return chatModel
}

func (p *OpenAIProvider) AnalyzeFace(ctx context.Context, image []byte) (*Result, error) {
	content, err := p.complete(ctx, "face_enrollment", enrollmentPrompt, enrollmentSchema, image)
	if err != nil {
		return nil, err
	}
	return parseAnalysis(content)
}

func (p *OpenAIProvider) CompareFaces(ctx context.Context, enrolled, current []byte) (*Result, error) {
	content, err := p.complete(ctx, "identity_comparison", comparisonPrompt, comparisonSchema, enrolled, current)
	if err != nil {
		return nil, err
	}
	return parseComparison(content)
}

func (p *OpenAIProvider) complete(ctx context.Context, schemaName, prompt string, schema *schemaField, images ...[]byte) (string, error) {
	parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(images)+1)
	for _, img := range images {
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL:    EncodeDataURL("image/jpeg", img),
			Detail: "high",
		}))
	}
	parts = append(parts, openai.TextContentPart(prompt))

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: chatModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfArrayOfContentParts: parts,
					},
				},
			},
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   schemaName,
					Schema: schema.jsonSchema(),
				},
			},
		},
		MaxTokens: openai.Int(500),
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if resp.Usage.PromptTokens > 0 || resp.Usage.CompletionTokens > 0 {
		p.track(int(resp.Usage.PromptTokens), int(resp.Usage.CompletionTokens))
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}
