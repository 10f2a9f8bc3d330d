package recognition

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-3-flash-preview"

type GeminiProvider struct {
	usageMeter
	client *genai.Client
	model  string
}

func NewGeminiProvider(ctx context.Context, apiKey, model string, pricing RequestPricing) (*GeminiProvider, error) {
	if model == "" {
		model = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		usageMeter: usageMeter{pricing: pricing},
		client:     client,
		model:      model,
	}, nil
}

func (p *GeminiProvider) Name() string {
	return p.model
}

func (p *GeminiProvider) AnalyzeFace(ctx context.Context, image []byte) (*Result, error) {
	content, err := p.generate(ctx, enrollmentPrompt, enrollmentSchema, image)
	if err != nil {
		return nil, err
	}
	return parseAnalysis(content)
}

func (p *GeminiProvider) CompareFaces(ctx context.Context, enrolled, current []byte) (*Result, error) {
	content, err := p.generate(ctx, comparisonPrompt, comparisonSchema, enrolled, current)
	if err != nil {
		return nil, err
	}
	return parseComparison(content)
}

// generate sends the images followed by the instruction and returns the raw JSON reply.
func (p *GeminiProvider) generate(ctx context.Context, prompt string, schema *schemaField, images ...[]byte) (string, error) {
	parts := make([]*genai.Part, 0, len(images)+1)
	for _, img := range images {
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{Data: img, MIMEType: "image/jpeg"}})
	}
	parts = append(parts, &genai.Part{Text: prompt})

	contents := []*genai.Content{{Role: "user", Parts: parts}}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   geminiSchema(schema),
	}

	result, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}

	if result.UsageMetadata != nil {
		p.track(int(result.UsageMetadata.PromptTokenCount), int(result.UsageMetadata.CandidatesTokenCount))
	}

	content := result.Text()
	if content == "" {
		return "", errors.New("no response from Gemini")
	}
	return content, nil
}

// geminiSchema converts the declared reply shape into Gemini's response schema.
func geminiSchema(s *schemaField) *genai.Schema {
	out := &genai.Schema{Description: s.Description}
	switch s.Type {
	case typeObject:
		out.Type = genai.TypeObject
	case typeBoolean:
		out.Type = genai.TypeBoolean
	case typeNumber:
		out.Type = genai.TypeNumber
	case typeString:
		out.Type = genai.TypeString
	}
	if s.Type == typeObject {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for _, name := range s.Order {
			out.Properties[name] = geminiSchema(s.Properties[name])
		}
		out.PropertyOrdering = s.Order
		out.Required = s.required()
	}
	return out
}
