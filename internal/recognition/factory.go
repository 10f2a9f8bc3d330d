package recognition

import (
	"context"
	"fmt"
	"strings"

	"github.com/kozaktomas/visionauth/internal/config"
)

// Provider names accepted by NewProvider.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Providers lists the supported backends in display order.
var Providers = []string{ProviderGemini, ProviderOpenAI, ProviderOllama}

// NewProvider builds the backend selected by name using credentials from cfg.
func NewProvider(ctx context.Context, name string, cfg *config.Config) (Provider, error) {
	switch strings.ToLower(name) {
	case ProviderGemini:
		if cfg.Gemini.APIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required for the %s provider", name)
		}
		model := cfg.Gemini.Model
		if model == "" {
			model = defaultGeminiModel
		}
		return NewGeminiProvider(ctx, cfg.Gemini.APIKey, model, pricingFor(cfg, model))
	case ProviderOpenAI:
		if cfg.OpenAI.Token == "" {
			return nil, fmt.Errorf("OPENAI_TOKEN environment variable is required for the %s provider", name)
		}
		return NewOpenAIProvider(cfg.OpenAI.Token, pricingFor(cfg, chatModel)), nil
	case ProviderOllama:
		return NewOllamaProvider(cfg.Ollama.URL, cfg.Ollama.Model), nil
	default:
		return nil, fmt.Errorf("unknown recognition provider %q (available: %s)", name, strings.Join(Providers, ", "))
	}
}

func pricingFor(cfg *config.Config, model string) RequestPricing {
	p := cfg.GetModelPricing(model)
	return RequestPricing{Input: p.Standard.Input, Output: p.Standard.Output}
}
