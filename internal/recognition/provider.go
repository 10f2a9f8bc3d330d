package recognition

import (
	"context"
	"sync"
)

// Provider defines the interface for hosted multimodal model backends.
// Images are raw JPEG bytes; implementations return the parsed, validated reply.
type Provider interface {
	Name() string
	AnalyzeFace(ctx context.Context, image []byte) (*Result, error)
	CompareFaces(ctx context.Context, enrolled, current []byte) (*Result, error)

	// Usage tracking.
	GetUsage() Usage
	ResetUsage()
}

// Result is the outcome of one remote recognition call.
type Result struct {
	Match      bool      `json:"match"`
	Confidence float64   `json:"confidence"` // 0-1
	Message    string    `json:"message"`
	Analysis   *Analysis `json:"analysis,omitempty"`
}

// Analysis carries the liveness and quality judgement of an enrollment image.
type Analysis struct {
	Liveness          bool     `json:"liveness"`
	Lighting          string   `json:"lighting"`
	Focus             string   `json:"focus"`
	LandmarksDetected *bool    `json:"landmarks_detected,omitempty"`
	RiskScore         *float64 `json:"risk_score,omitempty"` // 0-100, 0 is perfect
}

// Usage tracks token usage and calculates cost.
type Usage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalCost    float64 `json:"total_cost"` // in USD
}

// RequestPricing holds input/output prices per 1M tokens
type RequestPricing struct {
	Input  float64
	Output float64
}

// usageMeter is embedded by providers; several browsers may call one provider concurrently.
type usageMeter struct {
	mu      sync.Mutex
	usage   Usage
	pricing RequestPricing
}

func (m *usageMeter) track(inputTokens, outputTokens int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage.InputTokens += inputTokens
	m.usage.OutputTokens += outputTokens
	m.usage.TotalCost += float64(inputTokens) / 1_000_000 * m.pricing.Input
	m.usage.TotalCost += float64(outputTokens) / 1_000_000 * m.pricing.Output
}

func (m *usageMeter) GetUsage() Usage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usage
}

func (m *usageMeter) ResetUsage() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage = Usage{}
}
