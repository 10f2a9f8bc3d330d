package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/visionauth/internal/config"
)

func getConfig(t *testing.T, cfg *config.Config) ConfigResponse {
	t.Helper()
	handler := NewConfigHandler(cfg)

	req := httptest.NewRequest("GET", "/api/v1/config", nil)
	recorder := httptest.NewRecorder()

	handler.Get(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "application/json")

	var result ConfigResponse
	parseJSONResponse(t, recorder, &result)
	return result
}

func findProvider(providers []ProviderInfo, name string) *ProviderInfo {
	for i := range providers {
		if providers[i].Name == name {
			return &providers[i]
		}
	}
	return nil
}

func TestConfigHandler_Get_ReturnsPolicy(t *testing.T) {
	result := getConfig(t, testConfig())

	if result.ActiveProvider != "gemini" {
		t.Errorf("expected active provider 'gemini', got '%s'", result.ActiveProvider)
	}
	if result.VerifyThreshold != 0.85 {
		t.Errorf("expected threshold 0.85, got %v", result.VerifyThreshold)
	}
	if result.LogCap != 10 {
		t.Errorf("expected log cap 10, got %d", result.LogCap)
	}
	if result.StorageBackend != "file" {
		t.Errorf("expected storage backend 'file', got '%s'", result.StorageBackend)
	}
}

func TestConfigHandler_Get_ProviderAvailability(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *config.Config
		provider string
		want     bool
	}{
		{"gemini with key", &config.Config{Gemini: config.GeminiConfig{APIKey: "key"}}, "gemini", true},
		{"gemini without key", &config.Config{}, "gemini", false},
		{"openai with token", &config.Config{OpenAI: config.OpenAIConfig{Token: "sk-test"}}, "openai", true},
		{"openai without token", &config.Config{}, "openai", false},
		{"ollama is local", &config.Config{}, "ollama", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := getConfig(t, tc.cfg)
			if len(result.Providers) != 3 {
				t.Fatalf("expected 3 providers, got %d", len(result.Providers))
			}
			p := findProvider(result.Providers, tc.provider)
			if p == nil {
				t.Fatalf("expected %s provider in response", tc.provider)
			}
			if p.Available != tc.want {
				t.Errorf("expected available=%v, got %v", tc.want, p.Available)
			}
		})
	}
}
