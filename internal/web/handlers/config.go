package handlers

import (
	"net/http"

	"github.com/kozaktomas/visionauth/internal/config"
	"github.com/kozaktomas/visionauth/internal/recognition"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config *config.Config
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{
		config: cfg,
	}
}

// ConfigResponse represents the configuration response
type ConfigResponse struct {
	Providers       []ProviderInfo `json:"providers"`
	ActiveProvider  string         `json:"active_provider"`
	VerifyThreshold float64        `json:"verify_threshold"`
	LogCap          int            `json:"log_cap"`
	StorageBackend  string         `json:"storage_backend"`
}

// ProviderInfo represents information about a recognition provider
type ProviderInfo struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// Get returns the available configuration
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	providers := make([]ProviderInfo, 0, len(recognition.Providers))
	for _, name := range recognition.Providers {
		providers = append(providers, ProviderInfo{
			Name:      name,
			Available: h.available(name),
		})
	}

	respondJSON(w, http.StatusOK, ConfigResponse{
		Providers:       providers,
		ActiveProvider:  h.config.Recognition.Provider,
		VerifyThreshold: h.config.Auth.VerifyThreshold,
		LogCap:          h.config.Auth.LogCap,
		StorageBackend:  h.config.Storage.Backend,
	})
}

func (h *ConfigHandler) available(provider string) bool {
	switch provider {
	case recognition.ProviderGemini:
		return h.config.Gemini.APIKey != ""
	case recognition.ProviderOpenAI:
		return h.config.OpenAI.Token != ""
	default:
		return true // Always available (local)
	}
}
