package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/kozaktomas/visionauth/internal/auth"
)

// IdentityHandler lets downstream services check an access token.
type IdentityHandler struct {
	tokens *auth.TokenIssuer
}

// NewIdentityHandler creates a new identity handler
func NewIdentityHandler(tokens *auth.TokenIssuer) *IdentityHandler {
	return &IdentityHandler{tokens: tokens}
}

// IdentityResponse describes the holder of a valid access token.
type IdentityResponse struct {
	Subject   string `json:"subject"`
	Email     string `json:"email"`
	ExpiresAt string `json:"expires_at"`
}

// Get validates the bearer token and returns its identity.
func (h *IdentityHandler) Get(w http.ResponseWriter, r *http.Request) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		respondError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}

	claims, err := h.tokens.Validate(token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, auth.ErrInvalidToken.Error())
		return
	}

	resp := IdentityResponse{
		Subject: claims.Subject,
		Email:   claims.Email,
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Format(time.RFC3339)
	}
	respondJSON(w, http.StatusOK, resp)
}
