package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/kozaktomas/visionauth/internal/auth"
	"github.com/kozaktomas/visionauth/internal/constants"
	"github.com/kozaktomas/visionauth/internal/recognition"
	"github.com/kozaktomas/visionauth/internal/web/middleware"
)

// ControllerSource resolves the auth controller for a device.
type ControllerSource interface {
	Get(ctx context.Context, deviceID string) (*auth.Controller, error)
}

// PortalHandler exposes the authentication flow of the caller's device.
type PortalHandler struct {
	controllers ControllerSource
}

// NewPortalHandler creates a new portal handler
func NewPortalHandler(controllers ControllerSource) *PortalHandler {
	return &PortalHandler{controllers: controllers}
}

// CaptureRequest carries one camera frame as a base64 JPEG data URL.
type CaptureRequest struct {
	Image string `json:"image"`
}

// CaptureResponse is the outcome of a capture plus the resulting state.
type CaptureResponse struct {
	Result   recognition.Result `json:"result"`
	Snapshot auth.Snapshot      `json:"snapshot"`
}

// controller returns the caller's controller, writing an error response on failure.
func (h *PortalHandler) controller(w http.ResponseWriter, r *http.Request) (*auth.Controller, bool) {
	deviceID := middleware.GetDeviceFromContext(r.Context())
	if deviceID == "" {
		respondError(w, http.StatusUnauthorized, "missing device")
		return nil, false
	}
	c, err := h.controllers.Get(r.Context(), deviceID)
	if err != nil {
		log.Printf("Failed to load device state: %s", sanitizeForLog(err.Error()))
		respondError(w, http.StatusInternalServerError, "failed to load state")
		return nil, false
	}
	return c, true
}

// State returns the current snapshot.
// A device first seen on this request gets the empty state without loading a controller.
func (h *PortalHandler) State(w http.ResponseWriter, r *http.Request) {
	if middleware.IsNewDevice(r.Context()) {
		respondJSON(w, http.StatusOK, auth.EmptySnapshot())
		return
	}
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, c.Snapshot())
}

// Logs returns the attempt log, most recent first.
func (h *PortalHandler) Logs(w http.ResponseWriter, r *http.Request) {
	if middleware.IsNewDevice(r.Context()) {
		respondJSON(w, http.StatusOK, []auth.LogEntry{})
		return
	}
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, c.Logs())
}

// Enroll starts the enrollment flow.
func (h *PortalHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, (*auth.Controller).BeginEnrollment)
}

// Verify starts the verification flow.
func (h *PortalHandler) Verify(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, (*auth.Controller).BeginVerification)
}

// Retry restarts verification after a failed attempt.
func (h *PortalHandler) Retry(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, (*auth.Controller).Retry)
}

// Cancel returns to idle from any phase.
func (h *PortalHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(c *auth.Controller) error {
		c.Cancel()
		return nil
	})
}

// ResetProfile deletes the enrolled profile.
func (h *PortalHandler) ResetProfile(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(c *auth.Controller) error {
		return c.ClearProfile(r.Context())
	})
}

func (h *PortalHandler) transition(w http.ResponseWriter, r *http.Request, fn func(*auth.Controller) error) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	if err := fn(c); err != nil {
		respondAuthError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c.Snapshot())
}

// Capture submits a frame for the current phase and waits for the outcome.
// The recognition call outlives a client disconnect so the result is still recorded.
func (h *PortalHandler) Capture(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxCaptureBodySize)
	var req CaptureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "image too large")
			return
		}
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if _, _, err := recognition.DecodeDataURL(req.Image); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := c.Capture(context.WithoutCancel(r.Context()), req.Image)
	if err != nil {
		respondAuthError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, CaptureResponse{
		Result:   result,
		Snapshot: c.Snapshot(),
	})
}
