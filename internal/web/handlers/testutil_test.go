package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/visionauth/internal/auth"
	"github.com/kozaktomas/visionauth/internal/config"
	"github.com/kozaktomas/visionauth/internal/database"
	"github.com/kozaktomas/visionauth/internal/database/mock"
	"github.com/kozaktomas/visionauth/internal/recognition"
	"github.com/kozaktomas/visionauth/internal/web/middleware"
)

const testDevice = "device-1"

// testImage is a syntactically valid JPEG data URL; the stub recognizer never decodes it.
const testImage = "data:image/jpeg;base64,/9j/4AAQSkZJRg=="

// testConfig creates a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Recognition: config.RecognitionConfig{Provider: "gemini"},
		Auth: config.AuthConfig{
			VerifyThreshold: 0.85,
			LogCap:          10,
		},
		Storage: config.StorageConfig{Backend: "file"},
	}
}

// stubRecognizer returns fixed results and counts calls.
type stubRecognizer struct {
	analysis   recognition.Result
	comparison recognition.Result
	calls      int
}

func (s *stubRecognizer) AnalyzeFace(context.Context, string) recognition.Result {
	s.calls++
	return s.analysis
}

func (s *stubRecognizer) VerifyIdentity(context.Context, string, string) recognition.Result {
	s.calls++
	return s.comparison
}

func acceptingRecognizer() *stubRecognizer {
	return &stubRecognizer{
		analysis: recognition.Result{
			Match:      true,
			Confidence: 0.97,
			Message:    "Good image",
			Analysis:   &recognition.Analysis{Liveness: true, Lighting: "good", Focus: "sharp"},
		},
		comparison: recognition.Result{Match: true, Confidence: 0.93, Message: "Same person"},
	}
}

// newTestPortal wires a portal handler to a registry backed by the mock key-value store.
func newTestPortal(t *testing.T, recognizer auth.Recognizer) (*PortalHandler, *auth.Registry, *mock.MockKeyValueStore) {
	t.Helper()
	kv := mock.NewMockKeyValueStore()
	stores := func(deviceID string) auth.Store {
		return database.NewProfileRepository(database.WithPrefix(kv, deviceID))
	}
	registry := auth.NewRegistry(stores, recognizer, auth.Policy{Threshold: 0.85, LogCap: 10, Email: "demo@visionauth.io"})
	return NewPortalHandler(registry), registry, kv
}

// deviceRequest creates a request carrying the test device in its context
func deviceRequest(method, path, body string) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	return req.WithContext(middleware.SetDeviceInContext(req.Context(), testDevice))
}

// withDevice returns the request context carrying deviceID
func withDevice(r *http.Request, deviceID string) context.Context {
	return middleware.SetDeviceInContext(r.Context(), deviceID)
}

// captureBody encodes a capture request
func captureBody(t *testing.T, image string) string {
	t.Helper()
	b, err := json.Marshal(CaptureRequest{Image: image})
	if err != nil {
		t.Fatalf("failed to marshal capture request: %v", err)
	}
	return string(b)
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
