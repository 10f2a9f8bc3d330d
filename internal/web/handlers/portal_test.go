package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/kozaktomas/visionauth/internal/auth"
	"github.com/kozaktomas/visionauth/internal/constants"
	"github.com/kozaktomas/visionauth/internal/recognition"
	"github.com/kozaktomas/visionauth/internal/web/middleware"
)

func serve(handler http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	handler(recorder, req)
	return recorder
}

func TestPortalHandler_State_Initial(t *testing.T) {
	h, _, _ := newTestPortal(t, acceptingRecognizer())

	recorder := serve(h.State, deviceRequest("GET", "/api/v1/state", ""))

	assertStatusCode(t, recorder, http.StatusOK)
	var snap auth.Snapshot
	parseJSONResponse(t, recorder, &snap)
	if snap.Phase != auth.PhaseIdle {
		t.Errorf("expected phase idle, got %s", snap.Phase)
	}
	if snap.Profile != nil {
		t.Error("expected no profile")
	}
	if !snap.CanEnroll() {
		t.Error("expected enrollment to be possible")
	}
}

func TestPortalHandler_CookielessReadsDoNotLoadControllers(t *testing.T) {
	h, registry, _ := newTestPortal(t, acceptingRecognizer())
	dm := middleware.NewDeviceManager("test-secret")
	state := middleware.Device(dm)(http.HandlerFunc(h.State))
	logs := middleware.Device(dm)(http.HandlerFunc(h.Logs))

	for range 1000 {
		recorder := httptest.NewRecorder()
		state.ServeHTTP(recorder, httptest.NewRequest("GET", "/api/v1/state", nil))
		assertStatusCode(t, recorder, http.StatusOK)

		recorder = httptest.NewRecorder()
		logs.ServeHTTP(recorder, httptest.NewRequest("GET", "/api/v1/logs", nil))
		assertStatusCode(t, recorder, http.StatusOK)
	}

	if registry.Len() != 0 {
		t.Errorf("expected no controllers after cookieless reads, got %d", registry.Len())
	}

	recorder := httptest.NewRecorder()
	state.ServeHTTP(recorder, httptest.NewRequest("GET", "/api/v1/state", nil))
	var snap auth.Snapshot
	parseJSONResponse(t, recorder, &snap)
	if snap.Phase != auth.PhaseIdle || snap.Logs == nil || len(snap.Logs) != 0 {
		t.Errorf("unexpected state for a new device: %+v", snap)
	}
}

func TestPortalHandler_MissingDevice(t *testing.T) {
	h, _, _ := newTestPortal(t, acceptingRecognizer())

	recorder := serve(h.State, httptest.NewRequest("GET", "/api/v1/state", nil))

	assertStatusCode(t, recorder, http.StatusUnauthorized)
	assertJSONError(t, recorder, "missing device")
}

func TestPortalHandler_LoadFailure(t *testing.T) {
	h, _, kv := newTestPortal(t, acceptingRecognizer())
	kv.GetError = errors.New("connection refused")

	recorder := serve(h.State, deviceRequest("GET", "/api/v1/state", ""))

	assertStatusCode(t, recorder, http.StatusInternalServerError)
	assertJSONError(t, recorder, "failed to load state")
}

func TestPortalHandler_EnrollAndVerify(t *testing.T) {
	h, _, kv := newTestPortal(t, acceptingRecognizer())

	assertStatusCode(t, serve(h.Enroll, deviceRequest("POST", "/api/v1/enroll", "")), http.StatusOK)

	recorder := serve(h.Capture, deviceRequest("POST", "/api/v1/capture", captureBody(t, testImage)))
	assertStatusCode(t, recorder, http.StatusOK)

	var enrolled CaptureResponse
	parseJSONResponse(t, recorder, &enrolled)
	if enrolled.Snapshot.Phase != auth.PhaseAuthenticated {
		t.Fatalf("expected authenticated after enrollment, got %s", enrolled.Snapshot.Phase)
	}
	if enrolled.Result.Message != auth.EnrollmentSuccessMessage {
		t.Errorf("expected success message, got %q", enrolled.Result.Message)
	}
	if enrolled.Snapshot.Profile == nil || !enrolled.Snapshot.Profile.HasFace {
		t.Fatal("expected enrolled profile in snapshot")
	}
	if !slices.Contains(kv.Keys(), testDevice+":"+constants.ProfileKey) {
		t.Errorf("profile not persisted under device namespace, keys = %v", kv.Keys())
	}

	assertStatusCode(t, serve(h.Cancel, deviceRequest("POST", "/api/v1/cancel", "")), http.StatusOK)
	assertStatusCode(t, serve(h.Verify, deviceRequest("POST", "/api/v1/verify", "")), http.StatusOK)

	recorder = serve(h.Capture, deviceRequest("POST", "/api/v1/capture", captureBody(t, testImage)))
	assertStatusCode(t, recorder, http.StatusOK)

	var verified CaptureResponse
	parseJSONResponse(t, recorder, &verified)
	if verified.Snapshot.Phase != auth.PhaseAuthenticated {
		t.Errorf("expected authenticated, got %s", verified.Snapshot.Phase)
	}
	if len(verified.Snapshot.Logs) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(verified.Snapshot.Logs))
	}
	if verified.Snapshot.Logs[0].Type != auth.AttemptVerification {
		t.Errorf("expected most recent entry first, got %s", verified.Snapshot.Logs[0].Type)
	}
}

func TestPortalHandler_VerificationBelowThresholdFails(t *testing.T) {
	rec := acceptingRecognizer()
	h, _, _ := newTestPortal(t, rec)

	serve(h.Enroll, deviceRequest("POST", "/api/v1/enroll", ""))
	serve(h.Capture, deviceRequest("POST", "/api/v1/capture", captureBody(t, testImage)))
	serve(h.Cancel, deviceRequest("POST", "/api/v1/cancel", ""))
	serve(h.Verify, deviceRequest("POST", "/api/v1/verify", ""))

	rec.comparison = recognition.Result{Match: true, Confidence: 0.85, Message: "Probably"}
	recorder := serve(h.Capture, deviceRequest("POST", "/api/v1/capture", captureBody(t, testImage)))
	assertStatusCode(t, recorder, http.StatusOK)

	var resp CaptureResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.Snapshot.Phase != auth.PhaseFailed {
		t.Fatalf("expected failed at exactly the threshold, got %s", resp.Snapshot.Phase)
	}
	if resp.Snapshot.AccessToken != "" {
		t.Error("failed verification must not carry a token")
	}

	recorder = serve(h.Retry, deviceRequest("POST", "/api/v1/retry", ""))
	assertStatusCode(t, recorder, http.StatusOK)
	var snap auth.Snapshot
	parseJSONResponse(t, recorder, &snap)
	if snap.Phase != auth.PhaseVerifying {
		t.Errorf("expected verifying after retry, got %s", snap.Phase)
	}
}

func TestPortalHandler_InvalidTransitions(t *testing.T) {
	h, _, _ := newTestPortal(t, acceptingRecognizer())

	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
	}{
		{"verify without profile", h.Verify, http.StatusPreconditionFailed},
		{"retry from idle", h.Retry, http.StatusConflict},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := serve(tc.handler, deviceRequest("POST", "/api/v1/x", ""))
			assertStatusCode(t, recorder, tc.wantStatus)
		})
	}
}

func TestPortalHandler_EnrollTwice(t *testing.T) {
	h, _, _ := newTestPortal(t, acceptingRecognizer())

	serve(h.Enroll, deviceRequest("POST", "/api/v1/enroll", ""))
	serve(h.Capture, deviceRequest("POST", "/api/v1/capture", captureBody(t, testImage)))
	serve(h.Cancel, deviceRequest("POST", "/api/v1/cancel", ""))

	recorder := serve(h.Enroll, deviceRequest("POST", "/api/v1/enroll", ""))
	assertStatusCode(t, recorder, http.StatusConflict)
	assertJSONError(t, recorder, auth.ErrAlreadyEnrolled.Error())
}

func TestPortalHandler_Capture_Validation(t *testing.T) {
	rec := acceptingRecognizer()
	h, _, _ := newTestPortal(t, rec)
	serve(h.Enroll, deviceRequest("POST", "/api/v1/enroll", ""))

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"malformed json", "{", http.StatusBadRequest},
		{"not a data url", captureBody(t, "hello"), http.StatusBadRequest},
		{"not an image", captureBody(t, "data:text/plain;base64,aGVsbG8="), http.StatusBadRequest},
		{"too large", captureBody(t, "data:image/jpeg;base64,"+strings.Repeat("A", int(constants.MaxCaptureBodySize))), http.StatusRequestEntityTooLarge},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := serve(h.Capture, deviceRequest("POST", "/api/v1/capture", tc.body))
			assertStatusCode(t, recorder, tc.wantStatus)
		})
	}

	if rec.calls != 0 {
		t.Errorf("recognizer should not be called for rejected captures, got %d calls", rec.calls)
	}
}

func TestPortalHandler_Capture_IdleConflict(t *testing.T) {
	h, _, _ := newTestPortal(t, acceptingRecognizer())

	recorder := serve(h.Capture, deviceRequest("POST", "/api/v1/capture", captureBody(t, testImage)))

	assertStatusCode(t, recorder, http.StatusConflict)
}

func TestPortalHandler_Capture_PersistenceFailure(t *testing.T) {
	h, _, kv := newTestPortal(t, acceptingRecognizer())
	serve(h.Enroll, deviceRequest("POST", "/api/v1/enroll", ""))
	kv.SetError = errors.New("disk full")

	recorder := serve(h.Capture, deviceRequest("POST", "/api/v1/capture", captureBody(t, testImage)))
	assertStatusCode(t, recorder, http.StatusInternalServerError)

	recorder = serve(h.State, deviceRequest("GET", "/api/v1/state", ""))
	var snap auth.Snapshot
	parseJSONResponse(t, recorder, &snap)
	if snap.Phase != auth.PhaseEnrolling {
		t.Errorf("expected phase to stay enrolling, got %s", snap.Phase)
	}
	if snap.Profile != nil {
		t.Error("profile must not be set when persistence failed")
	}
}

func TestPortalHandler_ResetProfile(t *testing.T) {
	h, _, kv := newTestPortal(t, acceptingRecognizer())
	serve(h.Enroll, deviceRequest("POST", "/api/v1/enroll", ""))
	serve(h.Capture, deviceRequest("POST", "/api/v1/capture", captureBody(t, testImage)))

	recorder := serve(h.ResetProfile, deviceRequest("DELETE", "/api/v1/profile", ""))
	assertStatusCode(t, recorder, http.StatusOK)

	var snap auth.Snapshot
	parseJSONResponse(t, recorder, &snap)
	if snap.Phase != auth.PhaseIdle || snap.Profile != nil {
		t.Errorf("expected idle without profile, got %s %+v", snap.Phase, snap.Profile)
	}
	if slices.Contains(kv.Keys(), testDevice+":"+constants.ProfileKey) {
		t.Error("profile should be deleted from the store")
	}
	if len(snap.Logs) != 1 {
		t.Errorf("expected the log to survive a reset, got %d entries", len(snap.Logs))
	}
}

func TestPortalHandler_Logs(t *testing.T) {
	rec := acceptingRecognizer()
	rec.analysis = recognition.Result{Match: false, Confidence: 0.2, Message: "Too dark"}
	h, _, _ := newTestPortal(t, rec)
	serve(h.Enroll, deviceRequest("POST", "/api/v1/enroll", ""))
	serve(h.Capture, deviceRequest("POST", "/api/v1/capture", captureBody(t, testImage)))

	recorder := serve(h.Logs, deviceRequest("GET", "/api/v1/logs", ""))
	assertStatusCode(t, recorder, http.StatusOK)

	var logs []auth.LogEntry
	parseJSONResponse(t, recorder, &logs)
	if len(logs) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(logs))
	}
	if logs[0].Success || logs[0].Type != auth.AttemptEnrollment {
		t.Errorf("unexpected log entry %+v", logs[0])
	}
}

func TestPortalHandler_DevicesAreIsolated(t *testing.T) {
	h, registry, _ := newTestPortal(t, acceptingRecognizer())
	serve(h.Enroll, deviceRequest("POST", "/api/v1/enroll", ""))

	other := httptest.NewRequest("GET", "/api/v1/state", nil)
	other = other.WithContext(withDevice(other, "device-2"))
	recorder := serve(h.State, other)

	var snap auth.Snapshot
	parseJSONResponse(t, recorder, &snap)
	if snap.Phase != auth.PhaseIdle {
		t.Errorf("expected second device to be idle, got %s", snap.Phase)
	}
	if registry.Len() != 2 {
		t.Errorf("expected 2 controllers, got %d", registry.Len())
	}
}
