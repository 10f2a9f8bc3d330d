// Package auth holds the authentication state machine driving enrollment and verification.
package auth

import (
	"time"

	"github.com/kozaktomas/visionauth/internal/recognition"
)

// Phase is the current step of the authentication flow.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseEnrolling     Phase = "enrolling"
	PhaseVerifying     Phase = "verifying"
	PhaseAuthenticated Phase = "authenticated"
	PhaseFailed        Phase = "failed"
)

// AttemptType distinguishes log entries.
type AttemptType string

const (
	AttemptEnrollment   AttemptType = "enrollment"
	AttemptVerification AttemptType = "verification"
)

// UserProfile is the enrolled identity. Timestamps are Unix milliseconds.
type UserProfile struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	EnrolledFaceData string `json:"enrolledFaceData,omitempty"`
	EnrolledAt       int64  `json:"enrolledAt"`
}

// HasFaceData reports whether verification can be started against this profile.
func (p *UserProfile) HasFaceData() bool {
	return p != nil && p.EnrolledFaceData != ""
}

// LogEntry records one completed enrollment or verification attempt.
type LogEntry struct {
	ID         string      `json:"id"`
	Timestamp  int64       `json:"timestamp"`
	Type       AttemptType `json:"type"`
	Success    bool        `json:"success"`
	Confidence float64     `json:"confidence"`
}

// Time returns Timestamp as a time.Time.
func (e LogEntry) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// ProfileSummary is a profile without the enrolled image.
type ProfileSummary struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	EnrolledAt int64  `json:"enrolledAt"`
	HasFace    bool   `json:"hasFace"`
}

// Snapshot is a read-only copy of a controller's state.
type Snapshot struct {
	Phase        Phase               `json:"phase"`
	Profile      *ProfileSummary     `json:"profile,omitempty"`
	LastResult   *recognition.Result `json:"lastResult,omitempty"`
	Logs         []LogEntry          `json:"logs"`
	IsProcessing bool                `json:"isProcessing"`
	AccessToken  string              `json:"accessToken,omitempty"`
}

// EmptySnapshot is the state of a device that has never been used.
func EmptySnapshot() Snapshot {
	return Snapshot{Phase: PhaseIdle, Logs: []LogEntry{}}
}

// CanEnroll reports whether BeginEnrollment would succeed.
func (s Snapshot) CanEnroll() bool {
	return s.Phase == PhaseIdle && s.Profile == nil
}

// CanVerify reports whether BeginVerification would succeed.
func (s Snapshot) CanVerify() bool {
	return s.Phase == PhaseIdle && s.Profile != nil && s.Profile.HasFace
}
