package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/visionauth/internal/recognition"
)

var (
	// ErrBusy is returned by Capture while another capture is in flight.
	ErrBusy = errors.New("a recognition request is already in progress")
	// ErrNotEnrolled is returned when verification needs a profile with enrolled face data.
	ErrNotEnrolled = errors.New("no enrolled profile")
	// ErrAlreadyEnrolled is returned when enrollment is started while a profile exists.
	ErrAlreadyEnrolled = errors.New("a profile is already enrolled")
	// ErrInvalidTransition is returned when an operation is not allowed in the current phase.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrDiscarded is returned when the flow was cancelled while the request was pending.
	ErrDiscarded = errors.New("result discarded, attempt was cancelled")
)

// Messages shown after an enrollment attempt.
const (
	EnrollmentSuccessMessage = "Enrolled successfully! Identity secured."
	EnrollmentFailureMessage = "Quality check failed. Ensure good lighting."
)

// Store persists the profile and the attempt log.
type Store interface {
	LoadProfile(ctx context.Context) (*UserProfile, error)
	SaveProfile(ctx context.Context, profile *UserProfile) error
	DeleteProfile(ctx context.Context) error
	LoadLogs(ctx context.Context) ([]LogEntry, error)
	SaveLogs(ctx context.Context, logs []LogEntry) error
}

// Recognizer performs the remote face checks. It never fails; errors become non-matching results.
type Recognizer interface {
	AnalyzeFace(ctx context.Context, image string) recognition.Result
	VerifyIdentity(ctx context.Context, enrolled, current string) recognition.Result
}

// Policy holds the tunable parts of the flow.
type Policy struct {
	Threshold float64 // verification confidence must be strictly greater
	LogCap    int
	Email     string
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithIDGenerator overrides how profile and log ids are created.
func WithIDGenerator(newID func() string) Option {
	return func(c *Controller) { c.newID = newID }
}

// WithTokenIssuer makes the controller issue an access token on authentication.
func WithTokenIssuer(issuer *TokenIssuer) Option {
	return func(c *Controller) { c.tokens = issuer }
}

// Controller is the state container for one browser profile.
type Controller struct {
	EventBroadcaster

	store      Store
	recognizer Recognizer
	policy     Policy
	tokens     *TokenIssuer
	now        func() time.Time
	newID      func() string

	mu          sync.Mutex
	phase       Phase
	profile     *UserProfile
	lastResult  *recognition.Result
	logs        []LogEntry
	accessToken string
	generation  uint64

	processing atomic.Bool
}

func NewController(store Store, recognizer Recognizer, policy Policy, opts ...Option) *Controller {
	c := &Controller{
		store:      store,
		recognizer: recognizer,
		policy:     policy,
		now:        time.Now,
		newID:      uuid.NewString,
		phase:      PhaseIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load reads the persisted profile and log.
func (c *Controller) Load(ctx context.Context) error {
	profile, err := c.store.LoadProfile(ctx)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	logs, err := c.store.LoadLogs(ctx)
	if err != nil {
		return fmt.Errorf("load logs: %w", err)
	}

	c.mu.Lock()
	c.profile = profile
	c.logs = capLogs(logs, c.policy.LogCap)
	c.mu.Unlock()
	return nil
}

// BeginEnrollment moves from idle to enrolling. It requires that no profile exists.
func (c *Controller) BeginEnrollment() error {
	c.mu.Lock()
	if c.phase != PhaseIdle {
		c.mu.Unlock()
		return fmt.Errorf("%w: cannot enroll from %s", ErrInvalidTransition, c.phase)
	}
	if c.profile != nil {
		c.mu.Unlock()
		return ErrAlreadyEnrolled
	}
	c.phase = PhaseEnrolling
	c.mu.Unlock()

	c.notify(EventState)
	return nil
}

// BeginVerification moves from idle to verifying. It requires an enrolled face.
func (c *Controller) BeginVerification() error {
	return c.toVerifying(PhaseIdle)
}

// Retry moves from failed back to verifying.
func (c *Controller) Retry() error {
	return c.toVerifying(PhaseFailed)
}

func (c *Controller) toVerifying(from Phase) error {
	c.mu.Lock()
	if c.phase != from {
		c.mu.Unlock()
		return fmt.Errorf("%w: cannot verify from %s", ErrInvalidTransition, c.phase)
	}
	if !c.profile.HasFaceData() {
		c.mu.Unlock()
		return ErrNotEnrolled
	}
	c.phase = PhaseVerifying
	c.mu.Unlock()

	c.notify(EventState)
	return nil
}

// Cancel returns to idle from any phase, clears the last result and revokes
// the access token. A request still in flight is discarded when it completes.
func (c *Controller) Cancel() {
	c.mu.Lock()
	token := c.accessToken
	c.phase = PhaseIdle
	c.lastResult = nil
	c.accessToken = ""
	c.generation++
	c.mu.Unlock()

	if c.tokens != nil && token != "" {
		c.tokens.Revoke(token)
	}
	c.notify(EventState)
}

// ClearProfile deletes the enrolled profile, revokes every token issued for it and returns to idle.
func (c *Controller) ClearProfile(ctx context.Context) error {
	if err := c.store.DeleteProfile(ctx); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}

	c.mu.Lock()
	var subject string
	if c.profile != nil {
		subject = c.profile.ID
	}
	c.profile = nil
	c.phase = PhaseIdle
	c.lastResult = nil
	c.accessToken = ""
	c.generation++
	c.mu.Unlock()

	if c.tokens != nil {
		c.tokens.RevokeSubject(subject)
	}
	c.notify(EventProfile)
	return nil
}

// Capture submits a captured image for the current phase and applies the outcome.
// Only one capture runs at a time; a concurrent call gets ErrBusy.
func (c *Controller) Capture(ctx context.Context, image string) (result recognition.Result, err error) {
	if !c.processing.CompareAndSwap(false, true) {
		return recognition.Result{}, ErrBusy
	}
	event := EventState
	defer func() {
		c.processing.Store(false)
		c.notify(event)
	}()

	c.mu.Lock()
	phase := c.phase
	gen := c.generation
	var enrolled string
	switch phase {
	case PhaseEnrolling:
	case PhaseVerifying:
		if !c.profile.HasFaceData() {
			c.mu.Unlock()
			return recognition.Result{}, ErrNotEnrolled
		}
		enrolled = c.profile.EnrolledFaceData
	default:
		c.mu.Unlock()
		return recognition.Result{}, fmt.Errorf("%w: nothing to capture in %s", ErrInvalidTransition, phase)
	}
	c.lastResult = nil
	c.mu.Unlock()
	c.notify(EventState)

	if phase == PhaseEnrolling {
		result = c.recognizer.AnalyzeFace(ctx, image)
	} else {
		result = c.recognizer.VerifyIdentity(ctx, enrolled, image)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation != gen || c.phase != phase {
		log.Printf("Discarding %s result, flow was cancelled while pending", phase)
		return result, ErrDiscarded
	}

	if phase == PhaseEnrolling {
		result, event, err = c.applyEnrollment(ctx, image, result)
	} else {
		result, event, err = c.applyVerification(ctx, result)
	}
	return result, err
}

// applyEnrollment must be called with c.mu held.
func (c *Controller) applyEnrollment(ctx context.Context, image string, result recognition.Result) (recognition.Result, string, error) {
	success := result.Analysis != nil && result.Analysis.Liveness && result.Match
	logs := c.appendLog(c.logEntry(AttemptEnrollment, success, result.Confidence))

	if !success {
		if result.Message == "" {
			result.Message = EnrollmentFailureMessage
		}
		if err := c.store.SaveLogs(ctx, logs); err != nil {
			return result, EventState, fmt.Errorf("save logs: %w", err)
		}
		c.logs = logs
		c.lastResult = &result
		return result, EventResult, nil
	}

	profile := &UserProfile{
		ID:               c.newID(),
		Email:            c.policy.Email,
		EnrolledFaceData: image,
		EnrolledAt:       c.now().UnixMilli(),
	}
	if err := c.store.SaveProfile(ctx, profile); err != nil {
		return result, EventState, fmt.Errorf("save profile: %w", err)
	}
	if err := c.store.SaveLogs(ctx, logs); err != nil {
		log.Printf("Profile %s saved but logs were not: %v", profile.ID, err)
		return result, EventState, fmt.Errorf("save logs: %w", err)
	}

	result.Message = EnrollmentSuccessMessage
	c.profile = profile
	c.logs = logs
	c.lastResult = &result
	c.authenticate()
	log.Printf("Enrolled profile %s (confidence %.2f)", profile.ID, result.Confidence)
	return result, EventProfile, nil
}

// applyVerification must be called with c.mu held.
func (c *Controller) applyVerification(ctx context.Context, result recognition.Result) (recognition.Result, string, error) {
	success := result.Match && result.Confidence > c.policy.Threshold
	logs := c.appendLog(c.logEntry(AttemptVerification, success, result.Confidence))
	if err := c.store.SaveLogs(ctx, logs); err != nil {
		return result, EventState, fmt.Errorf("save logs: %w", err)
	}

	c.logs = logs
	c.lastResult = &result
	if success {
		c.authenticate()
	} else {
		c.phase = PhaseFailed
	}
	log.Printf("Verification match=%v confidence=%.2f threshold=%.2f: %s",
		result.Match, result.Confidence, c.policy.Threshold, c.phase)
	return result, EventResult, nil
}

// authenticate must be called with c.mu held.
func (c *Controller) authenticate() {
	c.phase = PhaseAuthenticated
	if c.tokens == nil || c.profile == nil {
		return
	}
	token, err := c.tokens.Issue(c.profile)
	if err != nil {
		log.Printf("Failed to issue access token: %v", err)
		return
	}
	c.accessToken = token
}

func (c *Controller) logEntry(kind AttemptType, success bool, confidence float64) LogEntry {
	return LogEntry{
		ID:         c.newID(),
		Timestamp:  c.now().UnixMilli(),
		Type:       kind,
		Success:    success,
		Confidence: confidence,
	}
}

// appendLog returns a new capped log with entry first. The current log is not modified.
func (c *Controller) appendLog(entry LogEntry) []LogEntry {
	logs := make([]LogEntry, 0, len(c.logs)+1)
	logs = append(logs, entry)
	logs = append(logs, c.logs...)
	return capLogs(logs, c.policy.LogCap)
}

func capLogs(logs []LogEntry, limit int) []LogEntry {
	if limit > 0 && len(logs) > limit {
		return logs[:limit]
	}
	return logs
}

// Snapshot returns a copy of the current state without the enrolled image.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		Phase:        c.phase,
		Logs:         append([]LogEntry{}, c.logs...),
		IsProcessing: c.processing.Load(),
	}
	if c.profile != nil {
		s.Profile = &ProfileSummary{
			ID:         c.profile.ID,
			Email:      c.profile.Email,
			EnrolledAt: c.profile.EnrolledAt,
			HasFace:    c.profile.HasFaceData(),
		}
	}
	if c.lastResult != nil {
		r := *c.lastResult
		s.LastResult = &r
	}
	if c.phase == PhaseAuthenticated {
		s.AccessToken = c.accessToken
	}
	return s
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Logs returns a copy of the attempt log, most recent first.
func (c *Controller) Logs() []LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]LogEntry{}, c.logs...)
}

// IsProcessing reports whether a capture is in flight.
func (c *Controller) IsProcessing() bool {
	return c.processing.Load()
}

func (c *Controller) notify(kind string) {
	c.SendEvent(Event{Type: kind, Snapshot: c.Snapshot()})
}
