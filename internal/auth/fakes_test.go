package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kozaktomas/visionauth/internal/recognition"
)

type memoryStore struct {
	mu      sync.Mutex
	profile *UserProfile
	logs    []LogEntry

	saveProfileErr error
	saveLogsErr    error
	deleteErr      error
	loadErr        error

	profileSaves int
	logSaves     int
}

func (s *memoryStore) LoadProfile(context.Context) (*UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.profile == nil {
		return nil, nil
	}
	p := *s.profile
	return &p, nil
}

func (s *memoryStore) SaveProfile(_ context.Context, p *UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveProfileErr != nil {
		return s.saveProfileErr
	}
	cp := *p
	s.profile = &cp
	s.profileSaves++
	return nil
}

func (s *memoryStore) DeleteProfile(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.profile = nil
	return nil
}

func (s *memoryStore) LoadLogs(context.Context) ([]LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]LogEntry(nil), s.logs...), nil
}

func (s *memoryStore) SaveLogs(_ context.Context, logs []LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveLogsErr != nil {
		return s.saveLogsErr
	}
	s.logs = append([]LogEntry(nil), logs...)
	s.logSaves++
	return nil
}

// scriptedRecognizer returns fixed results and can block until released.
type scriptedRecognizer struct {
	mu       sync.Mutex
	analysis recognition.Result
	compare  recognition.Result

	started chan struct{}
	release chan struct{}

	analyzeCalls int
	verifyCalls  int
	lastEnrolled string
	lastCurrent  string
}

func (r *scriptedRecognizer) wait() {
	if r.started != nil {
		r.started <- struct{}{}
	}
	if r.release != nil {
		<-r.release
	}
}

func (r *scriptedRecognizer) AnalyzeFace(_ context.Context, image string) recognition.Result {
	r.mu.Lock()
	r.analyzeCalls++
	res := r.analysis
	r.mu.Unlock()
	r.wait()
	return res
}

func (r *scriptedRecognizer) VerifyIdentity(_ context.Context, enrolled, current string) recognition.Result {
	r.mu.Lock()
	r.verifyCalls++
	r.lastEnrolled = enrolled
	r.lastCurrent = current
	res := r.compare
	r.mu.Unlock()
	r.wait()
	return res
}

func goodEnrollment() recognition.Result {
	return recognition.Result{
		Match:      true,
		Confidence: 0.96,
		Message:    "Clear, well lit face",
		Analysis:   &recognition.Analysis{Liveness: true, Lighting: "good", Focus: "sharp"},
	}
}

var testPolicy = Policy{Threshold: 0.85, LogCap: 10, Email: "demo@visionauth.io"}

func fixedClock() func() time.Time {
	t := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return func() time.Time { return t }
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newTestController(store *memoryStore, rec *scriptedRecognizer, opts ...Option) *Controller {
	opts = append([]Option{WithClock(fixedClock()), WithIDGenerator(sequentialIDs())}, opts...)
	return NewController(store, rec, testPolicy, opts...)
}

const (
	enrollImage = "data:image/jpeg;base64,ZW5yb2xs"
	liveImage   = "data:image/jpeg;base64,bGl2ZQ=="
)

func enrolledStore() *memoryStore {
	return &memoryStore{profile: &UserProfile{
		ID:               "existing",
		Email:            "demo@visionauth.io",
		EnrolledFaceData: enrollImage,
		EnrolledAt:       1,
	}}
}
