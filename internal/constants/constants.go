// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Storage keys
const (
	// ProfileKey stores the enrolled user profile
	ProfileKey = "demo_user"

	// LogsKey stores the capped authentication log
	LogsKey = "auth_logs"
)

// Image constants
const (
	// MaxImageSize is the maximum dimension (width or height) of images sent to the model
	MaxImageSize = 1024

	// MaxCaptureBodySize is the maximum size of a capture request body (10MB)
	MaxCaptureBodySize = 10 << 20
)

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for event channels
	EventChannelBuffer = 16

	// SSEKeepAliveInterval is how often an idle event stream sends a comment line
	SSEKeepAliveInterval = 30 * time.Second
)

// Device cookie constants
const (
	// DeviceCookieName identifies the browser profile a controller belongs to
	DeviceCookieName = "visionauth_device"

	// DeviceCookieMaxAge is how long a device cookie stays valid
	DeviceCookieMaxAge = 365 * 24 * time.Hour

	// DevSecret signs cookies and tokens when WEB_SECRET is unset (development only)
	DevSecret = "visionauth-dev-secret-change-in-production"
)

// Server constants
const (
	// RequestTimeout bounds ordinary API requests; captures wait for the model instead
	RequestTimeout = 60 * time.Second

	// ShutdownTimeout is the grace period for in-flight requests on shutdown
	ShutdownTimeout = 30 * time.Second
)

// Registry constants
const (
	// RegistrySweepInterval is how often idle device controllers are dropped from memory
	RegistrySweepInterval = time.Minute
)
