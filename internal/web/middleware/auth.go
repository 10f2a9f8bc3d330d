package middleware

import (
	"context"
	"net/http"
)

type contextKey string

const (
	deviceContextKey    contextKey = "device"
	newDeviceContextKey contextKey = "new_device"
)

// Device is middleware that attaches the caller's device ID to the request context.
// Requests without a valid cookie are assigned a new device and receive a fresh cookie.
func Device(dm *DeviceManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			deviceID, ok := dm.DeviceFromRequest(r)
			ctx := r.Context()
			if !ok {
				deviceID = dm.NewDeviceID()
				dm.SetDeviceCookie(w, r, deviceID)
				ctx = context.WithValue(ctx, newDeviceContextKey, true)
			}

			ctx = context.WithValue(ctx, deviceContextKey, deviceID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetDeviceFromContext retrieves the device ID from the request context
func GetDeviceFromContext(ctx context.Context) string {
	deviceID, _ := ctx.Value(deviceContextKey).(string)
	return deviceID
}

// IsNewDevice reports whether the device was assigned by this request.
// Such a device has no persisted state yet.
func IsNewDevice(ctx context.Context) bool {
	isNew, _ := ctx.Value(newDeviceContextKey).(bool)
	return isNew
}

// SetDeviceInContext adds a device ID to the context.
// This is primarily for testing - use the Device middleware in production.
func SetDeviceInContext(ctx context.Context, deviceID string) context.Context {
	return context.WithValue(ctx, deviceContextKey, deviceID)
}
