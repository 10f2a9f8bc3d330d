package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/kozaktomas/visionauth/internal/constants"
)

// DeviceManager issues and verifies the signed cookie that identifies a browser.
// Every device gets its own profile namespace, so two browsers never share an identity.
type DeviceManager struct {
	secret []byte
}

// NewDeviceManager creates a new device manager
func NewDeviceManager(secret string) *DeviceManager {
	// Use a default secret if none provided (for development)
	if secret == "" {
		secret = constants.DevSecret
	}
	return &DeviceManager{secret: []byte(secret)}
}

// NewDeviceID generates a fresh device identifier.
func (dm *DeviceManager) NewDeviceID() string {
	return uuid.NewString()
}

// SetDeviceCookie sets the signed device cookie on the response
func (dm *DeviceManager) SetDeviceCookie(w http.ResponseWriter, r *http.Request, deviceID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     constants.DeviceCookieName,
		Value:    deviceID + "." + dm.signData(deviceID),
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(constants.DeviceCookieMaxAge.Seconds()),
	})
}

// DeviceFromRequest returns the device ID carried by a validly signed cookie.
func (dm *DeviceManager) DeviceFromRequest(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(constants.DeviceCookieName)
	if err != nil {
		return "", false
	}
	deviceID, signature, ok := strings.Cut(cookie.Value, ".")
	if !ok || !dm.verifySignature(deviceID, signature) {
		return "", false
	}
	if _, err := uuid.Parse(deviceID); err != nil {
		return "", false
	}
	return deviceID, true
}

// signData creates an HMAC signature for data
func (dm *DeviceManager) signData(data string) string {
	h := hmac.New(sha256.New, dm.secret)
	h.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// verifySignature verifies an HMAC signature
func (dm *DeviceManager) verifySignature(data, signature string) bool {
	expected := dm.signData(data)
	return hmac.Equal([]byte(signature), []byte(expected))
}
