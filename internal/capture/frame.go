package capture

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"time"

	_ "golang.org/x/image/bmp"
)

// Facing modes understood by devices that have more than one camera.
const (
	FacingUser        = "user"
	FacingEnvironment = "environment"
)

// JPEGQuality is used when re-encoding frames for upload.
const JPEGQuality = 90

// Options describes the requested video constraints.
type Options struct {
	Width      int
	Height     int
	FacingMode string
}

// DefaultOptions requests a 1280x720 front-facing camera.
func DefaultOptions() Options {
	return Options{Width: 1280, Height: 720, FacingMode: FacingUser}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Width <= 0 || o.Height <= 0 {
		o.Width, o.Height = d.Width, d.Height
	}
	if o.FacingMode == "" {
		o.FacingMode = d.FacingMode
	}
	return o
}

// Frame is one still image taken from a stream.
type Frame struct {
	Data       []byte // encoded image as produced by the device
	CapturedAt time.Time
}

// DataURL re-encodes the frame as JPEG and returns it as a base64 data URL.
func (f *Frame) DataURL() (string, error) {
	img, _, err := image.Decode(bytes.NewReader(f.Data))
	if err != nil {
		return "", fmt.Errorf("failed to decode frame: %w", err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return "", fmt.Errorf("failed to encode frame: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Size returns the frame dimensions without decoding the full image.
func (f *Frame) Size() (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(f.Data))
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
