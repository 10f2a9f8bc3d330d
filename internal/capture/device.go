// Package capture acquires a camera and turns still frames into image data URLs.
package capture

import (
	"context"
	"errors"
)

var (
	// ErrCameraInit is returned when the video device cannot be acquired.
	// The widget stays in this state until it is remounted.
	ErrCameraInit = errors.New("CAMERA_INIT_FAILURE")
	// ErrProcessing is returned when a capture is requested while a previous one is pending.
	ErrProcessing = errors.New("capture already in progress")
	// ErrNotMounted is returned when capturing from a widget without an open stream.
	ErrNotMounted = errors.New("camera not mounted")
	// ErrAlreadyMounted is returned by Run when the widget already holds the device.
	ErrAlreadyMounted = errors.New("camera already mounted")
	// ErrStreamClosed is returned by a stream after Close.
	ErrStreamClosed = errors.New("stream closed")
)

// Device is a source of video streams.
type Device interface {
	Open(ctx context.Context, opts Options) (Stream, error)
}

// Stream is an acquired device. Close releases the underlying hardware.
type Stream interface {
	Snapshot(ctx context.Context) (*Frame, error)
	Close() error
}

// Use opens dev, runs fn with the stream and always releases it afterwards,
// including when fn fails, panics or ctx is cancelled.
func Use(ctx context.Context, dev Device, opts Options, fn func(Stream) error) (err error) {
	stream, err := dev.Open(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stream.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(stream)
}
