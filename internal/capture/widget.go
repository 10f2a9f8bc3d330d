package capture

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
)

// Widget owns a camera for the lifetime of one capture screen.
// Mount acquires the device, Capture takes one frame at a time and Unmount releases it.
// Run scopes the same lifecycle to a function.
type Widget struct {
	device Device
	opts   Options

	mu     sync.Mutex
	stream Stream
	err    error

	processing atomic.Bool
}

func NewWidget(device Device, opts Options) *Widget {
	return &Widget{device: device, opts: opts.withDefaults()}
}

// Mount acquires the camera. A failure is terminal until Unmount and a new Mount.
func (w *Widget) Mount(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.err != nil {
		return w.err
	}
	if w.stream != nil {
		return nil
	}

	stream, err := w.device.Open(ctx, w.opts)
	if err != nil {
		return w.failLocked(err)
	}
	w.stream = stream
	return nil
}

// Run holds the camera only while fn runs. The device is released on every
// exit path of fn, including errors, panics and cancellation.
func (w *Widget) Run(ctx context.Context, fn func() error) error {
	if err := w.Err(); err != nil {
		return err
	}

	w.mu.Lock()
	mounted := w.stream != nil
	w.mu.Unlock()
	if mounted {
		return ErrAlreadyMounted
	}

	acquired := false
	err := Use(ctx, w.device, w.opts, func(stream Stream) error {
		acquired = true
		w.mu.Lock()
		w.stream = stream
		w.mu.Unlock()
		defer func() {
			w.mu.Lock()
			w.stream = nil
			w.mu.Unlock()
		}()
		return fn()
	})
	if err != nil && !acquired {
		w.mu.Lock()
		defer w.mu.Unlock()
		return w.failLocked(err)
	}
	return err
}

// failLocked records an acquisition failure. It must be called with w.mu held.
func (w *Widget) failLocked(err error) error {
	if !errors.Is(err, ErrCameraInit) {
		err = fmt.Errorf("%w: %v", ErrCameraInit, err)
	}
	log.Printf("Camera access denied: %v", err)
	w.err = err
	return err
}

// Err returns the acquisition error, if any.
func (w *Widget) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Capture snapshots a frame and hands its data URL to onCapture.
// The widget stays busy until onCapture returns.
func (w *Widget) Capture(ctx context.Context, onCapture func(ctx context.Context, dataURL string) error) error {
	w.mu.Lock()
	stream, err := w.stream, w.err
	w.mu.Unlock()
	if err != nil {
		return err
	}
	if stream == nil {
		return ErrNotMounted
	}

	if !w.processing.CompareAndSwap(false, true) {
		return ErrProcessing
	}
	defer w.processing.Store(false)

	frame, err := stream.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to capture frame: %w", err)
	}
	dataURL, err := frame.DataURL()
	if err != nil {
		return err
	}
	return onCapture(ctx, dataURL)
}

// Unmount releases the camera and clears any acquisition error.
func (w *Widget) Unmount() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.err = nil
	if w.stream == nil {
		return nil
	}
	err := w.stream.Close()
	w.stream = nil
	return err
}
