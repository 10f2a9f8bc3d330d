package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"sync"
	"time"
)

// FileDevice serves a still image from disk as if it were a camera.
type FileDevice struct {
	Path string
}

func (d *FileDevice) Open(ctx context.Context, _ Options) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCameraInit, err)
	}
	data, err := os.ReadFile(d.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCameraInit, err)
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%w: %s is not a supported image: %v", ErrCameraInit, d.Path, err)
	}
	return &stillStream{data: data}, nil
}

type stillStream struct {
	mu     sync.Mutex
	data   []byte
	closed bool
}

func (s *stillStream) Snapshot(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStreamClosed
	}
	return &Frame{Data: s.data, CapturedAt: time.Now()}, nil
}

func (s *stillStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
