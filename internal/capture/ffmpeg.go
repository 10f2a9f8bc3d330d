package capture

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

const maxFrameSize = 16 << 20

// splitJPEG is a bufio.SplitFunc yielding complete JPEG images delimited by SOI/EOI markers.
func splitJPEG(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	start := bytes.Index(data, jpegSOI)
	if start == -1 {
		// Keep the last byte, it may be the first half of a marker.
		if len(data) > 1 {
			return len(data) - 1, nil, nil
		}
		return 0, nil, nil
	}
	end := bytes.Index(data[start+len(jpegSOI):], jpegEOI)
	if end == -1 {
		return start, nil, nil
	}
	stop := start + len(jpegSOI) + end + len(jpegEOI)
	return stop, data[start:stop], nil
}

// FFmpegDevice reads a camera through ffmpeg, which emits MJPEG frames on stdout.
type FFmpegDevice struct {
	Path   string // e.g. /dev/video0, or "0" for avfoundation
	Format string // ffmpeg input format (v4l2, avfoundation, dshow)
	Binary string // defaults to ffmpeg
}

func (d *FFmpegDevice) args(opts Options) []string {
	args := []string{"-hide_banner", "-loglevel", "error"}
	if d.Format != "" {
		args = append(args, "-f", d.Format)
	}
	args = append(args,
		"-video_size", fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"-i", d.Path,
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-",
	)
	return args
}

// Open starts ffmpeg and waits for the first frame. Any failure before that is ErrCameraInit.
func (d *FFmpegDevice) Open(ctx context.Context, opts Options) (Stream, error) {
	opts = opts.withDefaults()
	binary := d.Binary
	if binary == "" {
		binary = "ffmpeg"
	}

	cmd := exec.Command(binary, d.args(opts)...)
	cmd.WaitDelay = time.Second
	stderr := &limitedBuffer{max: 4096}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCameraInit, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCameraInit, err)
	}

	s := &ffmpegStream{
		cmd:   cmd,
		first: make(chan struct{}),
		done:  make(chan struct{}),
	}
	go func() {
		s.read(stdout)
		s.waitErr = cmd.Wait()
		close(s.done)
	}()

	select {
	case <-s.first:
		log.Printf("Camera %s acquired (%dx%d)", d.Path, opts.Width, opts.Height)
		return s, nil
	case <-s.done:
		msg := strings.TrimSpace(stderr.String())
		if msg == "" && s.waitErr != nil {
			msg = s.waitErr.Error()
		}
		return nil, fmt.Errorf("%w: ffmpeg exited: %s", ErrCameraInit, msg)
	case <-ctx.Done():
		s.Close()
		return nil, fmt.Errorf("%w: %v", ErrCameraInit, ctx.Err())
	}
}

type ffmpegStream struct {
	cmd *exec.Cmd

	mu     sync.Mutex
	latest *Frame
	closed bool

	first     chan struct{}
	firstOnce sync.Once
	done      chan struct{}
	waitErr   error
}

func (s *ffmpegStream) read(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxFrameSize)
	scanner.Split(splitJPEG)
	for scanner.Scan() {
		data := bytes.Clone(scanner.Bytes())
		s.mu.Lock()
		s.latest = &Frame{Data: data, CapturedAt: time.Now()}
		s.mu.Unlock()
		s.firstOnce.Do(func() { close(s.first) })
	}
	if err := scanner.Err(); err != nil {
		log.Printf("Camera stream read error: %v", err)
	}
}

// Snapshot returns the most recent frame.
func (s *ffmpegStream) Snapshot(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStreamClosed
	}
	select {
	case <-s.done:
		return nil, fmt.Errorf("camera stopped: %v", s.waitErr)
	default:
	}
	frame := *s.latest
	return &frame, nil
}

// Close stops ffmpeg and releases the device. It is safe to call more than once.
func (s *ffmpegStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to stop ffmpeg: %w", err)
	}
	<-s.done
	return nil
}

// limitedBuffer keeps the first max bytes written to it.
type limitedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	max int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room := b.max - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
