// Package camera provides a remote camera fed by frames the browser streams
// over the wire.
package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/ewilliams-labs/vibecheck/internal/core/domain"
	"github.com/ewilliams-labs/vibecheck/internal/core/ports"
)

var (
	_ ports.RemoteCamera = (*Feed)(nil)
	_ ports.VideoStream  = (*feedStream)(nil)
)

// Feed is a single-stream camera. The browser owns the hardware; the feed
// keeps the latest preview frame it pushed.
type Feed struct {
	mu          sync.Mutex
	opened      bool
	stopped     bool
	frame       image.Image
	frames      uint64
	failure     error
	constraints ports.Constraints
}

// NewFeed returns a feed with no frames yet.
func NewFeed() *Feed {
	return &Feed{}
}

// Open starts the stream. A failure reported before Open is returned here.
func (f *Feed) Open(ctx context.Context, c ports.Constraints) (ports.VideoStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("camera: open: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failure != nil {
		return nil, f.failure
	}
	if f.opened {
		return nil, fmt.Errorf("camera: stream already open: %w", domain.ErrDeviceUnavailable)
	}
	f.opened = true
	f.constraints = c
	return &feedStream{feed: f}, nil
}

// PushFrame replaces the latest frame.
func (f *Feed) PushFrame(frame image.Image) error {
	if frame == nil || frame.Bounds().Empty() {
		return fmt.Errorf("camera: %w", domain.ErrEmptyFrame)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.opened || f.stopped {
		return fmt.Errorf("camera: no open stream: %w", domain.ErrNotReady)
	}
	f.frame = frame
	f.frames++
	return nil
}

// ReportFailure records a device failure seen by the browser. Errors that
// are neither permission nor availability problems count as unavailable.
func (f *Feed) ReportFailure(err error) {
	if err == nil {
		return
	}
	if !errors.Is(err, domain.ErrPermissionDenied) && !errors.Is(err, domain.ErrDeviceUnavailable) {
		err = fmt.Errorf("camera: %v: %w", err, domain.ErrDeviceUnavailable)
	}

	f.mu.Lock()
	f.failure = err
	f.frame = nil
	f.mu.Unlock()
}

// Constraints returns what the stream was opened with.
func (f *Feed) Constraints() ports.Constraints {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.constraints
}

// Frames counts frames pushed so far.
func (f *Feed) Frames() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frames
}

// Stopped reports whether the stream has been released.
func (f *Feed) Stopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

type feedStream struct {
	feed *Feed
}

func (s *feedStream) Frame() (image.Image, error) {
	f := s.feed
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failure != nil {
		return nil, f.failure
	}
	if f.stopped {
		return nil, fmt.Errorf("camera: stream stopped: %w", domain.ErrDeviceUnavailable)
	}
	return f.frame, nil
}

func (s *feedStream) Stop() {
	f := s.feed
	f.mu.Lock()
	f.stopped = true
	f.frame = nil
	f.mu.Unlock()
}

// FailureFromCode maps a browser media error code to a domain error.
// Codes follow the DOMException names getUserMedia rejects with.
func FailureFromCode(code, message string) error {
	detail := strings.TrimSpace(message)
	if detail == "" {
		detail = code
	}
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "notallowederror", "securityerror", "permission_denied":
		return fmt.Errorf("camera: %s: %w", detail, domain.ErrPermissionDenied)
	default:
		return fmt.Errorf("camera: %s: %w", detail, domain.ErrDeviceUnavailable)
	}
}
