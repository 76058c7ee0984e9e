// Package capture turns a live camera stream into single mirrored JPEG
// snapshots.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ewilliams-labs/vibecheck/internal/core/domain"
	"github.com/ewilliams-labs/vibecheck/internal/core/ports"
)

// Options tunes a Source. Zero values select the defaults.
type Options struct {
	Constraints ports.Constraints
	Quality     int
	MinBytes    int
	Logger      *zap.Logger
	Now         func() time.Time
}

// Source owns one camera stream for the lifetime of a session.
type Source struct {
	camera      ports.Camera
	constraints ports.Constraints
	quality     int
	minBytes    int
	logger      *zap.Logger
	now         func() time.Time

	mu     sync.Mutex
	stream ports.VideoStream
	ready  bool
	err    error
	closed bool
}

// NewSource wraps camera. Call Start before capturing and Close when done.
func NewSource(camera ports.Camera, opts Options) *Source {
	if opts.Constraints == (ports.Constraints{}) {
		opts.Constraints = ports.DefaultConstraints()
	}
	if opts.Quality <= 0 {
		opts.Quality = DefaultQuality
	}
	if opts.MinBytes <= 0 {
		opts.MinBytes = MinSnapshotBytes
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Source{
		camera:      camera,
		constraints: opts.Constraints,
		quality:     opts.Quality,
		minBytes:    opts.MinBytes,
		logger:      opts.Logger,
		now:         opts.Now,
	}
}

// Start opens the camera stream. On failure the source stays unusable and
// Message describes the problem.
func (s *Source) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("capture: source closed: %w", domain.ErrDeviceUnavailable)
	}
	if s.stream != nil {
		return nil
	}

	stream, err := s.camera.Open(ctx, s.constraints)
	if err != nil {
		s.err = classify(err)
		s.logger.Warn("camera open failed", zap.Error(err))
		return s.err
	}
	s.stream = stream
	s.err = nil
	return nil
}

// IsReady reports whether the stream has delivered a frame with non-zero
// dimensions.
func (s *Source) IsReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.observeLocked()
	return err == nil && s.ready
}

// Capture snapshots the current frame: mirrored, JPEG encoded, and checked
// against MinBytes.
func (s *Source) Capture() (domain.CapturedImage, error) {
	s.mu.Lock()
	frame, err := s.observeLocked()
	ready := s.ready
	s.mu.Unlock()

	if err != nil {
		return domain.CapturedImage{}, err
	}
	if !ready || frame == nil {
		return domain.CapturedImage{}, fmt.Errorf("capture: %w", domain.ErrNotReady)
	}

	mirrored := Mirror(frame)
	data, err := Encode(mirrored, s.quality)
	if err != nil {
		return domain.CapturedImage{}, err
	}
	if len(data) < s.minBytes {
		s.logger.Warn("snapshot too small, retry capture", zap.Int("bytes", len(data)))
		return domain.CapturedImage{}, fmt.Errorf("capture: snapshot is %d bytes: %w", len(data), domain.ErrEmptyFrame)
	}

	b := mirrored.Bounds()
	return domain.CapturedImage{
		Data:       data,
		MIMEType:   domain.MIMETypeJPEG,
		Width:      b.Dx(),
		Height:     b.Dy(),
		CapturedAt: s.now(),
	}, nil
}

// Err returns the camera failure, if any.
func (s *Source) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Message is the user-facing description of the camera failure, or "".
func (s *Source) Message() string {
	return CameraMessage(s.Err())
}

// Close stops the stream. It is safe to call more than once.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.ready = false
	if s.stream != nil {
		s.stream.Stop()
		s.stream = nil
	}
	return nil
}

// observeLocked samples the stream and updates readiness. Callers hold s.mu.
func (s *Source) observeLocked() (image.Image, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.closed || s.stream == nil {
		return nil, fmt.Errorf("capture: no open stream: %w", domain.ErrNotReady)
	}

	frame, err := s.stream.Frame()
	if err != nil {
		s.err = classify(err)
		s.ready = false
		s.logger.Warn("camera stream failed", zap.Error(err))
		return nil, s.err
	}
	if frame != nil && !frame.Bounds().Empty() {
		s.ready = true
		return frame, nil
	}
	return nil, nil
}

// CameraMessage maps a camera error to the text shown in the camera view.
func CameraMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrPermissionDenied):
		return "Unable to access camera. Please allow permissions."
	default:
		return "No camera was found on this device."
	}
}

func classify(err error) error {
	if errors.Is(err, domain.ErrPermissionDenied) || errors.Is(err, domain.ErrDeviceUnavailable) {
		return err
	}
	return fmt.Errorf("capture: %v: %w", err, domain.ErrDeviceUnavailable)
}
