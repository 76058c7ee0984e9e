package services

import (
	"context"
	"image"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ewilliams-labs/vibecheck/internal/capture"
	"github.com/ewilliams-labs/vibecheck/internal/core/domain"
	"github.com/ewilliams-labs/vibecheck/internal/core/ports"
)

// CameraStatus describes the capture source for the camera view.
type CameraStatus struct {
	Ready   bool   `json:"ready"`
	Message string `json:"message,omitempty"`
	Kind    string `json:"kind,omitempty"`
}

// Session ties one camera to one state machine.
type Session struct {
	ID        string
	CreatedAt time.Time

	machine *Machine
	source  *capture.Source
	sink    ports.FrameSink
	logger  *zap.Logger

	captureMu sync.Mutex
	closeOnce sync.Once
	cancel    context.CancelFunc
}

// SessionConfig carries what a new session needs.
type SessionConfig struct {
	ID       string
	Camera   ports.RemoteCamera
	Queue    ports.AnalysisQueue
	Notifier ports.StateNotifier
	Capture  capture.Options
	Logger   *zap.Logger
	Now      func() time.Time
}

// NewSession builds a session. The camera is not opened until Start.
func NewSession(cfg SessionConfig) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("session", cfg.ID))
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	opts := cfg.Capture
	if opts.Logger == nil {
		opts.Logger = logger.Named("capture")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		ID:        cfg.ID,
		CreatedAt: now(),
		machine:   NewMachine(ctx, cfg.ID, cfg.Queue, cfg.Notifier, logger.Named("machine")),
		source:    capture.NewSource(cfg.Camera, opts),
		sink:      cfg.Camera,
		logger:    logger,
		cancel:    cancel,
	}
}

// Start opens the camera. A failure leaves the session usable, but the
// camera view shows the error and capture stays disabled.
func (s *Session) Start(ctx context.Context) error {
	if err := s.source.Start(ctx); err != nil {
		s.logger.Warn("camera unavailable", zap.Error(err))
		return err
	}
	return nil
}

// State returns the current session snapshot.
func (s *Session) State() domain.SessionState {
	return s.machine.State()
}

// Camera reports the capture source status.
func (s *Session) Camera() CameraStatus {
	ready := s.source.IsReady()
	err := s.source.Err()
	return CameraStatus{
		Ready:   ready,
		Message: capture.CameraMessage(err),
		Kind:    string(domain.KindOf(err)),
	}
}

// PushFrame forwards a preview frame from the browser.
func (s *Session) PushFrame(frame image.Image) error {
	return s.sink.PushFrame(frame)
}

// ReportCameraFailure records a device failure seen by the browser.
func (s *Session) ReportCameraFailure(err error) {
	s.sink.ReportFailure(err)
	s.logger.Warn("camera failure reported", zap.Error(err))
}

// Capture takes a snapshot and starts its analysis. The returned state is
// analyzing on success.
func (s *Session) Capture() (domain.SessionState, error) {
	s.captureMu.Lock()
	defer s.captureMu.Unlock()

	gen, err := s.machine.BeginCapture()
	if err != nil {
		return s.machine.State(), err
	}

	img, err := s.source.Capture()
	if err != nil {
		s.machine.AbortCapture(gen, err)
		return s.machine.State(), err
	}
	if err := s.machine.onCaptureAt(gen, img); err != nil {
		s.machine.AbortCapture(gen, err)
		return s.machine.State(), err
	}
	return s.machine.State(), nil
}

// Reset returns the session to idle.
func (s *Session) Reset() domain.SessionState {
	s.machine.OnReset()
	return s.machine.State()
}

// SelectSong highlights a playlist entry.
func (s *Session) SelectSong(index int) (domain.SessionState, error) {
	err := s.machine.OnSelectSong(index)
	return s.machine.State(), err
}

// Close cancels any analysis and releases the camera. Safe to call more
// than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.machine.OnReset()
		s.cancel()
		err = s.source.Close()
		s.logger.Info("session closed")
	})
	return err
}
