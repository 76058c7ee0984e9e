package services

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ewilliams-labs/vibecheck/internal/core/domain"
	"github.com/ewilliams-labs/vibecheck/internal/core/ports"
)

// Machine owns the SessionState of one session. Every change goes through
// one of its transitions and is published to the notifier.
//
// Each accepted capture and each reset bumps Generation. An analysis
// completes only if its generation is still current, so a reset while
// analyzing discards the late reply and cancels the request.
type Machine struct {
	id       string
	queue    ports.AnalysisQueue
	notifier ports.StateNotifier
	logger   *zap.Logger
	base     context.Context

	mu     sync.Mutex
	state  domain.SessionState
	cancel context.CancelFunc
}

// NewMachine returns a machine in the idle state. Analyses run under
// contexts derived from base.
func NewMachine(base context.Context, id string, queue ports.AnalysisQueue, notifier ports.StateNotifier, logger *zap.Logger) *Machine {
	if base == nil {
		base = context.Background()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{
		id:       id,
		queue:    queue,
		notifier: notifier,
		logger:   logger,
		base:     base,
		state:    domain.IdleState(0),
	}
}

// State returns a copy of the current snapshot.
func (m *Machine) State() domain.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return snapshot(m.state)
}

// BeginCapture moves idle to capturing and returns the generation the
// snapshot belongs to.
func (m *Machine) BeginCapture() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkCanCaptureLocked(); err != nil {
		return 0, err
	}
	if m.state.Phase == domain.PhaseCapturing {
		return 0, fmt.Errorf("service: snapshot already being taken: %w", domain.ErrAnalysisInFlight)
	}
	m.state.Phase = domain.PhaseCapturing
	m.publishLocked()
	return m.state.Generation, nil
}

// AbortCapture returns to idle after a failed snapshot.
func (m *Machine) AbortCapture(gen uint64, cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Phase != domain.PhaseCapturing || m.state.Generation != gen {
		return
	}
	m.logger.Info("capture aborted", zap.Error(cause))
	m.state = domain.IdleState(m.state.Generation)
	m.publishLocked()
}

// OnCapture records img and starts its analysis.
func (m *Machine) OnCapture(img domain.CapturedImage) error {
	m.mu.Lock()
	gen := m.state.Generation
	m.mu.Unlock()
	return m.onCaptureAt(gen, img)
}

func (m *Machine) onCaptureAt(gen uint64, img domain.CapturedImage) error {
	if len(img.Data) == 0 {
		return fmt.Errorf("service: %w", domain.ErrEmptyFrame)
	}

	m.mu.Lock()
	if err := m.checkCanCaptureLocked(); err != nil {
		m.mu.Unlock()
		return err
	}
	if m.state.Generation != gen {
		m.mu.Unlock()
		return fmt.Errorf("service: capture superseded by reset: %w", domain.ErrInvalidTransition)
	}

	if m.cancel != nil {
		m.cancel()
	}
	ctx, cancel := context.WithCancel(m.base)
	m.cancel = cancel

	stored := img
	m.state = domain.SessionState{
		Phase:      domain.PhaseAnalyzing,
		Image:      &stored,
		Selected:   domain.NoSelection,
		Generation: m.state.Generation + 1,
	}
	next := m.state.Generation
	m.publishLocked()
	m.mu.Unlock()

	err := m.queue.Submit(ports.AnalysisRequest{
		Ctx:        ctx,
		SessionID:  m.id,
		Generation: next,
		Image:      img,
		Done: func(result domain.AnalysisResult, err error) {
			m.complete(next, result, err)
		},
	})
	if err != nil {
		m.complete(next, domain.AnalysisResult{}, err)
	}
	return nil
}

// complete applies an analysis outcome if it is still current.
func (m *Machine) complete(gen uint64, result domain.AnalysisResult, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.state.Generation || m.state.Phase != domain.PhaseAnalyzing {
		m.logger.Debug("discarding stale analysis",
			zap.Uint64("generation", gen),
			zap.Uint64("current", m.state.Generation),
			zap.Error(err),
		)
		return
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}

	if err == nil && len(result.Playlist) == 0 {
		err = fmt.Errorf("service: analysis returned no songs: %w", domain.ErrMalformedResponse)
	}
	if err != nil {
		m.logger.Warn("analysis failed",
			zap.Uint64("generation", gen),
			zap.String("kind", string(domain.KindOf(err))),
			zap.Error(err),
		)
		m.state = domain.SessionState{
			Phase:      domain.PhaseError,
			Error:      domain.AnalysisFailedMessage,
			Selected:   domain.NoSelection,
			Generation: gen,
		}
		m.publishLocked()
		return
	}

	res := result.Clone()
	m.state.Phase = domain.PhaseResults
	m.state.Result = &res
	m.state.Selected = domain.NoSelection
	m.publishLocked()
}

// OnReset returns to idle from any phase. Repeated calls are harmless.
func (m *Machine) OnReset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.state = domain.IdleState(m.state.Generation + 1)
	m.publishLocked()
}

// OnSelectSong highlights the playlist entry at index.
func (m *Machine) OnSelectSong(index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Phase != domain.PhaseResults || m.state.Result == nil {
		return fmt.Errorf("service: select song in %s: %w", m.state.Phase, domain.ErrInvalidTransition)
	}
	if index < 0 || index >= len(m.state.Result.Playlist) {
		return fmt.Errorf("service: song %d of %d: %w", index, len(m.state.Result.Playlist), domain.ErrNoSelection)
	}
	m.state.Selected = index
	m.publishLocked()
	return nil
}

func (m *Machine) checkCanCaptureLocked() error {
	switch m.state.Phase {
	case domain.PhaseIdle, domain.PhaseCapturing:
		return nil
	case domain.PhaseAnalyzing:
		return fmt.Errorf("service: %w", domain.ErrAnalysisInFlight)
	default:
		return fmt.Errorf("service: capture in %s requires reset: %w", m.state.Phase, domain.ErrInvalidTransition)
	}
}

func (m *Machine) publishLocked() {
	if m.notifier == nil {
		return
	}
	m.notifier.StateChanged(m.id, snapshot(m.state))
}

func snapshot(s domain.SessionState) domain.SessionState {
	out := s
	if s.Result != nil {
		r := s.Result.Clone()
		out.Result = &r
	}
	return out
}
