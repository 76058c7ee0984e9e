package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ewilliams-labs/vibecheck/internal/capture"
	"github.com/ewilliams-labs/vibecheck/internal/core/domain"
	"github.com/ewilliams-labs/vibecheck/internal/core/ports"
)

// SessionStore keeps live sessions. Delete must close the removed session.
type SessionStore interface {
	Put(s *Session)
	Get(id string) (*Session, bool)
	Delete(id string)
	Len() int
}

// Manager creates and looks up sessions.
type Manager struct {
	store     SessionStore
	queue     ports.AnalysisQueue
	notifier  ports.StateNotifier
	newCamera func() ports.RemoteCamera
	capture   capture.Options
	logger    *zap.Logger
}

// ManagerConfig wires a Manager.
type ManagerConfig struct {
	Store     SessionStore
	Queue     ports.AnalysisQueue
	Notifier  ports.StateNotifier
	NewCamera func() ports.RemoteCamera
	Capture   capture.Options
	Logger    *zap.Logger
}

// NewManager constructs a Manager.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Manager{
		store:     cfg.Store,
		queue:     cfg.Queue,
		notifier:  cfg.Notifier,
		newCamera: cfg.NewCamera,
		capture:   cfg.Capture,
		logger:    cfg.Logger,
	}
}

// Create starts a new session with its own camera stream.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	id := uuid.NewString()
	s := NewSession(SessionConfig{
		ID:       id,
		Camera:   m.newCamera(),
		Queue:    m.queue,
		Notifier: m.notifier,
		Capture:  m.capture,
		Logger:   m.logger,
	})
	if err := s.Start(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("service: start session: %w", err)
	}
	m.store.Put(s)
	m.logger.Info("session created", zap.String("session", id), zap.Int("live", m.store.Len()))
	return s, nil
}

// Get returns the session with id.
func (m *Manager) Get(id string) (*Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("service: session %q: %w", id, domain.ErrNotFound)
	}
	s, ok := m.store.Get(id)
	if !ok {
		return nil, fmt.Errorf("service: session %s: %w", id, domain.ErrNotFound)
	}
	return s, nil
}

// Close ends the session with id.
func (m *Manager) Close(id string) error {
	if _, err := m.Get(id); err != nil {
		return err
	}
	m.store.Delete(id)
	return nil
}
