package ports

import "github.com/ewilliams-labs/vibecheck/internal/core/domain"

// StateNotifier is told about every session transition.
type StateNotifier interface {
	StateChanged(sessionID string, state domain.SessionState)
}
