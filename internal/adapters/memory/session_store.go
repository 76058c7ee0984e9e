// Package memory keeps live sessions in process memory with idle expiry.
package memory

import (
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/ewilliams-labs/vibecheck/internal/core/services"
)

var _ services.SessionStore = (*SessionStore)(nil)

// SessionStore expires sessions after ttl without access. Expired and
// deleted sessions are closed.
type SessionStore struct {
	cache  *cache.Cache
	logger *zap.Logger
}

// NewSessionStore creates a store. Expired entries are purged every
// cleanup interval.
func NewSessionStore(ttl, cleanup time.Duration, logger *zap.Logger) *SessionStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if cleanup <= 0 {
		cleanup = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := cache.New(ttl, cleanup)
	r := &SessionStore{cache: c, logger: logger}
	c.OnEvicted(r.evicted)
	return r
}

func (r *SessionStore) Put(s *services.Session) {
	r.cache.Set(s.ID, s, cache.DefaultExpiration)
}

// Get returns the session and restarts its expiry clock.
func (r *SessionStore) Get(id string) (*services.Session, bool) {
	x, found := r.cache.Get(id)
	if !found {
		return nil, false
	}
	s := x.(*services.Session)
	r.cache.Set(id, s, cache.DefaultExpiration)
	return s, true
}

func (r *SessionStore) Delete(id string) {
	r.cache.Delete(id)
}

func (r *SessionStore) Len() int {
	return r.cache.ItemCount()
}

// Purge removes expired sessions now instead of waiting for the janitor.
func (r *SessionStore) Purge() {
	r.cache.DeleteExpired()
}

// Close closes every remaining session.
func (r *SessionStore) Close() {
	for id := range r.cache.Items() {
		r.cache.Delete(id)
	}
}

func (r *SessionStore) evicted(id string, v interface{}) {
	s, ok := v.(*services.Session)
	if !ok {
		return
	}
	if err := s.Close(); err != nil {
		r.logger.Warn("closing evicted session", zap.String("session", id), zap.Error(err))
		return
	}
	r.logger.Info("session evicted", zap.String("session", id))
}
