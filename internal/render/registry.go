package render

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// DefaultSessionTTL bounds how long an abandoned session is kept.
const DefaultSessionTTL = 30 * time.Minute

// Registry tracks live sessions by key. Expired or ended sessions are closed.
type Registry struct {
	mu       sync.Mutex
	sessions *cache.Cache
	logger   *slog.Logger
}

func NewRegistry(ttl time.Duration, logger *slog.Logger) *Registry {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	r := &Registry{
		sessions: cache.New(ttl, ttl/2),
		logger:   logger,
	}
	r.sessions.OnEvicted(func(key string, v any) {
		if s, ok := v.(*Session); ok {
			s.Close()
			r.logger.Debug("render session released", "session_id", key)
		}
	})
	return r
}

// Begin starts a fresh session under key, closing any previous one.
func (r *Registry) Begin(key string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.sessions.Get(key); ok {
		v.(*Session).Close()
		r.logger.Debug("replacing render session", "session_id", key)
	}
	s := NewSession(key)
	r.sessions.Set(key, s, cache.DefaultExpiration)
	return s
}

// Start begins a session under a new random key.
func (r *Registry) Start() *Session {
	return r.Begin(uuid.NewString())
}

func (r *Registry) Lookup(key string) (*Session, bool) {
	v, ok := r.sessions.Get(key)
	if !ok {
		return nil, false
	}
	return v.(*Session), true
}

// End closes s and forgets it. A newer session that replaced s under the same
// key is left running.
func (r *Registry) End(s *Session) {
	if s == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.sessions.Get(s.ID()); ok && v.(*Session) == s {
		r.sessions.Delete(s.ID())
		return
	}
	s.Close()
}

func (r *Registry) Len() int {
	return r.sessions.ItemCount()
}
