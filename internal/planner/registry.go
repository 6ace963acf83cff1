package planner

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
)

// Registry keeps the most recently used sessions. An evicted session is closed,
// which cancels its in-flight image fetches.
type Registry struct {
	opts SessionOptions

	mu       sync.Mutex
	sessions *lru.Cache[string, *Session]
}

func NewRegistry(size int, opts SessionOptions) (*Registry, error) {
	sessions, err := lru.NewWithEvict(size, func(id string, s *Session) {
		log.Info().Str("session_id", id).Msg("session evicted")
		go s.Close()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session registry: %w", err)
	}
	return &Registry{opts: opts, sessions: sessions}, nil
}

// Get returns the session for id, creating it when id is empty or unknown.
// The returned session's ID is the one the client must keep.
func (r *Registry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id != "" {
		if s, ok := r.sessions.Get(id); ok {
			return s
		}
	}
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	s := NewSession(id, r.opts)
	r.sessions.Add(id, s)
	return s
}

// Lookup returns an existing session without creating one.
func (r *Registry) Lookup(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions.Get(id)
}

func (r *Registry) Len() int {
	return r.sessions.Len()
}

// Close closes every session.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.sessions.Keys() {
		if s, ok := r.sessions.Peek(id); ok {
			s.Close()
		}
	}
	r.sessions.Purge()
}
