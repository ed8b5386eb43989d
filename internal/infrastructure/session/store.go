package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tradewise/trade-data-assistant/internal/core/domain"
)

type sessionState struct {
	mu         sync.Mutex
	turns      []domain.Turn
	lastActive time.Time
}

// Store keeps conversation history in process memory. One mutex per
// session serializes turns; the store mutex only guards the map itself.
// A janitor evicts idle sessions, skipping any session whose turn mutex
// is held so an in-flight request is never interrupted.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*sessionState
	ttl      time.Duration
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{
		sessions: make(map[string]*sessionState),
		ttl:      ttl,
	}
}

// Acquire locks the session for one turn, creating it on first contact.
// The returned release func must be called when the turn completes.
func (s *Store) Acquire(sessionID string) func() {
	s.mu.Lock()
	state, ok := s.sessions[sessionID]
	if !ok {
		state = &sessionState{}
		s.sessions[sessionID] = state
	}
	state.lastActive = time.Now()
	s.mu.Unlock()

	state.mu.Lock()
	return func() {
		state.mu.Unlock()
	}
}

// History returns the last n turns in chronological order. Safe only for
// the holder of the session's acquire.
func (s *Store) History(sessionID string, n int) []domain.Turn {
	s.mu.Lock()
	state, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok || n <= 0 {
		return nil
	}

	turns := state.turns
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	out := make([]domain.Turn, len(turns))
	copy(out, turns)
	return out
}

// AppendTurn records a completed turn. Safe only for the holder of the
// session's acquire.
func (s *Store) AppendTurn(sessionID string, turn domain.Turn) {
	s.mu.Lock()
	state, ok := s.sessions[sessionID]
	if !ok {
		state = &sessionState{}
		s.sessions[sessionID] = state
	}
	state.lastActive = time.Now()
	s.mu.Unlock()

	state.turns = append(state.turns, turn)
}

func (s *Store) LastTurnAt(sessionID string) (time.Time, bool) {
	s.mu.Lock()
	state, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok || len(state.turns) == 0 {
		return time.Time{}, false
	}
	return state.turns[len(state.turns)-1].CreatedAt, true
}

// StartJanitor evicts idle sessions until ctx is canceled.
func (s *Store) StartJanitor(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				evicted := s.evictIdle(time.Now())
				if evicted > 0 && logger != nil {
					logger.Debug("sessions_evicted", "count", evicted)
				}
			}
		}
	}()
}

func (s *Store) evictIdle(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, state := range s.sessions {
		if now.Sub(state.lastActive) < s.ttl {
			continue
		}
		// An in-flight turn holds the session mutex; leave it alone.
		if !state.mu.TryLock() {
			continue
		}
		state.mu.Unlock()
		delete(s.sessions, id)
		evicted++
	}
	return evicted
}
