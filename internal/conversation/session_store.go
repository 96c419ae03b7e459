package conversation

import (
	"context"
	"sort"
	"sync"
	"time"
)

// SessionStore keeps the active flow of each sender.
// Load returns Idle for unknown senders; saving Idle removes the entry.
type SessionStore interface {
	Load(ctx context.Context, senderID string) (State, error)
	Save(ctx context.Context, senderID string, state State) error
	Delete(ctx context.Context, senderID string) error
}

// SessionInfo describes one active session for the admin listing.
type SessionInfo struct {
	SenderID  string    `json:"sender_id"`
	Flow      string    `json:"flow"`
	Step      string    `json:"step"`
	UpdatedAt time.Time `json:"updated_at"`
}

type sessionEntry struct {
	state     State
	updatedAt time.Time
}

// MemorySessionStore is a process-local SessionStore.
type MemorySessionStore struct {
	mu      sync.Mutex
	entries map[string]sessionEntry
	ttl     time.Duration
	now     func() time.Time
}

// MemorySessionOption customizes a MemorySessionStore.
type MemorySessionOption func(*MemorySessionStore)

// WithSessionTTL expires sessions idle for longer than ttl. ttl <= 0 disables expiry.
func WithSessionTTL(ttl time.Duration) MemorySessionOption {
	return func(s *MemorySessionStore) {
		s.ttl = ttl
	}
}

// WithSessionClock overrides the clock, for tests.
func WithSessionClock(now func() time.Time) MemorySessionOption {
	return func(s *MemorySessionStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewMemorySessionStore(opts ...MemorySessionOption) *MemorySessionStore {
	s := &MemorySessionStore{
		entries: make(map[string]sessionEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemorySessionStore) Load(_ context.Context, senderID string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[senderID]
	if !ok {
		return Idle{}, nil
	}
	if s.expired(entry, s.now()) {
		delete(s.entries, senderID)
		return Idle{}, nil
	}
	return entry.state, nil
}

func (s *MemorySessionStore) Save(_ context.Context, senderID string, state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if isIdle(state) {
		delete(s.entries, senderID)
		return nil
	}
	s.entries[senderID] = sessionEntry{state: state, updatedAt: s.now()}
	return nil
}

func (s *MemorySessionStore) Delete(_ context.Context, senderID string) error {
	s.mu.Lock()
	delete(s.entries, senderID)
	s.mu.Unlock()
	return nil
}

// Sweep removes expired sessions and returns how many were dropped.
func (s *MemorySessionStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, entry := range s.entries {
		if s.expired(entry, now) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Snapshot lists active sessions ordered by sender id.
func (s *MemorySessionStore) Snapshot() []SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	out := make([]SessionInfo, 0, len(s.entries))
	for id, entry := range s.entries {
		if s.expired(entry, now) {
			continue
		}
		out = append(out, SessionInfo{
			SenderID:  id,
			Flow:      entry.state.Flow(),
			Step:      StepOf(entry.state),
			UpdatedAt: entry.updatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SenderID < out[j].SenderID })
	return out
}

// Len returns the number of stored entries, including ones not yet swept.
func (s *MemorySessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemorySessionStore) expired(entry sessionEntry, now time.Time) bool {
	return s.ttl > 0 && now.Sub(entry.updatedAt) > s.ttl
}

// Sessions is Snapshot behind the context-aware listing used by admin handlers.
func (s *MemorySessionStore) Sessions(context.Context) ([]SessionInfo, error) {
	return s.Snapshot(), nil
}
