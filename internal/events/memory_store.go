package events

import (
	"context"
	"sync"
	"time"
)

// MemoryProcessedStore is a process-local ProcessedStore for single-instance
// deployments and tests. Entries older than ttl are forgotten.
type MemoryProcessedStore struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

func NewMemoryProcessedStore(ttl time.Duration) *MemoryProcessedStore {
	if ttl <= 0 {
		ttl = defaultProcessedTTL
	}
	return &MemoryProcessedStore{seen: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

func (s *MemoryProcessedStore) MarkProcessed(_ context.Context, provider, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	key := provider + ":" + eventID
	if at, ok := s.seen[key]; ok && now.Sub(at) <= s.ttl {
		return false, nil
	}
	s.seen[key] = now
	s.prune(now)
	return true, nil
}

func (s *MemoryProcessedStore) prune(now time.Time) {
	for k, at := range s.seen {
		if now.Sub(at) > s.ttl {
			delete(s.seen, k)
		}
	}
}
