package service

import (
	"sync"
	"time"

	"github.com/oriento/auth/internal/auth/domain"
)

// AttemptRegistry counts consecutive failed logins per identifier, in memory.
// It feeds audit logging only; the request gate handles actual throttling.
type AttemptRegistry struct {
	mu       sync.Mutex
	attempts map[string]*domain.FailedAttempt

	// now is swappable for tests.
	now func() time.Time
}

func NewAttemptRegistry() *AttemptRegistry {
	return &AttemptRegistry{
		attempts: make(map[string]*domain.FailedAttempt),
		now:      time.Now,
	}
}

// Record bumps the counter for identifier, remembers why and from where the
// attempt failed, and returns the new count.
func (r *AttemptRegistry) Record(identifier, reason, originIP string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.attempts[identifier]
	if !ok {
		a = &domain.FailedAttempt{Identifier: identifier}
		r.attempts[identifier] = a
	}
	a.Count++
	a.LastSeen = r.now()
	a.Reason = reason
	a.OriginIP = originIP
	return a.Count
}

// Get returns a copy of the record for identifier, if one exists.
func (r *AttemptRegistry) Get(identifier string) (domain.FailedAttempt, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.attempts[identifier]; ok {
		return *a, true
	}
	return domain.FailedAttempt{}, false
}

// Clear forgets the counter for identifier, called after a successful login.
func (r *AttemptRegistry) Clear(identifier string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.attempts, identifier)
}

// Count returns the current counter without mutating it.
func (r *AttemptRegistry) Count(identifier string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.attempts[identifier]; ok {
		return a.Count
	}
	return 0
}

// SweepStale drops counters idle for at least olderThan and returns how many
// were dropped. Keeps the map from growing forever on one-off typos.
func (r *AttemptRegistry) SweepStale(olderThan time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	dropped := 0
	for id, a := range r.attempts {
		if now.Sub(a.LastSeen) >= olderThan {
			delete(r.attempts, id)
			dropped++
		}
	}
	return dropped
}
