package repository

import (
	"context"
	"sync"
	"time"

	"hotelbooking/internal/clock"
	"hotelbooking/internal/domain"
)

type memoryEntry struct {
	state     domain.CheckoutState
	expiresAt time.Time
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

// MemoryStateRepository is the in-process fallback used when Redis is down.
type MemoryStateRepository struct {
	mu         sync.Mutex
	states     map[string]memoryEntry
	rateLimits map[string]*rateLimitEntry
	ttl        time.Duration
	clock      clock.Clock
}

func NewMemoryStateRepository(ttl time.Duration, clk clock.Clock) *MemoryStateRepository {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &MemoryStateRepository{
		states:     make(map[string]memoryEntry),
		rateLimits: make(map[string]*rateLimitEntry),
		ttl:        ttl,
		clock:      clk,
	}
}

func (r *MemoryStateRepository) GetState(_ context.Context, sessionID string) (*domain.CheckoutState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.states[sessionID]
	if !ok {
		return nil, nil
	}
	if !entry.expiresAt.IsZero() && !r.clock.Now().Before(entry.expiresAt) {
		delete(r.states, sessionID)
		return nil, nil
	}
	state := entry.state
	return &state, nil
}

func (r *MemoryStateRepository) SetState(_ context.Context, state *domain.CheckoutState) error {
	now := r.clock.Now()
	state.UpdatedAt = now
	ttl, ok := state.StateTTL(now, r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()
	if !ok {
		delete(r.states, state.SessionID)
		return nil
	}
	entry := memoryEntry{state: *state}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}
	r.states[state.SessionID] = entry
	return nil
}

func (r *MemoryStateRepository) ClearState(_ context.Context, sessionID string) error {
	r.mu.Lock()
	delete(r.states, sessionID)
	r.mu.Unlock()
	return nil
}

func (r *MemoryStateRepository) CheckRateLimit(_ context.Context, sessionID string, limit int, window time.Duration) (bool, error) {
	now := r.clock.Now()
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.rateLimits[sessionID]
	if !ok || !now.Before(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		r.rateLimits[sessionID] = entry
	}
	entry.count++
	return entry.count <= limit, nil
}
