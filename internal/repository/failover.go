package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"hotelbooking/internal/domain"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverStateRepository sends calls to primary until it fails, then serves
// from fallback and retries primary once per recoveryInterval.
type FailoverStateRepository struct {
	primary   domain.CheckoutStateRepository
	fallback  domain.CheckoutStateRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverStateRepository(primary, fallback domain.CheckoutStateRepository, logger *zerolog.Logger) *FailoverStateRepository {
	return &FailoverStateRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// usePrimary reports whether the next call should try primary.
func (r *FailoverStateRepository) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.lastCheck) > recoveryInterval {
		r.lastCheck = time.Now()
		return true
	}
	return false
}

func (r *FailoverStateRepository) observe(err error) {
	if err == nil {
		if r.isDown.CompareAndSwap(true, false) {
			r.logger.Info().Msg("Primary state repository recovered")
		}
		return
	}
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("Primary state repository failed, falling back to memory")
	}
	r.mu.Lock()
	r.lastCheck = time.Now()
	r.mu.Unlock()
}

func (r *FailoverStateRepository) GetState(ctx context.Context, sessionID string) (*domain.CheckoutState, error) {
	if r.usePrimary() {
		state, err := r.primary.GetState(ctx, sessionID)
		r.observe(err)
		if err == nil {
			return state, nil
		}
	}
	return r.fallback.GetState(ctx, sessionID)
}

func (r *FailoverStateRepository) SetState(ctx context.Context, state *domain.CheckoutState) error {
	if r.usePrimary() {
		err := r.primary.SetState(ctx, state)
		r.observe(err)
		if err == nil {
			return nil
		}
	}
	return r.fallback.SetState(ctx, state)
}

// ClearState clears both sides; the fallback may hold state written while
// primary was down.
func (r *FailoverStateRepository) ClearState(ctx context.Context, sessionID string) error {
	fallbackErr := r.fallback.ClearState(ctx, sessionID)
	if r.usePrimary() {
		err := r.primary.ClearState(ctx, sessionID)
		r.observe(err)
		if err == nil {
			return nil
		}
	}
	return fallbackErr
}

func (r *FailoverStateRepository) CheckRateLimit(ctx context.Context, sessionID string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, sessionID, limit, window)
		r.observe(err)
		if err == nil {
			return allowed, nil
		}
	}
	return r.fallback.CheckRateLimit(ctx, sessionID, limit, window)
}
