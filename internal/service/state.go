package service

import (
	"context"
	"time"

	"hotelbooking/internal/domain"
	"hotelbooking/internal/logging"

	"github.com/rs/zerolog"
)

// CheckoutService remembers which hold token a checkout session is working with
// and limits how often one session may try to place holds.
type CheckoutService struct {
	stateRepo domain.CheckoutStateRepository
	holds     *HoldManager
	attempts  int
	window    time.Duration
	logger    *zerolog.Logger
}

func NewCheckoutService(stateRepo domain.CheckoutStateRepository, holds *HoldManager, attempts int, window time.Duration, logger *zerolog.Logger) *CheckoutService {
	return &CheckoutService{
		stateRepo: stateRepo,
		holds:     holds,
		attempts:  attempts,
		window:    window,
		logger:    logging.Component(logger, "checkout"),
	}
}

// AllowHoldAttempt counts one hold attempt for the session. Anonymous callers
// and state store failures are let through.
func (s *CheckoutService) AllowHoldAttempt(ctx context.Context, sessionID string) bool {
	if sessionID == "" || s.attempts <= 0 {
		return true
	}
	allowed, err := s.stateRepo.CheckRateLimit(ctx, sessionID, s.attempts, s.window)
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("hold rate limit check failed")
		return true
	}
	if !allowed {
		s.logger.Info().Str("session_id", sessionID).Msg("hold attempt rate limited")
	}
	return allowed
}

func (s *CheckoutService) GetState(ctx context.Context, sessionID string) (*domain.CheckoutState, error) {
	state, err := s.stateRepo.GetState(ctx, sessionID)
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to get checkout state")
		return nil, err
	}
	return state, nil
}

// RememberHold points the session at state.HoldToken. A different token the
// session held before is released, so one session keeps at most one hold.
func (s *CheckoutService) RememberHold(ctx context.Context, state *domain.CheckoutState) error {
	if state.SessionID == "" {
		return nil
	}
	prev, err := s.stateRepo.GetState(ctx, state.SessionID)
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", state.SessionID).Msg("load checkout state")
	}
	if prev != nil && prev.HoldToken != "" && prev.HoldToken != state.HoldToken {
		if _, err := s.holds.ReleaseHolds(ctx, prev.HoldToken); err != nil {
			s.logger.Warn().Err(err).Str("hold_token", prev.HoldToken).Msg("release replaced hold")
		}
	}
	return s.stateRepo.SetState(ctx, state)
}

func (s *CheckoutService) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.stateRepo.ClearState(ctx, sessionID)
}

// ReleaseSession drops every hold of the session and forgets its state.
func (s *CheckoutService) ReleaseSession(ctx context.Context, sessionID string) (int64, error) {
	n, err := s.holds.ReleaseHoldsBySession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if err := s.Clear(ctx, sessionID); err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("clear checkout state")
	}
	return n, nil
}
