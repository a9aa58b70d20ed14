package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"hotelbooking/internal/domain"
	"hotelbooking/internal/models"
	"hotelbooking/internal/service"
)

const sessionHeader = "X-Session-ID"

func sessionID(r *http.Request, fromBody string) string {
	if id := strings.TrimSpace(fromBody); id != "" {
		return id
	}
	return strings.TrimSpace(r.Header.Get(sessionHeader))
}

type createHoldsRequest struct {
	stayRequest
	SessionID  string `json:"session_id"`
	TTLSeconds *int64 `json:"ttl_seconds"`
}

func (s *HTTPServer) allowHoldAttempt(ctx context.Context, session string) bool {
	if s.svc.Checkout == nil {
		return true
	}
	return s.svc.Checkout.AllowHoldAttempt(ctx, session)
}

func (s *HTTPServer) rememberHold(ctx context.Context, session string, summary *models.HoldSummary, req createHoldsRequest) {
	if s.svc.Checkout == nil || session == "" {
		return
	}
	err := s.svc.Checkout.RememberHold(ctx, &domain.CheckoutState{
		SessionID:     session,
		HoldToken:     summary.Token,
		CheckIn:       req.CheckIn,
		CheckOut:      req.CheckOut,
		Selections:    req.Selections,
		HoldExpiresAt: summary.ExpiresAt,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", session).Msg("save checkout state")
	}
}

func (s *HTTPServer) forgetSession(ctx context.Context, session string) {
	if s.svc.Checkout == nil {
		return
	}
	if err := s.svc.Checkout.Clear(ctx, session); err != nil {
		s.logger.Warn().Err(err).Str("session_id", session).Msg("clear checkout state")
	}
}

func (s *HTTPServer) handleCreateHolds(w http.ResponseWriter, r *http.Request) {
	var req createHoldsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	checkIn, checkOut, err := req.dates()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	session := sessionID(r, req.SessionID)
	if !s.allowHoldAttempt(r.Context(), session) {
		writeError(w, http.StatusTooManyRequests, "too many hold attempts for this session")
		return
	}

	in := service.CreateHoldsInput{
		Selections: req.Selections,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		SessionID:  session,
	}
	if req.TTLSeconds != nil {
		ttl := time.Duration(*req.TTLSeconds) * time.Second
		in.TTL = &ttl
	}

	token, err := s.svc.Holds.CreateHolds(r.Context(), in)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	summary, err := s.svc.Holds.GetSummary(r.Context(), token, nil)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.rememberHold(r.Context(), session, summary, req)
	writeJSON(w, http.StatusCreated, summary)
}

func (s *HTTPServer) handleGetHold(w http.ResponseWriter, r *http.Request) {
	var opts *models.PricingOptions
	if plan := r.URL.Query().Get("meal_plan"); plan != "" {
		o := s.svc.Pricing.DefaultOptions()
		o.MealPlan = models.MealPlan(plan)
		opts = &o
	}

	summary, err := s.svc.Holds.GetSummary(r.Context(), r.PathValue("token"), opts)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type extendHoldRequest struct {
	TTLSeconds int64 `json:"ttl_seconds"`
}

func (s *HTTPServer) handleExtendHold(w http.ResponseWriter, r *http.Request) {
	var req extendHoldRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	ttl := s.svc.Holds.HoldTTL()
	if req.TTLSeconds > 0 {
		ttl = time.Duration(req.TTLSeconds) * time.Second
	}

	token := r.PathValue("token")
	ok, err := s.svc.Holds.ExtendHold(r.Context(), token, ttl)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if !ok {
		writeError(w, http.StatusGone, domain.ErrHoldExpired.Error())
		return
	}

	summary, err := s.svc.Holds.GetSummary(r.Context(), token, nil)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *HTTPServer) handleValidateHold(w http.ResponseWriter, r *http.Request) {
	ok, err := s.svc.Holds.ValidateAndRefreshHold(r.Context(), r.PathValue("token"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": ok})
}

func (s *HTTPServer) handleReleaseHold(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.Holds.ReleaseHolds(r.Context(), r.PathValue("token"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"released": n})
}

func (s *HTTPServer) handleReleaseSession(w http.ResponseWriter, r *http.Request) {
	session := r.PathValue("session_id")
	var (
		n   int64
		err error
	)
	if s.svc.Checkout != nil {
		n, err = s.svc.Checkout.ReleaseSession(r.Context(), session)
	} else {
		n, err = s.svc.Holds.ReleaseHoldsBySession(r.Context(), session)
	}
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"released": n})
}
