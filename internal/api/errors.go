package api

import (
	"errors"
	"net/http"

	"hotelbooking/internal/domain"
)

var statusByError = []struct {
	err    error
	status int
}{
	{domain.ErrUnavailable, http.StatusConflict},
	{domain.ErrHoldNotFound, http.StatusGone},
	{domain.ErrHoldExpired, http.StatusGone},
	{domain.ErrInvalidTransition, http.StatusConflict},
	{domain.ErrAlreadyProcessed, http.StatusConflict},
	{domain.ErrConcurrentModification, http.StatusConflict},
	{domain.ErrRoomTypeNotFound, http.StatusNotFound},
	{domain.ErrBookingNotFound, http.StatusNotFound},
	{domain.ErrPolicyNotFound, http.StatusNotFound},
	{domain.ErrPaymentFailed, http.StatusPaymentRequired},
	{domain.ErrInvalidDateRange, http.StatusBadRequest},
	{domain.ErrInvalidQuantity, http.StatusBadRequest},
	{domain.ErrStayTooLong, http.StatusBadRequest},
	{domain.ErrInvalidMealPlan, http.StatusBadRequest},
	{domain.ErrInvalidPrice, http.StatusBadRequest},
	{domain.ErrInvalidCapacity, http.StatusBadRequest},
	{domain.ErrInvalidPolicy, http.StatusBadRequest},
	{domain.ErrInvalidGuest, http.StatusBadRequest},
}

func statusFor(err error) int {
	for _, m := range statusByError {
		if errors.Is(err, m.err) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}

// writeDomainError maps err to a status code. Unknown errors are logged and
// reported without detail.
func (s *HTTPServer) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}
