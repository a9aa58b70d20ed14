package api

import (
	"net/http"
	"strings"

	"hotelbooking/internal/models"
	"hotelbooking/internal/service"
)

type createBookingRequest struct {
	stayRequest
	pricingRequest
	HoldToken            string       `json:"hold_token"`
	SessionID            string       `json:"session_id"`
	Guest                models.Guest `json:"guest"`
	CancellationPolicyID *int64       `json:"cancellation_policy_id"`
}

func (req createBookingRequest) details() service.BookingDetails {
	return service.BookingDetails{
		Guest:                req.Guest,
		MealPlan:             req.MealPlan,
		Adults:               req.Adults,
		Extras:               req.Extras,
		TaxRate:              req.TaxRate,
		CancellationPolicyID: req.CancellationPolicyID,
	}
}

// handleCreateBooking books from a hold token when one is given, otherwise
// straight from the selections.
func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	session := sessionID(r, req.SessionID)

	var (
		booking *models.Booking
		err     error
	)
	if token := strings.TrimSpace(req.HoldToken); token != "" {
		booking, err = s.svc.Bookings.CreateFromHold(r.Context(), token, req.details())
	} else {
		checkIn, checkOut, dateErr := req.dates()
		if dateErr != nil {
			writeError(w, http.StatusBadRequest, dateErr.Error())
			return
		}
		booking, err = s.svc.Bookings.CreateDirect(r.Context(), service.CreateDirectInput{
			BookingDetails: req.details(),
			Selections:     req.Selections,
			CheckIn:        checkIn,
			CheckOut:       checkOut,
			SessionID:      session,
		})
	}
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.forgetSession(r.Context(), session)
	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := s.svc.Bookings.GetBooking(r.Context(), r.PathValue("code"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (s *HTTPServer) handleBookingAction(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	ctx := r.Context()

	var (
		booking *models.Booking
		err     error
	)
	switch r.PathValue("action") {
	case "confirm":
		var capture models.PaymentCapture
		if err := decodeJSON(r, &capture); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		booking, err = s.svc.Bookings.Confirm(ctx, code, capture)
	case "check-in":
		booking, err = s.svc.Bookings.CheckIn(ctx, code)
	case "check-out":
		booking, err = s.svc.Bookings.CheckOut(ctx, code)
	case "cancel":
		var req cancelRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		booking, err = s.svc.Bookings.Cancel(ctx, code, strings.TrimSpace(req.Reason))
	case "no-show":
		booking, err = s.svc.Bookings.MarkNoShow(ctx, code)
	case "retry-refund":
		booking, err = s.svc.Bookings.RetryRefund(ctx, code)
	default:
		writeError(w, http.StatusNotFound, "unknown booking action")
		return
	}
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}
