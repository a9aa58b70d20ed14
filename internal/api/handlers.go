package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"hotelbooking/internal/models"

	"github.com/shopspring/decimal"
)

// stayRequest is shared by the endpoints that take a stay and room selections.
type stayRequest struct {
	CheckIn    string                 `json:"check_in"`
	CheckOut   string                 `json:"check_out"`
	Selections []models.RoomSelection `json:"selections"`
}

func (req stayRequest) dates() (time.Time, time.Time, error) {
	checkIn, err := models.ParseDate(strings.TrimSpace(req.CheckIn))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	checkOut, err := models.ParseDate(strings.TrimSpace(req.CheckOut))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return checkIn, checkOut, nil
}

type pricingRequest struct {
	MealPlan models.MealPlan       `json:"meal_plan"`
	Adults   int                   `json:"adults"`
	Extras   []models.ExtraRequest `json:"extras"`
	TaxRate  *decimal.Decimal      `json:"tax_rate"`
}

func (s *HTTPServer) pricingOptions(req pricingRequest) models.PricingOptions {
	opts := models.PricingOptions{
		MealPlan: req.MealPlan,
		Adults:   req.Adults,
		Extras:   req.Extras,
		TaxRate:  s.svc.Pricing.DefaultTaxRate(),
	}
	if req.TaxRate != nil {
		opts.TaxRate = *req.TaxRate
	}
	return opts
}

func (s *HTTPServer) handleRoomTypes(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("all") != "true"
	roomTypes, err := s.svc.Store.ListRoomTypes(r.Context(), activeOnly)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"room_types": roomTypes})
}

func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	roomTypeID, err := strconv.ParseInt(r.PathValue("room_type_id"), 10, 64)
	if err != nil || roomTypeID <= 0 {
		writeError(w, http.StatusBadRequest, "room_type_id must be a positive integer")
		return
	}

	q := r.URL.Query()
	if q.Get("from") == "" || q.Get("to") == "" {
		writeError(w, http.StatusBadRequest, "from and to are required")
		return
	}
	from, err := models.ParseDate(q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := models.ParseDate(q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := s.svc.Store.GetRoomType(r.Context(), roomTypeID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	nights, err := s.svc.Ledger.Availability(r.Context(), roomTypeID, from, to)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"room_type_id": roomTypeID,
		"nights":       nights,
	})
}

type quoteRequest struct {
	stayRequest
	pricingRequest
}

func (s *HTTPServer) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	checkIn, checkOut, err := req.dates()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	quote, err := s.svc.Pricing.PriceMultiRoom(r.Context(), req.Selections, checkIn, checkOut, s.pricingOptions(req.pricingRequest))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

type refundQuoteRequest struct {
	PaidAmount           decimal.Decimal `json:"paid_amount"`
	CheckIn              string          `json:"check_in"`
	CancellationPolicyID *int64          `json:"cancellation_policy_id"`
}

func (s *HTTPServer) handleRefundQuote(w http.ResponseWriter, r *http.Request) {
	var req refundQuoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.PaidAmount.IsNegative() {
		writeError(w, http.StatusBadRequest, "paid_amount must not be negative")
		return
	}
	checkIn, err := models.ParseDate(strings.TrimSpace(req.CheckIn))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var policy *models.CancellationPolicy
	if req.CancellationPolicyID != nil {
		policy, err = s.svc.Pricing.GetCancellationPolicy(r.Context(), *req.CancellationPolicyID)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, s.svc.Pricing.CalculateRefund(req.PaidAmount, checkIn, policy))
}
