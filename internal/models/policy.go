package models

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// PolicyTier grants RefundPercentage when the lead time is at least HoursBeforeCheckIn.
type PolicyTier struct {
	HoursBeforeCheckIn int             `json:"hours_before_checkin"`
	RefundPercentage   decimal.Decimal `json:"refund_percentage"`
}

type CancellationPolicy struct {
	ID        int64        `json:"id"`
	Name      string       `json:"name"`
	Tiers     []PolicyTier `json:"tiers"`
	CreatedAt time.Time    `json:"created_at"`
}

// SortTiers orders tiers by descending threshold.
func (p *CancellationPolicy) SortTiers() {
	sort.SliceStable(p.Tiers, func(i, j int) bool {
		return p.Tiers[i].HoursBeforeCheckIn > p.Tiers[j].HoursBeforeCheckIn
	})
}

// ApplicableTier returns the tier with the largest threshold not above leadHours.
func (p *CancellationPolicy) ApplicableTier(leadHours int) (PolicyTier, bool) {
	var (
		best  PolicyTier
		found bool
	)
	for _, tier := range p.Tiers {
		if tier.HoursBeforeCheckIn > leadHours {
			continue
		}
		if !found || tier.HoursBeforeCheckIn > best.HoursBeforeCheckIn {
			best = tier
			found = true
		}
	}
	return best, found
}

// RefundQuote is the outcome of evaluating a paid amount against a policy.
type RefundQuote struct {
	LeadTimeHours    int             `json:"lead_time_hours"`
	RefundPercentage decimal.Decimal `json:"refund_percentage"`
	RefundAmount     decimal.Decimal `json:"refund_amount"`
	PenaltyAmount    decimal.Decimal `json:"penalty_amount"`
}
