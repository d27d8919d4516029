package policy

import (
	"fmt"
	"time"

	"github.com/orderdesk-ai/server/internal/agent/model"
)

// Eligibility is the outcome of a return/refund window check. It carries
// the inputs of the decision so escalation records can show their work.
type Eligibility struct {
	Eligible      bool       `json:"eligible"`
	Reason        string     `json:"reason"`
	Suggest       string     `json:"suggest,omitempty"`
	DeliveredDate *time.Time `json:"delivered_date,omitempty"`
	TodayAnchor   time.Time  `json:"today_anchor"`
}

// CheckEligibility decides whether the order is inside the return window
// as of today. Orders still in flight are never eligible; for those the
// right move is a cancellation, which the result suggests.
func CheckEligibility(facts *model.OrderFacts, today time.Time, windowDays int) Eligibility {
	e := Eligibility{TodayAnchor: today}

	delivered, ok := facts.DeliveredDate()
	if !ok {
		if model.PreDeliveryStatus(facts.OrderStatus) {
			e.Reason = "order not delivered yet"
			e.Suggest = "cancel"
			return e
		}
		e.Reason = "missing delivery date info"
		return e
	}

	e.DeliveredDate = &delivered
	// the window counts whole calendar days: a delivery at 09:00 and an
	// anchor at 15:00 on the edge day are still within the window
	deadline := midnight(delivered).AddDate(0, 0, windowDays)
	if !midnight(today).After(deadline) {
		e.Eligible = true
		e.Reason = fmt.Sprintf("within %dd window", windowDays)
	} else {
		e.Reason = fmt.Sprintf("outside %dd window", windowDays)
	}
	return e
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
