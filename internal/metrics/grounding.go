// Package metrics scores generated answers against the facts they were
// given, to catch replies that drift away from the order on record.
package metrics

import (
	"fmt"
	"math"
	"strings"

	"github.com/orderdesk-ai/server/internal/agent/model"
	"github.com/orderdesk-ai/server/internal/auditlog"
)

// GroundingResult is the per-answer containment report: one boolean per
// checked fact plus the fraction that passed, rounded to three decimals.
type GroundingResult struct {
	Score  float64         `json:"grounding_score"`
	Checks map[string]bool `json:"checks"`
}

// GroundingScore measures how many of the key order facts appear verbatim
// (case-insensitive) in the answer. No facts means nothing to check and a
// zero score with an empty checks map.
func GroundingScore(answer string, facts *model.OrderFacts) GroundingResult {
	res := GroundingResult{Checks: map[string]bool{}}
	if facts == nil {
		return res
	}

	haystack := strings.ToLower(answer)
	contains := func(s string) bool {
		return s != "" && strings.Contains(haystack, strings.ToLower(s))
	}

	res.Checks["order_id"] = contains(facts.OrderID)
	res.Checks["order_status"] = contains(facts.OrderStatus)
	res.Checks["total_payment"] = contains(fmt.Sprintf("%.2f", facts.TotalPayment))
	res.Checks["payment_type"] = contains(facts.PaymentType)
	res.Checks["customer_email"] = contains(facts.CustomerEmail)

	passed := 0
	for _, ok := range res.Checks {
		if ok {
			passed++
		}
	}
	res.Score = math.Round(float64(passed)/float64(len(res.Checks))*1000) / 1000
	return res
}

// RecordTurn appends one metrics line for a finished turn.
func RecordTurn(sink *auditlog.Sink, conversationID string, turn *model.TurnResult) GroundingResult {
	res := GroundingScore(turn.Output, turn.Facts)
	if sink == nil {
		return res
	}
	rec := map[string]any{
		"conversation_id": conversationID,
		"intent":          turn.Intent,
		"grounding_score": res.Score,
		"checks":          res.Checks,
		"actions":         len(turn.Actions),
		"kb_hits":         turn.KBHits,
	}
	for k, v := range turn.Timings {
		rec[k] = v
	}
	sink.Append(rec)
	return res
}
