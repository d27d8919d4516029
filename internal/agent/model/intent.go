package model

import "strings"

// Intent is the classified purpose of a user turn.
type Intent string

const (
	IntentTrack     Intent = "track"
	IntentPayment   Intent = "payment"
	IntentRefund    Intent = "refund"
	IntentReturn    Intent = "return"
	IntentCancel    Intent = "cancel"
	IntentKB        Intent = "kb"
	IntentAnalytics Intent = "analytics"
	IntentGeneral   Intent = "general"

	// Special intents for answering a prior escalation question.
	IntentHandoffYes Intent = "handoff_yes"
	IntentHandoffNo  Intent = "handoff_no"
)

var knownIntents = map[Intent]bool{
	IntentTrack:      true,
	IntentPayment:    true,
	IntentRefund:     true,
	IntentReturn:     true,
	IntentCancel:     true,
	IntentKB:         true,
	IntentAnalytics:  true,
	IntentGeneral:    true,
	IntentHandoffYes: true,
	IntentHandoffNo:  true,
}

// ParseIntent normalises a raw intent label. Unknown or empty labels fall
// back to general so a misbehaving classifier cannot fail the turn.
func ParseIntent(raw string) Intent {
	it := Intent(strings.ToLower(strings.TrimSpace(raw)))
	if knownIntents[it] {
		return it
	}
	return IntentGeneral
}

// RequiresOrder reports whether the intent needs a resolved order to make
// progress. Used by the supervisor's no-facts counter.
func (i Intent) RequiresOrder() bool {
	switch i {
	case IntentTrack, IntentPayment, IntentRefund, IntentReturn, IntentCancel:
		return true
	}
	return false
}

// Slots holds the pieces of information extracted from user text.
// Empty values mean "not mentioned this turn" and never erase memory.
type Slots struct {
	OrderID string `json:"order_id,omitempty"`
	Email   string `json:"email,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// NLUResult is the structured output of the intent classifier.
type NLUResult struct {
	Intent Intent `json:"intent"`
	Slots  Slots  `json:"slots"`
	YesNo  string `json:"yes_no,omitempty"` // "yes", "no" or empty
}
