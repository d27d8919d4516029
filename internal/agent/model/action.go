package model

import "encoding/json"

// ActionType tags the variant of an Action record.
type ActionType string

const (
	ActionCancel  ActionType = "cancel"
	ActionReturn  ActionType = "return"
	ActionTicket  ActionType = "ticket"
	ActionRefund  ActionType = "refund"
	ActionHandoff ActionType = "handoff"
)

// Action is one business action produced by the policy engine or the
// supervisor. Actions are append-only within a turn and rendered verbatim
// in the reply.
type Action struct {
	Type    ActionType `json:"type"`
	OrderID string     `json:"order_id,omitempty"`
	Status  string     `json:"status,omitempty"`
	Reason  string     `json:"reason,omitempty"`
	Issue   string     `json:"issue,omitempty"`

	// Variant-specific identifiers.
	CancelID string `json:"cancel_id,omitempty"`
	RMAID    string `json:"rma_id,omitempty"`
	TicketID string `json:"ticket_id,omitempty"`
	RefundID string `json:"refund_id,omitempty"`

	// Handoff-only fields.
	Handoff       bool           `json:"handoff,omitempty"`
	Extra         map[string]any `json:"extra,omitempty"`
	NotifiedSlack bool           `json:"notified_slack,omitempty"`
	NotifiedEmail bool           `json:"notified_email,omitempty"`
}

// Render returns the single-line form shown in the "Actions taken:" section.
func (a Action) Render() string {
	b, err := json.Marshal(a)
	if err != nil {
		return string(a.Type)
	}
	return string(b)
}
