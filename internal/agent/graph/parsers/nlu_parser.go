// Package parsers turns free-form classifier output into the structured
// NLU result, with a deterministic keyword fallback that never raises.
package parsers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/orderdesk-ai/server/internal/agent/model"
	logx "github.com/orderdesk-ai/server/pkg/logger"
)

// guard against pathological model output
const maxContentLen = 64 * 1024

// nluPayload mirrors the JSON schema the NLU prompt demands.
type nluPayload struct {
	Intent string `json:"intent"`
	Slots  struct {
		OrderID *string `json:"order_id"`
		Email   *string `json:"email"`
		Reason  *string `json:"reason"`
	} `json:"slots"`
	YesNo *string `json:"yes_no"`
}

// ParseNLUResponse extracts the intent/slots/yes_no JSON object from raw
// model output. The error return signals "fall back to keyword rules", it
// is never surfaced to the user.
func ParseNLUResponse(content string) (resp *model.NLUResult, err error) {
	// panic safety: a parser bug must not fail the turn
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "nlu_parser").Msgf("panic recovered: %v", r)
			resp = nil
			err = fmt.Errorf("nlu parser panic")
		}
	}()

	if len(content) > maxContentLen {
		logx.Warn().
			Str("component", "nlu_parser").
			Int("max_len", maxContentLen).
			Int("orig_len", len(content)).
			Msg("content truncated due to size limit")
		content = content[:maxContentLen]
	}

	raw := extractJSON(content)
	if raw == "" {
		return nil, fmt.Errorf("no json object in nlu output")
	}

	var payload nluPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("unmarshal nlu output: %w", err)
	}

	out := &model.NLUResult{Intent: model.ParseIntent(payload.Intent)}
	if payload.Slots.OrderID != nil {
		out.Slots.OrderID = strings.TrimSpace(*payload.Slots.OrderID)
	}
	if payload.Slots.Email != nil {
		out.Slots.Email = strings.TrimSpace(*payload.Slots.Email)
	}
	if payload.Slots.Reason != nil {
		out.Slots.Reason = strings.TrimSpace(*payload.Slots.Reason)
	}
	if payload.YesNo != nil {
		switch strings.ToLower(strings.TrimSpace(*payload.YesNo)) {
		case "yes":
			out.YesNo = "yes"
		case "no":
			out.YesNo = "no"
		}
	}
	return out, nil
}

// extractJSON finds the first {...} block in free-form model output.
func extractJSON(text string) string {
	t := strings.TrimSpace(text)
	if strings.HasPrefix(t, "{") && strings.HasSuffix(t, "}") {
		return t
	}
	i := strings.Index(t, "{")
	j := strings.LastIndex(t, "}")
	if i != -1 && j != -1 && j > i {
		return t[i : j+1]
	}
	return ""
}

// KeywordFallback is the deterministic rule applied when the classifier
// call fails or returns unparsable content. It never raises.
func KeywordFallback(text string) model.NLUResult {
	t := strings.ToLower(text)

	containsAny := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(t, w) {
				return true
			}
		}
		return false
	}

	switch {
	case containsAny("refund", "return", "cancel", "exchange"):
		return model.NLUResult{Intent: model.IntentRefund}
	case strings.Contains(t, "track") ||
		(strings.Contains(t, "order") && containsAny("where", "track", "status")):
		return model.NLUResult{Intent: model.IntentTrack}
	case containsAny("payment", "pay", "installment"):
		return model.NLUResult{Intent: model.IntentPayment}
	default:
		return model.NLUResult{Intent: model.IntentGeneral}
	}
}
