// Package prompts renders the embedded prompt templates through the Eino
// prompt component so prompt callbacks fire on every render.
package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/orderdesk-ai/server/internal/agent/model"
)

//go:embed template/nlu_prompt.txt
var nluPromptTemplate string

//go:embed template/response_prompt.txt
var responsePromptTemplate string

//go:embed template/kb_prompt.txt
var kbPromptTemplate string

const (
	maxPromptHits   = 3
	maxSnippetChars = 400
)

// render pushes already-substituted content through the Eino prompt
// component using a messages placeholder, so token replacement cannot
// collide with JSON braces in the templates.
func render(ctx context.Context, content string) (string, error) {
	tpl := prompt.FromMessages(
		schema.FString,
		schema.MessagesPlaceholder("prompt_messages", false),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"prompt_messages": []*schema.Message{schema.UserMessage(content)},
	})
	if err != nil {
		return "", fmt.Errorf("prompt callbacks: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("prompt callbacks: empty result")
	}
	return msgs[0].Content, nil
}

// RenderNLU builds the classification prompt from user text and memory.
func RenderNLU(ctx context.Context, userText string, mem *model.ConversationMemory) (string, error) {
	currentOrder := "none"
	currentEmail := "none"
	if mem != nil {
		if mem.CurrentOrderID != "" {
			currentOrder = mem.CurrentOrderID
		}
		if mem.CurrentEmail != "" {
			currentEmail = mem.CurrentEmail
		}
	}

	content := strings.NewReplacer(
		"{current_order_id}", currentOrder,
		"{current_email}", currentEmail,
		"{user_text}", userText,
	).Replace(nluPromptTemplate)

	return render(ctx, content)
}

// RenderAnswer builds the order-grounded generation prompt from the raw
// user question, the resolved facts and the top retrieval chunks.
func RenderAnswer(ctx context.Context, userQuestion string, facts *model.OrderFacts, hits []model.Record) (string, error) {
	content := strings.NewReplacer(
		"{user_question}", userQuestion,
		"{facts}", factsLines(facts),
		"{chunks}", hitLines(hits),
	).Replace(responsePromptTemplate)

	return render(ctx, content)
}

// RenderKB builds the knowledge-grounded generation prompt from up to
// three tagged snippets.
func RenderKB(ctx context.Context, userQuestion string, kbHits []model.Record) (string, error) {
	content := strings.NewReplacer(
		"{user_question}", userQuestion,
		"{snippets}", KBSnippets(kbHits),
	).Replace(kbPromptTemplate)

	return render(ctx, content)
}

func factsLines(f *model.OrderFacts) string {
	if f == nil {
		return ""
	}
	lines := []string{
		fmt.Sprintf("order_id: %s", f.OrderID),
		fmt.Sprintf("customer: %s %s <%s>", f.FirstName, f.LastName, f.CustomerEmail),
		fmt.Sprintf("status: %s", f.OrderStatus),
		fmt.Sprintf("items: %d", f.NumItems),
		fmt.Sprintf("paid: %.2f via %s", f.TotalPayment, f.PaymentType),
	}
	if f.DeliveryTimeDays != nil {
		lines = append(lines, fmt.Sprintf("delivery_time_days: %d", *f.DeliveryTimeDays))
	}
	if f.ReviewScore != nil {
		lines = append(lines, fmt.Sprintf("review_score: %d", *f.ReviewScore))
	}
	return strings.Join(lines, "\n")
}

func hitLines(hits []model.Record) string {
	var lines []string
	for _, h := range hits {
		if len(lines) >= maxPromptHits {
			break
		}
		if txt := snippet(h.Str("text")); txt != "" {
			src := h.Str("source")
			if src == "" {
				src = h.Str("type")
			}
			lines = append(lines, fmt.Sprintf("[%s] %s", src, txt))
			continue
		}
		lines = append(lines, fmt.Sprintf("[%s] order_id=%s", h.Str("type"), h.Str("order_id")))
	}
	return strings.Join(lines, "\n")
}

// KBSnippets renders up to three knowledge snippets, each truncated and
// tagged with its source file and optional page number.
func KBSnippets(kbHits []model.Record) string {
	var lines []string
	for _, h := range kbHits {
		if len(lines) >= maxPromptHits {
			break
		}
		txt := snippet(h.Str("text"))
		if txt == "" {
			continue
		}
		tag := h.Str("source")
		if page := h.Int("page"); page > 0 {
			tag = fmt.Sprintf("%s p.%d", tag, page)
		}
		lines = append(lines, fmt.Sprintf("[%s] %s", tag, txt))
	}
	return strings.Join(lines, "\n")
}

func snippet(text string) string {
	t := strings.ReplaceAll(strings.TrimSpace(text), "\n", " ")
	if len(t) > maxSnippetChars {
		t = t[:maxSnippetChars] + "..."
	}
	return t
}
