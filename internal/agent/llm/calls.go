package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	logx "github.com/orderdesk-ai/server/pkg/logger"
)

// Generator is the black-box text generation call. It never fails: on any
// transport failure the answer is a human-readable error string, and the
// measured latency is reported either way.
type Generator interface {
	Generate(ctx context.Context, prompt string) (answer string, latencyMS int64)
}

// Classifier is the black-box classification call. It returns the raw model
// output; parsing (and its deterministic fallback) happens downstream.
type Classifier interface {
	Classify(ctx context.Context, prompt string) (string, error)
}

// GeminiGenerator adapts the Response chat model to the Generator contract.
type GeminiGenerator struct {
	model   *ChatModels
	timeout time.Duration
}

// NewGenerator wraps the response model with a bounded timeout.
func NewGenerator(models *ChatModels, timeout time.Duration) *GeminiGenerator {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GeminiGenerator{model: models, timeout: timeout}
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, int64) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	t0 := time.Now()
	out, err := g.model.Response.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	ms := time.Since(t0).Milliseconds()

	if err != nil {
		logx.Warn().Err(err).Str("model", g.model.ResponseModelName).Msg("generation call failed")
		return degradedAnswer(err), ms
	}
	if out == nil {
		return "Sorry, the model returned no answer.", ms
	}
	return strings.TrimSpace(out.Content), ms
}

// degradedAnswer maps a transport failure to the canned text shown to the
// user instead of an error.
func degradedAnswer(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "The model took too long to respond. Please try again in a moment."
	case isConnectionError(err):
		return "Could not reach the language model service. Is it running and configured correctly?"
	default:
		return fmt.Sprintf("Sorry, I could not reach the model: %v", err)
	}
}

func isConnectionError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// GeminiClassifier adapts the NLU chat model to the Classifier contract.
type GeminiClassifier struct {
	model   *ChatModels
	timeout time.Duration
}

// NewClassifier wraps the NLU model with a bounded timeout.
func NewClassifier(models *ChatModels, timeout time.Duration) *GeminiClassifier {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GeminiClassifier{model: models, timeout: timeout}
}

func (c *GeminiClassifier) Classify(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.model.NLU.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return "", fmt.Errorf("nlu call: %w", err)
	}
	if out == nil {
		return "", fmt.Errorf("nlu call: empty response")
	}
	return out.Content, nil
}

var (
	_ Generator  = (*GeminiGenerator)(nil)
	_ Classifier = (*GeminiClassifier)(nil)
)
