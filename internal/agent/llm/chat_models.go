// Package llm wraps the Gemini chat models behind the two narrow calls the
// conversation core depends on: intent classification and grounded answer
// generation.
package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"google.golang.org/genai"

	"github.com/orderdesk-ai/server/internal/agent/model"
	logx "github.com/orderdesk-ai/server/pkg/logger"
)

// ChatModelConfig holds the configuration for chat model creation.
type ChatModelConfig struct {
	APIKey     string
	BaseURL    string
	NLUConfig  *model.NLUModelConfig
	RespConfig *model.ResponseModelConfig
}

// ChatModels holds both NLU and Response chat models.
type ChatModels struct {
	NLU               *gemini.ChatModel
	Response          *gemini.ChatModel
	NLUModelName      string
	ResponseModelName string
}

// NewChatModels creates both NLU and Response chat models with the given
// configuration. The NLU model runs at its configured (near-zero)
// temperature so structured output stays parseable.
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	chatModelNLU, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.NLUConfig.Model,
		Temperature: &config.NLUConfig.Temperature,
		MaxTokens:   &config.NLUConfig.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating NLU model")
		return nil, fmt.Errorf("error creating NLU model: %w", err)
	}

	chatModelResponse, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.RespConfig.Model,
		Temperature: &config.RespConfig.Temperature,
		MaxTokens:   &config.RespConfig.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Response model")
		return nil, fmt.Errorf("error creating Response model: %w", err)
	}

	return &ChatModels{
		NLU:               chatModelNLU,
		Response:          chatModelResponse,
		NLUModelName:      config.NLUConfig.Model,
		ResponseModelName: config.RespConfig.Model,
	}, nil
}
