// Package ai selects the language model used for content generation.
package ai

import (
	"context"
	"fmt"

	"outreach_backend/platform/ai/openai"
	"outreach_backend/platform/config"

	"google.golang.org/adk/model"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// NewModel builds the configured provider. A missing API key is a
// configuration failure for content generation only.
func NewModel(ctx context.Context, cfg config.LLMConfig) (model.LLM, error) {
	if cfg.GetLLMAPIKey() == "" {
		return nil, fmt.Errorf("LLM_API_KEY is not configured")
	}

	switch cfg.GetLLMProvider() {
	case "gemini":
		name := cfg.GetLLMModel()
		if name == "" {
			name = defaultGeminiModel
		}
		return gemini.NewModel(ctx, name, &genai.ClientConfig{
			APIKey:  cfg.GetLLMAPIKey(),
			Backend: genai.BackendGeminiAPI,
		})
	case "openai", "":
		return openai.NewModel(openai.Config{
			APIKey:  cfg.GetLLMAPIKey(),
			BaseURL: cfg.GetLLMBaseURL(),
			Model:   cfg.GetLLMModel(),
		}), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.GetLLMProvider())
	}
}
