package llm

import (
	"context"
	"fmt"
	"strings"

	"mindmate/internal/config"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderYandex = "yandex"
)

// Factory creates LLM clients with consistent logic
type Factory struct {
	GeminiAPIKey       string
	GeminiAccessToken  string
	GeminiProject      string
	GeminiLocation     string
	GeminiModel        string
	OpenaiAPIKey       string
	OpenaiBaseURL      string
	OpenaiModel        string
	OpenRouterReferrer string
	OpenRouterTitle    string
	YandexOAuthToken   string
	YandexFolderID     string
}

func NewFactory(cfg *config.Config) *Factory {
	return &Factory{
		GeminiAPIKey:       cfg.GeminiAPIKey,
		GeminiAccessToken:  cfg.GeminiAccessToken,
		GeminiProject:      cfg.GeminiProject,
		GeminiLocation:     cfg.GeminiLocation,
		GeminiModel:        cfg.GeminiModel,
		OpenaiAPIKey:       cfg.OpenAIAPIKey,
		OpenaiBaseURL:      cfg.OpenAIBaseURL,
		OpenaiModel:        cfg.OpenAIModel,
		OpenRouterReferrer: cfg.OpenRouterReferrer,
		OpenRouterTitle:    cfg.OpenRouterTitle,
		YandexOAuthToken:   cfg.YandexOAuthToken,
		YandexFolderID:     cfg.YandexFolderID,
	}
}

// CreateClient builds the client for provider. An empty model selects the
// provider's configured default.
func (f *Factory) CreateClient(ctx context.Context, provider, model string) (Client, error) {
	switch strings.ToLower(provider) {
	case ProviderGemini:
		if model == "" {
			model = f.GeminiModel
		}
		return NewGemini(ctx, GeminiConfig{
			APIKey:      f.GeminiAPIKey,
			AccessToken: f.GeminiAccessToken,
			Project:     f.GeminiProject,
			Location:    f.GeminiLocation,
			Model:       model,
		})
	case ProviderOpenAI:
		if model == "" {
			model = f.OpenaiModel
		}
		return NewOpenAI(f.OpenaiAPIKey, f.OpenaiBaseURL, model, f.OpenRouterReferrer, f.OpenRouterTitle), nil
	case ProviderYandex:
		return NewYandex(f.YandexOAuthToken, f.YandexFolderID)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", provider)
	}
}
