package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/auth"
	"cloud.google.com/go/auth/oauth2adapt"
	"golang.org/x/oauth2"
	"google.golang.org/genai"
)

const (
	DefaultGeminiModel    = "gemini-2.5-pro"
	DefaultGeminiLocation = "us-central1"
)

// GeminiConfig selects the Gemini backend. An API key talks to the Gemini
// API; without one, an OAuth2 access token and a project talk to Vertex AI.
type GeminiConfig struct {
	APIKey      string
	AccessToken string
	Project     string
	Location    string
	Model       string
	// BaseURL overrides the service endpoint.
	BaseURL string
}

// GeminiClient generates through the Google GenAI SDK. System messages become
// the system instruction; user/model turns become contents with the same
// role names.
type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	cc := &genai.ClientConfig{HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL}}
	switch {
	case cfg.APIKey != "":
		cc.Backend = genai.BackendGeminiAPI
		cc.APIKey = cfg.APIKey
	case cfg.AccessToken != "":
		if cfg.Project == "" {
			return nil, errors.New("gemini: project required with an access token")
		}
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken, TokenType: "Bearer"})
		cc.Backend = genai.BackendVertexAI
		cc.Project = cfg.Project
		cc.Location = cfg.Location
		if cc.Location == "" {
			cc.Location = DefaultGeminiLocation
		}
		cc.Credentials = auth.NewCredentials(&auth.CredentialsOptions{
			TokenProvider: oauth2adapt.TokenProviderFromTokenSource(ts),
		})
	default:
		return nil, errors.New("gemini: api key or access token required")
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiClient{client: client, model: model}, nil
}

func (c *GeminiClient) Generate(ctx context.Context, messages []Message) (Response, error) {
	contents, config := buildGeminiRequest(messages)
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return Response{}, fmt.Errorf("gemini: generate content: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return Response{}, ErrEmptyResponse
	}
	out := Response{Content: text, Model: c.model}
	if u := resp.UsageMetadata; u != nil {
		out.PromptTokens = int(u.PromptTokenCount)
		out.CompletionTokens = int(u.CandidatesTokenCount)
		out.TotalTokens = int(u.TotalTokenCount)
	}
	return out, nil
}

func buildGeminiRequest(messages []Message) ([]*genai.Content, *genai.GenerateContentConfig) {
	system, turns := splitSystem(messages)
	config := &genai.GenerateContentConfig{}
	if len(system) > 0 {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: strings.Join(system, "\n\n")}},
		}
	}
	contents := make([]*genai.Content, 0, len(turns))
	for _, m := range turns {
		role := RoleUser
		if m.Role == RoleModel {
			role = RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return contents, config
}
