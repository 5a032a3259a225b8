package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v6"
	"github.com/go-playground/validator/v10"
)

type LLMProvider string

const (
	ProviderGemini LLMProvider = "gemini"
	ProviderOpenAI LLMProvider = "openai"
	ProviderYandex LLMProvider = "yandex"
)

type Config struct {
	TelegramBotToken string  `env:"TELEGRAM_BOT_TOKEN"`
	AllowedUsers     []int64 `env:"ALLOWED_USERS" envSeparator:":"`
	AdminUserID      int64   `env:"ADMIN_USER"`
	OpenAccess       bool    `env:"OPEN_ACCESS" envDefault:"false"`

	// LLM settings
	LLMProvider       LLMProvider `env:"LLM_PROVIDER" envDefault:"gemini" validate:"oneof=gemini openai yandex"`
	GeminiAPIKey      string      `env:"GEMINI_API_KEY"`
	GeminiAccessToken string      `env:"GEMINI_ACCESS_TOKEN"`
	GeminiProject     string      `env:"GEMINI_PROJECT"`
	GeminiLocation    string      `env:"GEMINI_LOCATION" envDefault:"us-central1"`
	GeminiModel       string      `env:"GEMINI_MODEL" envDefault:"gemini-2.5-pro" validate:"required"`
	OpenAIAPIKey      string      `env:"OPENAI_API_KEY"`
	OpenAIBaseURL     string      `env:"OPENAI_BASE_URL" validate:"omitempty,url"`
	OpenAIModel       string      `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini" validate:"required"`
	YandexOAuthToken  string      `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID    string      `env:"YANDEX_FOLDER_ID"`

	// OpenRouter (optional)
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE"`

	// Prompts and static content; empty means the built-in defaults.
	SystemPromptPath string `env:"SYSTEM_PROMPT_PATH"`
	ContentPath      string `env:"CONTENT_PATH"`

	// Storage
	StorageDriver     string `env:"STORAGE_DRIVER" envDefault:"file" validate:"oneof=file sqlite"`
	StoragePath       string `env:"STORAGE_PATH" envDefault:"data/mindmate.json" validate:"required"`
	LogFilePath       string `env:"LOG_FILE_PATH" envDefault:"logs/events.jsonl"`
	AllowlistFilePath string `env:"ALLOWLIST_FILE_PATH" envDefault:"data/allowlist.json"`
	PendingFilePath   string `env:"PENDING_FILE_PATH" envDefault:"data/pending.json"`

	// Speech-to-text for voice messages (OpenAI-compatible transcription).
	SpeechEnabled      bool   `env:"SPEECH_ENABLED" envDefault:"true"`
	TranscriptionModel string `env:"TRANSCRIPTION_MODEL" envDefault:"whisper-1"`
	SpeechLanguage     string `env:"SPEECH_LANGUAGE" envDefault:"en"`

	// Operations
	MetricsAddr string `env:"METRICS_ADDR"`
	ReportCron  string `env:"REPORT_CRON" envDefault:"0 21 * * *"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console" validate:"oneof=console json"`
	LogOutput string `env:"LOG_OUTPUT" envDefault:"stderr"`

	// Formatting
	MessageParseMode string `env:"MESSAGE_PARSE_MODE" envDefault:"HTML" validate:"oneof=HTML Markdown MarkdownV2"`
}

// Load parses the environment into a Config and validates it, including the
// credentials of the selected provider.
func Load() (*Config, error) {
	cfg, err := Parse()
	if err != nil {
		return nil, err
	}
	if err := cfg.validateProvider(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse is Load without the provider credential checks, for commands that
// never talk to a model.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks field constraints and that the selected provider has the
// credentials it needs.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return c.validateProvider()
}

func (c *Config) validateProvider() error {
	switch c.LLMProvider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" && c.GeminiAccessToken == "" {
			return errors.New("invalid config: GEMINI_API_KEY or GEMINI_ACCESS_TOKEN is required for the gemini provider")
		}
		if c.GeminiAPIKey == "" && c.GeminiProject == "" {
			return errors.New("invalid config: GEMINI_PROJECT is required with GEMINI_ACCESS_TOKEN")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return errors.New("invalid config: OPENAI_API_KEY is required for the openai provider")
		}
	case ProviderYandex:
		if c.YandexOAuthToken == "" || c.YandexFolderID == "" {
			return errors.New("invalid config: YANDEX_OAUTH_TOKEN and YANDEX_FOLDER_ID are required for the yandex provider")
		}
	}
	return nil
}

// SpeechAvailable reports whether voice transcription can be offered: it is
// enabled and an OpenAI-compatible key is configured.
func (c *Config) SpeechAvailable() bool {
	return c.SpeechEnabled && c.OpenAIAPIKey != ""
}
