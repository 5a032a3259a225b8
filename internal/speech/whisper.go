package speech

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const DefaultTranscriptionModel = openai.Whisper1

// WhisperRecognizer transcribes clips through an OpenAI-compatible
// /audio/transcriptions endpoint.
type WhisperRecognizer struct {
	client   *openai.Client
	model    string
	language string
}

func NewWhisper(cfg openai.ClientConfig, model, language string) *WhisperRecognizer {
	if model == "" {
		model = DefaultTranscriptionModel
	}
	return &WhisperRecognizer{client: openai.NewClientWithConfig(cfg), model: model, language: language}
}

func (w *WhisperRecognizer) Recognize(ctx context.Context, clip Clip) (string, error) {
	rc, err := clip.Open(ctx)
	if err != nil {
		return "", fmt.Errorf("open clip: %w", err)
	}
	defer rc.Close()

	name := clip.Name
	if name == "" {
		name = "voice.ogg"
	}
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: name,
		Reader:   rc,
		Language: w.language,
	})
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	return resp.Text, nil
}
