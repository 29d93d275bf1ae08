package llm

import (
	"context"
	"fmt"
	log "log/slog"
	"os"
	"strings"

	openai "github.com/openai/openai-go/v3"
)

// Transcriber sends audio files to the OpenAI transcription endpoint. The
// file extension tells the API which container it is.
type Transcriber struct {
	client   openai.Client
	language string
}

func NewTranscriber(client openai.Client, language string) *Transcriber {
	return &Transcriber{client: client, language: language}
}

func (t *Transcriber) Transcribe(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	params := openai.AudioTranscriptionNewParams{
		File:  f,
		Model: openai.AudioModelWhisper1,
	}
	if t.language != "" {
		params.Language = openai.String(t.language)
	}

	res, err := t.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("transcription: %w", err)
	}

	log.Debug("Transcribed", "file", path, "chars", len(res.Text))
	return strings.TrimSpace(res.Text), nil
}
