package llm

import (
	"context"
	"fmt"
	log "log/slog"
	"strings"

	openai "github.com/openai/openai-go/v3"
)

const formatPrompt = "You are a professional text formatter. Format text only, do not translate"

type Formatter struct {
	client openai.Client
	model  string
}

func NewFormatter(client openai.Client, model string) *Formatter {
	if model == "" {
		model = string(openai.ChatModelGPT4o)
	}
	return &Formatter{client: client, model: model}
}

// Format returns transcript with punctuation, casing and paragraphs fixed,
// in its original language.
func (f *Formatter) Format(ctx context.Context, transcript string) (string, error) {
	resp, err := f.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(formatPrompt),
			openai.UserMessage(transcript),
		},
		Model: openai.ChatModel(f.model),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	content, err := firstContent(resp)
	if err != nil {
		return "", err
	}

	log.Debug("Formatted", "model", f.model, "in", len(transcript), "out", len(content))
	return strings.TrimSpace(content), nil
}
