package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go/v3"
)

const ocrPrompt = `You are an OCR engine.
Return the text of the page exactly as printed, in reading order.
Keep paragraphs separated by a blank line.
Do not translate, summarize or comment. If the page has no text, return nothing.`

// Vision reads the text of one rendered page.
type Vision struct {
	client openai.Client
	model  string
}

func NewVision(client openai.Client, model string) *Vision {
	if model == "" {
		model = string(openai.ChatModelGPT4oMini)
	}
	return &Vision{client: client, model: model}
}

func (v *Vision) ReadPage(ctx context.Context, png []byte) (string, error) {
	url := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)

	resp, err := v.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(ocrPrompt),
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: url}),
			}),
		},
		Model: openai.ChatModel(v.model),
	})
	if err != nil {
		return "", fmt.Errorf("vision completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errNoChoices
	}
	// A blank page is a valid answer.
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
