// Package llm holds the OpenAI backed services: speech to text, transcript
// formatting and page OCR. One client is built at startup and shared.
package llm

import (
	"errors"
	"net/http"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

var errNoChoices = errors.New("no choices in response")

var errEmptyContent = errors.New("empty message content")

// NewClient builds the OpenAI client. baseURL may be empty.
func NewClient(apiKey string, httpClient *http.Client, baseURL string) openai.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return openai.NewClient(opts...)
}

func firstContent(resp *openai.ChatCompletion) (string, error) {
	if len(resp.Choices) == 0 {
		return "", errNoChoices
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", errEmptyContent
	}
	return content, nil
}
