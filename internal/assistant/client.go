package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Blue-Davinci/SmartSave/internal/httpclient"
)

const (
	DefaultCompletionsURL = "https://api.openai.com/v1/chat/completions"
	DefaultModel          = "gpt-3.5-turbo"
	DefaultMaxTokens      = 500
	DefaultTemperature    = 0.7
)

const systemInstruction = "You are a helpful financial assistant. Provide specific, actionable advice based on the user's actual spending data. If the user asks a non finance-related question, politely redirect them to financial topics."

var (
	ErrAssistant         = errors.New("assistant: request failed")
	ErrMissingCredential = errors.New("assistant: API key not configured")
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type upstreamError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Client talks to an OpenAI compatible chat completions endpoint.
type Client struct {
	http        *httpclient.Client
	url         string
	model       string
	maxTokens   int
	temperature float64
}

func NewClient(http *httpclient.Client, url string) *Client {
	if url == "" {
		url = DefaultCompletionsURL
	}
	return &Client{
		http:        http,
		url:         url,
		model:       DefaultModel,
		maxTokens:   DefaultMaxTokens,
		temperature: DefaultTemperature,
	}
}

// Ask sends the question together with the financial summary and returns the
// model's reply. Every failure is wrapped in ErrAssistant.
func (c *Client) Ask(ctx context.Context, apiKey, summary, question string) (string, error) {
	if strings.TrimSpace(apiKey) == "" {
		return "", fmt.Errorf("%w: %w", ErrAssistant, ErrMissingCredential)
	}
	request := completionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemInstruction},
			{Role: "user", Content: BuildPrompt(summary, question)},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
	headers := map[string]string{"Authorization": "Bearer " + apiKey}

	response, err := httpclient.POSTRequest[completionResponse](ctx, c.http, c.url, headers, request)
	if err != nil {
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) {
			return "", fmt.Errorf("%w: %s", ErrAssistant, upstreamMessage(statusErr))
		}
		return "", fmt.Errorf("%w: %v", ErrAssistant, err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("%w: response contained no choices", ErrAssistant)
	}
	return response.Choices[0].Message.Content, nil
}

func upstreamMessage(statusErr *httpclient.StatusError) string {
	var body upstreamError
	if err := json.Unmarshal(statusErr.Body, &body); err == nil && body.Error.Message != "" {
		return body.Error.Message
	}
	return "API request failed: " + statusErr.Error()
}
