package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// Groq serves an OpenAI-compatible API; it is the default endpoint.
const (
	DefaultOpenAIBaseURL = "https://api.groq.com/openai/v1"
	DefaultOpenAIModel   = "llama-3.3-70b-versatile"
)

// chatCompleter is the part of *openai.Client the transport uses.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIConfig configures an OpenAITransport.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
}

// OpenAITransport sends requests to any OpenAI-compatible chat endpoint and
// asks for a JSON object reply.
type OpenAITransport struct {
	client chatCompleter
	cfg    OpenAIConfig
}

// NewOpenAITransport builds a transport from cfg. An empty API key is an error.
func NewOpenAITransport(cfg OpenAIConfig) (*OpenAITransport, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai transport: api key not set")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenAIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = cfg.BaseURL
	return &OpenAITransport{client: openai.NewClientWithConfig(oc), cfg: cfg}, nil
}

func newOpenAITransportWithClient(c chatCompleter, cfg OpenAIConfig) *OpenAITransport {
	return &OpenAITransport{client: c, cfg: cfg}
}

// Complete performs one chat completion.
func (t *OpenAITransport) Complete(ctx context.Context, req Request) (string, error) {
	system, user, err := RenderPrompt(req)
	if err != nil {
		return "", err
	}

	creq := openai.ChatCompletionRequest{
		Model: t.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: t.cfg.Temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
	if t.cfg.MaxTokens > 0 {
		creq.MaxCompletionTokens = t.cfg.MaxTokens
	}

	resp, err := t.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion: no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
