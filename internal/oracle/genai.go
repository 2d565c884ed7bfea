package oracle

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const DefaultGenAIModel = "gemini-2.0-flash"

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GenAIConfig configures a GenAITransport.
type GenAIConfig struct {
	APIKey      string
	Model       string
	Temperature float32
}

// GenAITransport sends requests to Gemini with a JSON response MIME type.
type GenAITransport struct {
	models contentGenerator
	cfg    GenAIConfig
}

// NewGenAITransport creates a Gemini API client.
func NewGenAITransport(ctx context.Context, cfg GenAIConfig) (*GenAITransport, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("genai transport: api key not set")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGenAIModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GenAITransport{models: client.Models, cfg: cfg}, nil
}

// Complete performs one GenerateContent call.
func (t *GenAITransport) Complete(ctx context.Context, req Request) (string, error) {
	system, user, err := RenderPrompt(req)
	if err != nil {
		return "", err
	}

	resp, err := t.models.GenerateContent(ctx, t.cfg.Model, genai.Text(user), &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(t.cfg.Temperature),
		ResponseMIMEType:  "application/json",
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("generate content: empty response")
	}
	return text, nil
}
