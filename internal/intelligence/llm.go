package intelligence

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// LLMClient abstrae el proveedor de completions. La implementación real
// usa OpenAI; los tests inyectan un fake.
type LLMClient interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// OpenAIConfig parametriza el cliente real.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
}

type openAIClient struct {
	client *openai.Client
	cfg    OpenAIConfig
}

// NewOpenAIClient crea el cliente de completions contra OpenAI.
func NewOpenAIClient(cfg OpenAIConfig) (LLMClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing OpenAI API key")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	return &openAIClient{client: openai.NewClient(cfg.APIKey), cfg: cfg}, nil
}

func (o *openAIClient) Generate(ctx context.Context, system, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       o.cfg.Model,
		Temperature: o.cfg.Temperature,
		MaxTokens:   o.cfg.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("llm call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
