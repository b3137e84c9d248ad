package answerllm

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient answers questions via the Anthropic Messages API, the
// second AnswerClient backend — config-selectable via
// AnswerLLMConfig.Backend == "anthropic" — demonstrating the interface is
// backend-agnostic rather than tied to one gateway shape.
type AnthropicClient struct {
	client  anthropic.Client
	model   string
	timeout time.Duration
}

// NewAnthropic creates an AnswerClient backed by the Anthropic API.
func NewAnthropic(baseURL, token, model string, timeout time.Duration) *AnthropicClient {
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	opts := []option.RequestOption{option.WithAPIKey(token)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &AnthropicClient{
		client:  anthropic.NewClient(opts...),
		model:   model,
		timeout: timeout,
	}
}

// Answer generates a RAG answer using the configured Claude model.
func (c *AnthropicClient) Answer(ctx context.Context, question, noteContext string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt := BuildPrompt(question, noteContext)

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 1024,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic message: %w", err)
	}
	if len(message.Content) == 0 {
		return "", fmt.Errorf("anthropic message: no content blocks returned")
	}
	return message.Content[0].Text, nil
}
