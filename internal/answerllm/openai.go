package answerllm

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIClient answers questions via an OpenAI-compatible chat completions
// gateway (the "OpenAI-style" gateway spec §6 describes as one instance of
// the answer backend, not the only one).
type OpenAIClient struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAI creates an AnswerClient backed by an OpenAI-compatible API.
// baseURL may point at any gateway speaking the same wire protocol; token
// is sent as a bearer credential.
func NewOpenAI(baseURL, token, model string, timeout time.Duration) *OpenAIClient {
	if model == "" {
		model = "gpt-4o-mini"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	opts := []option.RequestOption{option.WithAPIKey(token)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAIClient{
		client:  openai.NewClient(opts...),
		model:   model,
		timeout: timeout,
	}
}

// Answer generates a RAG answer using the configured chat model.
func (c *OpenAIClient) Answer(ctx context.Context, question, noteContext string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt := BuildPrompt(question, noteContext)

	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("openai chat completion: no choices returned")
	}
	return completion.Choices[0].Message.Content, nil
}
