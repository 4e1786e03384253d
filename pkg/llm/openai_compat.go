package llm

import (
	"context"
	"errors"
	"fmt"

	openaigo "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Compatible targets any OpenAI-compatible chat endpoint (local servers,
// gateways) through the official SDK with a custom base URL.
type Compatible struct {
	model string
	opts  []option.RequestOption
}

func NewCompatible(apiKey, baseURL, model string) (*Compatible, error) {
	if baseURL == "" {
		return nil, errors.New("openai-compatible: base url is required")
	}
	if model == "" {
		return nil, errors.New("openai-compatible: model is required")
	}
	opts := []option.RequestOption{option.WithBaseURL(baseURL)}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	return &Compatible{model: model, opts: opts}, nil
}

func (c *Compatible) Name() string { return "openai-compatible" }

func (c *Compatible) Generate(ctx context.Context, req Request) (string, error) {
	client := openaigo.NewClient(c.opts...)

	var msgs []openaigo.ChatCompletionMessageParamUnion
	if req.System != "" {
		msgs = append(msgs, openaigo.SystemMessage(req.System))
	}
	msgs = append(msgs, openaigo.UserMessage(req.Prompt))

	resp, err := client.Chat.Completions.New(ctx, openaigo.ChatCompletionNewParams{
		Model:       openaigo.ChatModel(c.model),
		Messages:    msgs,
		Temperature: openaigo.Float(float64(req.Temperature)),
	})
	if err != nil {
		return "", fmt.Errorf("openai-compatible: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmpty
	}
	return resp.Choices[0].Message.Content, nil
}
