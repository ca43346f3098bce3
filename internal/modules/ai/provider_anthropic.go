package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	anthropicclient "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/flowdeck/core/internal/config"
)

type anthropicClient struct {
	client  anthropicclient.Client
	model   string
	timeout time.Duration
}

func newAnthropicClient(cfg config.AIConfig) *anthropicClient {
	opts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		anthropicoption.WithMaxRetries(0),
	}
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		opts = append(opts, anthropicoption.WithBaseURL(strings.TrimRight(endpoint, "/")))
	}
	return &anthropicClient{
		client:  anthropicclient.NewClient(opts...),
		model:   cfg.Model,
		timeout: cfg.Timeout(),
	}
}

func (c *anthropicClient) ModelName() string { return c.model }

func (c *anthropicClient) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	params := anthropicclient.MessageNewParams{
		Model:       anthropicclient.Model(c.model),
		MaxTokens:   int64(req.MaxTokens),
		Temperature: anthropicclient.Float(req.Temperature),
	}
	if params.MaxTokens <= 0 {
		params.MaxTokens = 1024
	}
	for _, m := range req.Messages {
		if m.Role == "system" {
			params.System = append(params.System, anthropicclient.TextBlockParam{Text: m.Content})
			continue
		}
		params.Messages = append(params.Messages,
			anthropicclient.NewUserMessage(anthropicclient.NewTextBlock(m.Content)))
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	msg, err := c.client.Messages.New(callCtx, params)
	latency := time.Since(start).Seconds()
	if err != nil {
		return nil, mapAnthropicError(err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, &ProviderError{Kind: ErrKindUnknown, Message: "empty response"}
	}

	in := int(msg.Usage.InputTokens)
	out := int(msg.Usage.OutputTokens)
	return &Completion{
		Text:           text.String(),
		TokensInput:    in,
		TokensOutput:   out,
		TokensTotal:    in + out,
		LatencySeconds: latency,
	}, nil
}

func mapAnthropicError(err error) error {
	var apierr *anthropicclient.Error
	if errors.As(err, &apierr) {
		return &ProviderError{
			Kind:    classifyStatus(apierr.StatusCode),
			Status:  apierr.StatusCode,
			Message: apierr.Error(),
			Err:     err,
		}
	}
	return &ProviderError{Kind: ErrKindUnknown, Err: err}
}
