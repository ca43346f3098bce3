package ai

import (
	"context"
	"errors"
	neturl "net/url"
	"strings"
	"time"

	"github.com/flowdeck/core/internal/config"
	openaiclient "github.com/openai/openai-go/v2"
	openaioption "github.com/openai/openai-go/v2/option"
)

type openAIClient struct {
	client  openaiclient.Client
	model   string
	timeout time.Duration
}

func newOpenAIClient(cfg config.AIConfig) *openAIClient {
	opts := []openaioption.RequestOption{
		openaioption.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		openaioption.WithMaxRetries(0),
	}
	if normalized := normalizeOpenAIBaseURL(cfg.Endpoint); normalized != "" {
		opts = append(opts, openaioption.WithBaseURL(normalized))
	}
	return &openAIClient{
		client:  openaiclient.NewClient(opts...),
		model:   cfg.Model,
		timeout: cfg.Timeout(),
	}
}

func (c *openAIClient) ModelName() string { return c.model }

func (c *openAIClient) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	messages := make([]openaiclient.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			messages = append(messages, openaiclient.SystemMessage(m.Content))
		default:
			messages = append(messages, openaiclient.UserMessage(m.Content))
		}
	}

	params := openaiclient.ChatCompletionNewParams{
		Model:    openaiclient.ChatModel(c.model),
		Messages: messages,
		N:        openaiclient.Int(1),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openaiclient.Int(int64(req.MaxTokens))
	}
	params.Temperature = openaiclient.Float(req.Temperature)

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(callCtx, params)
	latency := time.Since(start).Seconds()
	if err != nil {
		return nil, mapOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &ProviderError{Kind: ErrKindUnknown, Message: "empty response"}
	}

	return &Completion{
		Text:           resp.Choices[0].Message.Content,
		TokensInput:    int(resp.Usage.PromptTokens),
		TokensOutput:   int(resp.Usage.CompletionTokens),
		TokensTotal:    int(resp.Usage.TotalTokens),
		LatencySeconds: latency,
	}, nil
}

func mapOpenAIError(err error) error {
	var apierr *openaiclient.Error
	if errors.As(err, &apierr) {
		return &ProviderError{
			Kind:    classifyStatus(apierr.StatusCode),
			Status:  apierr.StatusCode,
			Message: apierr.Message,
			Err:     err,
		}
	}
	return &ProviderError{Kind: ErrKindUnknown, Err: err}
}

func normalizeOpenAIBaseURL(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return ""
	}
	parsed, err := neturl.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return strings.TrimRight(base, "/")
	}

	path := strings.TrimRight(parsed.Path, "/")
	if !strings.HasSuffix(path, "/v1") {
		if path == "" {
			path = "/v1"
		} else {
			path += "/v1"
		}
	}
	parsed.Path = path
	return strings.TrimRight(parsed.String(), "/")
}
