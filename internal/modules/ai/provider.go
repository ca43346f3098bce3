package ai

import (
	"context"
	"fmt"
	"net/http"

	"github.com/flowdeck/core/internal/config"
)

// Message is one turn of the outbound chat payload.
type Message struct {
	Role    string
	Content string
}

// CompletionRequest carries everything a provider call needs.
type CompletionRequest struct {
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// Completion is the normalized provider response.
type Completion struct {
	Text           string
	TokensInput    int
	TokensOutput   int
	TokensTotal    int
	LatencySeconds float64
}

// Client is the provider abstraction. The set of implementations is closed:
// one per configured provider, chosen at process start. Implementations make
// exactly one network call per Complete and never retry internally.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
	ModelName() string
}

// NewClient builds the provider client named by configuration.
func NewClient(cfg config.AIConfig) (Client, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return newOpenAIClient(cfg), nil
	case config.ProviderAnthropic:
		return newAnthropicClient(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.Provider)
	}
}

// classifyStatus maps an HTTP status from the provider onto the error
// taxonomy.
func classifyStatus(status int) ProviderErrorKind {
	switch status {
	case http.StatusTooManyRequests:
		return ErrKindRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrKindAuthFailed
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrKindInvalidRequest
	default:
		return ErrKindUnknown
	}
}
