package assist

import (
	"context"
	"errors"

	"github.com/careops/platform/pkg/logging"
)

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is a single turn in a model conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

type LLMRequest struct {
	Model       string
	System      []string
	Messages    []ChatMessage
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

type LLMResponse struct {
	Text       string
	Usage      TokenUsage
	StopReason string
}

// LLMClient abstracts the generative-AI provider.
type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}

// FailoverClient attempts a primary completion, then falls back to a
// secondary provider on error.
type FailoverClient struct {
	primary       LLMClient
	secondary     LLMClient
	primaryName   string
	secondaryName string
	logger        *logging.Logger
}

// NewFailoverClient builds a failover client with named providers.
func NewFailoverClient(primary LLMClient, primaryName string, secondary LLMClient, secondaryName string, logger *logging.Logger) *FailoverClient {
	if logger == nil {
		logger = logging.Default()
	}
	return &FailoverClient{
		primary:       primary,
		secondary:     secondary,
		primaryName:   primaryName,
		secondaryName: secondaryName,
		logger:        logger,
	}
}

var _ LLMClient = (*FailoverClient)(nil)

// Complete tries the primary provider first, then the secondary on failure.
func (f *FailoverClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	if f == nil || f.primary == nil {
		return LLMResponse{}, errors.New("assist: failover primary client not configured")
	}
	resp, err := f.primary.Complete(ctx, req)
	if err == nil {
		return resp, nil
	}
	if f.secondary == nil {
		return LLMResponse{}, err
	}

	f.logger.Warn("primary completion failed; attempting fallback",
		"provider", f.primaryName,
		"fallback", f.secondaryName,
		"error", err,
	)
	resp, fallbackErr := f.secondary.Complete(ctx, req)
	if fallbackErr != nil {
		f.logger.Error("fallback completion failed",
			"provider", f.secondaryName,
			"error", fallbackErr,
		)
		return LLMResponse{}, fallbackErr
	}
	return resp, nil
}
