package ai

import (
	"context"

	"tendermatch/internal/types"
)

// AIProvider is a model backend for the two collaborator operations.
// Every call reports token usage; callers may ignore it.
type AIProvider interface {
	// ExtractTender returns the model's loosely shaped requirements object.
	// It is untrusted and must be normalized by the caller.
	ExtractTender(ctx context.Context, tenderText string) (map[string]any, *TokenUsage, error)
	JustifyCandidate(ctx context.Context, input types.JustificationInput) (types.JustificationOutput, *TokenUsage, error)
	// Available is false while the provider's circuit breaker is open
	Available() bool
	GetModelInfo(ctx context.Context) *ModelInfo
	Close() error
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}
