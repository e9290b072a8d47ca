package ai

import (
	"context"

	"tendermatch/internal/types"
)

// TrackFunc wraps one provider call, typically to record spans and metrics.
// It must call fn exactly once and return fn's error.
type TrackFunc func(ctx context.Context, operation string, fn func(context.Context) (*TokenUsage, error)) error

func passThrough(ctx context.Context, _ string, fn func(context.Context) (*TokenUsage, error)) error {
	_, err := fn(ctx)
	return err
}

// TenderExtractor adapts a provider to the analysis extractor contract
type TenderExtractor struct {
	provider AIProvider
	track    TrackFunc
}

// NewTenderExtractor wraps provider. A nil track calls the provider directly.
func NewTenderExtractor(provider AIProvider, track TrackFunc) *TenderExtractor {
	if track == nil {
		track = passThrough
	}
	return &TenderExtractor{provider: provider, track: track}
}

// IsAvailable is false without a provider or while its breaker is open
func (e *TenderExtractor) IsAvailable() bool {
	return e != nil && e.provider != nil && e.provider.Available()
}

// ExtractTender returns the provider's raw requirements object
func (e *TenderExtractor) ExtractTender(ctx context.Context, text string) (map[string]any, error) {
	var out map[string]any
	err := e.track(ctx, "extract_tender", func(ctx context.Context) (*TokenUsage, error) {
		var usage *TokenUsage
		var err error
		out, usage, err = e.provider.ExtractTender(ctx, text)
		return usage, err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CandidateJustifier adapts a provider to the analysis justifier contract
type CandidateJustifier struct {
	provider AIProvider
	track    TrackFunc
}

// NewCandidateJustifier wraps provider. A nil track calls the provider directly.
func NewCandidateJustifier(provider AIProvider, track TrackFunc) *CandidateJustifier {
	if track == nil {
		track = passThrough
	}
	return &CandidateJustifier{provider: provider, track: track}
}

// IsAvailable is false without a provider or while its breaker is open
func (j *CandidateJustifier) IsAvailable() bool {
	return j != nil && j.provider != nil && j.provider.Available()
}

// Justify returns the provider's justification paragraph
func (j *CandidateJustifier) Justify(ctx context.Context, input types.JustificationInput) (string, error) {
	var out types.JustificationOutput
	err := j.track(ctx, "justify_candidate", func(ctx context.Context) (*TokenUsage, error) {
		var usage *TokenUsage
		var err error
		out, usage, err = j.provider.JustifyCandidate(ctx, input)
		return usage, err
	})
	if err != nil {
		return "", err
	}
	return out.Justification, nil
}
