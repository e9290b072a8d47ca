package observability

import (
	"context"
	"fmt"
	"time"

	"tendermatch/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Metrics holds all custom instruments for tendermatch
type Metrics struct {
	// AI collaborator metrics
	AIProcessingTime metric.Float64Histogram
	AIRequestCount   metric.Int64Counter
	AIErrorCount     metric.Int64Counter
	AITokenUsage     metric.Int64Histogram
	AIFallbacks      metric.Int64Counter

	// Business metrics
	AnalysesRun      metric.Int64Counter
	CandidatesRanked metric.Int64Counter
	CandidateScores  metric.Int64Histogram
	ContentSize      metric.Int64Histogram

	// Infrastructure metrics
	RateLimitHits  metric.Int64Counter
	ActiveSessions metric.Int64UpDownCounter

	om *ObservabilityManager
}

// AIOperationResult holds the result of an AI operation including token usage
type AIOperationResult struct {
	Error      error
	TokenUsage *TokenUsage
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	if err := m.createAIMetrics(meter); err != nil {
		return nil, err
	}
	if err := m.createBusinessMetrics(meter); err != nil {
		return nil, err
	}
	if err := m.createInfrastructureMetrics(meter); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) createAIMetrics(meter metric.Meter) error {
	var err error

	m.AIProcessingTime, err = meter.Float64Histogram(
		"tendermatch_ai_request_duration_seconds",
		metric.WithDescription("Time spent in AI collaborator requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create AI processing time metric: %w", err)
	}

	m.AIRequestCount, err = meter.Int64Counter(
		"tendermatch_ai_requests_total",
		metric.WithDescription("Total number of AI collaborator requests"),
	)
	if err != nil {
		return fmt.Errorf("failed to create AI request count metric: %w", err)
	}

	m.AIErrorCount, err = meter.Int64Counter(
		"tendermatch_ai_errors_total",
		metric.WithDescription("Total number of failed AI collaborator requests"),
	)
	if err != nil {
		return fmt.Errorf("failed to create AI error count metric: %w", err)
	}

	m.AITokenUsage, err = meter.Int64Histogram(
		"tendermatch_ai_tokens_total",
		metric.WithDescription("Token usage for AI requests (input, output, total)"),
		metric.WithUnit("tokens"),
	)
	if err != nil {
		return fmt.Errorf("failed to create AI token usage metric: %w", err)
	}

	m.AIFallbacks, err = meter.Int64Counter(
		"tendermatch_ai_fallbacks_total",
		metric.WithDescription("Times the deterministic path replaced an AI collaborator"),
	)
	if err != nil {
		return fmt.Errorf("failed to create AI fallback metric: %w", err)
	}

	return nil
}

func (m *Metrics) createBusinessMetrics(meter metric.Meter) error {
	var err error

	m.AnalysesRun, err = meter.Int64Counter(
		"tendermatch_analyses_total",
		metric.WithDescription("Total number of tender analyses"),
	)
	if err != nil {
		return fmt.Errorf("failed to create analyses metric: %w", err)
	}

	m.CandidatesRanked, err = meter.Int64Counter(
		"tendermatch_candidates_ranked_total",
		metric.WithDescription("Total number of candidates scored against a tender"),
	)
	if err != nil {
		return fmt.Errorf("failed to create candidates ranked metric: %w", err)
	}

	m.CandidateScores, err = meter.Int64Histogram(
		"tendermatch_candidate_score",
		metric.WithDescription("Distribution of candidate suitability scores"),
		metric.WithExplicitBucketBoundaries(10, 20, 30, 40, 50, 60, 70, 80, 90, 100),
	)
	if err != nil {
		return fmt.Errorf("failed to create candidate score metric: %w", err)
	}

	m.ContentSize, err = meter.Int64Histogram(
		"tendermatch_content_size_bytes",
		metric.WithDescription("Size of submitted tender and CV documents"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return fmt.Errorf("failed to create content size metric: %w", err)
	}

	return nil
}

func (m *Metrics) createInfrastructureMetrics(meter metric.Meter) error {
	var err error

	m.RateLimitHits, err = meter.Int64Counter(
		"tendermatch_rate_limit_hits_total",
		metric.WithDescription("Total number of rate limit hits"),
	)
	if err != nil {
		return fmt.Errorf("failed to create rate limit hits metric: %w", err)
	}

	m.ActiveSessions, err = meter.Int64UpDownCounter(
		"tendermatch_active_sessions",
		metric.WithDescription("Number of live ranking sessions"),
	)
	if err != nil {
		return fmt.Errorf("failed to create active sessions metric: %w", err)
	}

	return nil
}

// TrackAIOperationWithTokens instruments an AI operation with tracing, metrics, and token usage
func (m *Metrics) TrackAIOperationWithTokens(ctx context.Context, operation string, fn func(context.Context) *AIOperationResult, om *ObservabilityManager) error {
	if m == nil || m.AIProcessingTime == nil {
		result := fn(ctx)
		if result != nil {
			return result.Error
		}
		return nil
	}

	tracer := otel.Tracer("tendermatch.ai")
	ctx, span := tracer.Start(ctx, "ai."+operation)
	defer span.End()

	start := time.Now()
	result := fn(ctx)
	duration := time.Since(start).Seconds()

	var err error
	if result != nil {
		err = result.Error
	}

	if isAIMetricsEnabled(om) {
		m.recordAIMetrics(ctx, operation, err, duration, result, om, span)
	}

	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("error", true))
	}

	return err
}

func isAIMetricsEnabled(om *ObservabilityManager) bool {
	if om == nil || om.fullConfig == nil {
		return true
	}
	return om.fullConfig.Observability.CustomMetrics.AIOperations.Enabled
}

func (m *Metrics) recordAIMetrics(ctx context.Context, operation string, err error, duration float64, result *AIOperationResult, om *ObservabilityManager, span oteltrace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.Bool("success", err == nil),
	}

	if om == nil || om.fullConfig == nil || om.fullConfig.Observability.CustomMetrics.AIOperations.TrackDuration {
		m.AIProcessingTime.Record(ctx, duration, metric.WithAttributes(attrs...))
	}
	m.AIRequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	if err != nil {
		m.AIErrorCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	m.recordTokenUsage(ctx, result, operation, om, span)

	span.SetAttributes(attrs...)
}

// recordTokenUsage records token usage metrics and span attributes
func (m *Metrics) recordTokenUsage(ctx context.Context, result *AIOperationResult, operation string, om *ObservabilityManager, span oteltrace.Span) {
	if result == nil || result.TokenUsage == nil || m.AITokenUsage == nil {
		return
	}
	usage := result.TokenUsage

	if om == nil || om.fullConfig == nil || om.fullConfig.Observability.CustomMetrics.AIOperations.TrackTokenUsage {
		for _, tt := range []struct {
			tokenType string
			value     int64
		}{
			{"input", usage.InputTokens},
			{"output", usage.OutputTokens},
			{"total", usage.TotalTokens},
		} {
			m.AITokenUsage.Record(ctx, tt.value, metric.WithAttributes(
				attribute.String("operation", operation),
				attribute.String("token_type", tt.tokenType),
			))
		}
	}

	// Traces always carry token counts
	span.SetAttributes(
		attribute.Int64("ai.tokens.input", usage.InputTokens),
		attribute.Int64("ai.tokens.output", usage.OutputTokens),
		attribute.Int64("ai.tokens.total", usage.TotalTokens),
	)
}

// RecordFallback counts a deterministic replacement for an AI collaborator
func (m *Metrics) RecordFallback(ctx context.Context, operation string) {
	if m == nil || m.AIFallbacks == nil {
		return
	}
	if cfg := m.fullConfig(); cfg != nil {
		ai := cfg.Observability.CustomMetrics.AIOperations
		if !ai.Enabled || !ai.TrackFallbacks {
			return
		}
	}
	m.AIFallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}

// RecordAnalysis counts one tender analysis. source is the entry point
// ("analyze", "rank" or "session").
func (m *Metrics) RecordAnalysis(ctx context.Context, source string, success bool, aiUsed bool) {
	if m == nil || m.AnalysesRun == nil || !m.businessEnabled() {
		return
	}
	m.AnalysesRun.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.Bool("success", success),
		attribute.Bool("ai_used", aiUsed),
	))
}

// RecordCandidateScores counts ranked candidates and, when enabled, their score distribution
func (m *Metrics) RecordCandidateScores(ctx context.Context, scores []int) {
	if m == nil || m.CandidatesRanked == nil || !m.businessEnabled() {
		return
	}
	m.CandidatesRanked.Add(ctx, int64(len(scores)))

	if cfg := m.fullConfig(); cfg != nil && !cfg.Observability.CustomMetrics.BusinessMetrics.TrackScores {
		return
	}
	for _, score := range scores {
		m.CandidateScores.Record(ctx, int64(score))
	}
}

// RecordContentSize records the size of an uploaded document. kind is "tender" or "cv".
func (m *Metrics) RecordContentSize(ctx context.Context, kind string, size int) {
	if m == nil || m.ContentSize == nil || !m.businessEnabled() {
		return
	}
	if cfg := m.fullConfig(); cfg != nil && !cfg.Observability.CustomMetrics.BusinessMetrics.TrackContentSize {
		return
	}
	m.ContentSize.Record(ctx, int64(size), metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordRateLimitHit records a rejected request
func (m *Metrics) RecordRateLimitHit(ctx context.Context, attrs ...attribute.KeyValue) {
	if m == nil || m.RateLimitHits == nil {
		return
	}
	if cfg := m.fullConfig(); cfg != nil {
		infra := cfg.Observability.CustomMetrics.Infrastructure
		if !infra.Enabled || !infra.TrackRateLimits {
			return
		}
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// SessionOpened and SessionClosed keep the live-session gauge current
func (m *Metrics) SessionOpened(ctx context.Context) { m.addSessions(ctx, 1) }

func (m *Metrics) SessionClosed(ctx context.Context) { m.addSessions(ctx, -1) }

func (m *Metrics) addSessions(ctx context.Context, delta int64) {
	if m == nil || m.ActiveSessions == nil {
		return
	}
	if cfg := m.fullConfig(); cfg != nil {
		infra := cfg.Observability.CustomMetrics.Infrastructure
		if !infra.Enabled || !infra.TrackSessions {
			return
		}
	}
	m.ActiveSessions.Add(ctx, delta)
}

func (m *Metrics) businessEnabled() bool {
	cfg := m.fullConfig()
	return cfg == nil || cfg.Observability.CustomMetrics.BusinessMetrics.Enabled
}

func (m *Metrics) fullConfig() *config.Config {
	if m.om == nil {
		return nil
	}
	return m.om.fullConfig
}
