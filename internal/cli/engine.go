package cli

import (
	"context"
	"fmt"

	"tendermatch/internal/ai"
	"tendermatch/internal/analysis"
	"tendermatch/internal/config"
	"tendermatch/internal/errors"
	"tendermatch/internal/matching"
	"tendermatch/internal/narrative"
	"tendermatch/internal/observability"
	"tendermatch/internal/parser"
)

// engineFactory builds orchestrators from configuration. AI services are
// created once so their circuit breakers survive vocabulary reloads.
type engineFactory struct {
	cfg       *config.Config
	logger    *errors.Logger
	om        *observability.ObservabilityManager
	extract   *ai.Service
	justify   *ai.Service
	extractor *ai.TenderExtractor
	justifier *ai.CandidateJustifier
}

func newEngineFactory(cfg *config.Config, logger *errors.Logger, om *observability.ObservabilityManager) *engineFactory {
	f := &engineFactory{cfg: cfg, logger: logger, om: om}
	if !cfg.AIEnabled() {
		logger.Info("No AI API key configured, running deterministic only")
		return f
	}

	track := trackWith(om)

	extractCfg := cfg.GetExtractConfig()
	if svc := f.newService(&extractCfg, "extract"); svc != nil {
		f.extract = svc
		f.extractor = ai.NewTenderExtractor(svc.Provider, track)
	}

	justifyCfg := cfg.GetJustifyConfig()
	if svc := f.newService(&justifyCfg, "justify"); svc != nil {
		f.justify = svc
		f.justifier = ai.NewCandidateJustifier(svc.Provider, track)
	}

	return f
}

// newService returns nil when the collaborator cannot be created; the engine
// then runs without it.
func (f *engineFactory) newService(cfg *config.OperationAIConfig, operation string) *ai.Service {
	if cfg.APIKey == "" {
		return nil
	}
	svc, err := ai.NewService(cfg, operation, f.logger)
	if err != nil {
		f.logger.Warn("AI collaborator unavailable, using deterministic fallback",
			"operation", operation, "error", err)
		return nil
	}
	return svc
}

// Build creates an orchestrator around vocab. A nil vocab loads the
// configured vocabulary file, or the built-in list when none is set.
func (f *engineFactory) Build(vocab *parser.Vocabulary) (*analysis.Orchestrator, error) {
	if vocab == nil {
		var err error
		if vocab, err = loadVocabulary(f.cfg.Matching.VocabularyFile); err != nil {
			return nil, err
		}
	}

	strictness, err := matching.ParseSectorStrictness(f.cfg.Matching.SectorMatch)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "invalid sector match mode", err)
	}

	candidates := parser.NewCandidateParser(parser.CandidateOptions{
		MaxNameLength: f.cfg.Matching.MaxNameLength,
		Vocabulary:    vocab,
	})
	engine := matching.NewEngine(matching.Options{
		SectorStrictness: strictness,
		MinTokenLength:   f.cfg.Matching.MinTokenLength,
	})
	gen := narrative.NewGenerator(narrative.Options{Signature: f.cfg.Narrative.Signature})

	metrics := f.om.GetMetrics()
	opts := []analysis.Option{
		analysis.WithAITimeout(f.cfg.Analysis.AITimeout),
		analysis.WithParallelism(f.cfg.Analysis.Parallelism),
		analysis.WithLogger(f.logger),
		analysis.WithFallbackRecorder(metrics.RecordFallback),
	}
	if f.extractor != nil {
		opts = append(opts, analysis.WithExtractor(f.extractor))
	}
	if f.justifier != nil {
		opts = append(opts, analysis.WithJustifier(f.justifier))
	}

	return analysis.New(candidates, engine, gen, opts...), nil
}

// AIStatus reports model readiness for the health endpoint
func (f *engineFactory) AIStatus(ctx context.Context) map[string]any {
	status := map[string]any{"enabled": f.extract != nil || f.justify != nil}
	for name, svc := range map[string]*ai.Service{"extract": f.extract, "justify": f.justify} {
		if svc == nil {
			status[name] = map[string]any{"available": false, "configured": false}
			continue
		}
		info := svc.GetModelInfo(ctx)
		status[name] = map[string]any{
			"available":  info.Available && svc.Provider.Available(),
			"configured": true,
			"model":      info,
		}
	}
	return status
}

// Close releases the AI providers
func (f *engineFactory) Close() {
	for _, svc := range []*ai.Service{f.extract, f.justify} {
		if svc == nil {
			continue
		}
		if err := svc.Close(); err != nil {
			f.logger.Warn("Failed to close AI service", "error", err)
		}
	}
}

func loadVocabulary(path string) (*parser.Vocabulary, error) {
	if path == "" {
		return parser.DefaultVocabulary(), nil
	}
	vocab, err := parser.LoadVocabulary(path)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("cannot load vocabulary file %s", path), err)
	}
	return vocab, nil
}

// trackWith routes collaborator calls through the AI operation metrics
func trackWith(om *observability.ObservabilityManager) ai.TrackFunc {
	metrics := om.GetMetrics()
	return func(ctx context.Context, operation string, fn func(context.Context) (*ai.TokenUsage, error)) error {
		return metrics.TrackAIOperationWithTokens(ctx, operation, func(ctx context.Context) *observability.AIOperationResult {
			usage, err := fn(ctx)
			return &observability.AIOperationResult{
				Error:      err,
				TokenUsage: (*observability.TokenUsage)(usage),
			}
		}, om)
	}
}
