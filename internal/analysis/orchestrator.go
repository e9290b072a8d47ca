// Package analysis sequences parsing, matching and narrative generation into
// single-candidate analyses and multi-candidate rankings, with optional AI
// collaborators that always fall back to the deterministic path.
package analysis

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"tendermatch/internal/errors"
	"tendermatch/internal/matching"
	"tendermatch/internal/narrative"
	"tendermatch/internal/parser"
	"tendermatch/internal/types"
)

const (
	DefaultAITimeout   = 20 * time.Second
	DefaultParallelism = 4
)

// Extractor is an optional collaborator that extracts tender requirements.
// Its output is untrusted and normalized before use.
type Extractor interface {
	IsAvailable() bool
	ExtractTender(ctx context.Context, text string) (map[string]any, error)
}

// Justifier is an optional collaborator that writes a justification for the top-ranked candidate.
type Justifier interface {
	IsAvailable() bool
	Justify(ctx context.Context, input types.JustificationInput) (string, error)
}

// FallbackRecorder is told whenever a collaborator could not be used
type FallbackRecorder func(ctx context.Context, operation string)

// Session is the caller-owned state of a multi-candidate ranking.
// The orchestrator only reads it.
type Session struct {
	TenderText string
	// Tender, when set, is used instead of parsing TenderText again.
	Tender            *types.TenderRequirements
	TenderAIExtracted bool
	Candidates        []types.Document
}

// Orchestrator runs the analysis pipeline. It keeps no per-request state and is safe for concurrent use.
type Orchestrator struct {
	tenders     *parser.TenderParser
	candidates  *parser.CandidateParser
	engine      *matching.Engine
	narrative   *narrative.Generator
	extractor   Extractor
	justifier   Justifier
	aiTimeout   time.Duration
	parallelism int
	logger      *errors.Logger
	onFallback  FallbackRecorder
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithExtractor plugs in an AI tender extractor
func WithExtractor(e Extractor) Option {
	return func(o *Orchestrator) { o.extractor = e }
}

// WithJustifier plugs in an AI justifier
func WithJustifier(j Justifier) Option {
	return func(o *Orchestrator) { o.justifier = j }
}

// WithAITimeout bounds every collaborator call
func WithAITimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.aiTimeout = d
		}
	}
}

// WithParallelism bounds how many candidates are processed at once
func WithParallelism(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.parallelism = n
		}
	}
}

// WithLogger sets the logger used for fallback warnings
func WithLogger(l *errors.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithFallbackRecorder registers a hook called on every collaborator fallback
func WithFallbackRecorder(f FallbackRecorder) Option {
	return func(o *Orchestrator) { o.onFallback = f }
}

// New creates an orchestrator from its pipeline stages.
func New(candidates *parser.CandidateParser, engine *matching.Engine, gen *narrative.Generator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		tenders:     parser.NewTenderParser(),
		candidates:  candidates,
		engine:      engine,
		narrative:   gen,
		aiTimeout:   DefaultAITimeout,
		parallelism: DefaultParallelism,
		logger:      errors.Discard(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// AIAvailable reports which collaborators are currently usable.
func (o *Orchestrator) AIAvailable() (extraction, justification bool) {
	return available(o.extractor), available(o.justifier)
}

// Analyze runs the full pipeline for one tender and one candidate.
// Missing input is reported before any parsing; everything else degrades to sentinels.
func (o *Orchestrator) Analyze(ctx context.Context, tenderText, candidateText, candidateFilename string) (*types.AnalysisReport, error) {
	if strings.TrimSpace(tenderText) == "" {
		return nil, errors.NewValidationError(errors.ErrCodeMissingTender, "tender text is required", nil)
	}
	if strings.TrimSpace(candidateText) == "" {
		return nil, errors.NewValidationError(errors.ErrCodeMissingCandidate, "candidate text is required", nil)
	}

	tender, aiUsed := o.PrepareTender(ctx, tenderText)
	report := o.evaluate(tender, candidateText, candidateFilename)

	return &types.AnalysisReport{
		Tender:           tender,
		CandidateReport:  report,
		AIExtractionUsed: aiUsed,
	}, nil
}

// PrepareTender parses a tender once, preferring the AI extractor when it is
// available and returns a usable record. The bool reports whether AI output was used.
func (o *Orchestrator) PrepareTender(ctx context.Context, tenderText string) (types.TenderRequirements, bool) {
	if available(o.extractor) {
		raw, err := callBounded(ctx, o.aiTimeout, func(ctx context.Context) (map[string]any, error) {
			return o.extractor.ExtractTender(ctx, tenderText)
		})
		if err == nil {
			tender, normErr := NormalizeExtraction(raw)
			if normErr == nil {
				return tender, true
			}
			err = normErr
		}
		o.fallback(ctx, "extract_tender", err)
	}
	return o.tenders.Parse(tenderText), false
}

// ParseTender runs only the deterministic tender parser
func (o *Orchestrator) ParseTender(text string) types.TenderRequirements {
	return o.tenders.Parse(text)
}

// ParseCandidate runs only the deterministic candidate parser
func (o *Orchestrator) ParseCandidate(text, filename string) types.CandidateProfile {
	return o.candidates.Parse(text, filename)
}

// Rank evaluates every candidate of a session against its tender and orders
// them by score, keeping upload order among equal scores. Only the top
// candidate is sent to the justifier.
func (o *Orchestrator) Rank(ctx context.Context, s *Session) (*types.RankingReport, error) {
	if s == nil || (s.Tender == nil && strings.TrimSpace(s.TenderText) == "") {
		return nil, errors.NewValidationError(errors.ErrCodeMissingTender, "no tender uploaded", nil)
	}
	if len(s.Candidates) == 0 {
		return nil, errors.NewValidationError(errors.ErrCodeMissingCandidate, "no candidates uploaded", nil)
	}

	var tender types.TenderRequirements
	aiExtracted := s.TenderAIExtracted
	if s.Tender != nil {
		tender = *s.Tender
	} else {
		tender, aiExtracted = o.PrepareTender(ctx, s.TenderText)
	}

	ranked := make([]types.RankedCandidate, len(s.Candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.parallelism)
	for i, doc := range s.Candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			report := o.evaluate(tender, doc.Text, doc.Filename)
			ranked[i] = types.RankedCandidate{
				ID:                     i + 1,
				Filename:               doc.Filename,
				CandidateReport:        report,
				JustificationParagraph: report.ValidationParagraph,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("ranking interrupted: %w", err)
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Score > ranked[b].Score
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	justified := o.justifyTop(ctx, tender, &ranked[0])

	return &types.RankingReport{
		Tender:              tender,
		Candidates:          ranked,
		TotalCandidates:     len(ranked),
		AIExtractionUsed:    aiExtracted,
		AIJustificationUsed: justified,
	}, nil
}

func (o *Orchestrator) evaluate(tender types.TenderRequirements, text, filename string) types.CandidateReport {
	candidate := o.candidates.Parse(text, filename)
	result := o.engine.Match(tender, candidate)
	return o.narrative.Report(tender, candidate, result)
}

// justifyTop replaces the top candidate's justification with AI text when possible.
func (o *Orchestrator) justifyTop(ctx context.Context, tender types.TenderRequirements, top *types.RankedCandidate) bool {
	if !available(o.justifier) {
		return false
	}

	input := types.JustificationInput{
		Tender:    tender,
		Candidate: top.Candidate,
		Matching:  top.Matching,
		Score:     top.Score,
	}
	text, err := callBounded(ctx, o.aiTimeout, func(ctx context.Context) (string, error) {
		return o.justifier.Justify(ctx, input)
	})
	if err == nil && strings.TrimSpace(text) == "" {
		err = fmt.Errorf("empty justification")
	}
	if err != nil {
		o.fallback(ctx, "justify_candidate", err)
		return false
	}

	top.JustificationParagraph = strings.TrimSpace(text)
	return true
}

func (o *Orchestrator) fallback(ctx context.Context, operation string, err error) {
	o.logger.Warn("AI collaborator failed, using deterministic fallback",
		"operation", operation,
		"error", err.Error())
	if o.onFallback != nil {
		o.onFallback(ctx, operation)
	}
}

type availability interface {
	IsAvailable() bool
}

func available(c availability) bool {
	if c == nil {
		return false
	}
	ok := false
	func() {
		defer func() { _ = recover() }()
		ok = c.IsAvailable()
	}()
	return ok
}

// callBounded runs fn under a timeout in its own goroutine. A panic or a
// timeout becomes an error; the goroutine is abandoned if it never returns.
func callBounded[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("collaborator panicked: %v", r)}
			}
		}()
		v, err := fn(ctx)
		done <- outcome{value: v, err: err}
	}()

	select {
	case out := <-done:
		return out.value, out.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("collaborator timed out: %w", ctx.Err())
	}
}
