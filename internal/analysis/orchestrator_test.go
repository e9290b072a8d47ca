package analysis

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tendermatch/internal/errors"
	"tendermatch/internal/matching"
	"tendermatch/internal/narrative"
	"tendermatch/internal/parser"
	"tendermatch/internal/types"
)

const tenderText = "Role: Backend Engineer\nSkills: Python, Docker, AWS\nExperience: 5 years\nSector: Finance"

type fakeExtractor struct {
	available bool
	result    map[string]any
	err       error
	delay     time.Duration
	panics    bool
	calls     atomic.Int32
}

func (f *fakeExtractor) IsAvailable() bool { return f.available }

func (f *fakeExtractor) ExtractTender(ctx context.Context, _ string) (map[string]any, error) {
	f.calls.Add(1)
	if f.panics {
		panic("extractor exploded")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.result, f.err
}

type fakeJustifier struct {
	available bool
	text      string
	err       error
	calls     atomic.Int32
	lastInput types.JustificationInput
}

func (f *fakeJustifier) IsAvailable() bool { return f.available }

func (f *fakeJustifier) Justify(_ context.Context, input types.JustificationInput) (string, error) {
	f.calls.Add(1)
	f.lastInput = input
	return f.text, f.err
}

func newOrchestrator(opts ...Option) *Orchestrator {
	return New(
		parser.NewCandidateParser(parser.CandidateOptions{}),
		matching.NewEngine(matching.Options{}),
		narrative.NewGenerator(narrative.Options{}),
		opts...,
	)
}

func TestAnalyzeExample(t *testing.T) {
	report, err := newOrchestrator().Analyze(context.Background(), tenderText,
		"Jane Doe\nSkills: Python, Kubernetes\n3 years experience", "jane.txt")
	require.NoError(t, err)

	assert.Equal(t, "Backend Engineer", report.Tender.Role)
	assert.Equal(t, "Jane Doe", report.Candidate.Name)
	assert.Equal(t, []string{"Python"}, report.Matching.MatchedSkills)
	assert.Equal(t, []string{"Docker", "AWS"}, report.Matching.MissingSkills)
	assert.Equal(t, types.VerdictNo, report.Matching.ExperienceMatch)
	assert.Equal(t, 33, report.Score)
	assert.NotNil(t, report.RejectionEmail)
	assert.Equal(t, types.StatusNotSuitable, report.ExportSummary.OverallStatus)
	assert.False(t, report.AIExtractionUsed)
}

func TestAnalyzeMissingInput(t *testing.T) {
	o := newOrchestrator()

	_, err := o.Analyze(context.Background(), "  ", "Jane", "jane.txt")
	assert.True(t, errors.HasCode(err, errors.ErrCodeMissingTender))

	_, err = o.Analyze(context.Background(), tenderText, "", "jane.txt")
	assert.True(t, errors.HasCode(err, errors.ErrCodeMissingCandidate))
}

func TestAnalyzeSuitableCandidateHasNoEmail(t *testing.T) {
	cv := "Omar Haddad\nSkills: Python, Docker, AWS Lambda\n8 years of experience\nSector: Finance"

	report, err := newOrchestrator().Analyze(context.Background(), tenderText, cv, "omar.txt")
	require.NoError(t, err)

	assert.Nil(t, report.RejectionEmail)
	assert.Equal(t, 100, report.Score)
	assert.Equal(t, types.VerdictYes, report.Matching.SectorMatch)
	assert.Equal(t, types.StatusSuitable, report.ExportSummary.OverallStatus)
}

func TestPrepareTenderUsesExtractor(t *testing.T) {
	ext := &fakeExtractor{available: true, result: map[string]any{
		"role":                     "Platform Engineer",
		"required_skills":          []any{"Go", "Kubernetes"},
		"minimum_experience_years": float64(7),
	}}

	tender, aiUsed := newOrchestrator(WithExtractor(ext)).PrepareTender(context.Background(), tenderText)

	assert.True(t, aiUsed)
	assert.Equal(t, "Platform Engineer", tender.Role)
	assert.Equal(t, 7, tender.ExperienceYears)
}

func TestPrepareTenderFallsBack(t *testing.T) {
	regex := newOrchestrator().ParseTender(tenderText)

	tests := []struct {
		name string
		ext  *fakeExtractor
	}{
		{"unavailable", &fakeExtractor{available: false}},
		{"error", &fakeExtractor{available: true, err: fmt.Errorf("quota exceeded")}},
		{"invalid output", &fakeExtractor{available: true, result: map[string]any{"sector": "Finance"}}},
		{"panic", &fakeExtractor{available: true, panics: true}},
		{"timeout", &fakeExtractor{available: true, delay: time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fallbacks atomic.Int32
			o := newOrchestrator(
				WithExtractor(tt.ext),
				WithAITimeout(20*time.Millisecond),
				WithFallbackRecorder(func(context.Context, string) { fallbacks.Add(1) }),
			)

			tender, aiUsed := o.PrepareTender(context.Background(), tenderText)

			assert.False(t, aiUsed)
			assert.Equal(t, regex, tender)
			if tt.ext.available {
				assert.Equal(t, int32(1), fallbacks.Load())
			} else {
				assert.Equal(t, int32(0), tt.ext.calls.Load())
			}
		})
	}
}

func TestRankStableOrder(t *testing.T) {
	session := &Session{
		TenderText: tenderText,
		Candidates: []types.Document{
			{Filename: "a.txt", Text: "Anna A\nSkills: Python"},
			{Filename: "b.txt", Text: "Ben B\nSkills: Python, Docker, AWS"},
			{Filename: "c.txt", Text: "Cara C\nSkills: Docker"},
			{Filename: "d.txt", Text: "Dan D\nSkills: Cobol"},
			{Filename: "e.txt", Text: "Eve E\nSkills: AWS"},
		},
	}

	report, err := newOrchestrator(WithParallelism(2)).Rank(context.Background(), session)
	require.NoError(t, err)

	var order []string
	for i, c := range report.Candidates {
		order = append(order, c.Filename)
		assert.Equal(t, i+1, c.Rank)
	}
	assert.Equal(t, []string{"b.txt", "a.txt", "c.txt", "e.txt", "d.txt"}, order)
	assert.Equal(t, 5, report.TotalCandidates)
	assert.Equal(t, 2, report.Candidates[0].ID)
	assert.Equal(t, 1, report.Candidates[1].ID)
	assert.False(t, report.AIJustificationUsed)
	assert.Equal(t, report.Candidates[0].ValidationParagraph, report.Candidates[0].JustificationParagraph)
}

func TestRankRepeatable(t *testing.T) {
	session := &Session{TenderText: tenderText}
	for i := 0; i < 12; i++ {
		session.Candidates = append(session.Candidates, types.Document{
			Filename: fmt.Sprintf("cv%02d.txt", i),
			Text:     "Person\nSkills: Python",
		})
	}

	o := newOrchestrator(WithParallelism(8))
	first, err := o.Rank(context.Background(), session)
	require.NoError(t, err)
	second, err := o.Rank(context.Background(), session)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	for i, c := range first.Candidates {
		assert.Equal(t, i+1, c.ID, "ties keep upload order")
	}
}

func TestRankJustifiesOnlyTopCandidate(t *testing.T) {
	j := &fakeJustifier{available: true, text: "  Ben is the strongest fit.  "}
	session := &Session{
		TenderText: tenderText,
		Candidates: []types.Document{
			{Filename: "a.txt", Text: "Anna A\nSkills: Python"},
			{Filename: "b.txt", Text: "Ben B\nSkills: Python, Docker, AWS"},
		},
	}

	report, err := newOrchestrator(WithJustifier(j)).Rank(context.Background(), session)
	require.NoError(t, err)

	assert.Equal(t, int32(1), j.calls.Load())
	assert.Equal(t, "Ben B", j.lastInput.Candidate.Name)
	assert.True(t, report.AIJustificationUsed)
	assert.Equal(t, "Ben is the strongest fit.", report.Candidates[0].JustificationParagraph)
	assert.Equal(t, report.Candidates[1].ValidationParagraph, report.Candidates[1].JustificationParagraph)
}

func TestRankJustifierFailureFallsBack(t *testing.T) {
	for _, j := range []*fakeJustifier{
		{available: true, err: fmt.Errorf("boom")},
		{available: true, text: "   "},
	} {
		session := &Session{
			TenderText: tenderText,
			Candidates: []types.Document{{Filename: "a.txt", Text: "Anna A\nSkills: Python"}},
		}

		report, err := newOrchestrator(WithJustifier(j)).Rank(context.Background(), session)
		require.NoError(t, err)
		assert.False(t, report.AIJustificationUsed)
		assert.Equal(t, report.Candidates[0].ValidationParagraph, report.Candidates[0].JustificationParagraph)
	}
}

func TestRankUsesPreparedTender(t *testing.T) {
	ext := &fakeExtractor{available: true}
	prepared := types.TenderRequirements{
		Role:           "Analyst",
		Skills:         []string{"Excel"},
		Certifications: []string{},
		Sector:         types.NotSpecified,
		Constraints:    []string{},
	}
	session := &Session{
		TenderText:        tenderText,
		Tender:            &prepared,
		TenderAIExtracted: true,
		Candidates:        []types.Document{{Filename: "a.txt", Text: "Anna A\nSkills: Excel"}},
	}

	report, err := newOrchestrator(WithExtractor(ext)).Rank(context.Background(), session)
	require.NoError(t, err)

	assert.Equal(t, int32(0), ext.calls.Load(), "prepared tender is not parsed again")
	assert.True(t, report.AIExtractionUsed)
	assert.Equal(t, "Analyst", report.Tender.Role)
	assert.Equal(t, 100, report.Candidates[0].Score)
}

func TestRankMissingInput(t *testing.T) {
	o := newOrchestrator()

	_, err := o.Rank(context.Background(), &Session{Candidates: []types.Document{{Text: "x"}}})
	assert.True(t, errors.HasCode(err, errors.ErrCodeMissingTender))

	_, err = o.Rank(context.Background(), &Session{TenderText: tenderText})
	assert.True(t, errors.HasCode(err, errors.ErrCodeMissingCandidate))

	_, err = o.Rank(context.Background(), nil)
	assert.True(t, errors.HasCode(err, errors.ErrCodeMissingTender))
}

func TestAIAvailable(t *testing.T) {
	o := newOrchestrator(WithExtractor(&fakeExtractor{available: true}), WithJustifier(&fakeJustifier{}))
	extraction, justification := o.AIAvailable()
	assert.True(t, extraction)
	assert.False(t, justification)

	extraction, justification = newOrchestrator().AIAvailable()
	assert.False(t, extraction)
	assert.False(t, justification)
}
