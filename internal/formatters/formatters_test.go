package formatters

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tendermatch/internal/types"
)

func sampleCandidateReport(name string, score int, suitable bool) types.CandidateReport {
	status := types.StatusNotSuitable
	var email *string
	if suitable {
		status = types.StatusSuitable
	} else {
		msg := "Dear " + name + ",\n\nThank you for your interest."
		email = &msg
	}
	return types.CandidateReport{
		Candidate: types.CandidateProfile{
			Name:            name,
			ExperienceYears: 6,
			Skills:          []string{"Python", "AWS"},
		},
		Matching: types.MatchingResult{
			MatchedSkills:        []string{"Python"},
			MissingSkills:        []string{"Kubernetes"},
			ExperienceMatch:      types.VerdictYes,
			ExperienceComparison: "6 vs 5 years required",
			SectorMatch:          types.VerdictNotSpecified,
			CertificationStatus:  types.CertificationSatisfied,
		},
		Score:               score,
		ValidationParagraph: name + " meets the experience requirement.",
		RejectionEmail:      email,
		BidDraft:            "We propose " + name + ".",
		ExportSummary:       types.ExportSummary{CandidateName: name, OverallStatus: status},
	}
}

func sampleTender() types.TenderRequirements {
	return types.TenderRequirements{
		Role:            "Backend Engineer",
		Skills:          []string{"Python", "Kubernetes"},
		ExperienceYears: 5,
		Sector:          "Banking",
	}
}

func TestFormatAnalysis(t *testing.T) {
	report := &types.AnalysisReport{
		Tender:           sampleTender(),
		CandidateReport:  sampleCandidateReport("Jane Doe", 67, false),
		AIExtractionUsed: true,
	}

	tests := []struct {
		format string
		want   []string
	}{
		{
			format: "text",
			want: []string{
				"=== TENDER REQUIREMENTS ===",
				"Role: Backend Engineer",
				"Experience: 5 years",
				"Constraints: none",
				"Score: 67/100",
				"- Kubernetes",
				"=== REJECTION EMAIL ===",
				"AI assistance",
			},
		},
		{
			format: "markdown",
			want: []string{
				"# Tender Analysis: Jane Doe",
				"## Tender Requirements",
				"**Score:** 67/100 (Not suitable)",
				"| Experience | Yes (6 vs 5 years required) |",
				"## Rejection Email",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			out, err := GlobalRegistry.Format(report, tt.format)
			require.NoError(t, err)
			for _, want := range tt.want {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestFormatRanking(t *testing.T) {
	report := types.RankingReport{
		Tender: sampleTender(),
		Candidates: []types.RankedCandidate{
			{Rank: 1, ID: 2, Filename: "b.txt", CandidateReport: sampleCandidateReport("Bob | Smith", 90, true), JustificationParagraph: "Bob is the strongest match."},
			{Rank: 2, ID: 1, Filename: "a.txt", CandidateReport: sampleCandidateReport("Alice", 40, false), JustificationParagraph: "Alice lacks Kubernetes."},
		},
		TotalCandidates: 2,
	}

	text, err := GlobalRegistry.Format(report, "text")
	require.NoError(t, err)
	assert.Contains(t, text, "=== RANKING (2 candidates) ===")
	assert.Contains(t, text, "1. Bob | Smith (b.txt) - 90/100 - Suitable")
	assert.Less(t, strings.Index(text, "#1 BOB"), strings.Index(text, "#2 ALICE"))

	md, err := GlobalRegistry.Format(&report, "markdown")
	require.NoError(t, err)
	assert.Contains(t, md, `| 1 | Bob \| Smith | b.txt | 90 | Suitable |`)
	assert.Contains(t, md, "### Justification\nAlice lacks Kubernetes.")
}

func TestFormatParsedRecords(t *testing.T) {
	tender := types.TenderRequirements{Role: types.NotSpecified, Sector: types.NotSpecified}
	out, err := GlobalRegistry.Format(tender, "text")
	require.NoError(t, err)
	assert.Contains(t, out, "Experience: Not specified")
	assert.Contains(t, out, "Skills: none")

	candidate := &types.CandidateProfile{Name: "Jane Doe", SectorExperience: []string{"Banking"}}
	out, err = GlobalRegistry.Format(candidate, "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "# Candidate: Jane Doe")
	assert.Contains(t, out, "**Sector Experience:**\n- Banking")
}

func TestFormatJSONKeepsWireShape(t *testing.T) {
	report := types.AnalysisReport{Tender: sampleTender(), CandidateReport: sampleCandidateReport("Jane Doe", 67, true)}

	out, err := GlobalRegistry.Format(report, "json")
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, float64(67), decoded["score"])
	assert.Nil(t, decoded["rejection_email"])
}

func TestFormatErrors(t *testing.T) {
	_, err := GlobalRegistry.Format(sampleTender(), "yaml")
	assert.Error(t, err)

	_, err = GlobalRegistry.Format(map[string]string{"a": "b"}, "text")
	assert.Error(t, err, "text has no generic fallback")

	_, err = (&AnalysisTextFormatter{}).Format((*types.AnalysisReport)(nil))
	assert.Error(t, err)

	_, err = (&RankingMarkdownFormatter{}).Format(sampleTender())
	assert.Error(t, err)
}

func TestGetSupportedFormats(t *testing.T) {
	assert.Equal(t, []string{"json", "markdown", "text"}, GlobalRegistry.GetSupportedFormats())
}
