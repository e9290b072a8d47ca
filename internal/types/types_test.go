package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuitable(t *testing.T) {
	tests := []struct {
		name   string
		result MatchingResult
		want   bool
	}{
		{
			name:   "all conditions met",
			result: MatchingResult{ExperienceMatch: VerdictYes, CertificationStatus: CertificationSatisfied},
			want:   true,
		},
		{
			name:   "experience unknown is not enough",
			result: MatchingResult{ExperienceMatch: VerdictNotSpecified, CertificationStatus: CertificationSatisfied},
			want:   false,
		},
		{
			name: "missing skill",
			result: MatchingResult{
				ExperienceMatch:     VerdictYes,
				MissingSkills:       []string{"AWS"},
				CertificationStatus: CertificationSatisfied,
			},
			want: false,
		},
		{
			name:   "certifications not satisfied",
			result: MatchingResult{ExperienceMatch: VerdictYes, CertificationStatus: CertificationNotSatisfied},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.result.Suitable())
		})
	}
}

func TestAnalysisReportJSONShape(t *testing.T) {
	report := AnalysisReport{
		Tender: TenderRequirements{Role: "Backend Engineer", Skills: []string{"Python"}},
		CandidateReport: CandidateReport{
			Candidate: CandidateProfile{Name: "Jane Doe"},
			Matching:  MatchingResult{Score: 33, ExperienceMatch: VerdictNo},
			Score:     33,
		},
	}

	data, err := json.Marshal(report)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Contains(t, decoded, "tender")
	assert.Contains(t, decoded, "candidate")
	assert.Contains(t, decoded, "validation_paragraph")
	assert.Equal(t, float64(33), decoded["score"])
	assert.Nil(t, decoded["rejection_email"], "absent email is serialized as null")
	assert.Contains(t, decoded, "rejection_email")

	matching, ok := decoded["matching"].(map[string]any)
	require.True(t, ok)
	assert.NotContains(t, matching, "score")
	assert.NotContains(t, matching, "Score")
	assert.Equal(t, "No", matching["experience_match"])
}
