package matching

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tendermatch/internal/types"
)

func exampleTender() types.TenderRequirements {
	return types.TenderRequirements{
		Role:            "Backend Engineer",
		Skills:          []string{"Python", "Docker", "AWS"},
		ExperienceYears: 5,
		Certifications:  []string{},
		Sector:          "Finance",
		Constraints:     []string{},
	}
}

func TestMatchExample(t *testing.T) {
	candidate := types.CandidateProfile{
		Name:             "Jane Doe",
		ExperienceYears:  3,
		Skills:           []string{"Python", "Kubernetes"},
		Certifications:   []string{},
		SectorExperience: []string{},
	}

	got := NewEngine(Options{}).Match(exampleTender(), candidate)

	assert.Equal(t, []string{"Python"}, got.MatchedSkills)
	assert.Equal(t, []string{"Docker", "AWS"}, got.MissingSkills)
	assert.Equal(t, types.VerdictNo, got.ExperienceMatch)
	assert.Equal(t, "3 vs 5 years required", got.ExperienceComparison)
	assert.Equal(t, types.VerdictNotSpecified, got.SectorMatch)
	assert.Equal(t, types.CertificationSatisfied, got.CertificationStatus)
	assert.Equal(t, 33, got.Score)
	assert.False(t, got.Suitable())
}

func TestMatchesIsSymmetric(t *testing.T) {
	terms := []string{"Node.js", "node", "React", "R", "react native", "AWS", "aws lambda", "", "Go", "Golang", "C#"}
	engines := []*Engine{
		NewEngine(Options{}),
		NewEngine(Options{MinTokenLength: 3}),
	}

	for _, e := range engines {
		for _, a := range terms {
			for _, b := range terms {
				assert.Equal(t, e.Matches(a, b), e.Matches(b, a), "%q vs %q", a, b)
			}
		}
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name   string
		minLen int
		a, b   string
		want   bool
	}{
		{"contained", 0, "Node.js", "node", true},
		{"case insensitive", 0, "AWS", "aws lambda", true},
		{"unrelated", 0, "Python", "Docker", false},
		{"empty never matches", 0, "", "Python", false},
		{"short token matches by default", 0, "R", "React", true},
		{"short token guarded", 3, "R", "React", false},
		{"equal short tokens still match", 3, "Go", "go", true},
		{"long enough passes guard", 3, "AWS", "AWS Lambda", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(Options{MinTokenLength: tt.minLen})
			assert.Equal(t, tt.want, e.Matches(tt.a, tt.b))
		})
	}
}

func TestCertificationStatus(t *testing.T) {
	e := NewEngine(Options{})
	tender := exampleTender()

	// nothing required is always satisfied
	for _, certs := range [][]string{nil, {}, {"PMP"}, {"CISSP", "AWS SA"}} {
		got := e.Match(tender, types.CandidateProfile{Certifications: certs})
		assert.Equal(t, types.CertificationSatisfied, got.CertificationStatus)
	}

	tender.Certifications = []string{"AWS Certified Solutions Architect", "PMP"}
	got := e.Match(tender, types.CandidateProfile{Certifications: []string{"PMP Certified"}})
	assert.Equal(t, types.CertificationSatisfied, got.CertificationStatus)
	assert.Equal(t, []string{"PMP Certified"}, got.MatchedCertifications)

	got = e.Match(tender, types.CandidateProfile{Certifications: []string{"CISSP"}})
	assert.Equal(t, types.CertificationNotSatisfied, got.CertificationStatus)
	assert.Empty(t, got.MatchedCertifications)
}

func TestExperienceVerdict(t *testing.T) {
	tests := []struct {
		required, actual int
		want             types.Verdict
	}{
		{0, 0, types.VerdictNotSpecified},
		{0, 12, types.VerdictNotSpecified},
		{5, 5, types.VerdictYes},
		{5, 8, types.VerdictYes},
		{5, 4, types.VerdictNo},
		{5, 0, types.VerdictNo},
	}

	e := NewEngine(Options{})
	for _, tt := range tests {
		tender := types.TenderRequirements{ExperienceYears: tt.required}
		got := e.Match(tender, types.CandidateProfile{ExperienceYears: tt.actual})
		assert.Equal(t, tt.want, got.ExperienceMatch, "required=%d actual=%d", tt.required, tt.actual)
	}
}

func TestSectorVerdict(t *testing.T) {
	tests := []struct {
		name       string
		strictness SectorStrictness
		tender     string
		candidate  []string
		want       types.Verdict
	}{
		{"tender unknown", SectorSubstring, types.NotSpecified, []string{"Finance"}, types.VerdictNotSpecified},
		{"tender empty", SectorSubstring, "", []string{"Finance"}, types.VerdictNotSpecified},
		{"candidate unknown", SectorSubstring, "Finance", []string{}, types.VerdictNotSpecified},
		{"substring match", SectorSubstring, "Finance", []string{"Health", "Finance and Banking"}, types.VerdictYes},
		{"substring mismatch", SectorSubstring, "Finance", []string{"Health"}, types.VerdictNo},
		{"exact match ignores case", SectorExact, "Finance", []string{"finance"}, types.VerdictYes},
		{"exact rejects substring", SectorExact, "Finance", []string{"Finance and Banking"}, types.VerdictNo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(Options{SectorStrictness: tt.strictness})
			got := e.Match(types.TenderRequirements{Sector: tt.tender}, types.CandidateProfile{SectorExperience: tt.candidate})
			assert.Equal(t, tt.want, got.SectorMatch)
		})
	}
}

func TestScore(t *testing.T) {
	for required := 0; required <= 40; required++ {
		for matched := 0; matched <= required; matched++ {
			got := Score(matched, required)
			if required == 0 {
				assert.Equal(t, 0, got)
				continue
			}
			want := int(math.RoundToEven(float64(matched) / float64(required) * 100))
			assert.Equal(t, want, got, "%d/%d", matched, required)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, 100)
		}
	}

	assert.Equal(t, 100, Score(4, 3), "overlapping candidate skills are clamped")
}

func TestScoreRoundsHalfToEven(t *testing.T) {
	tests := []struct {
		matched, required, want int
	}{
		{1, 8, 12},
		{5, 8, 62},
		{3, 8, 38},
		{7, 8, 88},
		{1, 40, 2},
		{1, 3, 33},
		{2, 3, 67},
	}

	for _, tt := range tests {
		if got := Score(tt.matched, tt.required); got != tt.want {
			t.Errorf("Score(%d, %d) = %d, want %d", tt.matched, tt.required, got, tt.want)
		}
	}
}

func TestScoreIgnoresOtherVerdicts(t *testing.T) {
	tender := exampleTender()
	tender.Certifications = []string{"CISSP"}
	candidate := types.CandidateProfile{
		ExperienceYears: 1,
		Skills:          []string{"Python", "Docker", "AWS"},
	}

	got := NewEngine(Options{}).Match(tender, candidate)
	assert.Equal(t, 100, got.Score)
	assert.False(t, got.Suitable())
}

func TestParseSectorStrictness(t *testing.T) {
	s, err := ParseSectorStrictness("")
	require.NoError(t, err)
	assert.Equal(t, SectorSubstring, s)

	s, err = ParseSectorStrictness("EXACT")
	require.NoError(t, err)
	assert.Equal(t, SectorExact, s)

	_, err = ParseSectorStrictness("fuzzy")
	assert.Error(t, err)
}

func BenchmarkMatch(b *testing.B) {
	e := NewEngine(Options{})
	tender := exampleTender()
	candidate := types.CandidateProfile{
		ExperienceYears:  6,
		Skills:           []string{"Python", "Django", "Docker", "Kubernetes", "AWS Lambda"},
		SectorExperience: []string{"Banking", "Finance"},
	}
	for b.Loop() {
		e.Match(tender, candidate)
	}
}
