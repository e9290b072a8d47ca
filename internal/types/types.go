package types

// NotSpecified is the sentinel used for every string field whose value could not be extracted.
const NotSpecified = "Not specified"

// TenderRequirements represents what a tender asks of a candidate
type TenderRequirements struct {
	Role            string   `json:"role"`
	Skills          []string `json:"skills"`
	ExperienceYears int      `json:"experience_years"` // 0 means unspecified
	Certifications  []string `json:"certifications"`
	Sector          string   `json:"sector"`
	Constraints     []string `json:"constraints"`
}

// CandidateProfile represents structured résumé data
type CandidateProfile struct {
	Name             string   `json:"name"`
	ExperienceYears  int      `json:"experience_years"`
	Skills           []string `json:"skills"`
	Certifications   []string `json:"certifications"`
	SectorExperience []string `json:"sector_experience"`
}

// Verdict is the outcome of a three-way comparison
type Verdict string

const (
	VerdictYes          Verdict = "Yes"
	VerdictNo           Verdict = "No"
	VerdictNotSpecified Verdict = NotSpecified
)

// CertificationStatus reports whether the tender's certification demand is met
type CertificationStatus string

const (
	CertificationSatisfied    CertificationStatus = "Satisfied"
	CertificationNotSatisfied CertificationStatus = "Not satisfied"
)

// MatchingResult is the comparison of one candidate against one tender
type MatchingResult struct {
	MatchedSkills         []string            `json:"matched_skills"`
	MissingSkills         []string            `json:"missing_skills"`
	ExperienceMatch       Verdict             `json:"experience_match"`
	ExperienceComparison  string              `json:"experience_comparison"`
	SectorMatch           Verdict             `json:"sector_match"`
	MatchedCertifications []string            `json:"matched_certifications"`
	CertificationStatus   CertificationStatus `json:"certification_status"`
	Score                 int                 `json:"-"` // serialized as a sibling of the result
}

// Suitable reports the overall suitability verdict.
// It is stricter than the score: experience must be met, nothing missing, certifications satisfied.
func (m MatchingResult) Suitable() bool {
	return m.ExperienceMatch == VerdictYes &&
		len(m.MissingSkills) == 0 &&
		m.CertificationStatus == CertificationSatisfied
}

// ExportSummary is a flat projection of a report for display and export
type ExportSummary struct {
	CandidateName         string   `json:"candidate_name"`
	Role                  string   `json:"role"`
	Experience            string   `json:"experience"`
	Sector                string   `json:"sector"`
	SkillsMatched         []string `json:"skills_matched"`
	CertificationsMatched []string `json:"certifications_matched"`
	OverallStatus         string   `json:"overall_status"`
}

const (
	StatusSuitable    = "Suitable"
	StatusNotSuitable = "Not suitable"
)

// CandidateReport holds everything derived for one candidate against a tender
type CandidateReport struct {
	Candidate           CandidateProfile `json:"candidate"`
	Matching            MatchingResult   `json:"matching"`
	Score               int              `json:"score"`
	ValidationParagraph string           `json:"validation_paragraph"`
	RejectionEmail      *string          `json:"rejection_email"`
	BidDraft            string           `json:"bid_draft"`
	ExportSummary       ExportSummary    `json:"export_summary"`
}

// AnalysisReport is the result of analysing one tender/candidate pair
type AnalysisReport struct {
	Tender TenderRequirements `json:"tender"`
	CandidateReport
	AIExtractionUsed bool `json:"ai_extraction_used"`
}

// Document is one uploaded text document
type Document struct {
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

// RankedCandidate is a candidate report positioned in a ranking
type RankedCandidate struct {
	Rank     int    `json:"rank"`
	ID       int    `json:"id"` // 1-based upload order
	Filename string `json:"filename"`
	CandidateReport
	JustificationParagraph string `json:"justification_paragraph"`
}

// RankingReport is the result of ranking many candidates against one tender
type RankingReport struct {
	Tender              TenderRequirements `json:"tender"`
	Candidates          []RankedCandidate  `json:"candidates"`
	TotalCandidates     int                `json:"total_candidates"`
	AIExtractionUsed    bool               `json:"ai_extraction_used"`
	AIJustificationUsed bool               `json:"ai_justification_used"`
}

// JustificationInput is what the AI justification collaborator is given
type JustificationInput struct {
	Tender    TenderRequirements `json:"tender"`
	Candidate CandidateProfile   `json:"candidate"`
	Matching  MatchingResult     `json:"matching"`
	Score     int                `json:"score"`
}

// JustificationOutput is the structured answer of the AI justification collaborator
type JustificationOutput struct {
	Justification string `json:"justification"`
}
