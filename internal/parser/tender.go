// Package parser turns raw tender and résumé text into structured records.
package parser

import (
	"tendermatch/internal/extract"
	"tendermatch/internal/types"
)

// Label sets and the years chain for tenders. Add synonyms here, not in the parsing code.
var (
	tenderRoleLabels        = extract.NewLabelExtractor("Role", "Title", "Position")
	tenderSkillLabels       = extract.NewLabelExtractor("Skills", "Requirements", "Qualifications")
	tenderCertLabels        = extract.NewLabelExtractor("Certifications", "Licenses")
	tenderSectorLabels      = extract.NewLabelExtractor("Sector", "Industry", "Vertical")
	tenderConstraintsLabels = extract.NewLabelExtractor("Constraints", "Conditions", "Restrictions")

	tenderYears = extract.Chain[int]{
		extract.YearsRule(`(?i)minimum\s+(?:of\s+)?(\d+)\s+years?`),
		extract.YearsRule(`(?i)(\d+)\s*\+?\s*years?`),
		extract.YearsRule(`(?i)experience[\s:]*(\d+)\s+years?`),
	}
)

// TenderParser builds TenderRequirements from tender text.
type TenderParser struct{}

// NewTenderParser creates a tender parser
func NewTenderParser() *TenderParser {
	return &TenderParser{}
}

// Parse extracts every field independently; a field that cannot be found
// gets its sentinel and does not affect the others.
func (p *TenderParser) Parse(text string) types.TenderRequirements {
	return types.TenderRequirements{
		Role:            orNotSpecified(tenderRoleLabels.Field(text)),
		Skills:          tenderSkillLabels.List(text),
		ExperienceYears: extract.Years(tenderYears, text),
		Certifications:  tenderCertLabels.List(text),
		Sector:          orNotSpecified(tenderSectorLabels.Field(text)),
		Constraints:     tenderConstraintsLabels.List(text),
	}
}

func orNotSpecified(value string) string {
	if value == "" {
		return types.NotSpecified
	}
	return value
}
