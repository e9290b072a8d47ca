package formatters

import (
	"fmt"
	"strings"

	"tendermatch/internal/types"
)

// AnalysisTextFormatter renders a single tender/CV analysis as plain text
type AnalysisTextFormatter struct{}

func (f *AnalysisTextFormatter) Format(data any) (string, error) {
	report, err := as[types.AnalysisReport](data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	writeTenderText(&output, report.Tender)
	output.WriteString("\n")
	writeCandidateReportText(&output, report.CandidateReport)

	if report.AIExtractionUsed {
		output.WriteString("\n(tender requirements extracted with AI assistance)\n")
	}

	return output.String(), nil
}

func (f *AnalysisTextFormatter) SupportedType() string {
	return typeAnalysis
}

// RankingTextFormatter renders a multi-candidate ranking as plain text
type RankingTextFormatter struct{}

func (f *RankingTextFormatter) Format(data any) (string, error) {
	report, err := as[types.RankingReport](data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	writeTenderText(&output, report.Tender)

	output.WriteString(fmt.Sprintf("\n=== RANKING (%d candidates) ===\n", report.TotalCandidates))
	for _, c := range report.Candidates {
		output.WriteString(fmt.Sprintf("%d. %s (%s) - %d/100 - %s\n",
			c.Rank, c.Candidate.Name, c.Filename, c.Score, c.ExportSummary.OverallStatus))
	}

	for _, c := range report.Candidates {
		output.WriteString(fmt.Sprintf("\n=== #%d %s ===\n", c.Rank, strings.ToUpper(c.Candidate.Name)))
		output.WriteString("Justification:\n")
		output.WriteString(c.JustificationParagraph)
		output.WriteString("\n\n")
		writeCandidateReportText(&output, c.CandidateReport)
	}

	return output.String(), nil
}

func (f *RankingTextFormatter) SupportedType() string {
	return typeRanking
}

// TenderTextFormatter renders parsed tender requirements
type TenderTextFormatter struct{}

func (f *TenderTextFormatter) Format(data any) (string, error) {
	tender, err := as[types.TenderRequirements](data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	writeTenderText(&output, tender)
	return output.String(), nil
}

func (f *TenderTextFormatter) SupportedType() string {
	return typeTender
}

// CandidateTextFormatter renders a parsed candidate profile
type CandidateTextFormatter struct{}

func (f *CandidateTextFormatter) Format(data any) (string, error) {
	candidate, err := as[types.CandidateProfile](data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	writeCandidateText(&output, candidate)
	return output.String(), nil
}

func (f *CandidateTextFormatter) SupportedType() string {
	return typeCandidate
}

func writeTenderText(output *strings.Builder, tender types.TenderRequirements) {
	output.WriteString("=== TENDER REQUIREMENTS ===\n")
	output.WriteString(fmt.Sprintf("Role: %s\n", tender.Role))
	output.WriteString(fmt.Sprintf("Experience: %s\n", yearsOrNotSpecified(tender.ExperienceYears)))
	output.WriteString(fmt.Sprintf("Sector: %s\n", tender.Sector))
	writeTextList(output, "Skills", tender.Skills)
	writeTextList(output, "Certifications", tender.Certifications)
	writeTextList(output, "Constraints", tender.Constraints)
}

func writeCandidateText(output *strings.Builder, candidate types.CandidateProfile) {
	output.WriteString("=== CANDIDATE ===\n")
	output.WriteString(fmt.Sprintf("Name: %s\n", candidate.Name))
	output.WriteString(fmt.Sprintf("Experience: %s\n", yearsOrNotSpecified(candidate.ExperienceYears)))
	writeTextList(output, "Skills", candidate.Skills)
	writeTextList(output, "Certifications", candidate.Certifications)
	writeTextList(output, "Sector Experience", candidate.SectorExperience)
}

func writeCandidateReportText(output *strings.Builder, report types.CandidateReport) {
	writeCandidateText(output, report.Candidate)

	m := report.Matching
	output.WriteString("\n=== MATCHING ===\n")
	output.WriteString(fmt.Sprintf("Score: %d/100\n", report.Score))
	output.WriteString(fmt.Sprintf("Experience Match: %s (%s)\n", m.ExperienceMatch, m.ExperienceComparison))
	output.WriteString(fmt.Sprintf("Sector Match: %s\n", m.SectorMatch))
	output.WriteString(fmt.Sprintf("Certification Status: %s\n", m.CertificationStatus))
	writeTextList(output, "Matched Skills", m.MatchedSkills)
	writeTextList(output, "Missing Skills", m.MissingSkills)
	writeTextList(output, "Matched Certifications", m.MatchedCertifications)
	output.WriteString(fmt.Sprintf("Overall Status: %s\n", report.ExportSummary.OverallStatus))

	output.WriteString("\n=== VALIDATION ===\n")
	output.WriteString(report.ValidationParagraph)
	output.WriteString("\n")

	if report.RejectionEmail != nil {
		output.WriteString("\n=== REJECTION EMAIL ===\n")
		output.WriteString(*report.RejectionEmail)
		output.WriteString("\n")
	}

	output.WriteString("\n=== BID DRAFT ===\n")
	output.WriteString(report.BidDraft)
	output.WriteString("\n")
}

func writeTextList(output *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		output.WriteString(fmt.Sprintf("%s: none\n", label))
		return
	}
	output.WriteString(label + ":\n")
	for _, item := range items {
		output.WriteString(fmt.Sprintf("- %s\n", item))
	}
}

func yearsOrNotSpecified(years int) string {
	if years <= 0 {
		return types.NotSpecified
	}
	return fmt.Sprintf("%d years", years)
}
