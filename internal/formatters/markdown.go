package formatters

import (
	"fmt"
	"strings"

	"tendermatch/internal/types"
)

// AnalysisMarkdownFormatter renders a single tender/CV analysis as markdown
type AnalysisMarkdownFormatter struct{}

func (f *AnalysisMarkdownFormatter) Format(data any) (string, error) {
	report, err := as[types.AnalysisReport](data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	output.WriteString(fmt.Sprintf("# Tender Analysis: %s\n\n", report.Candidate.Name))
	if report.AIExtractionUsed {
		output.WriteString("_Tender requirements extracted with AI assistance._\n\n")
	}
	writeTenderMarkdown(&output, report.Tender, "##")
	writeCandidateReportMarkdown(&output, report.CandidateReport, "##")

	return output.String(), nil
}

func (f *AnalysisMarkdownFormatter) SupportedType() string {
	return typeAnalysis
}

// RankingMarkdownFormatter renders a multi-candidate ranking as markdown
type RankingMarkdownFormatter struct{}

func (f *RankingMarkdownFormatter) Format(data any) (string, error) {
	report, err := as[types.RankingReport](data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	output.WriteString("# Candidate Ranking\n\n")
	writeTenderMarkdown(&output, report.Tender, "##")

	output.WriteString(fmt.Sprintf("## Ranking (%d candidates)\n\n", report.TotalCandidates))
	output.WriteString("| Rank | Candidate | File | Score | Status |\n")
	output.WriteString("|---|---|---|---|---|\n")
	for _, c := range report.Candidates {
		output.WriteString(fmt.Sprintf("| %d | %s | %s | %d | %s |\n",
			c.Rank, escapeCell(c.Candidate.Name), escapeCell(c.Filename), c.Score, c.ExportSummary.OverallStatus))
	}
	output.WriteString("\n")

	for _, c := range report.Candidates {
		output.WriteString(fmt.Sprintf("## %d. %s\n\n", c.Rank, c.Candidate.Name))
		output.WriteString("### Justification\n")
		output.WriteString(c.JustificationParagraph)
		output.WriteString("\n\n")
		writeCandidateReportMarkdown(&output, c.CandidateReport, "###")
	}

	return output.String(), nil
}

func (f *RankingMarkdownFormatter) SupportedType() string {
	return typeRanking
}

// TenderMarkdownFormatter renders parsed tender requirements as markdown
type TenderMarkdownFormatter struct{}

func (f *TenderMarkdownFormatter) Format(data any) (string, error) {
	tender, err := as[types.TenderRequirements](data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	writeTenderMarkdown(&output, tender, "#")
	return output.String(), nil
}

func (f *TenderMarkdownFormatter) SupportedType() string {
	return typeTender
}

// CandidateMarkdownFormatter renders a parsed candidate profile as markdown
type CandidateMarkdownFormatter struct{}

func (f *CandidateMarkdownFormatter) Format(data any) (string, error) {
	candidate, err := as[types.CandidateProfile](data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	writeCandidateMarkdown(&output, candidate, "#")
	return output.String(), nil
}

func (f *CandidateMarkdownFormatter) SupportedType() string {
	return typeCandidate
}

func writeTenderMarkdown(output *strings.Builder, tender types.TenderRequirements, heading string) {
	output.WriteString(heading + " Tender Requirements\n\n")
	output.WriteString(fmt.Sprintf("**Role:** %s\n\n", tender.Role))
	output.WriteString(fmt.Sprintf("**Experience:** %s\n\n", yearsOrNotSpecified(tender.ExperienceYears)))
	output.WriteString(fmt.Sprintf("**Sector:** %s\n\n", tender.Sector))
	writeMarkdownList(output, "Skills", tender.Skills)
	writeMarkdownList(output, "Certifications", tender.Certifications)
	writeMarkdownList(output, "Constraints", tender.Constraints)
}

func writeCandidateMarkdown(output *strings.Builder, candidate types.CandidateProfile, heading string) {
	output.WriteString(fmt.Sprintf("%s Candidate: %s\n\n", heading, candidate.Name))
	output.WriteString(fmt.Sprintf("**Experience:** %s\n\n", yearsOrNotSpecified(candidate.ExperienceYears)))
	writeMarkdownList(output, "Skills", candidate.Skills)
	writeMarkdownList(output, "Certifications", candidate.Certifications)
	writeMarkdownList(output, "Sector Experience", candidate.SectorExperience)
}

func writeCandidateReportMarkdown(output *strings.Builder, report types.CandidateReport, heading string) {
	writeCandidateMarkdown(output, report.Candidate, heading)

	m := report.Matching
	output.WriteString(heading + " Matching\n\n")
	output.WriteString(fmt.Sprintf("**Score:** %d/100 (%s)\n\n", report.Score, report.ExportSummary.OverallStatus))
	output.WriteString("| Check | Result |\n|---|---|\n")
	output.WriteString(fmt.Sprintf("| Experience | %s (%s) |\n", m.ExperienceMatch, m.ExperienceComparison))
	output.WriteString(fmt.Sprintf("| Sector | %s |\n", m.SectorMatch))
	output.WriteString(fmt.Sprintf("| Certifications | %s |\n\n", m.CertificationStatus))
	writeMarkdownList(output, "Matched Skills", m.MatchedSkills)
	writeMarkdownList(output, "Missing Skills", m.MissingSkills)
	writeMarkdownList(output, "Matched Certifications", m.MatchedCertifications)

	output.WriteString(heading + " Validation\n\n")
	output.WriteString(report.ValidationParagraph)
	output.WriteString("\n\n")

	if report.RejectionEmail != nil {
		output.WriteString(heading + " Rejection Email\n\n```\n")
		output.WriteString(*report.RejectionEmail)
		output.WriteString("\n```\n\n")
	}

	output.WriteString(heading + " Bid Draft\n\n")
	output.WriteString(report.BidDraft)
	output.WriteString("\n\n")
}

func writeMarkdownList(output *strings.Builder, label string, items []string) {
	output.WriteString(fmt.Sprintf("**%s:**", label))
	if len(items) == 0 {
		output.WriteString(" none\n\n")
		return
	}
	output.WriteString("\n")
	for _, item := range items {
		output.WriteString(fmt.Sprintf("- %s\n", item))
	}
	output.WriteString("\n")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
