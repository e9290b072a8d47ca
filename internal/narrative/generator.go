// Package narrative renders the deterministic texts that accompany a match:
// validation paragraph, rejection email, bid draft and export summary.
//
// Every function is a pure function of its inputs. Texts only restate what is
// in the tender, the profile and the matching result.
package narrative

import (
	"fmt"
	"strings"

	"tendermatch/internal/types"
)

const (
	DefaultSignature = "Tender Review Team"

	maxValidationSentences = 5
	validationSkillsShown  = 3
	missingSkillsShown     = 2
	bidSkillsShown         = 3
)

// Options configures a Generator
type Options struct {
	Signature string
}

// Generator renders narratives. It is safe for concurrent use.
type Generator struct {
	signature string
}

// NewGenerator creates a narrative generator
func NewGenerator(opts Options) *Generator {
	sig := strings.TrimSpace(opts.Signature)
	if sig == "" {
		sig = DefaultSignature
	}
	return &Generator{signature: sig}
}

// Report renders all four artifacts for one candidate.
func (g *Generator) Report(t types.TenderRequirements, c types.CandidateProfile, m types.MatchingResult) types.CandidateReport {
	return types.CandidateReport{
		Candidate:           c,
		Matching:            m,
		Score:               m.Score,
		ValidationParagraph: g.ValidationParagraph(t, c, m),
		RejectionEmail:      g.RejectionEmail(t, c, m),
		BidDraft:            g.BidDraft(t, c, m),
		ExportSummary:       g.ExportSummary(t, c, m),
	}
}

// ValidationParagraph composes, in order: opening, experience verdict, matched
// skills, missing skills, certifications, sector mismatch and recommendation.
// Sentences without content are skipped and only the first five are kept.
func (g *Generator) ValidationParagraph(t types.TenderRequirements, c types.CandidateProfile, m types.MatchingResult) string {
	var sentences []string

	sentences = append(sentences, fmt.Sprintf("%s has applied for %s.", c.Name, roleClause(t.Role)))

	switch m.ExperienceMatch {
	case types.VerdictYes:
		sentences = append(sentences, fmt.Sprintf(
			"With %d years of professional experience, the candidate meets the %d-year minimum.",
			c.ExperienceYears, t.ExperienceYears))
	case types.VerdictNo:
		sentences = append(sentences, fmt.Sprintf(
			"The candidate reports %d years of experience, short of the %d years required.",
			c.ExperienceYears, t.ExperienceYears))
	default:
		sentences = append(sentences, "The experience requirement could not be verified because the tender does not state a minimum.")
	}

	if len(m.MatchedSkills) > 0 {
		sentences = append(sentences, fmt.Sprintf(
			"Relevant skills include %s.", summarize(m.MatchedSkills, validationSkillsShown)))
	}

	if len(m.MissingSkills) > 0 {
		sentences = append(sentences, fmt.Sprintf(
			"The profile shows no evidence of %s.", summarize(m.MissingSkills, missingSkillsShown)))
	}

	if len(t.Certifications) > 0 {
		if m.CertificationStatus == types.CertificationSatisfied {
			noun := "certification"
			if len(m.MatchedCertifications) > 1 {
				noun = "certifications"
			}
			sentences = append(sentences, fmt.Sprintf(
				"The candidate holds the requested %s %s.", noun, strings.Join(m.MatchedCertifications, ", ")))
		} else {
			sentences = append(sentences, fmt.Sprintf(
				"None of the requested certifications (%s) appear in the profile.", strings.Join(t.Certifications, ", ")))
		}
	}

	if m.SectorMatch == types.VerdictNo {
		sentences = append(sentences, fmt.Sprintf(
			"Their sector background (%s) differs from the %s sector of this tender.",
			strings.Join(c.SectorExperience, ", "), t.Sector))
	}

	if m.Suitable() {
		sentences = append(sentences, fmt.Sprintf("%s is recommended for this tender.", c.Name))
	} else {
		sentences = append(sentences, fmt.Sprintf("%s does not meet all requirements and is not recommended at this stage.", c.Name))
	}

	if len(sentences) > maxValidationSentences {
		sentences = sentences[:maxValidationSentences]
	}
	return strings.Join(sentences, " ")
}

// RejectionEmail returns nil for suitable candidates.
func (g *Generator) RejectionEmail(t types.TenderRequirements, c types.CandidateProfile, m types.MatchingResult) *string {
	if m.Suitable() {
		return nil
	}

	var reasons []string
	if m.ExperienceMatch == types.VerdictNo {
		reasons = append(reasons, fmt.Sprintf(
			"the role calls for at least %d years of experience and your profile shows %d",
			t.ExperienceYears, c.ExperienceYears))
	}
	if len(m.MissingSkills) > 0 {
		reasons = append(reasons, fmt.Sprintf(
			"we could not find experience with %s", strings.Join(first(m.MissingSkills, missingSkillsShown), ", ")))
	}
	if m.CertificationStatus == types.CertificationNotSatisfied && len(t.Certifications) > 0 {
		reasons = append(reasons, "the required certifications are not listed")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", c.Name)
	fmt.Fprintf(&b, "Thank you for your interest in %s. After reviewing your profile we will not be moving forward with your application.", roleClause(t.Role))
	if len(reasons) > 0 {
		fmt.Fprintf(&b, " Our main reason is that %s.", strings.Join(reasons, ", and "))
	}
	b.WriteString("\n\nWe appreciate the time you invested and encourage you to apply for future tenders that match your experience.")
	fmt.Fprintf(&b, "\n\nBest regards,\n%s", g.signature)

	email := b.String()
	return &email
}

// BidDraft renders a persuasive single paragraph using only verified strengths.
func (g *Generator) BidDraft(t types.TenderRequirements, c types.CandidateProfile, m types.MatchingResult) string {
	experience := "relevant professional experience"
	if c.ExperienceYears > 0 {
		experience = fmt.Sprintf("%d years of professional experience", c.ExperienceYears)
	}

	sentences := []string{fmt.Sprintf("We propose %s for %s, bringing %s.", c.Name, roleClause(t.Role), experience)}

	if len(m.MatchedSkills) > 0 {
		sentences = append(sentences, fmt.Sprintf(
			"%s has demonstrated expertise in %s.", c.Name, strings.Join(first(m.MatchedSkills, bidSkillsShown), ", ")))
	}
	if len(m.MatchedCertifications) > 0 {
		sentences = append(sentences, fmt.Sprintf(
			"The consultant is certified in %s.", strings.Join(m.MatchedCertifications, " and ")))
	}
	if m.SectorMatch == types.VerdictYes {
		sentences = append(sentences, fmt.Sprintf(
			"Prior work in the %s sector means the team can contribute from day one.", t.Sector))
	}

	return strings.Join(sentences, " ")
}

// ExportSummary projects the result into a flat record.
func (g *Generator) ExportSummary(t types.TenderRequirements, c types.CandidateProfile, m types.MatchingResult) types.ExportSummary {
	experience := types.NotSpecified
	if c.ExperienceYears > 0 {
		experience = fmt.Sprintf("%d years", c.ExperienceYears)
	}

	sector := types.NotSpecified
	if len(c.SectorExperience) > 0 {
		sector = strings.Join(c.SectorExperience, ", ")
	}

	status := types.StatusNotSuitable
	if m.Suitable() {
		status = types.StatusSuitable
	}

	return types.ExportSummary{
		CandidateName:         c.Name,
		Role:                  t.Role,
		Experience:            experience,
		Sector:                sector,
		SkillsMatched:         nonNil(m.MatchedSkills),
		CertificationsMatched: nonNil(m.MatchedCertifications),
		OverallStatus:         status,
	}
}

// roleClause names the role, or the tender itself when the role is unknown.
func roleClause(role string) string {
	if role == "" || role == types.NotSpecified {
		return "this tender"
	}
	return "the " + role + " role"
}

// summarize lists the first n items and counts the rest: "a, b, c, and 2 others".
func summarize(items []string, n int) string {
	shown := strings.Join(first(items, n), ", ")
	rest := len(items) - n
	switch {
	case rest == 1:
		return shown + ", and 1 other"
	case rest > 1:
		return fmt.Sprintf("%s, and %d others", shown, rest)
	}
	return shown
}

func first(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
