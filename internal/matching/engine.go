// Package matching compares a candidate profile against tender requirements.
package matching

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"tendermatch/internal/types"
)

// SectorStrictness selects how sector names are compared
type SectorStrictness string

const (
	// SectorSubstring matches when either sector contains the other, ignoring case
	SectorSubstring SectorStrictness = "substring"
	// SectorExact matches only on case-insensitive equality
	SectorExact SectorStrictness = "exact"
)

// Options configures an Engine
type Options struct {
	SectorStrictness SectorStrictness
	// MinTokenLength stops very short strings such as "R" from matching inside
	// longer ones. Equal strings always match. 0 disables the guard.
	MinTokenLength int
}

// Engine scores candidates against tenders. It holds no state beyond its options
// and is safe for concurrent use.
type Engine struct {
	opts Options
}

// NewEngine creates a matching engine
func NewEngine(opts Options) *Engine {
	if opts.SectorStrictness == "" {
		opts.SectorStrictness = SectorSubstring
	}
	return &Engine{opts: opts}
}

// ParseSectorStrictness validates a configured strictness value
func ParseSectorStrictness(s string) (SectorStrictness, error) {
	switch SectorStrictness(strings.ToLower(strings.TrimSpace(s))) {
	case "", SectorSubstring:
		return SectorSubstring, nil
	case SectorExact:
		return SectorExact, nil
	default:
		return "", fmt.Errorf("invalid sector match mode %q (must be 'substring' or 'exact')", s)
	}
}

// Match compares a candidate against a tender.
func (e *Engine) Match(tender types.TenderRequirements, candidate types.CandidateProfile) types.MatchingResult {
	matchedSkills := e.overlap(candidate.Skills, tender.Skills)
	missingSkills := e.uncovered(tender.Skills, candidate.Skills)
	matchedCerts := e.overlap(candidate.Certifications, tender.Certifications)

	certStatus := types.CertificationNotSatisfied
	if len(tender.Certifications) == 0 || len(matchedCerts) > 0 {
		certStatus = types.CertificationSatisfied
	}

	return types.MatchingResult{
		MatchedSkills:         matchedSkills,
		MissingSkills:         missingSkills,
		ExperienceMatch:       experienceVerdict(tender.ExperienceYears, candidate.ExperienceYears),
		ExperienceComparison:  experienceComparison(tender.ExperienceYears, candidate.ExperienceYears),
		SectorMatch:           e.sectorVerdict(tender.Sector, candidate.SectorExperience),
		MatchedCertifications: matchedCerts,
		CertificationStatus:   certStatus,
		Score:                 Score(len(matchedSkills), len(tender.Skills)),
	}
}

// Matches reports whether two terms match: case-insensitive containment in either direction.
func (e *Engine) Matches(a, b string) bool {
	a, b = strings.ToLower(strings.TrimSpace(a)), strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}

	shorter := a
	if utf8.RuneCountInString(b) < utf8.RuneCountInString(a) {
		shorter = b
	}
	if e.opts.MinTokenLength > 0 && utf8.RuneCountInString(shorter) < e.opts.MinTokenLength {
		return false
	}

	return strings.Contains(a, b) || strings.Contains(b, a)
}

// overlap returns the items of have that match any item of want, in have's order.
func (e *Engine) overlap(have, want []string) []string {
	out := []string{}
	for _, h := range have {
		if e.matchesAny(h, want) {
			out = append(out, h)
		}
	}
	return out
}

// uncovered returns the items of want that no item of have matches, in want's order.
func (e *Engine) uncovered(want, have []string) []string {
	out := []string{}
	for _, w := range want {
		if !e.matchesAny(w, have) {
			out = append(out, w)
		}
	}
	return out
}

func (e *Engine) matchesAny(term string, others []string) bool {
	for _, o := range others {
		if e.Matches(term, o) {
			return true
		}
	}
	return false
}

func (e *Engine) sectorVerdict(tenderSector string, candidateSectors []string) types.Verdict {
	if isUnset(tenderSector) || len(candidateSectors) == 0 {
		return types.VerdictNotSpecified
	}

	for _, s := range candidateSectors {
		if e.sectorMatches(tenderSector, s) {
			return types.VerdictYes
		}
	}
	return types.VerdictNo
}

func (e *Engine) sectorMatches(tenderSector, candidateSector string) bool {
	if e.opts.SectorStrictness == SectorExact {
		return strings.EqualFold(strings.TrimSpace(tenderSector), strings.TrimSpace(candidateSector))
	}
	return e.Matches(tenderSector, candidateSector)
}

// experienceVerdict treats a required value of 0 as unknown, never as "no experience needed".
func experienceVerdict(required, actual int) types.Verdict {
	if required <= 0 {
		return types.VerdictNotSpecified
	}
	if actual >= required {
		return types.VerdictYes
	}
	return types.VerdictNo
}

func experienceComparison(required, actual int) string {
	if required <= 0 {
		return types.NotSpecified
	}
	return fmt.Sprintf("%d vs %d years required", actual, required)
}

// Score is skill coverage as a percentage rounded half to even, 0 when nothing is required.
// matched can exceed required when the candidate lists overlapping skills
// ("Go", "Golang" against "Go"), so the result is clamped to 100.
func Score(matched, required int) int {
	if required <= 0 {
		return 0
	}
	score := int(math.RoundToEven(float64(matched) / float64(required) * 100))
	return max(0, min(score, 100))
}

func isUnset(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, types.NotSpecified)
}
