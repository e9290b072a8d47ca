package parser

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"tendermatch/internal/extract"
	"tendermatch/internal/types"
)

const (
	DefaultMaxNameLength = 50

	maxCandidateSkills         = 15
	maxCandidateCertifications = 5
	maxCandidateSectors        = 5
)

var (
	candidateSkillLabels  = extract.NewLabelExtractor("Skills", "Technical Skills", "Core Competencies", "Expertise")
	candidateCertLabels   = extract.NewLabelExtractor("Certifications", "Certification", "Licenses", "Education")
	candidateSectorLabels = extract.NewLabelExtractor("Sector", "Industry", "Domain", "Specialization")

	candidateYears = extract.Chain[int]{
		extract.YearsRule(`(?i)(\d+)\s*\+?\s*years?\s+(?:of\s+)?(?:professional\s+)?experience`),
		extract.YearsRule(`(?i)experience[\s:]*(\d+)\s*\+?\s*years?`),
		extract.YearsRule(`(?i)(\d+)\s*\+?\s*years?`),
	}

	namePrefix = regexp.MustCompile(`(?i)^(?:name|applicant|candidate|consultant)\s*:\s*`)
)

// words that mark a line as a document title rather than a person's name
var notNameWords = map[string]bool{
	"resume": true, "résumé": true, "cv": true, "curriculum": true, "vitae": true, "about": true,
	"profile": true,
}

// CandidateOptions configures a CandidateParser
type CandidateOptions struct {
	MaxNameLength int
	Vocabulary    *Vocabulary
}

// CandidateParser builds CandidateProfile records from résumé text.
type CandidateParser struct {
	maxNameLength int
	vocabulary    *Vocabulary
}

// NewCandidateParser creates a candidate parser; zero options fall back to defaults.
func NewCandidateParser(opts CandidateOptions) *CandidateParser {
	p := &CandidateParser{
		maxNameLength: opts.MaxNameLength,
		vocabulary:    opts.Vocabulary,
	}
	if p.maxNameLength <= 0 {
		p.maxNameLength = DefaultMaxNameLength
	}
	if p.vocabulary == nil {
		p.vocabulary = DefaultVocabulary()
	}
	return p
}

// Parse extracts a candidate profile. filename is only used to derive a name
// when the text does not open with one.
func (p *CandidateParser) Parse(text, filename string) types.CandidateProfile {
	skills := candidateSkillLabels.List(text)
	if len(skills) == 0 {
		skills = p.vocabulary.Find(text)
	}

	return types.CandidateProfile{
		Name:             p.detectName(text, filename),
		ExperienceYears:  extract.Years(candidateYears, text),
		Skills:           extract.Truncate(skills, maxCandidateSkills),
		Certifications:   extract.Truncate(candidateCertLabels.List(text), maxCandidateCertifications),
		SectorExperience: extract.Truncate(candidateSectorLabels.List(text), maxCandidateSectors),
	}
}

// detectName tries the first two non-blank lines, then the filename stem.
func (p *CandidateParser) detectName(text, filename string) string {
	lines := nonBlankLines(text, 2)
	for _, line := range lines {
		if name, ok := p.cleanName(line); ok {
			return titleName(name)
		}
	}

	if stem := filenameStem(filename); stem != "" {
		return titleName(stem)
	}
	return types.NotSpecified
}

func (p *CandidateParser) cleanName(line string) (string, bool) {
	name := strings.TrimSpace(namePrefix.ReplaceAllString(strings.TrimSpace(line), ""))
	if name == "" || utf8.RuneCountInString(name) > p.maxNameLength {
		return "", false
	}

	words := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if notNameWords[w] {
			return "", false
		}
	}
	return name, true
}

// titleName title-cases a display name, also capitalizing the letter after an
// apostrophe ("o'neil" becomes "O'Neil").
func titleName(name string) string {
	var b strings.Builder
	start := 0
	for i, r := range name {
		if r == '\'' || r == '’' {
			b.WriteString(titleCase(name[start:i]))
			b.WriteRune(r)
			start = i + utf8.RuneLen(r)
		}
	}
	b.WriteString(titleCase(name[start:]))
	return b.String()
}

func nonBlankLines(text string, n int) []string {
	var lines []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == n {
			break
		}
	}
	return lines
}

func filenameStem(filename string) string {
	base := filepath.Base(strings.TrimSpace(filename))
	if base == "." || base == "/" {
		return ""
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	stem = strings.NewReplacer("_", " ", "-", " ").Replace(stem)
	return strings.Join(strings.Fields(stem), " ")
}
