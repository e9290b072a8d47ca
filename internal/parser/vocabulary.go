package parser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// defaultTerms is the fallback skill vocabulary. It is deliberately a list of
// common technology terms, so the fallback favours technical résumés and will
// find little in, say, a construction or legal CV. Replace it with a
// vocabulary file for other domains.
var defaultTerms = []string{
	"react", "node.js", "aws", "python", "java", "sql", "docker", "kubernetes",
	"azure", "gcp", "javascript", "typescript", "c++", "c#", "agile", "scrum",
}

// Vocabulary is the reference list scanned when a résumé has no skills section.
// Matching is case-insensitive substring membership, so "java" also hits "javascript".
type Vocabulary struct {
	terms []string
}

// DefaultVocabulary returns the built-in technical vocabulary
func DefaultVocabulary() *Vocabulary {
	return NewVocabulary(defaultTerms)
}

// NewVocabulary lowercases, trims and de-duplicates terms, keeping their order.
func NewVocabulary(terms []string) *Vocabulary {
	seen := make(map[string]bool, len(terms))
	v := &Vocabulary{}
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" || seen[term] {
			continue
		}
		seen[term] = true
		v.terms = append(v.terms, term)
	}
	return v
}

// ParseVocabulary reads one term per line. Blank lines and lines starting with # are ignored.
func ParseVocabulary(r io.Reader) (*Vocabulary, error) {
	var terms []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		terms = append(terms, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vocabulary: %w", err)
	}

	v := NewVocabulary(terms)
	if len(v.terms) == 0 {
		return nil, fmt.Errorf("vocabulary contains no terms")
	}
	return v, nil
}

// LoadVocabulary reads a vocabulary file
func LoadVocabulary(path string) (*Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vocabulary file %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return ParseVocabulary(f)
}

// Terms returns a copy of the vocabulary terms
func (v *Vocabulary) Terms() []string {
	return append([]string(nil), v.terms...)
}

// Find returns the title-cased terms present in text, in vocabulary order.
func (v *Vocabulary) Find(text string) []string {
	lower := strings.ToLower(text)
	hits := []string{}
	for _, term := range v.terms {
		if strings.Contains(lower, term) {
			hits = append(hits, titleCase(term))
		}
	}
	return hits
}

// titleCase builds a fresh Caser per call; Casers keep state and must not be shared across goroutines.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}
