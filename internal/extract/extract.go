// Package extract pulls labelled fields, lists and numbers out of free-form text.
//
// Everything here is table driven: callers declare label sets and rule chains
// as data, and the functions in this package only walk those tables.
package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	bulletLine   = regexp.MustCompile(`^[ \t]*[-*•][ \t]*(.+)$`)
	bulletPrefix = regexp.MustCompile(`^[-*•\s]+`)
	// a "Word Word:" line introduces a new section rather than continuing a value
	sectionHeader = regexp.MustCompile(`^[\pL][\pL /&()-]{0,40}:`)
)

// LabelExtractor finds the value that follows any of a set of alternative section labels.
type LabelExtractor struct {
	labels   []string
	patterns []*regexp.Regexp
}

// NewLabelExtractor compiles the given labels, tried in order.
// Labels match case-insensitively on word boundaries and may be followed by colons or whitespace.
func NewLabelExtractor(labels ...string) *LabelExtractor {
	e := &LabelExtractor{labels: labels}
	for _, label := range labels {
		e.patterns = append(e.patterns, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(label)+`\b[\s:]*`))
	}
	return e
}

// Labels returns the labels this extractor looks for.
func (e *LabelExtractor) Labels() []string {
	return append([]string(nil), e.labels...)
}

// Field returns the first non-blank value captured after one of the labels.
// The value runs to the next blank line, section-looking line, or end of text.
// It returns "" when nothing is found; callers apply their own sentinel.
func (e *LabelExtractor) Field(text string) string {
	value, _ := e.locate(normalize(text))
	return value
}

// List returns the labelled value as a sequence of items.
// A value containing commas is split on commas; otherwise bullet lines after the
// label become items; otherwise the single value is a one-item list.
// Items are trimmed, items without a letter or digit dropped, order and duplicates kept.
func (e *LabelExtractor) List(text string) []string {
	text = normalize(text)
	value, end := e.locate(text)
	if value == "" {
		return []string{}
	}

	if strings.Contains(value, ",") {
		return splitItems(value)
	}

	if bullets := bulletsAfter(text[end:]); len(bullets) > 0 {
		return bullets
	}

	return splitItems(value)
}

// locate returns the first usable capture and the offset where the label match ended.
// Occurrences that open a line are tried for every label, in label order, before
// any mention inside prose. A capture without a letter or digit is not usable.
func (e *LabelExtractor) locate(text string) (string, int) {
	matches := make([][][]int, len(e.patterns))
	for i, pattern := range e.patterns {
		matches[i] = pattern.FindAllStringIndex(text, -1)
	}

	for _, headingOnly := range []bool{true, false} {
		for _, locs := range matches {
			for _, loc := range locs {
				if headingOnly != opensLine(text, loc[0]) {
					continue
				}
				crossedLine := strings.Contains(text[loc[0]:loc[1]], "\n")
				if value := window(text[loc[1]:], crossedLine); hasWordChar(value) {
					return value, loc[1]
				}
			}
		}
	}
	return "", 0
}

func hasWordChar(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0
}

// opensLine reports whether only whitespace, bullets or markdown markers precede pos on its line.
func opensLine(text string, pos int) bool {
	lineStart := strings.LastIndexByte(text[:pos], '\n') + 1
	return strings.TrimLeft(text[lineStart:pos], " \t-*•#") == ""
}

// window collects the value that starts at rest.
// The first line is always taken, unless the label itself ended its line and the
// next line already opens a new section. Following lines are taken until a blank
// line or a line that looks like a header.
func window(rest string, crossedLine bool) string {
	lines := strings.Split(rest, "\n")
	first := strings.TrimSpace(lines[0])
	if first == "" || (crossedLine && sectionHeader.MatchString(first)) {
		return ""
	}

	parts := []string{first}
	for _, line := range lines[1:] {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || looksLikeHeader(trimmed) {
			break
		}
		parts = append(parts, trimmed)
	}

	return strings.Join(parts, " ")
}

// looksLikeHeader reports whether a continuation line starts a new block.
// Lines opening with an uppercase letter or a digit do; lowercase text and
// bullet continuations do not.
func looksLikeHeader(line string) bool {
	r, _ := utf8.DecodeRuneInString(line)
	return unicode.IsUpper(r) || unicode.IsDigit(r)
}

// bulletsAfter collects consecutive bullet lines that follow the label.
// Plain text left on the label's own line is skipped; a blank or non-bullet line ends the scan.
func bulletsAfter(rest string) []string {
	var items []string
	for i, line := range strings.Split(rest, "\n") {
		if strings.TrimSpace(line) == "" {
			break
		}
		m := bulletLine.FindStringSubmatch(line)
		if m == nil {
			if i == 0 {
				continue
			}
			break
		}
		if item := strings.TrimSpace(m[1]); hasWordChar(item) {
			items = append(items, item)
		}
	}
	return items
}

func splitItems(value string) []string {
	items := []string{}
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(bulletPrefix.ReplaceAllString(part, ""))
		if hasWordChar(part) {
			items = append(items, part)
		}
	}
	return items
}

func normalize(text string) string {
	return strings.ReplaceAll(text, "\r\n", "\n")
}

// Truncate keeps at most n leading items.
func Truncate(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
