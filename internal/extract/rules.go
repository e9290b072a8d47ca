package extract

import (
	"regexp"
	"strconv"
)

// Rule pairs a pattern with the post-processor applied to its first capture group.
type Rule[T any] struct {
	Pattern *regexp.Regexp
	Convert func(capture string) (T, bool)
}

// Chain is an ordered rule list evaluated first-match-wins.
type Chain[T any] []Rule[T]

// Find returns the value of the first rule whose pattern matches anywhere in text
// and whose post-processor accepts the capture.
func (c Chain[T]) Find(text string) (T, bool) {
	for _, rule := range c {
		m := rule.Pattern.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		if v, ok := rule.Convert(m[1]); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// YearsRule builds a rule capturing a non-negative whole number of years.
func YearsRule(pattern string) Rule[int] {
	return Rule[int]{
		Pattern: regexp.MustCompile(pattern),
		Convert: atoiNonNegative,
	}
}

// Years runs a years chain over text; 0 means no rule matched.
func Years(chain Chain[int], text string) int {
	years, _ := chain.Find(normalize(text))
	return years
}

func atoiNonNegative(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
