package classify

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Matcher tests track names against a fixed keyword set. It has no mutators;
// build one per run.
type Matcher struct {
	keywords []string
}

// NewMatcher lowercases and deduplicates keywords, dropping blanks.
func NewMatcher(keywords []string) *Matcher {
	seen := make(map[string]struct{}, len(keywords))
	m := &Matcher{keywords: make([]string, 0, len(keywords))}
	for _, kw := range keywords {
		kw = lower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		m.keywords = append(m.keywords, kw)
	}
	return m
}

// Keywords returns the normalized keywords.
func (m *Matcher) Keywords() []string {
	return append([]string(nil), m.keywords...)
}

// Match reports whether name contains any keyword.
func (m *Matcher) Match(name string) bool {
	if name == "" {
		return false
	}
	name = lower(name)
	for _, kw := range m.keywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}
