package extract

import "strings"

// KeywordMatcher is a case-insensitive substring predicate over a fixed
// keyword set. The upstream search already filters server-side, but it
// over-matches; this local check is the authoritative filter.
type KeywordMatcher struct {
	keywords []string
}

// NewKeywordMatcher builds a matcher for the given keywords. Keywords
// are lowercased once up front; blank entries are dropped.
func NewKeywordMatcher(keywords []string) *KeywordMatcher {
	lowered := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			lowered = append(lowered, kw)
		}
	}
	return &KeywordMatcher{keywords: lowered}
}

// Matches reports whether text contains any keyword. Empty text never
// matches.
func (m *KeywordMatcher) Matches(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, kw := range m.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
