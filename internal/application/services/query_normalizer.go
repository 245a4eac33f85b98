package services

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// NormalizedQuery is a search query ready for the rankers
type NormalizedQuery struct {
	// Literal is the trimmed, lowercased query used for phrase matching
	Literal string
	// Tokens feed synonym expansion
	Tokens []string
	// FallbackTokens feed the substring fallback
	FallbackTokens []string
}

// QueryNormalizer turns raw user text into a NormalizedQuery
type QueryNormalizer struct {
	MinQueryLength         int
	MinTokenLength         int
	MinFallbackTokenLength int
}

// NewQueryNormalizer returns a normalizer with the production thresholds
func NewQueryNormalizer() *QueryNormalizer {
	return &QueryNormalizer{
		MinQueryLength:         3,
		MinTokenLength:         2,
		MinFallbackTokenLength: 3,
	}
}

// Normalize returns false when the query is too short to search
func (n *QueryNormalizer) Normalize(raw string) (NormalizedQuery, bool) {
	// NFC so decomposed accents match the dictionary keys
	literal := norm.NFC.String(strings.ToLower(strings.TrimSpace(raw)))
	if utf8.RuneCountInString(literal) < n.MinQueryLength {
		return NormalizedQuery{}, false
	}

	fields := strings.Fields(literal)
	q := NormalizedQuery{
		Literal:        strings.Join(fields, " "),
		Tokens:         make([]string, 0, len(fields)),
		FallbackTokens: make([]string, 0, len(fields)),
	}
	for _, f := range fields {
		l := utf8.RuneCountInString(f)
		if l >= n.MinTokenLength {
			q.Tokens = append(q.Tokens, f)
		}
		if l >= n.MinFallbackTokenLength {
			q.FallbackTokens = append(q.FallbackTokens, f)
		}
	}
	return q, true
}
