package services

import (
	"strings"
	"unicode"
)

// Expansion is the boolean full-text expression for a query plus the flat
// term list behind it
type Expansion struct {
	Expression string
	Terms      []string
}

// SynonymExpander expands query tokens with COMEX synonyms into an OR
// expression understood by to_tsquery
type SynonymExpander struct {
	dict     *ComexDictionary
	maxTerms int
}

// NewSynonymExpander creates an expander; maxTerms <= 0 means unlimited
func NewSynonymExpander(dict *ComexDictionary, maxTerms int) *SynonymExpander {
	return &SynonymExpander{dict: dict, maxTerms: maxTerms}
}

// sanitizeTerm keeps letters and digits only, which removes every to_tsquery
// operator and any punctuation
func sanitizeTerm(term string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, term)
}

// Expand builds "(tok|syn1|syn2)|tok2" from the tokens. Tokens without
// synonyms stay bare. The result has an empty Expression when nothing
// searchable remains.
func (e *SynonymExpander) Expand(tokens []string) Expansion {
	groups := make([]string, 0, len(tokens))
	terms := make([]string, 0, len(tokens))
	seen := make(map[string]bool)

	budget := func() bool {
		return e.maxTerms <= 0 || len(terms) < e.maxTerms
	}
	add := func(t string) {
		if !seen[t] {
			seen[t] = true
			terms = append(terms, t)
		}
	}

	for _, raw := range tokens {
		if !budget() {
			break
		}
		tok := sanitizeTerm(strings.ToLower(raw))
		if tok == "" {
			continue
		}
		group := []string{tok}
		add(tok)

		for _, syn := range e.dict.Synonyms(tok) {
			if !budget() {
				break
			}
			s := sanitizeTerm(syn)
			if s == "" || s == tok {
				continue
			}
			group = append(group, s)
			add(s)
		}

		if len(group) == 1 {
			groups = append(groups, tok)
		} else {
			groups = append(groups, "("+strings.Join(group, "|")+")")
		}
	}

	return Expansion{Expression: strings.Join(groups, "|"), Terms: terms}
}
