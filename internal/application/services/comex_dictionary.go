package services

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/truenorth/comex/backend/internal/domain/entities"
	"github.com/truenorth/comex/backend/pkg/textnorm"
	"gopkg.in/yaml.v3"
)

//go:embed data/comex_dictionary.yaml
var defaultDictionaryYAML []byte

// SectorRule maps description substrings to a sector
type SectorRule struct {
	Sector   entities.Sector
	Keywords []string
}

// ComexDictionary is the immutable vocabulary behind synonym expansion and
// sector detection. Build it with LoadComexDictionary or ParseComexDictionary.
type ComexDictionary struct {
	synonyms    map[string][]string
	sectorRules []SectorRule
}

type dictionaryFile struct {
	Synonyms       map[string][]string `yaml:"synonyms"`
	SectorKeywords []struct {
		Sector   string   `yaml:"sector"`
		Keywords []string `yaml:"keywords"`
	} `yaml:"sector_keywords"`
}

// LoadComexDictionary reads the dictionary at path, or the embedded default when path is empty
func LoadComexDictionary(path string) (*ComexDictionary, error) {
	if path == "" {
		return ParseComexDictionary(defaultDictionaryYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dictionary %s: %w", path, err)
	}
	return ParseComexDictionary(data)
}

// DefaultComexDictionary returns the embedded dictionary. It panics only if
// the embedded file is malformed, which the package tests guard against.
func DefaultComexDictionary() *ComexDictionary {
	d, err := ParseComexDictionary(defaultDictionaryYAML)
	if err != nil {
		panic(err)
	}
	return d
}

// ParseComexDictionary validates and builds a dictionary from YAML
func ParseComexDictionary(data []byte) (*ComexDictionary, error) {
	var f dictionaryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse dictionary: %w", err)
	}

	d := &ComexDictionary{synonyms: make(map[string][]string, len(f.Synonyms))}
	for key, syns := range f.Synonyms {
		k := strings.ToLower(strings.TrimSpace(key))
		if !isSingleWord(k) {
			return nil, fmt.Errorf("synonym key %q must be a single word", key)
		}
		clean := make([]string, 0, len(syns))
		for _, s := range syns {
			s = strings.ToLower(strings.TrimSpace(s))
			if !isSingleWord(s) {
				return nil, fmt.Errorf("synonym %q of %q must be a single word", s, key)
			}
			clean = append(clean, s)
		}
		d.synonyms[k] = clean
	}

	for _, rule := range f.SectorKeywords {
		sector, ok := entities.ParseSectorStrict(rule.Sector)
		if !ok {
			return nil, fmt.Errorf("unknown sector %q in sector_keywords", rule.Sector)
		}
		kws := make([]string, 0, len(rule.Keywords))
		for _, kw := range rule.Keywords {
			if kw = textnorm.Fold(strings.TrimSpace(kw)); kw != "" {
				kws = append(kws, kw)
			}
		}
		d.sectorRules = append(d.sectorRules, SectorRule{Sector: sector, Keywords: kws})
	}

	return d, nil
}

func isSingleWord(s string) bool {
	if s == "" {
		return false
	}
	return strings.IndexFunc(s, unicode.IsSpace) < 0
}

// Synonyms returns the synonyms of a lowercase word
func (d *ComexDictionary) Synonyms(word string) []string {
	return d.synonyms[word]
}

// SectorRules returns the ordered sector keyword rules
func (d *ComexDictionary) SectorRules() []SectorRule {
	return d.sectorRules
}
