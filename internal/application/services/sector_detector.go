package services

import (
	"strings"

	"github.com/truenorth/comex/backend/internal/domain/entities"
	"github.com/truenorth/comex/backend/pkg/textnorm"
)

// SectorDetector guesses a sector from a free-text description
type SectorDetector struct {
	rules []SectorRule
}

// NewSectorDetector builds a detector from the dictionary's keyword rules
func NewSectorDetector(dict *ComexDictionary) *SectorDetector {
	return &SectorDetector{rules: dict.SectorRules()}
}

// Detect returns the sector of the first rule with a keyword contained in
// the folded description, or General.
func (d *SectorDetector) Detect(description string) entities.Sector {
	folded := textnorm.Fold(description)
	if folded == "" {
		return entities.SectorGeneral
	}
	for _, rule := range d.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(folded, kw) {
				return rule.Sector
			}
		}
	}
	return entities.SectorGeneral
}
