package entities

import "time"

// CatalogStats summarises the reference table
type CatalogStats struct {
	Total        int            `json:"total"`
	BySector     map[Sector]int `json:"bySector"`
	WithAgencies int            `json:"withAgencies"`
	LastUpdated  *time.Time     `json:"lastUpdated,omitempty"`
}

// LineItem is an invoice line to classify
type LineItem struct {
	Description   string `json:"descricao"`
	Sector        string `json:"setor,omitempty"`
	SuggestedCode string `json:"ncmSugerido,omitempty"`
}

// ItemClassification is the result for one LineItem, in input order
type ItemClassification struct {
	Index         int               `json:"index"`
	Description   string            `json:"descricao"`
	Candidates    []RankedCandidate `json:"candidates"`
	LowConfidence bool              `json:"lowConfidence"`
	Suggested     *ValidationResult `json:"suggested,omitempty"`
}
