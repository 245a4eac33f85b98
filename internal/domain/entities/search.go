package entities

// Origin tells which strategy produced a candidate
type Origin string

const (
	OriginPrimary  Origin = "primary"
	OriginFallback Origin = "fallback"
)

// RankedCandidate is one scored search result
type RankedCandidate struct {
	Code        string  `json:"ncm"`
	Description string  `json:"descricao"`
	Sector      Sector  `json:"setor"`
	Score       float64 `json:"score"`
	Origin      Origin  `json:"origin,omitempty"`
}

// SearchResponse is the outcome of a free-text search
type SearchResponse struct {
	Candidates    []RankedCandidate `json:"results"`
	Degraded      bool              `json:"degraded"`
	LowConfidence bool              `json:"lowConfidence"`
	FallbackUsed  bool              `json:"fallbackUsed"`
}

// EmptySearchResponse is returned for rejected input
func EmptySearchResponse() *SearchResponse {
	return &SearchResponse{Candidates: []RankedCandidate{}}
}

// ValidationResult reports whether a code exists and what to use instead
type ValidationResult struct {
	Code        string            `json:"ncm"`
	Valid       bool              `json:"valid"`
	Exists      bool              `json:"exists"`
	Info        *TariffCode       `json:"info,omitempty"`
	Suggestions []RankedCandidate `json:"suggestions,omitempty"`
}
