package repositories

import (
	"context"

	"github.com/truenorth/comex/backend/internal/domain/entities"
)

// RankRequest carries an already normalized and expanded query
type RankRequest struct {
	// Query is the normalized literal (trimmed, lowercased)
	Query string
	// Expression is the boolean full-text expression, e.g. "(freio|travão)|disco"
	Expression string
	// Terms is the flat list of tokens and synonyms behind Expression
	Terms []string
	// Tokens are the literal query tokens used for substring matching
	Tokens []string
	Sector entities.Sector
	Limit  int
}

// PrimaryRanker is the relevance-ranked full-text strategy
type PrimaryRanker interface {
	// Rank returns candidates ordered by score descending, at most Limit.
	// No matches is an empty slice and nil error.
	Rank(ctx context.Context, req RankRequest) ([]entities.RankedCandidate, error)
}

// SubstringMatch is an unscored fallback row
type SubstringMatch struct {
	Code        string
	Description string
	Sector      entities.Sector
}

// FallbackRanker is the case-insensitive substring strategy
type FallbackRanker interface {
	// Match returns rows whose description contains every token, honouring
	// the sector filter, at most limit rows.
	Match(ctx context.Context, tokens []string, sector entities.Sector, limit int) ([]SubstringMatch, error)
}
