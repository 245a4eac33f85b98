package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/truenorth/comex/backend/internal/domain/entities"
)

const (
	maxClassifyItems = 500
	maxClassifyBody  = 1 << 20
)

// NCMService is the subset of the application facade the handlers use
type NCMService interface {
	Search(ctx context.Context, query string, sector entities.Sector, limit int) (*entities.SearchResponse, error)
	ResolveDetails(ctx context.Context, code string) (*entities.TariffCodeDetails, error)
	BySector(ctx context.Context, sector entities.Sector, limit int) ([]*entities.TariffCode, error)
	Validate(ctx context.Context, code string) (*entities.ValidationResult, error)
	Stats(ctx context.Context) (*entities.CatalogStats, error)
	ClassifyItems(ctx context.Context, items []entities.LineItem) ([]entities.ItemClassification, error)
}

// NCMHandler handles NCM-related HTTP requests
type NCMHandler struct {
	service NCMService
}

// NewNCMHandler creates a new NCM handler
func NewNCMHandler(service NCMService) *NCMHandler {
	return &NCMHandler{service: service}
}

// ClassifyRequest is the body of POST /api/ncm/classify
type ClassifyRequest struct {
	Items []entities.LineItem `json:"items"`
}

// SearchNCM handles GET /api/ncm/search
func (h *NCMHandler) SearchNCM(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		respondWithError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	limit, ok := parseLimit(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	// unknown sectors search unboosted
	sector := entities.ParseSector(r.URL.Query().Get("sector"))

	resp, err := h.service.Search(r.Context(), query, sector, limit)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"query":         query,
		"sector":        sector,
		"results":       resp.Candidates,
		"count":         len(resp.Candidates),
		"degraded":      resp.Degraded,
		"lowConfidence": resp.LowConfidence,
		"fallbackUsed":  resp.FallbackUsed,
	})
}

// GetNCM handles GET /api/ncm/{code}
func (h *NCMHandler) GetNCM(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if code == "" {
		respondWithError(w, http.StatusBadRequest, "ncm code is required")
		return
	}

	details, err := h.service.ResolveDetails(r.Context(), code)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if details == nil {
		respondWithJSON(w, http.StatusNotFound, map[string]string{
			"error":      "ncm not found",
			"ncm":        code,
			"suggestion": "check that the code has 8 digits",
		})
		return
	}

	respondWithJSON(w, http.StatusOK, details)
}

// ValidateNCM handles GET /api/ncm/validate/{code}
func (h *NCMHandler) ValidateNCM(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Validate(r.Context(), r.PathValue("code"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// ListBySector handles GET /api/ncm/sector/{sector}
func (h *NCMHandler) ListBySector(w http.ResponseWriter, r *http.Request) {
	sector, known := entities.ParseSectorStrict(r.PathValue("sector"))
	if !known {
		respondWithError(w, http.StatusBadRequest, "unknown sector")
		return
	}

	limit, ok := parseLimit(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	codes, err := h.service.BySector(r.Context(), sector, limit)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"sector": sector,
		"codes":  codes,
		"count":  len(codes),
	})
}

// GetStats handles GET /api/ncm/stats
func (h *NCMHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

// ClassifyItems handles POST /api/ncm/classify
func (h *NCMHandler) ClassifyItems(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxClassifyBody)).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Items) == 0 {
		respondWithError(w, http.StatusBadRequest, "items must not be empty")
		return
	}
	if len(req.Items) > maxClassifyItems {
		respondWithError(w, http.StatusBadRequest, "too many items")
		return
	}

	results, err := h.service.ClassifyItems(r.Context(), req.Items)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"items": results,
		"count": len(results),
	})
}

// parseLimit returns 0 when the parameter is absent
func parseLimit(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
