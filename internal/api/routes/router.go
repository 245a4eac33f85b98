package routes

import (
	"net/http"

	"github.com/truenorth/comex/backend/internal/api/handlers"
	"github.com/truenorth/comex/backend/internal/api/middleware"
	"github.com/truenorth/comex/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux        *http.ServeMux
	ncmHandler *handlers.NCMHandler
	metrics    *observability.Metrics
}

// NewRouter creates a new router. metrics may be nil.
func NewRouter(ncmHandler *handlers.NCMHandler, metrics *observability.Metrics) *Router {
	return &Router{
		mux:        http.NewServeMux(),
		ncmHandler: ncmHandler,
		metrics:    metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// NCM endpoints. Literal segments win over {code}.
	r.mux.HandleFunc("GET /api/ncm/search", r.ncmHandler.SearchNCM)
	r.mux.HandleFunc("GET /api/ncm/stats", r.ncmHandler.GetStats)
	r.mux.HandleFunc("GET /api/ncm/sector/{sector}", r.ncmHandler.ListBySector)
	r.mux.HandleFunc("GET /api/ncm/validate/{code}", r.ncmHandler.ValidateNCM)
	r.mux.HandleFunc("GET /api/ncm/{code}", r.ncmHandler.GetNCM)
	r.mux.HandleFunc("POST /api/ncm/classify", r.ncmHandler.ClassifyItems)

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.LoggingMiddleware(handler)

	// Apply HTTP performance optimizations (compression, ETag, cache headers)
	handler = middleware.ResponseOptimization(handler)

	// CORS wraps everything so preflights never reach the handlers
	handler = middleware.CORSMiddleware(handler)

	return handler
}
