package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	mw "github.com/kiranshivaraju/pawlogic/internal/api/middleware"
	"github.com/kiranshivaraju/pawlogic/internal/api/response"
	"github.com/kiranshivaraju/pawlogic/internal/metrics"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler   http.HandlerFunc
	MetricsHandler  http.Handler
	TaxonomyHandler http.HandlerFunc

	CreatePetHandler http.HandlerFunc
	GetPetHandler    http.HandlerFunc

	CreateIncidentHandler http.HandlerFunc
	ListIncidentsHandler  http.HandlerFunc

	ListInsightsHandler   http.HandlerFunc
	InsightSummaryHandler http.HandlerFunc
	GetInsightHandler     http.HandlerFunc
	MarkInsightHandler    http.HandlerFunc

	DetectPatternsHandler   http.HandlerFunc
	TriggerDetectionHandler http.HandlerFunc
	GetJobHandler           http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger(logger, deps.Metrics))
	r.Use(mw.Recovery(logger))

	// Public routes
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	r.Get("/api/v1/taxonomy/{species}", orNotImplemented(deps.TaxonomyHandler))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Post("/api/v1/pets", orNotImplemented(deps.CreatePetHandler))
		r.Get("/api/v1/pets/{petID}", orNotImplemented(deps.GetPetHandler))

		r.Post("/api/v1/incidents", orNotImplemented(deps.CreateIncidentHandler))
		r.Get("/api/v1/pets/{petID}/incidents", orNotImplemented(deps.ListIncidentsHandler))

		r.Get("/api/v1/pets/{petID}/insights", orNotImplemented(deps.ListInsightsHandler))
		r.Get("/api/v1/pets/{petID}/insights/summary", orNotImplemented(deps.InsightSummaryHandler))
		r.Get("/api/v1/insights/{insightID}", orNotImplemented(deps.GetInsightHandler))
		r.Patch("/api/v1/insights/{insightID}", orNotImplemented(deps.MarkInsightHandler))

		r.Post("/api/v1/analysis/detect-patterns", orNotImplemented(deps.DetectPatternsHandler))
		r.Post("/api/v1/analysis/detect-patterns/async", orNotImplemented(deps.TriggerDetectionHandler))
		r.Get("/api/v1/analysis/jobs/{jobID}", orNotImplemented(deps.GetJobHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
