package explain

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/claimguard/claimguard/internal/domain/claims"
	"github.com/claimguard/claimguard/internal/platform/telemetry"
)

// Handler exposes explanation generation and cache management via Echo.
type Handler struct {
	orchestrator *Orchestrator
	cache        *Cache
	maxClaims    int
	monitor      *telemetry.Monitor
}

// NewHandler creates a new Handler. maxClaims caps how many findings one
// request may send for explanation. The monitor may be nil.
func NewHandler(orchestrator *Orchestrator, cache *Cache, maxClaims int, monitor *telemetry.Monitor) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		cache:        cache,
		maxClaims:    maxClaims,
		monitor:      monitor,
	}
}

// RegisterRoutes binds explanation routes to the given Echo group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/explanations", h.GenerateExplanations)
	g.GET("/cache/stats", h.CacheStats)
	g.DELETE("/cache", h.ClearCache)
}

type explainRequest struct {
	Findings  []claims.Finding `json:"findings"`
	Claims    []claims.Claim   `json:"claims"`
	MaxClaims int              `json:"max_claims,omitempty"`
}

type explainResponse struct {
	Explanations map[string]ExplanationResult `json:"explanations"`
	Stats        RunStats                     `json:"stats"`
}

// GenerateExplanations handles POST /explanations: it runs the orchestrator
// over the supplied findings, consulting the cache before the generator.
// Claims whose generation failed are absent from the response map.
func (h *Handler) GenerateExplanations(c echo.Context) error {
	var req explainRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if len(req.Findings) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "findings is required"})
	}
	if len(req.Claims) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "claims is required"})
	}

	maxClaims := h.maxClaims
	if req.MaxClaims > 0 && req.MaxClaims < maxClaims {
		maxClaims = req.MaxClaims
	}

	claimsByID := make(map[string]claims.Claim, len(req.Claims))
	for _, claim := range req.Claims {
		claimsByID[claim.ClaimID] = claim
	}

	var run *telemetry.Run
	if h.monitor != nil {
		run = h.monitor.StartRun(len(req.Findings))
	}

	results, stats := h.orchestrator.Run(c.Request().Context(), req.Findings, claimsByID, maxClaims)

	if h.monitor != nil {
		run.Processed = stats.Processed
		run.CacheHits = stats.CacheHits
		run.GeneratorCalls = stats.GeneratorCalls
		run.Failures = stats.Failures
		h.monitor.EndRun(run)
		h.monitor.SetCacheSize(h.cache.Stats().CurrentSize)
	}

	return c.JSON(http.StatusOK, explainResponse{
		Explanations: results,
		Stats:        stats,
	})
}

// CacheStats handles GET /cache/stats.
func (h *Handler) CacheStats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.cache.Stats())
}

// ClearCache handles DELETE /cache.
func (h *Handler) ClearCache(c echo.Context) error {
	h.cache.Clear()
	return c.NoContent(http.StatusNoContent)
}
