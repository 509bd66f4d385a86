package claims

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/claimguard/claimguard/internal/platform/telemetry"
)

// Handler exposes claim validation via Echo HTTP routes.
type Handler struct {
	validator *Validator
	monitor   *telemetry.Monitor
}

// NewHandler creates a new Handler. monitor may be nil.
func NewHandler(validator *Validator, monitor *telemetry.Monitor) *Handler {
	return &Handler{validator: validator, monitor: monitor}
}

// RegisterRoutes binds validation routes to the given Echo group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/validate", h.ValidateBatch)
	g.POST("/validate/csv", h.ValidateCSV)
	g.GET("/rules", h.ListRules)
}

type validateRequest struct {
	Claims []Claim `json:"claims"`
}

// ValidateBatch handles POST /validate with a JSON claims batch.
func (h *Handler) ValidateBatch(c echo.Context) error {
	var req validateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if len(req.Claims) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "claims is required"})
	}

	report := h.validator.ValidateBatch(req.Claims)
	h.countRun(report)
	return c.JSON(http.StatusOK, report)
}

// ValidateCSV handles POST /validate/csv with a CSV request body.
func (h *Handler) ValidateCSV(c echo.Context) error {
	batch, err := ParseCSV(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if len(batch) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "csv contains no claims"})
	}

	report := h.validator.ValidateBatch(batch)
	h.countRun(report)
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) countRun(report *BatchReport) {
	if h.monitor == nil {
		return
	}
	h.monitor.CountValidation(report.Summary.TotalClaims, report.Summary.TotalErrors)
}

type ruleInfo struct {
	Name      string    `json:"name"`
	ErrorType ErrorType `json:"error_type"`
	Scope     string    `json:"scope"`
}

// ListRules handles GET /rules, describing the active rule catalogue.
func (h *Handler) ListRules(c echo.Context) error {
	rules := []ruleInfo{
		{Name: "gender-procedure", ErrorType: ErrorGenderProcedure, Scope: "claim"},
		{Name: "age-procedure", ErrorType: ErrorAgeProcedure, Scope: "claim"},
		{Name: "anatomical-logic", ErrorType: ErrorAnatomicalLogic, Scope: "claim"},
		{Name: "severity-mismatch", ErrorType: ErrorSeverityMismatch, Scope: "claim"},
		{Name: "duplicate-service", ErrorType: ErrorDuplicateService, Scope: "batch"},
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":  rules,
		"total": len(rules),
	})
}
