package explain

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/claimguard/claimguard/internal/domain/claims"
	"github.com/claimguard/claimguard/internal/platform/telemetry"
)

func newHandlerFixture(t *testing.T, maxClaims int) (*Handler, *Cache, *stubExplainer) {
	t.Helper()
	cache, err := NewCache(100, time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stub := &stubExplainer{}
	o, err := NewOrchestrator(cache, stub, 2, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return NewHandler(o, cache, maxClaims, telemetry.NewMonitor()), cache, stub
}

func explainBody(n int) string {
	findings, claimsByID := batchFixtures(n)
	claimList := make([]claims.Claim, 0, len(claimsByID))
	for _, c := range claimsByID {
		claimList = append(claimList, c)
	}
	body, _ := json.Marshal(map[string]interface{}{
		"findings": findings,
		"claims":   claimList,
	})
	return string(body)
}

func TestGenerateExplanationsEndpoint(t *testing.T) {
	h, _, _ := newHandlerFixture(t, 20)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/explanations", strings.NewReader(explainBody(5)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.GenerateExplanations(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp explainResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Explanations) != 5 {
		t.Fatalf("expected 5 explanations, got %d", len(resp.Explanations))
	}
	if resp.Stats.Processed != 5 || resp.Stats.GeneratorCalls != 5 {
		t.Errorf("unexpected stats: %+v", resp.Stats)
	}
}

func TestGenerateExplanationsEndpoint_ServerCapApplies(t *testing.T) {
	h, _, stub := newHandlerFixture(t, 3)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/explanations", strings.NewReader(explainBody(10)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.GenerateExplanations(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp explainResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Explanations) != 3 {
		t.Errorf("expected server cap of 3, got %d", len(resp.Explanations))
	}
	if stub.callCount() != 3 {
		t.Errorf("expected 3 generator calls, got %d", stub.callCount())
	}
}

func TestGenerateExplanationsEndpoint_RequestCapOnlyLowers(t *testing.T) {
	h, _, _ := newHandlerFixture(t, 5)

	findings, claimsByID := batchFixtures(10)
	claimList := make([]claims.Claim, 0, len(claimsByID))
	for _, c := range claimsByID {
		claimList = append(claimList, c)
	}

	// A request asking for more than the server cap still gets the cap.
	body, _ := json.Marshal(map[string]interface{}{
		"findings":   findings,
		"claims":     claimList,
		"max_claims": 50,
	})

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/explanations", strings.NewReader(string(body)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.GenerateExplanations(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp explainResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Explanations) != 5 {
		t.Errorf("expected 5 explanations, got %d", len(resp.Explanations))
	}

	// Lower per-request cap wins.
	body, _ = json.Marshal(map[string]interface{}{
		"findings":   findings,
		"claims":     claimList,
		"max_claims": 2,
	})
	req = httptest.NewRequest(http.MethodPost, "/explanations", strings.NewReader(string(body)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)

	if err := h.GenerateExplanations(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp = explainResponse{}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Explanations) != 2 {
		t.Errorf("expected 2 explanations, got %d", len(resp.Explanations))
	}
}

func TestGenerateExplanationsEndpoint_MissingInputs(t *testing.T) {
	h, _, _ := newHandlerFixture(t, 5)
	e := echo.New()

	cases := []string{
		`{"findings":[],"claims":[{"claim_id":"C1"}]}`,
		`{"findings":[{"claim_id":"C1"}],"claims":[]}`,
	}
	for _, body := range cases {
		req := httptest.NewRequest(http.MethodPost, "/explanations", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		if err := h.GenerateExplanations(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for %s, got %d", body, rec.Code)
		}
	}
}

func TestCacheStatsEndpoint(t *testing.T) {
	h, cache, _ := newHandlerFixture(t, 5)
	cache.Put(testError(), testClaim(), ExplanationResult{Explanation: "x"})
	cache.Get(testError(), testClaim())

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/cache/stats", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CacheStats(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var stats Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if stats.CurrentSize != 1 || stats.Hits != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestClearCacheEndpoint(t *testing.T) {
	h, cache, _ := newHandlerFixture(t, 5)
	for i := 0; i < 3; i++ {
		ci := testClaim()
		ci.CPTCode = fmt.Sprintf("CPT%d", i)
		cache.Put(testError(), ci, ExplanationResult{})
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/cache", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ClearCache(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if cache.Stats().CurrentSize != 0 {
		t.Errorf("expected empty cache, got %d entries", cache.Stats().CurrentSize)
	}
}
