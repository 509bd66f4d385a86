package telemetry

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestRunLifecycle(t *testing.T) {
	m := NewMonitor()

	run := m.StartRun(10)
	if run.RunID == "" {
		t.Fatal("expected run ID to be assigned")
	}
	if run.TotalClaims != 10 {
		t.Fatalf("expected total claims 10, got %d", run.TotalClaims)
	}
	if run.EndedAt != nil {
		t.Fatal("expected open run to have no end time")
	}

	run.Processed = 8
	run.CacheHits = 6
	run.GeneratorCalls = 2
	m.EndRun(run)

	if run.EndedAt == nil {
		t.Fatal("expected EndRun to stamp the end time")
	}
	history := m.History()
	if len(history) != 1 {
		t.Fatalf("expected 1 run in history, got %d", len(history))
	}
	if history[0].RunID != run.RunID {
		t.Fatalf("expected history to contain run %s, got %s", run.RunID, history[0].RunID)
	}
}

func TestHistoryBounded(t *testing.T) {
	m := NewMonitor()
	m.maxHistory = 3

	var ids []string
	for i := 0; i < 5; i++ {
		run := m.StartRun(1)
		ids = append(ids, run.RunID)
		m.EndRun(run)
	}

	history := m.History()
	if len(history) != 3 {
		t.Fatalf("expected history capped at 3, got %d", len(history))
	}
	if history[0].RunID != ids[2] {
		t.Fatal("expected oldest runs to be dropped first")
	}
}

func TestCacheHitRate(t *testing.T) {
	run := &Run{CacheHits: 3, GeneratorCalls: 1}
	if got := run.CacheHitRate(); got != 75.0 {
		t.Fatalf("expected hit rate 75.0, got %v", got)
	}

	empty := &Run{}
	if got := empty.CacheHitRate(); got != 0 {
		t.Fatalf("expected 0 hit rate for empty run, got %v", got)
	}
}

func TestErrorRate(t *testing.T) {
	run := &Run{Processed: 9, Failures: 1}
	if got := run.ErrorRate(); got != 10.0 {
		t.Fatalf("expected error rate 10.0, got %v", got)
	}
}

func TestAlerts(t *testing.T) {
	m := NewMonitor()

	start := time.Now().Add(-time.Second)
	end := start.Add(time.Second)
	bad := &Run{
		StartedAt:      start,
		EndedAt:        &end,
		Processed:      1,
		CacheHits:      1,
		GeneratorCalls: 9,
		Failures:       1,
	}
	alerts := m.Alerts(bad)
	if len(alerts) != 3 {
		t.Fatalf("expected 3 alerts, got %d: %v", len(alerts), alerts)
	}

	good := &Run{
		StartedAt:      start,
		EndedAt:        &end,
		Processed:      100,
		CacheHits:      90,
		GeneratorCalls: 10,
	}
	if alerts := m.Alerts(good); len(alerts) != 0 {
		t.Fatalf("expected no alerts for healthy run, got %v", alerts)
	}
}

func TestPrometheusHandler(t *testing.T) {
	m := NewMonitor()
	m.CountValidation(20, 7)
	run := m.StartRun(5)
	run.Processed = 5
	run.CacheHits = 3
	run.GeneratorCalls = 2
	m.EndRun(run)
	m.SetCacheSize(42)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := m.PrometheusHandler()(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	for _, want := range []string{
		"claims_validated_total 20",
		"validation_findings_total 7",
		"explanation_runs_total 1",
		"claims_explained_total 5",
		"explanation_cache_hits_total 3",
		"explanation_generator_calls_total 2",
		"explanation_cache_entries 42",
		"# TYPE explanation_cache_entries gauge",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected metrics output to contain %q", want)
		}
	}
}

func TestAnalyticsHandler(t *testing.T) {
	m := NewMonitor()
	run := m.StartRun(4)
	run.Processed = 4
	run.CacheHits = 4
	m.EndRun(run)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/analytics", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := m.AnalyticsHandler()(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Data []struct {
			RunID        string  `json:"run_id"`
			CacheHitRate float64 `json:"cache_hit_rate_percent"`
		} `json:"data"`
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total != 1 || len(resp.Data) != 1 {
		t.Fatalf("expected 1 run, got total=%d len=%d", resp.Total, len(resp.Data))
	}
	if resp.Data[0].RunID != run.RunID {
		t.Fatalf("expected run %s, got %s", run.RunID, resp.Data[0].RunID)
	}
	if resp.Data[0].CacheHitRate != 100.0 {
		t.Fatalf("expected 100%% hit rate, got %v", resp.Data[0].CacheHitRate)
	}
}
