// Package telemetry tracks explanation-run analytics for the claims checker:
// per-run sessions (progress, cache efficiency, failures), process-wide
// counters and gauges, threshold alerts, and a Prometheus text exposition
// endpoint -- all on standard library constructs, without the prometheus SDK.
package telemetry

import (
	"fmt"
	"math"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ---------------------------------------------------------------------------
// Counter store keyed by metric name
// ---------------------------------------------------------------------------

type counterStore struct {
	mu    sync.RWMutex
	items map[string]*int64
}

func newCounterStore() *counterStore {
	return &counterStore{items: make(map[string]*int64)}
}

func (s *counterStore) add(key string, delta int64) {
	s.mu.RLock()
	p, ok := s.items[key]
	s.mu.RUnlock()
	if ok {
		atomic.AddInt64(p, delta)
		return
	}
	s.mu.Lock()
	p, ok = s.items[key]
	if !ok {
		v := delta
		s.items[key] = &v
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	atomic.AddInt64(p, delta)
}

func (s *counterStore) get(key string) int64 {
	s.mu.RLock()
	p, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return 0
	}
	return atomic.LoadInt64(p)
}

// ---------------------------------------------------------------------------
// Gauge store keyed by name
// ---------------------------------------------------------------------------

type gaugeStore struct {
	mu    sync.RWMutex
	items map[string]*int64
}

func newGaugeStore() *gaugeStore {
	return &gaugeStore{items: make(map[string]*int64)}
}

func (s *gaugeStore) set(name string, val int64) {
	s.mu.RLock()
	p, ok := s.items[name]
	s.mu.RUnlock()
	if ok {
		atomic.StoreInt64(p, val)
		return
	}
	s.mu.Lock()
	p, ok = s.items[name]
	if !ok {
		v := val
		s.items[name] = &v
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	atomic.StoreInt64(p, val)
}

func (s *gaugeStore) get(name string) int64 {
	s.mu.RLock()
	p, ok := s.items[name]
	s.mu.RUnlock()
	if !ok {
		return 0
	}
	return atomic.LoadInt64(p)
}

// ---------------------------------------------------------------------------
// Run sessions
// ---------------------------------------------------------------------------

// Run records the analytics of one explanation run.
type Run struct {
	RunID          string     `json:"run_id"`
	StartedAt      time.Time  `json:"started_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	TotalClaims    int        `json:"total_claims"`
	Processed      int        `json:"processed"`
	CacheHits      int        `json:"cache_hits"`
	GeneratorCalls int        `json:"generator_calls"`
	Failures       int        `json:"failures"`
}

// Duration reports how long the run took, or has been running so far.
func (r *Run) Duration() time.Duration {
	if r.EndedAt != nil {
		return r.EndedAt.Sub(r.StartedAt)
	}
	return time.Since(r.StartedAt)
}

// CacheHitRate is the percentage of requests served from cache.
func (r *Run) CacheHitRate() float64 {
	total := r.CacheHits + r.GeneratorCalls
	if total == 0 {
		return 0
	}
	return math.Round(float64(r.CacheHits)/float64(total)*1000) / 10
}

// Throughput is claims processed per second.
func (r *Run) Throughput() float64 {
	secs := r.Duration().Seconds()
	if secs <= 0 {
		return 0
	}
	return math.Round(float64(r.Processed)/secs*10) / 10
}

// ErrorRate is the percentage of tasks that failed.
func (r *Run) ErrorRate() float64 {
	attempted := r.Processed + r.Failures
	if attempted == 0 {
		return 0
	}
	return math.Round(float64(r.Failures)/float64(attempted)*1000) / 10
}

// Thresholds configure when a completed run raises alerts.
type Thresholds struct {
	MinCacheHitRate float64
	MinThroughput   float64
	MaxErrorRate    float64
}

// DefaultThresholds returns the monitor's default alert thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinCacheHitRate: 50.0,
		MinThroughput:   3.0,
		MaxErrorRate:    5.0,
	}
}

const defaultMaxHistory = 50

// Monitor is the process-wide analytics collector. It is safe for concurrent
// use.
type Monitor struct {
	counters *counterStore
	gauges   *gaugeStore

	mu         sync.Mutex
	history    []*Run
	maxHistory int
	thresholds Thresholds
}

// NewMonitor creates a Monitor with default thresholds.
func NewMonitor() *Monitor {
	return &Monitor{
		counters:   newCounterStore(),
		gauges:     newGaugeStore(),
		maxHistory: defaultMaxHistory,
		thresholds: DefaultThresholds(),
	}
}

// StartRun opens a new run session.
func (m *Monitor) StartRun(totalClaims int) *Run {
	return &Run{
		RunID:       uuid.New().String(),
		StartedAt:   time.Now(),
		TotalClaims: totalClaims,
	}
}

// EndRun closes a run, folds it into the counters and keeps it in the
// bounded history (oldest dropped first).
func (m *Monitor) EndRun(run *Run) {
	now := time.Now()
	run.EndedAt = &now

	m.counters.add("claims_explained_total", int64(run.Processed))
	m.counters.add("explanation_cache_hits_total", int64(run.CacheHits))
	m.counters.add("explanation_generator_calls_total", int64(run.GeneratorCalls))
	m.counters.add("explanation_failures_total", int64(run.Failures))
	m.counters.add("explanation_runs_total", 1)

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.history) >= m.maxHistory {
		m.history = m.history[1:]
	}
	m.history = append(m.history, run)
}

// CountValidation records one validation batch pass.
func (m *Monitor) CountValidation(totalClaims, totalErrors int) {
	m.counters.add("validation_runs_total", 1)
	m.counters.add("claims_validated_total", int64(totalClaims))
	m.counters.add("validation_findings_total", int64(totalErrors))
}

// SetCacheSize publishes the current cache occupancy.
func (m *Monitor) SetCacheSize(size int) {
	m.gauges.set("explanation_cache_entries", int64(size))
}

// History returns a copy of the completed run sessions, oldest first.
func (m *Monitor) History() []Run {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Run, len(m.history))
	for i, r := range m.history {
		out[i] = *r
	}
	return out
}

// Alerts evaluates a completed run against the thresholds and describes
// every violation.
func (m *Monitor) Alerts(run *Run) []string {
	var alerts []string
	if rate := run.CacheHitRate(); rate < m.thresholds.MinCacheHitRate && run.CacheHits+run.GeneratorCalls > 0 {
		alerts = append(alerts, fmt.Sprintf("cache hit rate %.1f%% below threshold %.1f%%", rate, m.thresholds.MinCacheHitRate))
	}
	if tp := run.Throughput(); tp < m.thresholds.MinThroughput && run.Processed > 0 {
		alerts = append(alerts, fmt.Sprintf("throughput %.1f claims/s below threshold %.1f", tp, m.thresholds.MinThroughput))
	}
	if er := run.ErrorRate(); er > m.thresholds.MaxErrorRate {
		alerts = append(alerts, fmt.Sprintf("error rate %.1f%% above threshold %.1f%%", er, m.thresholds.MaxErrorRate))
	}
	return alerts
}

// ---------------------------------------------------------------------------
// HTTP exposition
// ---------------------------------------------------------------------------

// PrometheusHandler serves the counters and gauges in Prometheus text format.
func (m *Monitor) PrometheusHandler() echo.HandlerFunc {
	counters := []struct {
		name string
		help string
	}{
		{"validation_runs_total", "Total validation batch runs."},
		{"claims_validated_total", "Total claims validated."},
		{"validation_findings_total", "Total validation findings produced."},
		{"explanation_runs_total", "Total explanation batch runs."},
		{"claims_explained_total", "Total claims successfully explained."},
		{"explanation_cache_hits_total", "Explanation requests served from cache."},
		{"explanation_generator_calls_total", "Explanation requests sent to the generator."},
		{"explanation_failures_total", "Explanation requests that failed."},
	}
	gauges := []struct {
		name string
		help string
	}{
		{"explanation_cache_entries", "Current number of cached explanations."},
	}

	return func(c echo.Context) error {
		var b strings.Builder
		for _, def := range counters {
			fmt.Fprintf(&b, "# HELP %s %s\n", def.name, def.help)
			fmt.Fprintf(&b, "# TYPE %s counter\n", def.name)
			fmt.Fprintf(&b, "%s %d\n\n", def.name, m.counters.get(def.name))
		}
		for _, def := range gauges {
			fmt.Fprintf(&b, "# HELP %s %s\n", def.name, def.help)
			fmt.Fprintf(&b, "# TYPE %s gauge\n", def.name)
			fmt.Fprintf(&b, "%s %d\n\n", def.name, m.gauges.get(def.name))
		}
		return c.String(http.StatusOK, b.String())
	}
}

// AnalyticsHandler serves the recent run history with per-run alerts.
func (m *Monitor) AnalyticsHandler() echo.HandlerFunc {
	type runView struct {
		Run
		DurationSeconds float64  `json:"duration_seconds"`
		CacheHitRate    float64  `json:"cache_hit_rate_percent"`
		Throughput      float64  `json:"throughput_per_second"`
		Alerts          []string `json:"alerts,omitempty"`
	}

	return func(c echo.Context) error {
		history := m.History()
		views := make([]runView, len(history))
		for i := range history {
			run := history[i]
			views[i] = runView{
				Run:             run,
				DurationSeconds: math.Round(run.Duration().Seconds()*1000) / 1000,
				CacheHitRate:    run.CacheHitRate(),
				Throughput:      run.Throughput(),
				Alerts:          m.Alerts(&run),
			}
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"data":  views,
			"total": len(views),
		})
	}
}
