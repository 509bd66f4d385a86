package explain

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/claimguard/claimguard/internal/domain/claims"
)

// DefaultWorkers is the default worker-pool width. The external generator is
// the throughput bottleneck, so a small constant pool saturates it.
const DefaultWorkers = 5

// Task is one explanation request handed to a worker.
type Task struct {
	ClaimID string
	Error   ErrorInfo
	Claim   ClaimInfo
}

// RunStats summarizes one orchestrator run.
type RunStats struct {
	Requested      int           `json:"requested"`
	Processed      int           `json:"processed"`
	CacheHits      int           `json:"cache_hits"`
	GeneratorCalls int           `json:"generator_calls"`
	Failures       int           `json:"failures"`
	Elapsed        time.Duration `json:"elapsed_ms"`
}

// Orchestrator fans explanation requests out to a fixed-size worker pool,
// consulting the shared cache before invoking the Explainer and writing
// fresh results back. One task's failure never aborts the batch.
type Orchestrator struct {
	cache      *Cache
	explainer  Explainer
	workers    int
	logger     zerolog.Logger
	onProgress func(done, total int)
}

// NewOrchestrator creates an orchestrator over the given cache and explainer.
// The worker count must be positive.
func NewOrchestrator(cache *Cache, explainer Explainer, workers int, logger zerolog.Logger) (*Orchestrator, error) {
	if cache == nil {
		return nil, fmt.Errorf("cache is required")
	}
	if explainer == nil {
		return nil, fmt.Errorf("explainer is required")
	}
	if workers <= 0 {
		return nil, fmt.Errorf("worker count must be positive, got %d", workers)
	}
	return &Orchestrator{
		cache:     cache,
		explainer: explainer,
		workers:   workers,
		logger:    logger,
	}, nil
}

// SetProgressFunc registers a callback invoked after every completed task
// with the running done count and the total. Intended for UI progress
// reporting; the callback runs on the collecting goroutine.
func (o *Orchestrator) SetProgressFunc(fn func(done, total int)) {
	o.onProgress = fn
}

// taskResult is the per-task outcome workers report back.
type taskResult struct {
	claimID   string
	result    ExplanationResult
	fromCache bool
	err       error
}

// Run explains up to maxToProcess findings, in the order the validator
// produced them. Results arrive in completion order; the returned map holds
// one entry per successfully explained claim. A claim whose generation fails
// is logged and omitted, never fatal.
func (o *Orchestrator) Run(ctx context.Context, findings []claims.Finding, claimsByID map[string]claims.Claim, maxToProcess int) (map[string]ExplanationResult, RunStats) {
	start := time.Now()

	if maxToProcess > len(findings) {
		maxToProcess = len(findings)
	}
	if maxToProcess < 0 {
		maxToProcess = 0
	}

	tasks := make([]Task, 0, maxToProcess)
	for _, f := range findings[:maxToProcess] {
		claim, ok := claimsByID[f.ClaimID]
		if !ok {
			o.logger.Warn().Str("claim_id", f.ClaimID).Msg("finding references unknown claim, skipping")
			continue
		}
		tasks = append(tasks, Task{
			ClaimID: f.ClaimID,
			Error:   ErrorInfoFromFinding(f),
			Claim:   ClaimInfoFromClaim(claim),
		})
	}

	taskCh := make(chan Task)
	resultCh := make(chan taskResult)

	var wg sync.WaitGroup
	for i := 0; i < o.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskCh {
				resultCh <- o.process(ctx, task)
			}
		}()
	}

	go func() {
		for _, task := range tasks {
			taskCh <- task
		}
		close(taskCh)
		wg.Wait()
		close(resultCh)
	}()

	results := make(map[string]ExplanationResult, len(tasks))
	stats := RunStats{Requested: len(tasks)}
	done := 0
	for res := range resultCh {
		done++
		switch {
		case res.err != nil:
			stats.Failures++
			o.logger.Warn().Str("claim_id", res.claimID).Err(res.err).Msg("explanation generation failed, skipping claim")
		case res.fromCache:
			stats.CacheHits++
			stats.Processed++
			results[res.claimID] = res.result
		default:
			stats.GeneratorCalls++
			stats.Processed++
			results[res.claimID] = res.result
		}
		if o.onProgress != nil {
			o.onProgress(done, len(tasks))
		}
	}

	stats.Elapsed = time.Since(start)
	return results, stats
}

// process resolves one task: cache first, generator on miss.
func (o *Orchestrator) process(ctx context.Context, task Task) taskResult {
	if cached, ok := o.cache.Get(task.Error, task.Claim); ok {
		// The fingerprint ignores claim IDs, so the stored result may carry
		// another claim's; stamp the requester's before reporting.
		cached.ClaimID = task.ClaimID
		return taskResult{claimID: task.ClaimID, result: cached, fromCache: true}
	}

	result, err := o.explainer.Generate(ctx, task.Error, task.Claim)
	if err != nil {
		return taskResult{claimID: task.ClaimID, err: err}
	}

	o.cache.Put(task.Error, task.Claim, result)
	return taskResult{claimID: task.ClaimID, result: result}
}
