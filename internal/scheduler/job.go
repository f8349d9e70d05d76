package scheduler

import (
	"context"
	"sync"
	"time"
)

// Job is a unit of periodic work
type Job interface {
	// Name returns the unique job name
	Name() string

	// Run executes the job once
	Run(ctx context.Context) error

	// Schedule returns the cron spec (with seconds field)
	Schedule() string
}

// JobResult is the outcome of one job run
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// JobStats summarises the recorded runs of one job
type JobStats struct {
	JobName       string        `json:"job_name"`
	TotalRuns     int           `json:"total_runs"`
	SuccessCount  int           `json:"success_count"`
	FailureCount  int           `json:"failure_count"`
	SuccessRate   float64       `json:"success_rate"`
	AvgDuration   time.Duration `json:"avg_duration"`
	LastRun       time.Time     `json:"last_run"`
	LastSucceeded bool          `json:"last_succeeded"`
}

// maxHistory bounds the results kept per job
const maxHistory = 100

// history keeps the most recent results per job, oldest first
type history struct {
	mu      sync.RWMutex
	results map[string][]JobResult
}

func newHistory() *history {
	return &history{results: make(map[string][]JobResult)}
}

func (h *history) add(r JobResult) {
	h.mu.Lock()
	defer h.mu.Unlock()

	list := append(h.results[r.JobName], r)
	if len(list) > maxHistory {
		list = list[len(list)-maxHistory:]
	}
	h.results[r.JobName] = list
}

func (h *history) get(name string) []JobResult {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]JobResult, len(h.results[name]))
	copy(out, h.results[name])
	return out
}

func (h *history) stats(name string) JobStats {
	results := h.get(name)

	stats := JobStats{JobName: name, TotalRuns: len(results)}
	if len(results) == 0 {
		return stats
	}

	var total time.Duration
	for _, r := range results {
		if r.Success {
			stats.SuccessCount++
		} else {
			stats.FailureCount++
		}
		total += r.Duration
	}

	last := results[len(results)-1]
	stats.SuccessRate = float64(stats.SuccessCount) / float64(stats.TotalRuns) * 100
	stats.AvgDuration = total / time.Duration(len(results))
	stats.LastRun = last.StartTime
	stats.LastSucceeded = last.Success
	return stats
}
