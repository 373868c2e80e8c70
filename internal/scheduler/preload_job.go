package scheduler

import (
	"context"
	"time"

	"github.com/aristath/sentinel/internal/orchestrator"
)

// PreloadJob periodically re-runs the orchestrator's sector pre-warm so
// forecasting models stay hot even if an earlier pre-warm attempt failed.
type PreloadJob struct {
	orch    *orchestrator.Orchestrator
	timeout time.Duration
}

// NewPreloadJob creates a cron job that calls orch.PreloadAll on each tick.
func NewPreloadJob(orch *orchestrator.Orchestrator, timeout time.Duration) *PreloadJob {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &PreloadJob{orch: orch, timeout: timeout}
}

// Name implements Job.
func (j *PreloadJob) Name() string { return "preload-all" }

// Run implements Job.
func (j *PreloadJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	return j.orch.PreloadAll(ctx)
}
