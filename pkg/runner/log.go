// Package runner provides Runner implementations for the job graph executor.
package runner

import (
	"context"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/chazu/jobgraph/pkg/graph"
)

var _ graph.Runner = (*LogRunner)(nil)

// LogRunner completes every job by logging it. Delay, if set, is waited out
// before each job completes and is cut short by context cancellation.
type LogRunner struct {
	Delay time.Duration
}

// NewLogRunner creates a LogRunner with the given per-job delay
func NewLogRunner(delay time.Duration) *LogRunner {
	return &LogRunner{Delay: delay}
}

// Run logs the job as done once the delay has elapsed
func (r *LogRunner) Run(ctx context.Context, job string) error {
	if r.Delay > 0 {
		timer := time.NewTimer(r.Delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	log.FromContext(ctx).Info("Job done", "job", job)
	return nil
}
