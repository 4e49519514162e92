package reconciler

import (
	"context"
	"sync"
	"time"

	"github.com/micromata/bankrecon/pkg/errors"
	"github.com/micromata/bankrecon/pkg/logger"
)

// JobRunner enforces the hosting contract around reconciliation passes:
// at most one in-flight job per account. A second submission for the same
// account is refused, never queued. A wall-clock timeout covers the whole
// job; the driver itself only observes the resulting context.
type JobRunner struct {
	mu       sync.Mutex
	inflight map[string]struct{}
	timeout  time.Duration
	log      logger.Logger
}

// NewJobRunner creates a JobRunner. A zero timeout disables the wall-clock
// ceiling.
func NewJobRunner(timeout time.Duration) *JobRunner {
	return &JobRunner{
		inflight: make(map[string]struct{}),
		timeout:  timeout,
		log:      logger.WithComponent("jobs"),
	}
}

// Run executes job for the given account, refusing admission if another job
// for the same account is still running. The job receives a context derived
// from ctx, with the runner's timeout applied when one is configured. Run is
// synchronous; callers wanting background execution run it in a goroutine.
func (jr *JobRunner) Run(ctx context.Context, accountID string, job func(ctx context.Context) error) error {
	jr.mu.Lock()
	if _, busy := jr.inflight[accountID]; busy {
		jr.mu.Unlock()
		jr.log.WithField("account_id", accountID).Warn("Refused concurrent reconciliation job")
		return errors.JobRejected(accountID)
	}
	jr.inflight[accountID] = struct{}{}
	jr.mu.Unlock()

	defer func() {
		jr.mu.Lock()
		delete(jr.inflight, accountID)
		jr.mu.Unlock()
	}()

	if jr.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, jr.timeout)
		defer cancel()
	}

	return job(ctx)
}

// Busy reports whether a job for the account is currently in flight.
func (jr *JobRunner) Busy(accountID string) bool {
	jr.mu.Lock()
	defer jr.mu.Unlock()
	_, busy := jr.inflight[accountID]
	return busy
}
