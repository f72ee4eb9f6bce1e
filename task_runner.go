package replslot

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// taskRunner is a thin wrapper around errgroup.Group bounding concurrency to
// maxThreadCount, grounded on the teacher's TaskRunner/JobProcessor helpers.
// As with errgroup, Wait blocks until every task has returned and reports
// the first non-nil error, and a task error cancels the runner's derived
// context: callers that need to continue past per-task failures (the
// checkpoint flusher) catch and record errors inside the task itself.
type taskRunner struct {
	eg      *errgroup.Group
	context context.Context
}

func newTaskRunner(ctx context.Context, maxThreadCount int) *taskRunner {
	eg, ctx2 := errgroup.WithContext(ctx)
	if maxThreadCount > 0 {
		eg.SetLimit(maxThreadCount)
	}
	return &taskRunner{eg: eg, context: ctx2}
}

func (tr *taskRunner) Go(task func() error) {
	tr.eg.Go(task)
}

func (tr *taskRunner) Wait() error {
	return tr.eg.Wait()
}
