package scheduler

import (
	"context"

	"github.com/google/uuid"
)

// Job is a unit of work executed by the worker pool.
type Job interface {
	// Execute runs the job. ctx is cancelled on timeout or pool shutdown.
	Execute(ctx context.Context) error

	// ID identifies one submission of the job in logs and traces.
	ID() string

	Description() string
}

// funcJob runs a dispatched function with the values of the context it was
// dispatched from. Only the worker's context can cancel it.
type funcJob struct {
	id     string
	name   string
	values context.Context
	fn     func(ctx context.Context)
}

func newFuncJob(ctx context.Context, name string, fn func(ctx context.Context)) *funcJob {
	return &funcJob{
		id:     uuid.NewString(),
		name:   name,
		values: context.WithoutCancel(ctx),
		fn:     fn,
	}
}

func (j *funcJob) Execute(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(j.values)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	j.fn(runCtx)
	return nil
}

func (j *funcJob) ID() string { return j.id }

func (j *funcJob) Description() string { return j.name }
