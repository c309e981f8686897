package reconcile

import (
	"context"
	"fmt"

	"finsync/internal/models"
)

// Status is the outcome class of a public operation.
type Status int

const (
	// StatusSuccess means the cache was reconciled with remote data.
	StatusSuccess Status = iota
	// StatusNoData means the remote answered without data, or every requested
	// ID was already being fetched. The cache was not touched.
	StatusNoData
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusNoData:
		return "no_data"
	default:
		return "error"
	}
}

// Result is the completion of a refresh or mutation.
type Result struct {
	Status Status
	Err    error

	Upserted int
	Evicted  int
	// Missing lists requested IDs the remote did not return.
	Missing []models.ID
	// Cursors is set by single-page refreshes.
	Cursors *PageCursors
	// Keys lists the IDs written by a mutation.
	Keys []models.ID
}

// OK reports whether the operation did not fail.
func (r Result) OK() bool { return r.Status != StatusError }

func success(upserted, evicted int) Result {
	return Result{Status: StatusSuccess, Upserted: upserted, Evicted: evicted}
}

// Saved returns the Result of a mutation that stored keys.
func Saved(keys ...models.ID) Result {
	return Result{Status: StatusSuccess, Upserted: len(keys), Keys: keys}
}

// NoData returns a successful Result that changed nothing.
func NoData() Result { return Result{Status: StatusNoData} }

// Failed returns an error Result.
func Failed(err error) Result { return Result{Status: StatusError, Err: err} }

// resultOf converts an Outcome into a Result.
func resultOf(out Outcome[models.ID], err error) Result {
	if err != nil {
		return Failed(err)
	}
	if out.NoData {
		return NoData()
	}
	r := success(out.Upserted, len(out.Evicted))
	r.Missing = out.Unresolved
	return r
}

// Go runs fn on its own goroutine and delivers exactly one Result on the
// returned channel, even if fn panics. The channel is buffered, so callers
// may stop listening.
func Go(ctx context.Context, fn func(ctx context.Context) Result) <-chan Result {
	done := make(chan Result, 1)
	go func() {
		var res Result
		defer func() {
			if p := recover(); p != nil {
				res = Failed(fmt.Errorf("panic: %v", p))
			}
			done <- res
		}()
		res = fn(ctx)
	}()
	return done
}

// Combine folds results of independent operations into one. The first
// error wins; otherwise the combination succeeds if any part did.
func Combine(results ...Result) Result {
	total := NoData()
	for _, r := range results {
		switch r.Status {
		case StatusError:
			return r
		case StatusSuccess:
			total.Status = StatusSuccess
		}
		total.Upserted += r.Upserted
		total.Evicted += r.Evicted
		total.Missing = append(total.Missing, r.Missing...)
	}
	return total
}
