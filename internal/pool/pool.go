// Package pool provides a bounded, index-preserving parallel map used by the
// pipeline stages.
//
// Work items are launched in input order behind a semaphore sized to the
// configured worker count. Outcomes are collected from a results channel in
// completion order and then placed back at their input index, so callers
// always see results in the order they supplied the items.
package pool

import (
	"context"
	"errors"
	"sync"
)

// Outcome holds the result of one work item.
type Outcome[R any] struct {
	Index int
	Value R
	Err   error
}

// Func processes the item at index i.
type Func[T, R any] func(ctx context.Context, i int, item T) (R, error)

// Options configures a Map call.
type Options struct {
	// Workers is the maximum number of items processed at once (minimum 1).
	Workers int
	// StopOnError stops launching new items after the first failure.
	// Items never launched report context.Canceled.
	StopOnError bool
	// OnDone, if set, is called once per finished item from the collecting
	// goroutine. Calls are never concurrent.
	OnDone func(done, total int)
}

// Map applies fn to every item with bounded parallelism and returns one
// outcome per item, indexed like items.
func Map[T, R any](ctx context.Context, items []T, opts Options, fn Func[T, R]) []Outcome[R] {
	total := len(items)
	outcomes := make([]Outcome[R], total)
	if total == 0 {
		return outcomes
	}

	workers := opts.Workers
	if workers <= 0 || workers > total {
		workers = total
	}
	if workers == 0 {
		workers = 1
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	semaphore := make(chan struct{}, workers)
	resultsCh := make(chan Outcome[R], total)
	launched := make([]bool, total)

	var wg sync.WaitGroup

launch:
	for i, item := range items {
		// Check context before acquiring a slot to avoid blocking on a cancelled run
		select {
		case <-runCtx.Done():
			break launch
		case semaphore <- struct{}{}:
		}
		if runCtx.Err() != nil {
			<-semaphore
			break
		}

		launched[i] = true
		wg.Add(1)
		go func(i int, item T) {
			defer wg.Done()
			defer func() { <-semaphore }()

			value, err := fn(runCtx, i, item)
			if err != nil && opts.StopOnError {
				cancel()
			}
			resultsCh <- Outcome[R]{Index: i, Value: value, Err: err}
		}(i, item)
	}

	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	done := 0
	for outcome := range resultsCh {
		outcomes[outcome.Index] = outcome
		done++
		if opts.OnDone != nil {
			opts.OnDone(done, total)
		}
	}

	for i := range outcomes {
		if !launched[i] {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			outcomes[i] = Outcome[R]{Index: i, Err: err}
		}
	}

	return outcomes
}

// FirstError returns the lowest-indexed failure that is not a cancellation
// caused by StopOnError. Cancellations are only reported when nothing else failed.
func FirstError[R any](outcomes []Outcome[R]) (int, error) {
	canceled := -1
	for i, o := range outcomes {
		if o.Err == nil {
			continue
		}
		if errors.Is(o.Err, context.Canceled) {
			if canceled < 0 {
				canceled = i
			}
			continue
		}
		return i, o.Err
	}
	if canceled >= 0 {
		return canceled, outcomes[canceled].Err
	}
	return -1, nil
}
