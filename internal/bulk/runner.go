// Package bulk runs one unit of work per selected record concurrently and
// reports partial failures instead of aborting the batch.
package bulk

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Failure records why a single unit of work failed.
type Failure struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

// Result aggregates the outcome of a batch.
type Result struct {
	Succeeded []int64   `json:"succeeded"`
	Failures  []Failure `json:"failures"`
}

// SucceededCount returns the number of successful units.
func (r Result) SucceededCount() int { return len(r.Succeeded) }

// FailedCount returns the number of failed units.
func (r Result) FailedCount() int { return len(r.Failures) }

// Summary renders the user-facing outcome line.
func (r Result) Summary() string {
	return fmt.Sprintf("%d succeeded, %d failed", r.SucceededCount(), r.FailedCount())
}

// Func performs the work for one id.
type Func func(ctx context.Context, id int64) error

// MessageFunc turns a unit error into the message shown to the user.
type MessageFunc func(err error) string

// Runner executes batches. The zero value is usable.
type Runner struct {
	// Message formats failures; err.Error() is used when nil.
	Message MessageFunc
}

// Run starts every unit at once, with no concurrency cap and no retry. A
// failing unit is captured in the result and never cancels its siblings;
// Run only returns early when ctx is done before the batch starts.
func (r Runner) Run(ctx context.Context, ids []int64, fn Func) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var (
		mu     sync.Mutex
		result Result
		g      errgroup.Group
	)
	for _, id := range ids {
		g.Go(func() error {
			err := safeCall(ctx, id, fn)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failures = append(result.Failures, Failure{ID: id, Message: r.message(err)})
				return nil
			}
			result.Succeeded = append(result.Succeeded, id)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(result.Succeeded, func(i, j int) bool { return result.Succeeded[i] < result.Succeeded[j] })
	sort.Slice(result.Failures, func(i, j int) bool { return result.Failures[i].ID < result.Failures[j].ID })
	return result, nil
}

func (r Runner) message(err error) string {
	if r.Message != nil {
		return r.Message(err)
	}
	return err.Error()
}

func safeCall(ctx context.Context, id int64, fn Func) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("bulk: unit %d panicked: %v", id, rec)
		}
	}()
	return fn(ctx, id)
}
