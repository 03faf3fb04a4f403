package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// DefaultEvalTimeout bounds a single evaluation unless the engine was
// built with WithTimeout.
const DefaultEvalTimeout = 5 * time.Second

// ErrSuperseded is returned to a caller whose evaluation finished after a
// newer one had been started on the same engine.
var ErrSuperseded = errors.New("engine: evaluation superseded by newer request")

// evalResult carries an evaluation outcome back from its goroutine.
type evalResult struct {
	job    *Job
	errors []EvalError
	err    error
}

// waitWithTimeout blocks until the evaluation goroutine reports on ch, the
// timeout fires or ctx is done. A result whose generation is no longer
// current is dropped in favour of ErrSuperseded.
//
// On timeout or cancellation the goroutine may still be running. Its
// result lands in the buffered channel and is never read.
func waitWithTimeout(
	ctx context.Context,
	ch <-chan evalResult,
	timeout time.Duration,
	gen uint64,
	mu *sync.Mutex,
	currentGen *uint64,
) (*Job, []EvalError, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		mu.Lock()
		current := *currentGen
		mu.Unlock()

		if gen != current {
			return nil, nil, ErrSuperseded
		}
		return res.job, res.errors, res.err

	case <-timer.C:
		return nil, nil, fmt.Errorf("engine: evaluation timed out after %s", timeout)

	case <-ctx.Done():
		return nil, nil, fmt.Errorf("engine: evaluation abandoned: %w", ctx.Err())
	}
}
