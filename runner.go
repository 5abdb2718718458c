package fieldbatch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	// Unlimited starts every invocation of a batch at once
	Unlimited = 0
)

var (
	ErrInvalidLimit      = errors.New("limit cannot be negative")
	ErrNilOperation      = errors.New("operation is nil")
	ErrOperationPanicked = errors.New("operation panicked")
)

var defaultRunner = &Runner{limit: Unlimited}

// Runner executes per-item operations of a batch concurrently and waits
// until every one of them has settled.
//
// A Runner holds configuration only. Counters live in the call that uses
// them, so one Runner can serve any number of concurrent batches.
type Runner struct {
	limit  int
	logger *zerolog.Logger
}

// NewRunner returns a new Runner from given options
func NewRunner(opts ...RunnerOption) (*Runner, error) {
	r := &Runner{limit: Unlimited}
	for _, opt := range opts {
		opt(r)
	}
	if r.limit < 0 {
		return nil, ErrInvalidLimit
	}
	return r, nil
}

// Limit returns maximum number of in-flight invocations, 0 means unlimited
func (r *Runner) Limit() int {
	return r.limit
}

// Run applies op to every item using the default runner
func Run[T any](ctx context.Context, items []T, op Operation[T]) *BatchResult {
	return RunWith(ctx, defaultRunner, items, op)
}

// RunWith applies op to every item of items and returns once all invocations
// have settled. Invocations run concurrently and may settle in any order.
//
// Failures, including panics, are recorded in the result and never abort
// sibling invocations. ctx is handed to each invocation as is; the batch
// itself always runs to completion.
func RunWith[T any](ctx context.Context, r *Runner, items []T, op Operation[T]) *BatchResult {
	if r == nil {
		r = defaultRunner
	}
	logger := r.loggerFor(ctx)
	res := &BatchResult{
		ID:       newBatchID(logger),
		Total:    len(items),
		Outcomes: make([]Outcome, len(items)),
	}
	logger = logger.With().Str("batch_id", res.ID).Int("total", res.Total).Logger()
	if len(items) == 0 {
		logger.Debug().Msg("empty batch settled")
		return res
	}

	st := &settlement{}
	eg := &errgroup.Group{}
	if r.limit > 0 {
		eg.SetLimit(r.limit)
	}
	for i, item := range items {
		i, item := i, item
		eg.Go(func() error {
			err := invoke(ctx, op, item)
			res.Outcomes[i] = Outcome{Index: i, Err: err}
			if err != nil {
				atomic.AddInt64(&st.failed, 1)
				logger.Debug().Err(err).Int("index", i).Msg("item failed")
			}
			if atomic.AddInt64(&st.settled, 1) == int64(len(items)) {
				logger.Debug().Msg("last item settled")
			}
			return nil
		})
	}
	// invocations never return an error to the group
	_ = eg.Wait()

	res.Failed = int(atomic.LoadInt64(&st.failed))
	logger.Debug().Int("failed", res.Failed).Msg("batch settled")
	return res
}

func invoke[T any](ctx context.Context, op Operation[T], item T) (err error) {
	if op == nil {
		return ErrNilOperation
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrOperationPanicked, p)
		}
	}()
	return op(ctx, item)
}

func (r *Runner) loggerFor(ctx context.Context) zerolog.Logger {
	if r.logger != nil {
		return *r.logger
	}
	return *zerolog.Ctx(ctx)
}

// newBatchID tags a batch for log correlation; an empty id is acceptable
func newBatchID(logger zerolog.Logger) string {
	uid, err := uuid.NewRandom()
	if err != nil {
		logger.Warn().Err(err).Msg("failed to generate batch id")
		return ""
	}
	return uid.String()
}

// RunnerOption represents optional configuration for Runner
type RunnerOption func(*Runner)

// WithLimit caps the number of in-flight invocations of a batch
func WithLimit(limit int) RunnerOption {
	return func(r *Runner) {
		r.limit = limit
	}
}

// WithLogger sets the logger used for batch diagnostics.
// Without it the logger attached to the call's context is used.
func WithLogger(logger zerolog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = &logger
	}
}
