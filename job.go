package fieldbatch

import (
	"context"
)

// Operation is the unit of work applied to every item of a batch.
// A nil return marks the item as succeeded, anything else as failed.
type Operation[T any] func(ctx context.Context, item T) error

// Outcome is the settled state of a single item, addressed by its input index
type Outcome struct {
	Index int
	Err   error
}

// Failed reports whether the item's operation failed
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// BatchResult is the aggregate outcome of one batch run
type BatchResult struct {
	ID       string
	Total    int
	Failed   int
	Outcomes []Outcome
}

// HasError returns if any of the item operations failed
func (r *BatchResult) HasError() bool {
	return r.Failed > 0
}

// Succeeded returns number of items whose operation succeeded
func (r *BatchResult) Succeeded() int {
	return r.Total - r.Failed
}

// FailedIndexes returns input indexes of failed items in ascending order
func (r *BatchResult) FailedIndexes() []int {
	idx := make([]int, 0, r.Failed)
	for _, o := range r.Outcomes {
		if o.Failed() {
			idx = append(idx, o.Index)
		}
	}
	return idx
}

// Errors returns the failures of the batch in input order
func (r *BatchResult) Errors() []error {
	errs := make([]error, 0, r.Failed)
	for _, o := range r.Outcomes {
		if o.Failed() {
			errs = append(errs, o.Err)
		}
	}
	return errs
}

// settlement is the per-call bookkeeping shared by the invocations of one batch
type settlement struct {
	settled int64
	failed  int64
}
