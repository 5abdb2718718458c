package fieldbatch_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yoonsio/fieldbatch"
)

const (
	maxItems = 100
)

var errTest = errors.New("test")

// TestRunAllSucceed runs batches of varying size where no operation fails
func TestRunAllSucceed(t *testing.T) {
	type testCase struct {
		name     string
		numItems int
	}
	testCases := []testCase{
		{name: "empty batch", numItems: 0},
		{name: "single item", numItems: 1},
	}
	for i := 0; i < 5; i++ {
		numItems := rand.Intn(maxItems) + 1
		testCases = append(testCases, testCase{
			name:     fmt.Sprintf("%d items", numItems),
			numItems: numItems,
		})
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(tt *testing.T) {
			items := generateTestItems(tc.numItems, 0, nil, false)
			var calls int64
			res := fieldbatch.Run(context.Background(), items, countingOp[mockItem](&calls))
			if res.Failed != 0 {
				tt.Errorf("expected no failures but found '%d'", res.Failed)
				return
			}
			if res.HasError() {
				tt.Errorf("found unexpected item error")
				return
			}
			if res.Total != tc.numItems || len(res.Outcomes) != tc.numItems {
				tt.Errorf("expected '%d' outcomes but found total '%d', outcomes '%d'", tc.numItems, res.Total, len(res.Outcomes))
				return
			}
			if int(calls) != tc.numItems {
				tt.Errorf("expected operation to be called '%d' times but found '%d'", tc.numItems, calls)
				return
			}
			for i, o := range res.Outcomes {
				if o.Index != i {
					tt.Errorf("expected outcome index '%d' but found '%d'", i, o.Index)
					return
				}
			}
		})
	}
}

// TestRunFailureCount checks the failure count matches exactly the failing items
func TestRunFailureCount(t *testing.T) {
	testCases := []struct {
		name       string
		numItems   int
		itemErr    error
		partialErr bool
		expected   func(n int) int
	}{
		{
			name:     "no item errors",
			numItems: rand.Intn(maxItems) + 1,
			expected: func(int) int { return 0 },
		},
		{
			name:     "all items fail",
			numItems: rand.Intn(maxItems) + 1,
			itemErr:  errTest,
			expected: func(n int) int { return n },
		},
		{
			name:       "every odd item fails",
			numItems:   rand.Intn(maxItems) + 1,
			itemErr:    errTest,
			partialErr: true,
			expected:   func(n int) int { return n / 2 },
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(tt *testing.T) {
			items := generateTestItems(tc.numItems, 0, tc.itemErr, tc.partialErr)
			res := fieldbatch.Run(context.Background(), items, mockOp)
			if expected := tc.expected(tc.numItems); res.Failed != expected {
				tt.Errorf("expected failed count '%d' but found '%d'", expected, res.Failed)
				return
			}
			if res.Succeeded() != tc.numItems-res.Failed {
				tt.Errorf("expected succeeded count '%d' but found '%d'", tc.numItems-res.Failed, res.Succeeded())
				return
			}
			for _, idx := range res.FailedIndexes() {
				if !errors.Is(res.Outcomes[idx].Err, errTest) {
					tt.Errorf("expected error '%v' at index '%d' but found '%v'", errTest, idx, res.Outcomes[idx].Err)
					return
				}
				if tc.partialErr && idx%2 == 0 {
					tt.Errorf("unexpected failure at even index '%d'", idx)
					return
				}
			}
			if len(res.Errors()) != res.Failed {
				tt.Errorf("expected '%d' errors but found '%d'", res.Failed, len(res.Errors()))
			}
		})
	}
}

// TestRunScenarios covers fixed inputs with known outcomes
func TestRunScenarios(t *testing.T) {
	t.Run("one of three fails", func(tt *testing.T) {
		res := fieldbatch.Run(context.Background(), []string{"a", "b", "c"}, func(_ context.Context, s string) error {
			if s == "b" {
				return errTest
			}
			return nil
		})
		if res.Failed != 1 {
			tt.Errorf("expected failed count '1' but found '%d'", res.Failed)
			return
		}
		if idx := res.FailedIndexes(); len(idx) != 1 || idx[0] != 1 {
			tt.Errorf("expected failed indexes '[1]' but found '%v'", idx)
		}
	})
	t.Run("empty input never invokes operation", func(tt *testing.T) {
		var calls int64
		res := fieldbatch.Run(context.Background(), []string{}, countingOp[string](&calls))
		if res.Failed != 0 || calls != 0 {
			tt.Errorf("expected no failures and no calls but found '%d' failures, '%d' calls", res.Failed, calls)
		}
	})
	t.Run("nil input", func(tt *testing.T) {
		res := fieldbatch.Run[int](context.Background(), nil, nil)
		if res.Failed != 0 || res.Total != 0 {
			tt.Errorf("expected empty result but found '%+v'", res)
		}
	})
	t.Run("all five fail", func(tt *testing.T) {
		res := fieldbatch.Run(context.Background(), []int{1, 2, 3, 4, 5}, func(context.Context, int) error {
			return errTest
		})
		if res.Failed != 5 {
			tt.Errorf("expected failed count '5' but found '%d'", res.Failed)
		}
	})
}

// TestRunRepeatable runs the same deterministic batch twice
func TestRunRepeatable(t *testing.T) {
	items := generateTestItems(maxItems, 0, errTest, true)
	first := fieldbatch.Run(context.Background(), items, mockOp)
	second := fieldbatch.Run(context.Background(), items, mockOp)
	if first.Failed != second.Failed {
		t.Errorf("expected equal failed counts but found '%d' and '%d'", first.Failed, second.Failed)
	}
	if first.ID == second.ID {
		t.Errorf("expected distinct batch ids but both were '%s'", first.ID)
	}
}

// TestRunWaitsForLastItem holds back the last item and checks the batch is still running
func TestRunWaitsForLastItem(t *testing.T) {
	const numItems = 10
	release := make(chan struct{})
	done := make(chan *fieldbatch.BatchResult, 1)
	items := make([]int, numItems)
	for i := range items {
		items[i] = i
	}
	go func() {
		done <- fieldbatch.Run(context.Background(), items, func(_ context.Context, i int) error {
			if i == numItems-1 {
				<-release
				return errTest
			}
			return nil
		})
	}()
	select {
	case res := <-done:
		t.Fatalf("batch settled before last item: '%+v'", res)
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	select {
	case res := <-done:
		if res.Failed != 1 {
			t.Errorf("expected failed count '1' but found '%d'", res.Failed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("batch did not settle after last item was released")
	}
}

// TestRunStartsAllAtOnce verifies no invocation waits for another to finish
func TestRunStartsAllAtOnce(t *testing.T) {
	const numItems = 50
	var started int64
	allStarted := make(chan struct{})
	res := fieldbatch.Run(context.Background(), make([]int, numItems), func(context.Context, int) error {
		if atomic.AddInt64(&started, 1) == numItems {
			close(allStarted)
		}
		select {
		case <-allStarted:
			return nil
		case <-time.After(5 * time.Second):
			return errors.New("timed out waiting for siblings to start")
		}
	})
	if res.Failed != 0 {
		t.Errorf("expected all invocations to overlap but '%d' timed out", res.Failed)
	}
}

// TestRunRecoversPanic checks a panicking operation counts as a failure
func TestRunRecoversPanic(t *testing.T) {
	res := fieldbatch.Run(context.Background(), []int{0, 1, 2}, func(_ context.Context, i int) error {
		if i == 2 {
			panic("boom")
		}
		return nil
	})
	if res.Failed != 1 {
		t.Errorf("expected failed count '1' but found '%d'", res.Failed)
		return
	}
	if !errors.Is(res.Outcomes[2].Err, fieldbatch.ErrOperationPanicked) {
		t.Errorf("expected error '%v' but found '%v'", fieldbatch.ErrOperationPanicked, res.Outcomes[2].Err)
	}
}

// TestRunNilOperation fails every item without panicking
func TestRunNilOperation(t *testing.T) {
	res := fieldbatch.Run[int](context.Background(), []int{1, 2}, nil)
	if res.Failed != 2 {
		t.Errorf("expected failed count '2' but found '%d'", res.Failed)
		return
	}
	if !errors.Is(res.Outcomes[0].Err, fieldbatch.ErrNilOperation) {
		t.Errorf("expected error '%v' but found '%v'", fieldbatch.ErrNilOperation, res.Outcomes[0].Err)
	}
}

// TestRunIgnoresCancellation checks a cancelled context does not stop the batch
func TestRunIgnoresCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	items := generateTestItems(10, time.Millisecond, nil, false)
	var calls int64
	res := fieldbatch.Run(ctx, items, func(ctx context.Context, item mockItem) error {
		atomic.AddInt64(&calls, 1)
		return mockOp(ctx, item)
	})
	if calls != 10 {
		t.Errorf("expected operation to be called '10' times but found '%d'", calls)
		return
	}
	if res.Failed != 10 {
		t.Errorf("expected items observing cancellation to fail but found '%d' failures", res.Failed)
	}
}

// TestMultiBatches runs batches in parallel on a shared runner
func TestMultiBatches(t *testing.T) {
	r, err := fieldbatch.NewRunner()
	if err != nil {
		t.Fatalf("failed to initialize runner: %+v", err)
	}
	numBatches := rand.Intn(10) + 1
	wg := &sync.WaitGroup{}
	wg.Add(numBatches)
	for i := 0; i < numBatches; i++ {
		numItems := rand.Intn(maxItems) + 1
		go func() {
			defer wg.Done()
			items := generateTestItems(numItems, 0, errTest, true)
			res := fieldbatch.RunWith(context.Background(), r, items, mockOp)
			if res.Failed != numItems/2 {
				t.Errorf("expected failed count '%d' but found '%d'", numItems/2, res.Failed)
			}
		}()
	}
	wg.Wait()
}

// TestConfig tests runner configuration
func TestConfig(t *testing.T) {
	testCases := []struct {
		name        string
		opts        []fieldbatch.RunnerOption
		limit       int
		expectedErr error
	}{
		{
			name:  "default config",
			limit: fieldbatch.Unlimited,
		},
		{
			name:  "positive limit",
			opts:  []fieldbatch.RunnerOption{fieldbatch.WithLimit(4)},
			limit: 4,
		},
		{
			name:        "negative limit",
			opts:        []fieldbatch.RunnerOption{fieldbatch.WithLimit(-1)},
			expectedErr: fieldbatch.ErrInvalidLimit,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(tt *testing.T) {
			r, err := fieldbatch.NewRunner(tc.opts...)
			if !errors.Is(err, tc.expectedErr) {
				tt.Errorf("expected err '%v' but found '%v'", tc.expectedErr, err)
				return
			}
			if r != nil && r.Limit() != tc.limit {
				tt.Errorf("expected limit to be '%d' but found '%d'", tc.limit, r.Limit())
			}
		})
	}
}

// TestRunLimit checks in-flight invocations never exceed the runner limit
func TestRunLimit(t *testing.T) {
	const limit = 3
	r, err := fieldbatch.NewRunner(fieldbatch.WithLimit(limit))
	if err != nil {
		t.Fatalf("failed to initialize runner: %+v", err)
	}
	var inFlight, peak int64
	res := fieldbatch.RunWith(context.Background(), r, make([]int, 20), func(context.Context, int) error {
		n := atomic.AddInt64(&inFlight, 1)
		for {
			p := atomic.LoadInt64(&peak)
			if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		return nil
	})
	if res.Failed != 0 {
		t.Errorf("expected no failures but found '%d'", res.Failed)
		return
	}
	if peak > limit {
		t.Errorf("expected at most '%d' in-flight invocations but found '%d'", limit, peak)
	}
}

type mockItem struct {
	ID    int
	Err   error
	Delay time.Duration
}

func mockOp(ctx context.Context, item mockItem) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(item.Delay):
		return item.Err
	}
}

func countingOp[T any](calls *int64) fieldbatch.Operation[T] {
	return func(context.Context, T) error {
		atomic.AddInt64(calls, 1)
		return nil
	}
}

func generateTestItems(
	n int,
	delay time.Duration,
	err error,
	partialErr bool,
) []mockItem {
	items := make([]mockItem, n)
	for i := 0; i < n; i++ {
		itemErr := err
		if partialErr && i%2 == 0 {
			itemErr = nil
		}
		itemDelay := delay
		if delay == 0 {
			itemDelay = time.Duration(rand.Intn(20)+1) * time.Millisecond
		}
		items[i] = mockItem{
			ID:    i,
			Err:   itemErr,
			Delay: itemDelay,
		}
	}
	return items
}
