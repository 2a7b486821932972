package channel

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrTransport marks a broker-level dispatch failure, distinguished from
// per-message marshalling problems.
var ErrTransport = errors.New("channel: transport failure")

// Outcome is the per-item result of a settled fan-out.
type Outcome[T any] struct {
	Item T
	Err  error
}

// SettleAll dispatches fn for every item concurrently and collects one
// outcome per item; one item's failure never cancels its siblings. Outcomes
// are returned in input order.
func SettleAll[T any](ctx context.Context, items []T, fn func(ctx context.Context, item T) error) []Outcome[T] {
	outcomes := make([]Outcome[T], len(items))

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item T) {
			defer wg.Done()
			outcomes[i] = Outcome[T]{Item: item, Err: fn(ctx, item)}
		}(i, item)
	}
	wg.Wait()

	return outcomes
}

// Failed counts the outcomes that carry an error.
func Failed[T any](outcomes []Outcome[T]) int {
	n := 0
	for _, o := range outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// SettleErr summarizes a settled fan-out: nil when everything succeeded,
// otherwise an error naming the failure count and the first cause.
func SettleErr[T any](outcomes []Outcome[T]) error {
	failed := Failed(outcomes)
	if failed == 0 {
		return nil
	}
	for _, o := range outcomes {
		if o.Err != nil {
			return fmt.Errorf("%d of %d dispatches failed: %w", failed, len(outcomes), o.Err)
		}
	}
	return nil
}
