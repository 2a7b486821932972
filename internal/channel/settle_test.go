package channel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestSettleAllRunsEveryItem(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	items := []int{1, 2, 3, 4, 5}

	outcomes := SettleAll(context.Background(), items, func(_ context.Context, n int) error {
		calls.Add(1)
		if n == 3 {
			return errors.New("boom")
		}
		return nil
	})

	if got := calls.Load(); got != 5 {
		t.Fatalf("expected 5 calls, got %d", got)
	}
	if Failed(outcomes) != 1 {
		t.Fatalf("expected 1 failure, got %d", Failed(outcomes))
	}
	if outcomes[2].Err == nil || outcomes[2].Item != 3 {
		t.Fatalf("failure not attributed to item 3: %+v", outcomes[2])
	}
	if outcomes[4].Err != nil {
		t.Fatalf("sibling failed: %v", outcomes[4].Err)
	}
}

func TestSettleAllEmpty(t *testing.T) {
	t.Parallel()

	outcomes := SettleAll(context.Background(), nil, func(context.Context, string) error {
		t.Fatal("fn called for empty input")
		return nil
	})
	if len(outcomes) != 0 {
		t.Fatalf("expected no outcomes, got %d", len(outcomes))
	}
	if err := SettleErr(outcomes); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSettleErrSummarizes(t *testing.T) {
	t.Parallel()

	cause := errors.New("transport down")
	outcomes := []Outcome[string]{
		{Item: "a"},
		{Item: "b", Err: cause},
		{Item: "c", Err: errors.New("other")},
	}

	err := SettleErr(outcomes)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("first cause not wrapped: %v", err)
	}
}
