package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap_PreservesInputOrder(t *testing.T) {
	items := []int{50, 10, 30, 0, 20}

	outcomes := Map(context.Background(), items, Options{Workers: 3}, func(ctx context.Context, i int, item int) (int, error) {
		// Later items finish first
		time.Sleep(time.Duration(item) * time.Millisecond)
		return item * 2, nil
	})

	require.Len(t, outcomes, len(items))
	for i, o := range outcomes {
		assert.Equal(t, i, o.Index)
		assert.NoError(t, o.Err)
		assert.Equal(t, items[i]*2, o.Value)
	}
}

func TestMap_BoundsConcurrency(t *testing.T) {
	var running, peak int32
	items := make([]int, 12)

	Map(context.Background(), items, Options{Workers: 2}, func(ctx context.Context, i int, item int) (struct{}, error) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return struct{}{}, nil
	})

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&peak), int32(1))
}

func TestMap_ContinuesAfterErrorByDefault(t *testing.T) {
	boom := errors.New("boom")
	items := []string{"a", "bad", "c"}

	outcomes := Map(context.Background(), items, Options{Workers: 1}, func(ctx context.Context, i int, item string) (string, error) {
		if item == "bad" {
			return "", boom
		}
		return item, nil
	})

	assert.Equal(t, "a", outcomes[0].Value)
	assert.ErrorIs(t, outcomes[1].Err, boom)
	assert.Equal(t, "c", outcomes[2].Value)

	idx, err := FirstError(outcomes)
	assert.Equal(t, 1, idx)
	assert.ErrorIs(t, err, boom)
}

func TestMap_StopOnError(t *testing.T) {
	boom := errors.New("boom")
	items := []int{0, 1, 2, 3, 4, 5}
	var calls int32

	outcomes := Map(context.Background(), items, Options{Workers: 1, StopOnError: true}, func(ctx context.Context, i int, item int) (int, error) {
		atomic.AddInt32(&calls, 1)
		if item == 1 {
			return 0, boom
		}
		return item, nil
	})

	// With one worker the failing item is the last one launched
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	for _, o := range outcomes[2:] {
		assert.ErrorIs(t, o.Err, context.Canceled)
	}

	idx, err := FirstError(outcomes)
	assert.Equal(t, 1, idx)
	assert.ErrorIs(t, err, boom)
}

func TestMap_EmptyInput(t *testing.T) {
	outcomes := Map(context.Background(), []int{}, Options{Workers: 4}, func(ctx context.Context, i int, item int) (int, error) {
		t.Fatal("fn must not be called")
		return 0, nil
	})
	assert.Empty(t, outcomes)

	idx, err := FirstError(outcomes)
	assert.Equal(t, -1, idx)
	assert.NoError(t, err)
}

func TestMap_OnDoneCountsEveryItem(t *testing.T) {
	var last, total int
	calls := 0
	Map(context.Background(), []int{1, 2, 3}, Options{
		Workers: 2,
		OnDone: func(d, n int) {
			calls++
			last, total = d, n
		},
	}, func(ctx context.Context, i int, item int) (int, error) {
		return item, nil
	})

	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, last)
	assert.Equal(t, 3, total)
}

func TestMap_PreCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := Map(ctx, []int{1, 2}, Options{Workers: 1}, func(ctx context.Context, i int, item int) (int, error) {
		return item, nil
	})

	for _, o := range outcomes {
		assert.ErrorIs(t, o.Err, context.Canceled)
	}
}
