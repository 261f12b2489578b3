package pool_test

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"valleyswaths/pkg/pool"

	"github.com/google/go-cmp/cmp"
)

var errOdd = errors.New("odd")

func squares(n int) []pool.Task[int] {
	tasks := make([]pool.Task[int], n)
	for i := range tasks {
		i := i
		tasks[i] = func(ctx context.Context) (int, error) {
			return i * i, nil
		}
	}
	return tasks
}

func TestMap(t *testing.T) {
	p := pool.New(3)
	var calls []int
	values, err := pool.Map(context.Background(), p, squares(10), func(done, total int) {
		if total != 10 {
			t.Errorf("total = %d, want 10", total)
		}
		calls = append(calls, done)
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{0, 1, 4, 9, 16, 25, 36, 49, 64, 81}, values); diff != "" {
		t.Errorf("values incorrect: %s", diff)
	}
	if diff := cmp.Diff([]int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, calls); diff != "" {
		t.Errorf("progress calls incorrect: %s", diff)
	}
}

func TestFailuresDoNotCancel(t *testing.T) {
	p := pool.New(2)
	var ran atomic.Int32
	tasks := make([]pool.Task[int], 6)
	for i := range tasks {
		i := i
		tasks[i] = func(ctx context.Context) (int, error) {
			ran.Add(1)
			if i%2 == 1 {
				return 0, errOdd
			}
			if i == 4 {
				panic("boom")
			}
			return i, nil
		}
	}
	var ok []int
	err := pool.Drain(pool.MapUnordered(context.Background(), p, tasks), len(tasks), nil, func(r pool.Result[int]) error {
		ok = append(ok, r.Value)
		return nil
	})
	if ran.Load() != 6 {
		t.Errorf("%d tasks ran, want 6", ran.Load())
	}
	if !errors.Is(err, errOdd) {
		t.Errorf("joined error %v does not wrap errOdd", err)
	}
	sort.Ints(ok)
	if diff := cmp.Diff([]int{0, 2}, ok); diff != "" {
		t.Errorf("successful values incorrect: %s", diff)
	}
}

func TestMaxWorkers(t *testing.T) {
	p := pool.New(2)
	var running, peak atomic.Int32
	tasks := make([]pool.Task[struct{}], 8)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) (struct{}, error) {
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			return struct{}{}, nil
		}
	}
	if _, err := pool.Map(context.Background(), p, tasks, nil); err != nil {
		t.Fatal(err)
	}
	if peak.Load() > 2 {
		t.Errorf("peak concurrency %d exceeds 2 workers", peak.Load())
	}
}

func TestCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := pool.Map(ctx, pool.New(2), squares(4), nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestSubmit(t *testing.T) {
	p := pool.New(1)
	f := pool.Submit(context.Background(), p, func(ctx context.Context) (string, error) {
		return "done", nil
	})
	v, err := f.Wait(context.Background())
	if err != nil || v != "done" {
		t.Errorf("Wait() = %q, %v", v, err)
	}
	<-f.Done()
}
