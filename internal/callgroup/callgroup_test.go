package callgroup

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDeduplication(t *testing.T) {
	var g Group[string, int]
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})

	fn := func() (int, error) {
		calls.Add(1)
		close(started)
		<-release
		return 42, nil
	}

	const n = 10
	var wg sync.WaitGroup
	vals := make([]int, n)
	errs := make([]error, n)

	// First caller starts the work.
	wg.Go(func() {
		vals[0], errs[0], _ = g.Do("lexicon.bin", fn)
	})

	// Wait for fn to start, then pile on.
	<-started
	chans := make([]<-chan Result[int], n)
	for i := 1; i < n; i++ {
		chans[i] = g.DoChan("lexicon.bin", fn)
	}
	close(release)

	for i := 1; i < n; i++ {
		r := <-chans[i]
		vals[i], errs[i] = r.Val, r.Err
		if !r.Shared {
			t.Errorf("caller %d: result not marked shared", i)
		}
	}
	wg.Wait()

	for i := range n {
		if errs[i] != nil {
			t.Errorf("caller %d got error: %v", i, errs[i])
		}
		if vals[i] != 42 {
			t.Errorf("caller %d got %d, want 42", i, vals[i])
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("fn called %d times, want 1", got)
	}
}

func TestIndependentKeys(t *testing.T) {
	var g Group[int, struct{}]
	var calls atomic.Int32

	fn := func() (struct{}, error) {
		calls.Add(1)
		return struct{}{}, nil
	}

	var wg sync.WaitGroup
	for _, key := range []int{1, 2, 3} {
		wg.Go(func() {
			<-g.DoChan(key, fn)
		})
	}

	wg.Wait()

	if got := calls.Load(); got != 3 {
		t.Errorf("fn called %d times, want 3", got)
	}
}

func TestErrorPropagation(t *testing.T) {
	var g Group[int, string]
	sentinel := errors.New("failed")
	started := make(chan struct{})

	ch1 := g.DoChan(1, func() (string, error) {
		close(started)
		time.Sleep(50 * time.Millisecond)
		return "", sentinel
	})
	<-started

	ch2 := g.DoChan(1, func() (string, error) {
		t.Error("should not execute")
		return "", nil
	})

	r1 := <-ch1
	r2 := <-ch2

	if !errors.Is(r1.Err, sentinel) {
		t.Errorf("caller 1: got %v, want %v", r1.Err, sentinel)
	}
	if !errors.Is(r2.Err, sentinel) {
		t.Errorf("caller 2: got %v, want %v", r2.Err, sentinel)
	}
}

func TestReuseAfterCompletion(t *testing.T) {
	var g Group[int, int]
	var calls atomic.Int32

	fn := func() (int, error) {
		return int(calls.Add(1)), nil
	}

	v1, err, shared := g.Do(1, fn)
	if err != nil || shared {
		t.Fatalf("first call: v=%d err=%v shared=%v", v1, err, shared)
	}

	// Second call for same key should trigger a new execution.
	v2, err, _ := g.Do(1, fn)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if v1 != 1 || v2 != 2 {
		t.Errorf("got %d and %d, want 1 and 2", v1, v2)
	}
}
