package vertical

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSWRCache_FreshHitSkipsFetch(t *testing.T) {
	t.Parallel()

	c := newSWRCache[string](time.Minute, time.Minute)
	var calls atomic.Int64
	fn := func(context.Context) (string, error) {
		calls.Add(1)
		return "v1", nil
	}

	for range 5 {
		got, err := c.get(context.Background(), "k", fn)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got != "v1" {
			t.Fatalf("got %q, want v1", got)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("fetch calls = %d, want 1", n)
	}
}

func TestSWRCache_StaleServesOldAndRefreshesOnce(t *testing.T) {
	t.Parallel()

	c := newSWRCache[string](20*time.Millisecond, 10*time.Second)
	var calls atomic.Int64
	fn := func(context.Context) (string, error) {
		n := calls.Add(1)
		if n == 1 {
			return "old", nil
		}
		return "new", nil
	}

	if _, err := c.get(context.Background(), "k", fn); err != nil {
		t.Fatalf("prime: %v", err)
	}
	time.Sleep(40 * time.Millisecond) // past TTL, inside stale window

	// Concurrent stale readers all see the old value and trigger at most
	// one background refresh between them.
	const readers = 16
	var wg sync.WaitGroup
	for range readers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := c.get(context.Background(), "k", fn)
			if err != nil {
				t.Errorf("stale get: %v", err)
			}
			if got != "old" {
				t.Errorf("stale get = %q, want old", got)
			}
		}()
	}
	wg.Wait()

	deadline := time.Now().Add(2 * time.Second)
	for {
		got, err := c.get(context.Background(), "k", fn)
		if err != nil {
			t.Fatalf("get after refresh: %v", err)
		}
		if got == "new" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("refreshed value never observed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if n := calls.Load(); n != 2 {
		t.Errorf("fetch calls = %d, want 2 (one prime, one refresh)", n)
	}
}

func TestSWRCache_ExpiredCallersJoinOneFlight(t *testing.T) {
	t.Parallel()

	c := newSWRCache[string](time.Minute, time.Minute)
	release := make(chan struct{})
	var calls atomic.Int64
	fn := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "v1", nil
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]string, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := c.get(context.Background(), "k", fn)
			if err != nil {
				t.Errorf("get: %v", err)
			}
			results[i] = got
		}()
	}

	// Let every caller reach the cache before releasing the fetch.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("fetch calls = %d, want 1", n)
	}
	for i, got := range results {
		if got != "v1" {
			t.Errorf("caller %d got %q, want v1", i, got)
		}
	}
}

func TestSWRCache_SyncFetchErrorPropagatesToAllWaiters(t *testing.T) {
	t.Parallel()

	c := newSWRCache[string](time.Minute, time.Minute)
	fetchErr := errors.New("store down")
	release := make(chan struct{})
	fn := func(context.Context) (string, error) {
		<-release
		return "", fetchErr
	}

	const callers = 4
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = c.get(context.Background(), "k", fn)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, err := range errs {
		if !errors.Is(err, fetchErr) {
			t.Errorf("caller %d err = %v, want %v", i, err, fetchErr)
		}
	}
}

func TestSWRCache_FailedRefreshKeepsStaleValue(t *testing.T) {
	t.Parallel()

	c := newSWRCache[string](20*time.Millisecond, 10*time.Second)
	var refreshErrs atomic.Int64
	c.onRefreshErr = func(string, error) { refreshErrs.Add(1) }

	var calls atomic.Int64
	fn := func(context.Context) (string, error) {
		if calls.Add(1) == 1 {
			return "v1", nil
		}
		return "", errors.New("flaky store")
	}

	if _, err := c.get(context.Background(), "k", fn); err != nil {
		t.Fatalf("prime: %v", err)
	}
	time.Sleep(40 * time.Millisecond)

	// Stale read triggers the failing refresh.
	if got, err := c.get(context.Background(), "k", fn); err != nil || got != "v1" {
		t.Fatalf("stale get = %q, %v; want v1, nil", got, err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for refreshErrs.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("refresh error hook never fired")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Still serving the old value after the failed refresh.
	if got, err := c.get(context.Background(), "k", fn); err != nil || got != "v1" {
		t.Fatalf("get after failed refresh = %q, %v; want v1, nil", got, err)
	}
}

func TestSWRCache_PurgeDetachesInflightFetch(t *testing.T) {
	t.Parallel()

	c := newSWRCache[string](time.Minute, time.Minute)
	release := make(chan struct{})
	var calls atomic.Int64
	fn := func(context.Context) (string, error) {
		if calls.Add(1) == 1 {
			<-release
			return "pre-write", nil
		}
		return "post-write", nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		// First caller blocks inside the fetch.
		if got, err := c.get(context.Background(), "k", fn); err != nil || got != "pre-write" {
			t.Errorf("blocked get = %q, %v; want pre-write, nil", got, err)
		}
	}()

	time.Sleep(50 * time.Millisecond)

	// A write lands while the fetch is in flight.
	c.purge("k")
	close(release)
	<-done

	// The detached flight must not have reinstalled the pre-write snapshot.
	got, err := c.get(context.Background(), "k", fn)
	if err != nil {
		t.Fatalf("get after purge: %v", err)
	}
	if got != "post-write" {
		t.Errorf("get after purge = %q, want post-write", got)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("fetch calls = %d, want 2", n)
	}
}

func TestSWRCache_PurgeAllDropsEveryKey(t *testing.T) {
	t.Parallel()

	c := newSWRCache[string](time.Minute, time.Minute)
	var calls atomic.Int64
	fn := func(context.Context) (string, error) {
		calls.Add(1)
		return "v", nil
	}

	for _, k := range []string{"a", "b"} {
		if _, err := c.get(context.Background(), k, fn); err != nil {
			t.Fatalf("prime %s: %v", k, err)
		}
	}
	c.purgeAll()
	for _, k := range []string{"a", "b"} {
		if _, err := c.get(context.Background(), k, fn); err != nil {
			t.Fatalf("refetch %s: %v", k, err)
		}
	}
	if n := calls.Load(); n != 4 {
		t.Errorf("fetch calls = %d, want 4", n)
	}
}

func TestSWRCache_OutcomeHook(t *testing.T) {
	t.Parallel()

	c := newSWRCache[string](20*time.Millisecond, 10*time.Second)
	var mu sync.Mutex
	seen := map[string]int{}
	c.onOutcome = func(outcome string) {
		mu.Lock()
		seen[outcome]++
		mu.Unlock()
	}
	fn := func(context.Context) (string, error) { return "v", nil }

	_, _ = c.get(context.Background(), "k", fn) // miss
	_, _ = c.get(context.Background(), "k", fn) // fresh
	time.Sleep(40 * time.Millisecond)
	_, _ = c.get(context.Background(), "k", fn) // stale

	mu.Lock()
	defer mu.Unlock()
	for _, want := range []string{outcomeMiss, outcomeFresh, outcomeStale} {
		if seen[want] != 1 {
			t.Errorf("outcome %s observed %d times, want 1", want, seen[want])
		}
	}
}
