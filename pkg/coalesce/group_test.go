package coalesce

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGroup_SingleFetchForConcurrentCallers(t *testing.T) {
	group := NewGroup()

	var fetches atomic.Int64
	release := make(chan struct{})

	const callers = 10
	var started, wg sync.WaitGroup
	values := make([]any, callers)
	shareds := make([]bool, callers)

	started.Add(callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Done()
			value, shared, err := group.Do(context.Background(), "dash:steam:x", func(context.Context) (any, error) {
				fetches.Add(1)
				<-release
				return "payload", nil
			})
			if err != nil {
				t.Errorf("caller %d: %v", i, err)
			}
			values[i] = value
			shareds[i] = shared
		}(i)
	}

	// Let every caller reach Do before the flight is released.
	started.Wait()
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := fetches.Load(); got != 1 {
		t.Errorf("fetches = %d, want exactly 1", got)
	}
	for i, v := range values {
		if v != "payload" {
			t.Errorf("caller %d got %v, want shared payload", i, v)
		}
	}
	sharedCount := 0
	for _, s := range shareds {
		if s {
			sharedCount++
		}
	}
	if sharedCount != callers {
		// singleflight marks every caller, the leader included, as shared
		// when more than one caller is attached to the flight.
		t.Errorf("shared callers = %d, want %d", sharedCount, callers)
	}
}

func TestGroup_ErrorSharedByAllCallers(t *testing.T) {
	group := NewGroup()
	wantErr := errors.New("upstream down")

	var fetches atomic.Int64
	release := make(chan struct{})

	const callers = 4
	var started, wg sync.WaitGroup
	errs := make([]error, callers)

	started.Add(callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Done()
			_, _, errs[i] = group.Do(context.Background(), "dash:osu:y", func(context.Context) (any, error) {
				fetches.Add(1)
				<-release
				return nil, wantErr
			})
		}(i)
	}

	started.Wait()
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := fetches.Load(); got != 1 {
		t.Errorf("fetches = %d, want exactly 1", got)
	}
	for i, err := range errs {
		if !errors.Is(err, wantErr) {
			t.Errorf("caller %d got %v, want shared error", i, err)
		}
	}
}

func TestGroup_EntryRemovedAfterSettlement(t *testing.T) {
	group := NewGroup()

	var fetches atomic.Int64
	fn := func(context.Context) (any, error) {
		fetches.Add(1)
		return fetches.Load(), nil
	}

	// Sequential calls each start a fresh fetch: no indefinite memoization.
	for i := int64(1); i <= 3; i++ {
		value, _, err := group.Do(context.Background(), "dash:weather:z", fn)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if value != i {
			t.Errorf("call %d got %v, want %d", i, value, i)
		}
	}
}

func TestGroup_FetchSurvivesCallerCancellation(t *testing.T) {
	group := NewGroup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The flight context is detached, so a cancelled caller context does not
	// abort the fetch itself.
	value, _, err := group.Do(ctx, "dash:lastfm:w", func(fnCtx context.Context) (any, error) {
		if fnCtx.Err() != nil {
			return nil, fnCtx.Err()
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if value != "ok" {
		t.Errorf("value = %v, want ok", value)
	}
}
