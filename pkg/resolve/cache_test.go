package resolve

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/depfuse/depfuse/pkg/depgraph"
)

func testID(name string) depgraph.Identifier {
	return depgraph.Identifier{Type: "Test", Name: name, Version: "1.0.0"}
}

func TestResolveRunsResolverAtMostOnce(t *testing.T) {
	var calls atomic.Int64
	release := make(chan struct{})
	cache := NewCache(ResolverFunc(func(_ context.Context, id depgraph.Identifier) (Package, error) {
		calls.Add(1)
		<-release
		return Package{Identifier: id}, nil
	}))

	const waiters = 16
	var wg sync.WaitGroup
	results := make([]error, waiters)
	for i := range waiters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, results[i] = cache.Resolve(context.Background(), testID("shared"))
		}()
	}
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("resolver ran %d times, want 1", got)
	}
	for i, err := range results {
		if err != nil {
			t.Errorf("waiter %d: %v", i, err)
		}
	}
}

func TestResolveRetainsFailureForever(t *testing.T) {
	resolveErr := errors.New("package yanked")
	var calls atomic.Int64
	cache := NewCache(ResolverFunc(func(context.Context, depgraph.Identifier) (Package, error) {
		calls.Add(1)
		return Package{}, resolveErr
	}))

	for range 3 {
		if _, err := cache.Resolve(context.Background(), testID("bad")); !errors.Is(err, resolveErr) {
			t.Fatalf("err = %v, want %v", err, resolveErr)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("failed resolution reran %d times, want 1", got)
	}
}

func TestResolveCancelledAttemptIsNotRetained(t *testing.T) {
	var calls atomic.Int64
	cache := NewCache(ResolverFunc(func(ctx context.Context, id depgraph.Identifier) (Package, error) {
		if calls.Add(1) == 1 {
			return Package{}, ctx.Err()
		}
		return Package{Identifier: id}, nil
	}))

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := cache.Resolve(cancelled, testID("a")); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	pkg, err := cache.Resolve(context.Background(), testID("a"))
	if err != nil {
		t.Fatalf("retry after cancellation: %v", err)
	}
	if pkg.Identifier != testID("a") {
		t.Errorf("retry resolved %v", pkg.Identifier)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("resolver ran %d times, want 2 (cancelled attempt dropped)", got)
	}
	if got := len(cache.Failed()); got != 0 {
		t.Errorf("Failed = %d entries, want none after a cancelled attempt", got)
	}
}

func TestWarmMatchesBuilderTrigger(t *testing.T) {
	cache := NewCache(ResolverFunc(func(_ context.Context, id depgraph.Identifier) (Package, error) {
		return Package{Identifier: id}, nil
	}))

	var fn depgraph.ResolveFunc = cache.Warm
	if err := fn(context.Background(), testID("a")); err != nil {
		t.Fatalf("Warm: %v", err)
	}
	if got := len(cache.Packages()); got != 1 {
		t.Errorf("Packages = %d, want 1", got)
	}
}

func TestPackagesSortedAndFailuresSeparated(t *testing.T) {
	cache := NewCache(ResolverFunc(func(_ context.Context, id depgraph.Identifier) (Package, error) {
		if id.Name == "broken" {
			return Package{}, errors.New("no metadata")
		}
		return Package{Identifier: id}, nil
	}))

	ctx := context.Background()
	for _, name := range []string{"zeta", "broken", "alpha"} {
		cache.Resolve(ctx, testID(name))
	}

	pkgs := cache.Packages()
	if len(pkgs) != 2 {
		t.Fatalf("Packages = %d, want 2", len(pkgs))
	}
	if pkgs[0].Identifier.Name != "alpha" || pkgs[1].Identifier.Name != "zeta" {
		t.Errorf("Packages unsorted: %s, %s", pkgs[0].Identifier.Name, pkgs[1].Identifier.Name)
	}

	failed := cache.Failed()
	if len(failed) != 1 || failed[0].Name != "broken" {
		t.Errorf("Failed = %v, want [broken]", failed)
	}
}

func TestResolveCancelledWaiter(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	cache := NewCache(ResolverFunc(func(_ context.Context, id depgraph.Identifier) (Package, error) {
		once.Do(func() { close(started) })
		<-release
		return Package{Identifier: id}, nil
	}))

	go cache.Resolve(context.Background(), testID("slow"))
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// The waiter observes its own cancellation; the in-flight resolution
	// continues undisturbed.
	if _, err := cache.Resolve(ctx, testID("slow")); err == nil {
		close(release)
		t.Fatal("cancelled waiter should error")
	}
	close(release)

	if _, err := cache.Resolve(context.Background(), testID("slow")); err != nil {
		t.Errorf("retained result after cancellation: %v", err)
	}
}

type recordingHooks struct {
	mu     sync.Mutex
	events []error
}

func (h *recordingHooks) OnResolve(_ depgraph.Identifier, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, err)
}

func TestHooksFireOncePerIdentifier(t *testing.T) {
	hooks := &recordingHooks{}
	cache := NewCache(ResolverFunc(func(_ context.Context, id depgraph.Identifier) (Package, error) {
		return Package{Identifier: id}, nil
	}), WithHooks(hooks))

	ctx := context.Background()
	cache.Resolve(ctx, testID("a"))
	cache.Resolve(ctx, testID("a"))
	cache.Resolve(ctx, testID("b"))

	if got := len(hooks.events); got != 2 {
		t.Errorf("hook fired %d times, want 2", got)
	}
}
