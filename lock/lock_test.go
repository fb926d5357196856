package lock_test

import (
	"context"
	"sync"
	"testing"

	"github.com/toporia/async/lock"
	"github.com/toporia/async/store/memory"
)

func TestGuard_CreateWinsOnce(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	a := lock.NewGuard(store)
	b := lock.NewGuard(store)

	got, err := a.Create(ctx, "nightly-report", 60)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if !got {
		t.Fatal("first Create = false, want true")
	}

	got, err = b.Create(ctx, "nightly-report", 60)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got {
		t.Error("second Create = true, want false (lock held)")
	}
}

func TestGuard_ConcurrentCreate_ExactlyOneWinner(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	const callers = 32
	var wg sync.WaitGroup
	results := make(chan bool, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g := lock.NewGuard(store)
			ok, err := g.Create(ctx, "nightly-report", 60)
			if err != nil {
				t.Errorf("Create error: %v", err)
				return
			}
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for ok := range results {
		if ok {
			winners++
		}
	}
	if winners != 1 {
		t.Errorf("expected exactly 1 winner, got %d", winners)
	}
}

func TestGuard_Exists(t *testing.T) {
	ctx := context.Background()
	g := lock.NewGuard(memory.New())

	exists, err := g.Exists(ctx, "report")
	if err != nil {
		t.Fatalf("Exists error: %v", err)
	}
	if exists {
		t.Error("Exists = true before Create, want false")
	}

	if _, err := g.Create(ctx, "report", 5); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	exists, err = g.Exists(ctx, "report")
	if err != nil {
		t.Fatalf("Exists error: %v", err)
	}
	if !exists {
		t.Error("Exists = false after Create, want true")
	}
}

func TestGuard_ReleaseReopensLock(t *testing.T) {
	ctx := context.Background()
	g := lock.NewGuard(memory.New())

	if _, err := g.Create(ctx, "report", 5); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	released, err := g.Release(ctx, "report")
	if err != nil {
		t.Fatalf("Release error: %v", err)
	}
	if !released {
		t.Error("Release = false, want true")
	}

	ok, err := g.Create(ctx, "report", 5)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if !ok {
		t.Error("Create after Release = false, want true")
	}
}

func TestGuard_ReleaseWithoutLock(t *testing.T) {
	ctx := context.Background()
	g := lock.NewGuard(memory.New())

	released, err := g.Release(ctx, "never-created")
	if err != nil {
		t.Fatalf("Release error: %v", err)
	}
	if released {
		t.Error("Release = true for unheld lock, want false")
	}
}

func TestGuard_DistinctNamesDoNotContend(t *testing.T) {
	ctx := context.Background()
	g := lock.NewGuard(memory.New())

	for _, name := range []string{"report-a", "report-b", "report-c"} {
		ok, err := g.Create(ctx, name, 5)
		if err != nil {
			t.Fatalf("Create(%q) error: %v", name, err)
		}
		if !ok {
			t.Errorf("Create(%q) = false, want true", name)
		}
	}
}
