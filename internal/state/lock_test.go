package state

import (
	"context"
	"testing"
	"time"
)

func TestLockExcludesSecondHolder(t *testing.T) {
	res := testStore(t).App("debox-firefox")

	lock, err := res.Lock(context.Background())
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer lock.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	if _, err := res.Lock(ctx); err == nil {
		t.Fatal("second Lock on the same resource succeeded while held")
	}
}

func TestLockReleaseAllowsReacquire(t *testing.T) {
	res := testStore(t).App("debox-firefox")

	lock, err := res.Lock(context.Background())
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	again, err := res.Lock(context.Background())
	if err != nil {
		t.Fatalf("re-Lock after release: %v", err)
	}
	again.Release()
}

func TestLockDifferentResourcesIndependent(t *testing.T) {
	store := testStore(t)

	first, err := store.App("debox-a").Lock(context.Background())
	if err != nil {
		t.Fatalf("Lock a: %v", err)
	}
	defer first.Release()

	second, err := store.App("debox-b").Lock(context.Background())
	if err != nil {
		t.Fatalf("Lock b blocked by lock on a: %v", err)
	}
	second.Release()
}
