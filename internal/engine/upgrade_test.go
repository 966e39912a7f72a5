package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/deboxhq/debox/internal/config"
)

func TestUpgradeCommitsAndBacksUp(t *testing.T) {
	eng, world, store := testEngine(t)
	writeAppConfig(t, store, baseConfig)

	if _, err := eng.Apply(context.Background(), appName); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	before, err := store.App(appName).Load()
	if err != nil {
		t.Fatalf("Load record: %v", err)
	}
	world.calls = nil

	d, err := eng.Upgrade(context.Background(), appName)
	if err != nil {
		t.Fatalf("Upgrade: %v", err)
	}
	if d == "" {
		t.Fatal("upgrade returned no digest")
	}

	want := []string{"upgrade-image", "backup"}
	if !equalCalls(world.calls, want) {
		t.Fatalf("calls = %v, want %v", world.calls, want)
	}

	rec, err := store.App(appName).Load()
	if err != nil {
		t.Fatalf("Load record: %v", err)
	}
	if rec.Digest() != d {
		t.Fatalf("recorded digest = %s, want %s", rec.Digest(), d)
	}
	if rec.Hashes != before.Hashes {
		t.Fatalf("upgrade changed tier hashes: %+v -> %+v", before.Hashes, rec.Hashes)
	}
}

func TestUpgradeFailureLeavesDigestAlone(t *testing.T) {
	eng, world, store := testEngine(t)
	writeAppConfig(t, store, baseConfig)

	if _, err := eng.Apply(context.Background(), appName); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	before, err := store.App(appName).Load()
	if err != nil {
		t.Fatalf("Load record: %v", err)
	}

	world.upgradeErr = errors.New("apt broke")
	if _, err := eng.Upgrade(context.Background(), appName); err == nil {
		t.Fatal("Upgrade succeeded despite the failing upgrade")
	}

	rec, err := store.App(appName).Load()
	if err != nil {
		t.Fatalf("Load record: %v", err)
	}
	if rec.Digest() != before.Digest() {
		t.Fatalf("failed upgrade moved the digest: %s -> %s", before.Digest(), rec.Digest())
	}
}

func TestUpgradeNotInstalled(t *testing.T) {
	eng, _, _ := testEngine(t)

	_, err := eng.Upgrade(context.Background(), appName)
	if !errors.Is(err, config.ErrValidation) {
		t.Fatalf("Upgrade error = %v, want ErrValidation", err)
	}
}
