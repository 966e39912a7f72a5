package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/deboxhq/debox/internal/config"
	"github.com/deboxhq/debox/internal/state"
	"github.com/opencontainers/go-digest"
)

const appName = "debox-firefox"

const baseConfig = `
app_name: Firefox
container_name: debox-firefox
image:
  base: debian:bookworm
  packages: [firefox-esr]
runtime:
  default_exec: firefox-esr
`

// Records every collaborator call so tests can assert on ordering and on
// which tiers actually acted.
type fakeWorld struct {
	calls []string

	imageExists bool
	buildErr    error
	backupErr   error
	createErr   error
	exportErr   error
	restoreErr  error
	upgradeErr  error
}

func (f *fakeWorld) call(name string) { f.calls = append(f.calls, name) }

func (f *fakeWorld) BuildImage(ctx context.Context, app *config.App, contextDir string) (string, error) {
	f.call("build")
	if f.buildErr != nil {
		return "", f.buildErr
	}
	f.imageExists = true
	return "localhost/" + app.Name() + ":latest", nil
}

func (f *fakeWorld) CreateContainer(ctx context.Context, app *config.App, imageRef string) error {
	f.call("create")
	return f.createErr
}

func (f *fakeWorld) RemoveContainer(ctx context.Context, name string) error {
	f.call("remove-container")
	return nil
}

func (f *fakeWorld) ImageExists(ctx context.Context, ref string) (bool, error) {
	return f.imageExists, nil
}

func (f *fakeWorld) RemoveImage(ctx context.Context, ref string) error {
	f.call("remove-image")
	f.imageExists = false
	return nil
}

func (f *fakeWorld) RunPostInstall(ctx context.Context, name, script string) error {
	f.call("post-install")
	return nil
}

func (f *fakeWorld) UpgradeImage(ctx context.Context, name, imageRef string) error {
	f.call("upgrade-image")
	return f.upgradeErr
}

func (f *fakeWorld) Export(ctx context.Context, app *config.App) error {
	f.call("export")
	return f.exportErr
}

func (f *fakeWorld) Unexport(containerName string) error {
	f.call("unexport")
	return nil
}

func (f *fakeWorld) Backup(ctx context.Context, name, localRef string) (digest.Digest, error) {
	f.call("backup")
	if f.backupErr != nil {
		return "", f.backupErr
	}
	return digest.FromString(name), nil
}

func (f *fakeWorld) Restore(ctx context.Context, name, localRef string) error {
	f.call("restore")
	if f.restoreErr != nil {
		return f.restoreErr
	}
	f.imageExists = true
	return nil
}

// Adapter so fakeWorld satisfies ImageBackup despite the name collision
// with ContainerRuntime's RemoveImage.
type fakeBackup struct{ *fakeWorld }

func (f fakeBackup) RemoveImage(ctx context.Context, res *state.Resource) error {
	f.call("registry-remove")
	return nil
}

func testEngine(t *testing.T) (*Engine, *fakeWorld, *state.Store) {
	t.Helper()
	root := t.TempDir()
	store := state.NewStore(filepath.Join(root, "apps"), filepath.Join(root, "images"))
	world := &fakeWorld{}
	return New(world, world, fakeBackup{world}, store), world, store
}

func writeAppConfig(t *testing.T, store *state.Store, content string) {
	t.Helper()
	res := store.App(appName)
	if err := os.MkdirAll(res.Dir(), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(res.Dir(), config.FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func equalCalls(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestApplyFreshInstall(t *testing.T) {
	eng, world, store := testEngine(t)
	writeAppConfig(t, store, baseConfig)

	report, err := eng.Apply(context.Background(), appName)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if report.Tier != TierRebuild {
		t.Fatalf("tier = %s, want rebuild", report.Tier)
	}

	want := []string{"unexport", "remove-container", "remove-image", "build", "backup", "create", "export"}
	if !equalCalls(world.calls, want) {
		t.Fatalf("calls = %v, want %v", world.calls, want)
	}

	rec, err := store.App(appName).Load()
	if err != nil {
		t.Fatalf("Load record: %v", err)
	}
	if rec.Hashes.Image == "" || rec.Hashes.Container == "" || rec.Hashes.Integration == "" {
		t.Fatalf("record incomplete after successful apply: %+v", rec.Hashes)
	}
	if rec.Digest() == "" {
		t.Fatal("registry digest not recorded after backup")
	}
}

func TestApplyIdempotent(t *testing.T) {
	eng, world, store := testEngine(t)
	writeAppConfig(t, store, baseConfig)

	if _, err := eng.Apply(context.Background(), appName); err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	world.calls = nil

	report, err := eng.Apply(context.Background(), appName)
	if err != nil {
		t.Fatalf("second Apply: %v", err)
	}

	if !report.NoChanges() {
		t.Fatalf("tier = %s, want none", report.Tier)
	}
	if len(world.calls) != 0 {
		t.Fatalf("second apply performed side effects: %v", world.calls)
	}
}

// A change confined to the integration tier must never touch the container
// or the image.
func TestApplyIntegrationOnly(t *testing.T) {
	eng, world, store := testEngine(t)
	writeAppConfig(t, store, baseConfig)

	if _, err := eng.Apply(context.Background(), appName); err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	world.calls = nil

	writeAppConfig(t, store, baseConfig+`
integration:
  aliases:
    firefox-esr: ff
`)

	report, err := eng.Apply(context.Background(), appName)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if report.Tier != TierReintegrate {
		t.Fatalf("tier = %s, want reintegrate", report.Tier)
	}
	want := []string{"unexport", "export"}
	if !equalCalls(world.calls, want) {
		t.Fatalf("calls = %v, want %v", world.calls, want)
	}
}

// A change confined to the container tier must never trigger a rebuild.
func TestApplyContainerTier(t *testing.T) {
	eng, world, store := testEngine(t)
	writeAppConfig(t, store, baseConfig)

	if _, err := eng.Apply(context.Background(), appName); err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	world.calls = nil

	writeAppConfig(t, store, baseConfig+`
permissions:
  webcam: true
`)

	report, err := eng.Apply(context.Background(), appName)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if report.Tier != TierRecreate {
		t.Fatalf("tier = %s, want recreate", report.Tier)
	}
	want := []string{"unexport", "remove-container", "create", "export"}
	if !equalCalls(world.calls, want) {
		t.Fatalf("calls = %v, want %v", world.calls, want)
	}
}

// Toggling desktop_integration alone must recreate the container even
// though no other container-tier field changed.
func TestApplyCriticalIntegrationException(t *testing.T) {
	eng, world, store := testEngine(t)
	writeAppConfig(t, store, baseConfig)

	if _, err := eng.Apply(context.Background(), appName); err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	world.calls = nil

	writeAppConfig(t, store, baseConfig+`
integration:
  desktop_integration: false
`)

	report, err := eng.Apply(context.Background(), appName)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if report.Tier != TierRecreate {
		t.Fatalf("tier = %s, want recreate", report.Tier)
	}
	for _, call := range world.calls {
		if call == "build" {
			t.Fatal("desktop_integration toggle triggered a rebuild")
		}
	}
}

func TestApplyImageTierCascades(t *testing.T) {
	eng, world, store := testEngine(t)
	writeAppConfig(t, store, baseConfig)

	if _, err := eng.Apply(context.Background(), appName); err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	world.calls = nil

	writeAppConfig(t, store, `
app_name: Firefox
container_name: debox-firefox
image:
  base: debian:bookworm
  packages: [firefox-esr, ca-certificates]
runtime:
  default_exec: firefox-esr
`)

	report, err := eng.Apply(context.Background(), appName)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if report.Tier != TierRebuild {
		t.Fatalf("tier = %s, want rebuild", report.Tier)
	}
	want := []string{"unexport", "remove-container", "remove-image", "build", "backup", "create", "export"}
	if !equalCalls(world.calls, want) {
		t.Fatalf("calls = %v, want %v", world.calls, want)
	}
}

func TestApplyPostInstallHookRunsOnRecreate(t *testing.T) {
	eng, world, store := testEngine(t)
	writeAppConfig(t, store, baseConfig+`
lifecycle:
  post_install: "update-ca-certificates"
`)

	if _, err := eng.Apply(context.Background(), appName); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	ran := false
	for _, call := range world.calls {
		if call == "post-install" {
			ran = true
		}
	}
	if !ran {
		t.Fatalf("post-install hook never ran: %v", world.calls)
	}
}

// A failed backup aborts the cascade before the container is recreated and
// leaves the image tier uncommitted, so the retry rebuilds.
func TestApplyMidCascadeFailure(t *testing.T) {
	eng, world, store := testEngine(t)
	writeAppConfig(t, store, baseConfig)

	world.backupErr = fmt.Errorf("registry down")

	_, err := eng.Apply(context.Background(), appName)
	if !errors.Is(err, ErrAction) {
		t.Fatalf("Apply error = %v, want ErrAction", err)
	}

	for _, call := range world.calls {
		if call == "create" || call == "export" {
			t.Fatalf("cascade continued past the failed tier: %v", world.calls)
		}
	}

	rec, loadErr := store.App(appName).Load()
	if loadErr != nil {
		t.Fatalf("Load record: %v", loadErr)
	}
	if rec.Hashes.Image != "" || rec.Hashes.Container != "" || rec.Hashes.Integration != "" {
		t.Fatalf("record claims tiers that never completed: %+v", rec.Hashes)
	}

	// Fixed registry: the retry runs the full cascade and commits.
	world.backupErr = nil
	world.calls = nil

	report, err := eng.Apply(context.Background(), appName)
	if err != nil {
		t.Fatalf("retry Apply: %v", err)
	}
	if report.Tier != TierRebuild {
		t.Fatalf("retry tier = %s, want rebuild", report.Tier)
	}

	rec, loadErr = store.App(appName).Load()
	if loadErr != nil {
		t.Fatalf("Load record: %v", loadErr)
	}
	if rec.Hashes.Image == "" || rec.Hashes.Container == "" || rec.Hashes.Integration == "" {
		t.Fatalf("record incomplete after retry: %+v", rec.Hashes)
	}
}

func TestApplyCorruptRecordAborts(t *testing.T) {
	eng, world, store := testEngine(t)
	writeAppConfig(t, store, baseConfig)

	res := store.App(appName)
	if err := os.WriteFile(filepath.Join(res.Dir(), ".applied-state.toml"), []byte("{broken"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := eng.Apply(context.Background(), appName)
	if !errors.Is(err, state.ErrCorrupt) {
		t.Fatalf("Apply error = %v, want ErrCorrupt", err)
	}
	if len(world.calls) != 0 {
		t.Fatalf("apply acted on a corrupt record: %v", world.calls)
	}
}

func TestApplyMissingConfigDir(t *testing.T) {
	eng, _, _ := testEngine(t)

	_, err := eng.Apply(context.Background(), "debox-ghost")
	if !errors.Is(err, config.ErrValidation) {
		t.Fatalf("Apply error = %v, want ErrValidation", err)
	}
}

// Recreate without rebuild when the local image vanished: the recorded
// backup is restored instead of rebuilding.
func TestApplyRestoresMissingImage(t *testing.T) {
	eng, world, store := testEngine(t)
	writeAppConfig(t, store, baseConfig)

	if _, err := eng.Apply(context.Background(), appName); err != nil {
		t.Fatalf("first Apply: %v", err)
	}

	// Simulate the image being pruned from the local store.
	world.imageExists = false
	world.calls = nil

	writeAppConfig(t, store, baseConfig+`
permissions:
  webcam: true
`)

	if _, err := eng.Apply(context.Background(), appName); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	want := []string{"unexport", "remove-container", "restore", "create", "export"}
	if !equalCalls(world.calls, want) {
		t.Fatalf("calls = %v, want %v", world.calls, want)
	}
}

// A concurrent holder of the resource lock keeps apply from committing
// anything until it releases.
func TestApplyWaitsForResourceLock(t *testing.T) {
	eng, world, store := testEngine(t)
	writeAppConfig(t, store, baseConfig)

	lock, err := store.App(appName).Lock(context.Background())
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	if _, err := eng.Apply(ctx, appName); err == nil {
		t.Fatal("Apply succeeded while the resource lock was held elsewhere")
	}
	if len(world.calls) != 0 {
		t.Fatalf("apply acted without holding the lock: %v", world.calls)
	}

	lock.Release()

	if _, err := eng.Apply(context.Background(), appName); err != nil {
		t.Fatalf("Apply after release: %v", err)
	}
}
