package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/deboxhq/debox/internal/runtime"
	"github.com/deboxhq/debox/internal/state"
	"github.com/opencontainers/go-digest"
)

// Monitor stand-in for tests that exercise wire behavior, not healing.
type readyMonitor struct{}

func (readyMonitor) EnsureAvailable(ctx context.Context) error { return nil }

type fakeMover struct {
	pushed   []string
	pulled   []string
	execed   [][]string
	exitCode int
}

func (f *fakeMover) PushImage(ctx context.Context, localRef, registryRef string) (digest.Digest, error) {
	f.pushed = append(f.pushed, registryRef)
	return digest.FromString(registryRef), nil
}

func (f *fakeMover) PullImage(ctx context.Context, registryRef, localRef string) error {
	f.pulled = append(f.pulled, registryRef)
	return nil
}

func (f *fakeMover) Exec(ctx context.Context, name string, env []string, args ...string) (*runtime.ExecResult, error) {
	f.execed = append(f.execed, args)
	return &runtime.ExecResult{ExitCode: f.exitCode}, nil
}

func testService(t *testing.T, handler http.Handler) (*Service, *fakeMover, *state.Store) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	address := strings.TrimPrefix(srv.URL, "http://")

	root := t.TempDir()
	store := state.NewStore(filepath.Join(root, "apps"), filepath.Join(root, "images"))
	mover := &fakeMover{}

	service := NewService(NewClient(address), readyMonitor{}, mover, store, address, "debox-registry")
	return service, mover, store
}

// Registry handler with a configurable set of tagged manifests.
type registryState struct {
	manifests map[string]digest.Digest // "repo:tag" -> digest
	deleted   []string                 // "repo@digest" in deletion order
}

func (s *registryState) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/v2/")

		if path == "_catalog" {
			repos := map[string]bool{}
			for key := range s.manifests {
				repos[strings.SplitN(key, ":", 2)[0]] = true
			}
			names := make([]string, 0, len(repos))
			for name := range repos {
				names = append(names, name)
			}
			writeJSONList(w, "repositories", names)
			return
		}

		if repo, ok := strings.CutSuffix(path, "/tags/list"); ok {
			var tags []string
			for key := range s.manifests {
				if name, tag, _ := strings.Cut(key, ":"); name == repo {
					tags = append(tags, tag)
				}
			}
			writeJSONList(w, "tags", tags)
			return
		}

		repo, ref, ok := strings.Cut(path, "/manifests/")
		if !ok {
			http.NotFound(w, r)
			return
		}

		switch r.Method {
		case http.MethodHead:
			if d, ok := s.manifests[repo+":"+ref]; ok {
				w.Header().Set("Docker-Content-Digest", d.String())
				return
			}
			http.NotFound(w, r)
		case http.MethodDelete:
			for key, d := range s.manifests {
				if strings.HasPrefix(key, repo+":") && d.String() == ref {
					delete(s.manifests, key)
					s.deleted = append(s.deleted, repo+"@"+ref)
					w.WriteHeader(http.StatusAccepted)
					return
				}
			}
			http.NotFound(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

func writeJSONList(w http.ResponseWriter, field string, values []string) {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = `"` + v + `"`
	}
	w.Write([]byte(`{"` + field + `":[` + strings.Join(parts, ",") + `]}`))
}

// A recorded digest the remote no longer has: removal still succeeds, the
// stale digest is cleared, and only then does a second removal fail.
func TestRemoveImageGhostRecovery(t *testing.T) {
	remote := &registryState{manifests: map[string]digest.Digest{}}
	service, _, store := testService(t, remote.handler())

	res := store.Image("debox-base")
	rec := state.NewRecord()
	rec.SetDigest(digest.FromString("deleted-out-of-band"))
	if err := res.Save(rec); err != nil {
		t.Fatal(err)
	}

	if err := service.RemoveImage(context.Background(), res); err != nil {
		t.Fatalf("RemoveImage on ghost: %v", err)
	}

	loaded, err := res.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.RegistryDigest != "" {
		t.Fatalf("stale digest not cleared: %q", loaded.RegistryDigest)
	}

	err = service.RemoveImage(context.Background(), res)
	if !IsNotFound(err) {
		t.Fatalf("second RemoveImage error = %v, want ErrNotFound", err)
	}
}

// No local record at all: the digest comes from the remote tag lookup.
func TestRemoveImageDigestFallback(t *testing.T) {
	d := digest.FromString("remote-manifest")
	remote := &registryState{manifests: map[string]digest.Digest{"debox-firefox:latest": d}}
	service, _, store := testService(t, remote.handler())

	res := store.App("debox-firefox")
	if err := service.RemoveImage(context.Background(), res); err != nil {
		t.Fatalf("RemoveImage: %v", err)
	}

	if len(remote.deleted) != 1 || remote.deleted[0] != "debox-firefox@"+d.String() {
		t.Fatalf("deleted = %v, want the resolved manifest", remote.deleted)
	}
}

func TestRemoveImageNothingToDelete(t *testing.T) {
	remote := &registryState{manifests: map[string]digest.Digest{}}
	service, _, store := testService(t, remote.handler())

	err := service.RemoveImage(context.Background(), store.App("debox-firefox"))
	if !IsNotFound(err) {
		t.Fatalf("RemoveImage error = %v, want ErrNotFound", err)
	}
}

func TestListHidesEmptyRepositories(t *testing.T) {
	remote := &registryState{manifests: map[string]digest.Digest{
		"debox-firefox:latest": digest.FromString("ff"),
	}}
	// An orphaned repository still in the catalog with no tags.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v2/_catalog" {
			w.Write([]byte(`{"repositories":["debox-firefox","debox-orphan"]}`))
			return
		}
		if r.URL.Path == "/v2/debox-orphan/tags/list" {
			w.Write([]byte(`{"name":"debox-orphan","tags":null}`))
			return
		}
		remote.handler().ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	address := strings.TrimPrefix(srv.URL, "http://")
	root := t.TempDir()
	store := state.NewStore(filepath.Join(root, "apps"), filepath.Join(root, "images"))
	service := NewService(NewClient(address), readyMonitor{}, &fakeMover{}, store, address, "debox-registry")

	entries, err := service.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("entries = %v, want only the tagged repository", entries)
	}
	if entries[0].Repository != "debox-firefox" {
		t.Fatalf("repository = %q, want debox-firefox", entries[0].Repository)
	}
}

func TestPruneDryRun(t *testing.T) {
	referenced := digest.FromString("referenced")
	orphan := digest.FromString("orphan")

	remote := &registryState{manifests: map[string]digest.Digest{
		"debox-firefox:latest": referenced,
		"debox-old:latest":     orphan,
	}}
	service, mover, store := testService(t, remote.handler())

	rec := state.NewRecord()
	rec.SetDigest(referenced)
	if err := store.App("debox-firefox").Save(rec); err != nil {
		t.Fatal(err)
	}

	report, err := service.Prune(context.Background(), true)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}

	if !report.DryRun {
		t.Fatal("report not marked dry-run")
	}
	if report.Kept != 1 {
		t.Fatalf("kept = %d, want 1", report.Kept)
	}
	if len(report.Removed) != 1 || report.Removed[0].Digest != orphan {
		t.Fatalf("removed = %v, want only the orphan", report.Removed)
	}

	if len(remote.deleted) != 0 {
		t.Fatalf("dry-run deleted manifests: %v", remote.deleted)
	}
	if len(mover.execed) != 0 {
		t.Fatalf("dry-run ran blob garbage collection: %v", mover.execed)
	}
}

func TestPruneSweepsUnreferenced(t *testing.T) {
	referenced := digest.FromString("referenced")
	orphan := digest.FromString("orphan")

	remote := &registryState{manifests: map[string]digest.Digest{
		"debox-firefox:latest": referenced,
		"debox-old:latest":     orphan,
	}}
	service, mover, store := testService(t, remote.handler())

	rec := state.NewRecord()
	rec.SetDigest(referenced)
	if err := store.App("debox-firefox").Save(rec); err != nil {
		t.Fatal(err)
	}

	report, err := service.Prune(context.Background(), false)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}

	if len(report.Removed) != 1 {
		t.Fatalf("removed = %v, want the orphan only", report.Removed)
	}
	if len(remote.deleted) != 1 || remote.deleted[0] != "debox-old@"+orphan.String() {
		t.Fatalf("deleted = %v, want the orphan manifest", remote.deleted)
	}
	if _, stillThere := remote.manifests["debox-firefox:latest"]; !stillThere {
		t.Fatal("referenced manifest was deleted")
	}

	// Blob garbage collection runs inside the registry container after the
	// manifest sweep.
	if len(mover.execed) != 1 || mover.execed[0][0] != "registry" {
		t.Fatalf("execed = %v, want a garbage-collect run", mover.execed)
	}
}

func TestPushRecordsDigest(t *testing.T) {
	remote := &registryState{manifests: map[string]digest.Digest{}}
	service, mover, store := testService(t, remote.handler())

	res := store.App("debox-firefox")
	d, err := service.Push(context.Background(), res)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if len(mover.pushed) != 1 {
		t.Fatalf("pushed = %v, want one push", mover.pushed)
	}

	rec, err := res.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rec.Digest() != d {
		t.Fatalf("recorded digest = %q, want %q", rec.Digest(), d)
	}
}
