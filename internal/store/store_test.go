package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	bolt "go.etcd.io/bbolt"

	"storyboard/internal/types"
)

func testDefaults() types.GenOptions {
	return types.GenOptions{ImageProviderID: "default-img", TextProviderID: "default-text"}
}

func openBoth(t *testing.T) map[string]Repository {
	t.Helper()
	dir := t.TempDir()
	bbolt, err := NewBboltRepository(filepath.Join(dir, "preferences.db"), testDefaults())
	if err != nil {
		t.Fatalf("NewBboltRepository: %v", err)
	}
	t.Cleanup(func() { _ = bbolt.Close() })
	file := NewFileRepository(RepositoryPaths{
		GenOptionsPath:  filepath.Join(dir, "gen_options.json"),
		LastProjectPath: filepath.Join(dir, "last_project.json"),
	}, testDefaults())
	return map[string]Repository{RepositoryBackendBbolt: bbolt, RepositoryBackendFile: file}
}

func TestGenOptionsMissingRecordYieldsDefaults(t *testing.T) {
	for name, repo := range openBoth(t) {
		t.Run(name, func(t *testing.T) {
			got, err := repo.GenOptions().Load(context.Background())
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got != testDefaults() {
				t.Fatalf("expected defaults, got %#v", got)
			}
			if repo.Backend() != name {
				t.Fatalf("unexpected backend %s", repo.Backend())
			}
		})
	}
}

func TestGenOptionsRoundTripKeepsEveryKey(t *testing.T) {
	ctx := context.Background()
	for name, repo := range openBoth(t) {
		t.Run(name, func(t *testing.T) {
			saved := testDefaults()
			saved.VideoModelName = "kling-v1"
			if err := repo.GenOptions().Save(ctx, saved); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err := repo.GenOptions().Load(ctx)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got != saved {
				t.Fatalf("expected %#v, got %#v", saved, got)
			}
		})
	}
}

func TestFileGenOptionsPartialRecordMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gen_options.json")
	if err := os.WriteFile(path, []byte(`{"imageModelName":"seedream"}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := NewFileGenOptionsStore(path, testDefaults()).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.ImageModelName != "seedream" || got.ImageProviderID != "default-img" || got.TextProviderID != "default-text" {
		t.Fatalf("unexpected merge result %#v", got)
	}
}

func TestFileGenOptionsCorruptRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gen_options.json")
	if err := os.WriteFile(path, []byte(`{not json`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := NewFileGenOptionsStore(path, testDefaults()).Load(context.Background())
	if !errors.Is(err, ErrStorageCorrupt) {
		t.Fatalf("expected ErrStorageCorrupt, got %v", err)
	}
	if got != testDefaults() {
		t.Fatalf("corrupt record must yield defaults, got %#v", got)
	}
}

func TestBboltGenOptionsCorruptRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.db")
	repo, err := NewBboltRepository(path, testDefaults())
	if err != nil {
		t.Fatalf("NewBboltRepository: %v", err)
	}
	defer repo.Close()
	db := repo.(*bboltRepository).db
	err = db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPreferences).Put(keyGenOptions, []byte(`[1,2`))
	})
	if err != nil {
		t.Fatalf("seed corrupt value: %v", err)
	}
	got, err := repo.GenOptions().Load(context.Background())
	if !errors.Is(err, ErrStorageCorrupt) || got != testDefaults() {
		t.Fatalf("expected defaults with ErrStorageCorrupt, got %#v %v", got, err)
	}
}

func TestBboltRepositoryReopenKeepsPreferences(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "preferences.db")
	repo, err := NewBboltRepository(path, testDefaults())
	if err != nil {
		t.Fatalf("NewBboltRepository: %v", err)
	}
	saved := testDefaults()
	saved.FusionProviderID = "doubao"
	if err := repo.GenOptions().Save(ctx, saved); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := repo.LastProject().Save(ctx, " p9 "); err != nil {
		t.Fatalf("Save last project: %v", err)
	}
	if err := repo.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewBboltRepository(path, types.GenOptions{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.GenOptions().Load(ctx)
	if err != nil || got.FusionProviderID != "doubao" {
		t.Fatalf("unexpected reload %#v %v", got, err)
	}
	last, err := reopened.LastProject().Load(ctx)
	if err != nil || last != "p9" {
		t.Fatalf("unexpected last project %q %v", last, err)
	}
}

func TestLastProjectEmptyByDefault(t *testing.T) {
	for name, repo := range openBoth(t) {
		t.Run(name, func(t *testing.T) {
			got, err := repo.LastProject().Load(context.Background())
			if err != nil || got != "" {
				t.Fatalf("expected empty, got %q %v", got, err)
			}
		})
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	dir := t.TempDir()
	paths := RepositoryPaths{
		GenOptionsPath:  filepath.Join(dir, "gen_options.json"),
		LastProjectPath: filepath.Join(dir, "last_project.json"),
		DBPath:          filepath.Join(dir, "preferences.db"),
	}
	repo, err := Open("file", paths, testDefaults())
	if err != nil || repo.Backend() != RepositoryBackendFile {
		t.Fatalf("expected file backend, got %v %v", repo, err)
	}
	repo, err = Open("", paths, testDefaults())
	if err != nil || repo.Backend() != RepositoryBackendBbolt {
		t.Fatalf("expected bbolt default, got %v %v", repo, err)
	}
	_ = repo.Close()
	if _, err := Open("redis", paths, testDefaults()); err == nil {
		t.Fatalf("expected unknown backend error")
	}
}
