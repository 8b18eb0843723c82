package fs_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cardea-gate/cardea/internal/cardea/store"
	"github.com/cardea-gate/cardea/internal/cardea/store/fs"
)

func newTestStore(t *testing.T) *fs.MarkerStore {
	t.Helper()
	s := fs.NewMarkerStore(filepath.Join(t.TempDir(), "Barcodes"), nil)
	if err := s.EnsureRoot(); err != nil {
		t.Fatalf("EnsureRoot: %v", err)
	}
	return s
}

func TestEnsureRoot_Idempotent(t *testing.T) {
	s := newTestStore(t)
	// Root already exists from the helper; a second call must not error.
	if err := s.EnsureRoot(); err != nil {
		t.Fatalf("second EnsureRoot: %v", err)
	}
}

func TestProvisionSite_Idempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.ProvisionSite("SITE"); err != nil {
		t.Fatalf("ProvisionSite: %v", err)
	}
	if err := s.ProvisionSite("SITE"); err != nil {
		t.Fatalf("second ProvisionSite: %v", err)
	}
	if !s.SiteExists("SITE") {
		t.Fatal("expected SITE to exist")
	}
}

func TestSiteExists_FileIsNotASite(t *testing.T) {
	s := newTestStore(t)
	if err := os.WriteFile(filepath.Join(s.Root(), "NOTD"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if s.SiteExists("NOTD") {
		t.Fatal("a plain file must not count as a provisioned site")
	}
	if s.SiteExists("GONE") {
		t.Fatal("missing site reported as existing")
	}
}

func TestConsume_CreatesMarkerOnce(t *testing.T) {
	s := newTestStore(t)

	if err := s.Consume("SITE", "A1", "010125", "2345"); err != nil {
		t.Fatalf("first Consume: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Root(), "SITE", "A1", "010125", "2345")); err != nil {
		t.Fatalf("marker not on disk: %v", err)
	}

	err := s.Consume("SITE", "A1", "010125", "2345")
	if !errors.Is(err, store.ErrAlreadyConsumed) {
		t.Fatalf("second Consume: want ErrAlreadyConsumed, got %v", err)
	}
}

func TestConsume_DistinctSerialsIndependent(t *testing.T) {
	s := newTestStore(t)

	if err := s.Consume("SITE", "A1", "010125", "2345"); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if err := s.Consume("SITE", "A1", "010125", "2346"); err != nil {
		t.Fatalf("sibling serial must be independent: %v", err)
	}
	if err := s.Consume("SITE", "A1", "020125", "2345"); err != nil {
		t.Fatalf("same serial on another date must be independent: %v", err)
	}
}

func TestWipe_SparesKeepListRemovesTheRest(t *testing.T) {
	s := newTestStore(t)

	// A populated site tree, a protected directory and protected files.
	if err := s.Consume("SITE", "A1", "010125", "2345"); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(s.Root(), "sounds"), 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"cron.log", "stray.txt"} {
		if err := os.WriteFile(filepath.Join(s.Root(), name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.Wipe([]string{"sounds", "cron.log"}); err != nil {
		t.Fatalf("Wipe: %v", err)
	}

	for _, kept := range []string{"sounds", "cron.log"} {
		if _, err := os.Stat(filepath.Join(s.Root(), kept)); err != nil {
			t.Errorf("keep-listed %q was deleted: %v", kept, err)
		}
	}
	for _, gone := range []string{"SITE", "stray.txt"} {
		if _, err := os.Stat(filepath.Join(s.Root(), gone)); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected %q removed, stat err=%v", gone, err)
		}
	}
}

func TestWipe_MissingRootIsNoop(t *testing.T) {
	s := fs.NewMarkerStore(filepath.Join(t.TempDir(), "never-created"), nil)
	if err := s.Wipe(nil); err != nil {
		t.Fatalf("Wipe on missing root: %v", err)
	}
}
