// Package fs implements the marker store as a filesystem tree rooted at a
// base directory: base/<site>/<registry>/<date>/<serial> existing as an
// empty file means "consumed". The layout is shared with the authority
// node, so provisioning a site is just creating base/<site>.
package fs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/cardea-gate/cardea/internal/cardea/store"
)

type MarkerStore struct {
	root string
	log  *zap.Logger
}

func NewMarkerStore(root string, log *zap.Logger) *MarkerStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &MarkerStore{root: root, log: log}
}

// Root returns the base directory of the store.
func (s *MarkerStore) Root() string { return s.root }

func (s *MarkerStore) EnsureRoot() error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("ensure store root: %w", err)
	}
	return nil
}

func (s *MarkerStore) SiteExists(site string) bool {
	info, err := os.Stat(filepath.Join(s.root, site))
	return err == nil && info.IsDir()
}

// ProvisionSite creates base/<site>. Idempotent; used by tooling and tests.
func (s *MarkerStore) ProvisionSite(site string) error {
	if err := os.MkdirAll(filepath.Join(s.root, site), 0o755); err != nil {
		return fmt.Errorf("provision site %s: %w", site, err)
	}
	return nil
}

func (s *MarkerStore) Consume(site, registry, date, serial string) error {
	dir := filepath.Join(s.root, site, registry, date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("consume %s/%s/%s: %w", site, registry, date, err)
	}

	// O_EXCL makes the marker file itself the consumption gate: exactly one
	// concurrent caller can create it, every other sees fs.ErrExist.
	f, err := os.OpenFile(filepath.Join(dir, serial), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return store.ErrAlreadyConsumed
		}
		return fmt.Errorf("create marker %s: %w", serial, err)
	}
	return f.Close()
}

func (s *MarkerStore) Wipe(keep []string) error {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read store root: %w", err)
	}

	kept := make(map[string]struct{}, len(keep))
	for _, name := range keep {
		kept[name] = struct{}{}
	}

	var firstErr error
	for _, e := range entries {
		if _, ok := kept[e.Name()]; ok {
			continue
		}
		full := filepath.Join(s.root, e.Name())
		var rmErr error
		if e.IsDir() {
			rmErr = os.RemoveAll(full)
		} else {
			rmErr = os.Remove(full)
		}
		if rmErr != nil {
			s.log.Warn("wipe: could not delete entry",
				zap.String("entry", e.Name()), zap.Error(rmErr))
			if firstErr == nil {
				firstErr = rmErr
			}
		}
	}
	return firstErr
}
