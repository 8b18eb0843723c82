// Package memory holds in-memory store implementations used by tests and
// as fakes for the service layer.
package memory

import (
	"strings"
	"sync"

	"github.com/cardea-gate/cardea/internal/cardea/store"
)

type MarkerStore struct {
	mu      sync.Mutex
	sites   map[string]struct{}
	markers map[string]struct{}

	// ConsumeErr, when set, is returned by Consume to simulate a storage
	// fault. Test-only knob.
	ConsumeErr error
}

func NewMarkerStore(sites ...string) *MarkerStore {
	s := &MarkerStore{
		sites:   make(map[string]struct{}),
		markers: make(map[string]struct{}),
	}
	for _, site := range sites {
		s.sites[site] = struct{}{}
	}
	return s
}

func (s *MarkerStore) EnsureRoot() error { return nil }

func (s *MarkerStore) SiteExists(site string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sites[site]
	return ok
}

func (s *MarkerStore) ProvisionSite(site string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sites[site] = struct{}{}
	return nil
}

func (s *MarkerStore) Consume(site, registry, date, serial string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ConsumeErr != nil {
		return s.ConsumeErr
	}
	key := site + "/" + registry + "/" + date + "/" + serial
	if _, ok := s.markers[key]; ok {
		return store.ErrAlreadyConsumed
	}
	s.markers[key] = struct{}{}
	s.sites[site] = struct{}{}
	return nil
}

// Consumed reports whether a marker exists. Test-only helper.
func (s *MarkerStore) Consumed(site, registry, date, serial string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.markers[site+"/"+registry+"/"+date+"/"+serial]
	return ok
}

// MarkerCount returns the number of recorded markers. Test-only helper.
func (s *MarkerStore) MarkerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.markers)
}

func (s *MarkerStore) Wipe(keep []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := make(map[string]struct{}, len(keep))
	for _, name := range keep {
		kept[name] = struct{}{}
	}
	for site := range s.sites {
		if _, ok := kept[site]; !ok {
			delete(s.sites, site)
		}
	}
	for key := range s.markers {
		site, _, _ := strings.Cut(key, "/")
		if _, ok := kept[site]; !ok {
			delete(s.markers, key)
		}
	}
	return nil
}
