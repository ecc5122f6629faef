package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/i474232898/yr-meteogram/internal/meteogram"
)

var (
	// ErrNotFound is returned when no entry exists for a given id.
	ErrNotFound = errors.New("config entry not found")
)

// MemoryStore is a concurrency-safe in-memory store of config entries.
type MemoryStore struct {
	mu sync.RWMutex

	// key: entry id
	entries map[string]meteogram.Entry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]meteogram.Entry),
	}
}

// Add stores a new entry. Ids and unique ids must not collide with existing
// entries.
func (s *MemoryStore) Add(e meteogram.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(e)
}

func (s *MemoryStore) addLocked(e meteogram.Entry) error {
	if e.ID == "" {
		return fmt.Errorf("entry id is required")
	}
	if _, ok := s.entries[e.ID]; ok {
		return fmt.Errorf("%w: id %s", meteogram.ErrAlreadyConfigured, e.ID)
	}
	if e.UniqueID != "" {
		for _, existing := range s.entries {
			if existing.UniqueID == e.UniqueID {
				return fmt.Errorf("%w: unique id %s", meteogram.ErrAlreadyConfigured, e.UniqueID)
			}
		}
	}
	s.entries[e.ID] = cloneEntry(e)
	return nil
}

// Get returns the entry with the given id.
func (s *MemoryStore) Get(id string) (meteogram.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return meteogram.Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return cloneEntry(e), nil
}

// List returns all entries ordered by creation time, then id.
func (s *MemoryStore) List() []meteogram.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked()
}

func (s *MemoryStore) listLocked() []meteogram.Entry {
	out := make([]meteogram.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, cloneEntry(e))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// FindByUniqueID returns the entry with the given unique id, if any.
func (s *MemoryStore) FindByUniqueID(uniqueID string) (meteogram.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.UniqueID == uniqueID {
			return cloneEntry(e), true
		}
	}
	return meteogram.Entry{}, false
}

// UpdateOptions replaces the options overlay of an entry. The original data
// is never touched.
func (s *MemoryStore) UpdateOptions(id string, opts meteogram.Flags) (meteogram.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateOptionsLocked(id, opts)
}

func (s *MemoryStore) updateOptionsLocked(id string, opts meteogram.Flags) (meteogram.Entry, error) {
	e, ok := s.entries[id]
	if !ok {
		return meteogram.Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	e.Options = cloneFlags(opts)
	s.entries[id] = e
	return cloneEntry(e), nil
}

// Delete removes an entry.
func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(id)
}

func (s *MemoryStore) deleteLocked(id string) error {
	if _, ok := s.entries[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.entries, id)
	return nil
}

// cloneEntry copies the flag pointers so callers cannot mutate stored state.
func cloneEntry(e meteogram.Entry) meteogram.Entry {
	e.Data.Flags = cloneFlags(e.Data.Flags)
	e.Options = cloneFlags(e.Options)
	return e
}

func cloneFlags(f meteogram.Flags) meteogram.Flags {
	return meteogram.Flags{
		DarkMode:          cloneBool(f.DarkMode),
		Crop:              cloneBool(f.Crop),
		MakeTransparent:   cloneBool(f.MakeTransparent),
		UnhideDarkObjects: cloneBool(f.UnhideDarkObjects),
	}
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}
