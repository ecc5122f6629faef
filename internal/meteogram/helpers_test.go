package meteogram_test

import (
	"context"
	"errors"
	"sync"

	"github.com/i474232898/yr-meteogram/internal/meteogram"
)

type fetchCall struct {
	locationID string
	settings   meteogram.Settings
}

// stubFetcher returns svg, or err when set, and records every call.
type stubFetcher struct {
	mu    sync.Mutex
	svg   string
	err   error
	calls []fetchCall
}

func (f *stubFetcher) FetchSVG(_ context.Context, locationID string, s meteogram.Settings) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fetchCall{locationID: locationID, settings: s})
	if f.err != nil {
		return "", f.err
	}
	return f.svg, nil
}

func (f *stubFetcher) set(svg string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.svg, f.err = svg, err
}

func (f *stubFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *stubFetcher) lastCall() fetchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func osloName(string) (string, error) {
	return "Oslo", nil
}

var errStubNotFound = errors.New("not found")

// mapStore is a minimal meteogram.Store for tests in this package.
type mapStore struct {
	mu      sync.Mutex
	entries map[string]meteogram.Entry
}

func newMapStore(entries ...meteogram.Entry) *mapStore {
	s := &mapStore{entries: make(map[string]meteogram.Entry)}
	for _, e := range entries {
		s.entries[e.ID] = e
	}
	return s
}

func (s *mapStore) Add(e meteogram.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[e.ID]; ok {
		return meteogram.ErrAlreadyConfigured
	}
	s.entries[e.ID] = e
	return nil
}

func (s *mapStore) Get(id string) (meteogram.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return meteogram.Entry{}, errStubNotFound
	}
	return e, nil
}

func (s *mapStore) List() []meteogram.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]meteogram.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out
}

func (s *mapStore) FindByUniqueID(uniqueID string) (meteogram.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.UniqueID == uniqueID {
			return e, true
		}
	}
	return meteogram.Entry{}, false
}

func (s *mapStore) UpdateOptions(id string, opts meteogram.Flags) (meteogram.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return meteogram.Entry{}, errStubNotFound
	}
	e.Options = opts
	s.entries[id] = e
	return e, nil
}

func (s *mapStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return errStubNotFound
	}
	delete(s.entries, id)
	return nil
}

func osloEntry(flags meteogram.Flags) meteogram.Entry {
	return meteogram.Entry{
		ID:     "entry-1",
		Domain: meteogram.Domain,
		Title:  "Oslo",
		Data: meteogram.EntryData{
			LocationID: "2-5847504",
			Flags:      flags,
		},
	}
}
