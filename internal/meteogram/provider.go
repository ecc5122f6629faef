package meteogram

import (
	"context"
	"time"
)

// Fetcher abstracts the remote meteogram source. A zero Settings value asks
// for the plain, un-flagged rendering.
type Fetcher interface {
	FetchSVG(ctx context.Context, locationID string, s Settings) (string, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, locationID string, s Settings) (string, error)

// FetchSVG calls f.
func (f FetcherFunc) FetchSVG(ctx context.Context, locationID string, s Settings) (string, error) {
	return f(ctx, locationID, s)
}

// NameExtractor parses a human-readable location name out of an SVG document.
type NameExtractor func(svg string) (string, error)

// Store is the contract the entry stores (memory and file backed) satisfy.
type Store interface {
	Add(e Entry) error
	Get(id string) (Entry, error)
	List() []Entry
	FindByUniqueID(uniqueID string) (Entry, bool)
	UpdateOptions(id string, opts Flags) (Entry, error)
	Delete(id string) error
}

// EntryReader is the read-only part of Store used by coordinators.
type EntryReader interface {
	Get(id string) (Entry, error)
}

// JobScheduler runs a job periodically under a tag until it is unscheduled.
type JobScheduler interface {
	Schedule(tag string, interval time.Duration, job func()) error
	Unschedule(tag string) error
}
