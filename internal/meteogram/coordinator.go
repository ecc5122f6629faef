package meteogram

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// State is the freshness of a coordinator's cached image.
type State string

const (
	// StateStale means no successful fetch yet, or the last attempt failed.
	StateStale State = "stale"
	// StateFresh means the last attempt succeeded.
	StateFresh State = "fresh"
)

// snapshot is never mutated after it is published.
type snapshot struct {
	data        []byte
	lastSuccess time.Time
	state       State
	lastErr     error
}

// Coordinator owns the cached meteogram of one entry and refreshes it.
type Coordinator struct {
	entryID string
	entries EntryReader
	fetcher Fetcher
	log     *zap.Logger
	now     func() time.Time

	group singleflight.Group
	snap  atomic.Pointer[snapshot]

	mu        sync.Mutex
	listeners []func()
}

// CoordinatorOption customizes a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithClock overrides the clock used for last-success timestamps.
func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) {
		c.now = now
	}
}

// WithLogger sets the coordinator's logger.
func WithLogger(log *zap.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		c.log = log
	}
}

// NewCoordinator creates a Coordinator in the stale state with no image.
func NewCoordinator(entryID string, entries EntryReader, fetcher Fetcher, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		entryID: entryID,
		entries: entries,
		fetcher: fetcher,
		log:     zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.snap.Store(&snapshot{state: StateStale})
	return c
}

// EntryID returns the id of the entry this coordinator refreshes.
func (c *Coordinator) EntryID() string {
	return c.entryID
}

// Entry returns the current configuration record.
func (c *Coordinator) Entry() (Entry, error) {
	return c.entries.Get(c.entryID)
}

// Settings resolves the entry's current settings. A missing entry resolves
// to defaults.
func (c *Coordinator) Settings() Settings {
	e, err := c.Entry()
	if err != nil {
		return Settings{}
	}
	return Resolve(e)
}

// Refresh fetches the meteogram once. Concurrent callers share the in-flight
// fetch and its outcome. The fetch is not cancelled when ctx is.
func (c *Coordinator) Refresh(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	_, err, _ := c.group.Do("refresh", func() (interface{}, error) {
		return nil, c.refresh(ctx)
	})
	return err
}

func (c *Coordinator) refresh(ctx context.Context) error {
	prev := c.snap.Load()

	entry, err := c.entries.Get(c.entryID)
	if err != nil {
		return c.fail(prev, fmt.Errorf("load entry %s: %w", c.entryID, err))
	}
	settings := Resolve(entry)

	svg, err := c.fetcher.FetchSVG(ctx, entry.Data.LocationID, settings)
	if err != nil {
		return c.fail(prev, err)
	}

	now := c.now().UTC()
	if now.Before(prev.lastSuccess) {
		now = prev.lastSuccess
	}
	c.snap.Store(&snapshot{
		data:        []byte(svg),
		lastSuccess: now,
		state:       StateFresh,
	})
	c.log.Debug("meteogram refreshed",
		zap.String("entry_id", c.entryID),
		zap.String("location_id", entry.Data.LocationID),
		zap.Int("bytes", len(svg)),
	)
	c.notify()
	return nil
}

func (c *Coordinator) fail(prev *snapshot, cause error) error {
	err := &UpdateFailedError{Err: cause}
	c.snap.Store(&snapshot{
		data:        prev.data,
		lastSuccess: prev.lastSuccess,
		state:       StateStale,
		lastErr:     err,
	})
	c.log.Warn("meteogram refresh failed",
		zap.String("entry_id", c.entryID),
		zap.Error(err),
	)
	c.notify()
	return err
}

// Data returns the cached SVG bytes, or nil before the first success.
func (c *Coordinator) Data() []byte {
	return c.snap.Load().data
}

// LastUpdateSuccessTime returns the time of the last successful refresh and
// false if there has been none.
func (c *Coordinator) LastUpdateSuccessTime() (time.Time, bool) {
	s := c.snap.Load()
	return s.lastSuccess, !s.lastSuccess.IsZero()
}

// State returns the coordinator's freshness.
func (c *Coordinator) State() State {
	return c.snap.Load().state
}

// LastUpdateSuccess reports whether the most recent refresh succeeded.
func (c *Coordinator) LastUpdateSuccess() bool {
	return c.State() == StateFresh
}

// LastError returns the error of the most recent refresh, or nil.
func (c *Coordinator) LastError() error {
	return c.snap.Load().lastErr
}

// AddListener registers fn to run after every refresh outcome is recorded.
// The returned function removes it.
func (c *Coordinator) AddListener(fn func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.listeners = append(c.listeners, fn)
	idx := len(c.listeners) - 1
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if idx < len(c.listeners) {
			c.listeners[idx] = nil
		}
	}
}

func (c *Coordinator) notify() {
	c.mu.Lock()
	listeners := make([]func(), len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	for _, fn := range listeners {
		if fn != nil {
			fn()
		}
	}
}
