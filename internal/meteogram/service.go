package meteogram

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Service is the in-process host: it owns the entry store, sets up one
// coordinator and image entity per entry, and registers their refresh jobs.
type Service struct {
	store     Store
	fetcher   Fetcher
	extract   NameExtractor
	scheduler JobScheduler
	flow      *ConfigFlow
	log       *zap.Logger
	now       func() time.Time

	setupMu sync.Mutex
	mu      sync.RWMutex
	loaded  map[string]*loadedEntry
}

type loadedEntry struct {
	coordinator *Coordinator
	entity      *ImageEntity
	unsubscribe func()
}

// EntryHealth summarizes one loaded entry for health reporting.
type EntryHealth struct {
	EntryID           string     `json:"entry_id"`
	Title             string     `json:"title"`
	State             State      `json:"state"`
	LastUpdateSuccess bool       `json:"last_update_success"`
	LastUpdated       *time.Time `json:"last_updated,omitempty"`
	LastError         string     `json:"last_error,omitempty"`
}

// NewService creates a new Service.
func NewService(store Store, fetcher Fetcher, extract NameExtractor, scheduler JobScheduler, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	validator := NewValidator(fetcher, extract, log.Named("validator"))
	return &Service{
		store:     store,
		fetcher:   fetcher,
		extract:   extract,
		scheduler: scheduler,
		flow:      NewConfigFlow(validator, store, log.Named("flow")),
		log:       log,
		now:       time.Now,
		loaded:    make(map[string]*loadedEntry),
	}
}

// Flow returns the config flow backed by the service's store.
func (s *Service) Flow() *ConfigFlow {
	return s.flow
}

// SubmitUser runs the user step and sets up the entry it creates. An entry
// that cannot be set up is removed again and the form is shown with an
// unknown error.
func (s *Service) SubmitUser(ctx context.Context, in *UserInput) FlowResult {
	res := s.flow.StepUser(ctx, in)
	if res.Type != FlowResultCreateEntry || res.Entry == nil {
		return res
	}

	id := res.Entry.ID
	if err := s.SetupEntry(ctx, *res.Entry); err != nil {
		s.log.Error("failed to set up new entry", zap.String("entry_id", id), zap.Error(err))
		if err := s.store.Delete(id); err != nil {
			s.log.Error("failed to remove entry after setup failure", zap.String("entry_id", id), zap.Error(err))
		}
		return userForm(map[string]string{errorBase: errorUnknown})
	}
	return res
}

// SubmitOptions runs the options step of an entry. New options take effect on
// its next refresh.
func (s *Service) SubmitOptions(entryID string, in *Flags) (FlowResult, error) {
	return s.flow.StepInit(entryID, in)
}

// SetupAll sets up every persisted entry, one after another.
func (s *Service) SetupAll(ctx context.Context) error {
	entries := s.store.List()
	s.log.Info("setting up entries", zap.Int("count", len(entries)))
	for _, e := range entries {
		if err := s.SetupEntry(ctx, e); err != nil {
			return fmt.Errorf("setup entry %s: %w", e.ID, err)
		}
	}
	return nil
}

// SetupEntry creates the coordinator of an entry, runs its first refresh and
// schedules the periodic ones. A failing first refresh is reported but does
// not prevent setup; the entity then has no image until a later success.
func (s *Service) SetupEntry(ctx context.Context, e Entry) error {
	s.setupMu.Lock()
	defer s.setupMu.Unlock()

	if _, err := s.get(e.ID); err == nil {
		return nil
	}

	log := s.log.With(zap.String("entry_id", e.ID), zap.String("location_id", e.Data.LocationID))
	c := NewCoordinator(e.ID, s.store, s.fetcher,
		WithLogger(log.Named("coordinator")),
		WithClock(s.now),
	)

	if err := c.Refresh(ctx); err != nil {
		log.Warn("first refresh failed; entity starts without an image", zap.Error(err))
	}

	entity := NewImageEntity(c, s.extract)
	unsubscribe := c.AddListener(func() {
		log.Debug("entity state written",
			zap.String("entity_id", entity.EntityID()),
			zap.String("state", string(c.State())),
		)
	})

	job := func() {
		_ = c.Refresh(context.Background())
	}
	if s.scheduler != nil {
		if err := s.scheduler.Schedule(e.ID, UpdateInterval, job); err != nil {
			unsubscribe()
			return fmt.Errorf("schedule refresh: %w", err)
		}
	}

	s.mu.Lock()
	s.loaded[e.ID] = &loadedEntry{coordinator: c, entity: entity, unsubscribe: unsubscribe}
	s.mu.Unlock()

	log.Info("entry set up", zap.String("entity_id", entity.EntityID()), zap.String("name", entity.Name()))
	return nil
}

// UnloadEntry stops refreshing an entry and drops its entity. The entry itself
// stays persisted.
func (s *Service) UnloadEntry(entryID string) error {
	s.mu.Lock()
	le, ok := s.loaded[entryID]
	delete(s.loaded, entryID)
	s.mu.Unlock()

	if !ok {
		return nil
	}
	le.unsubscribe()
	if s.scheduler != nil {
		if err := s.scheduler.Unschedule(entryID); err != nil {
			return fmt.Errorf("unschedule %s: %w", entryID, err)
		}
	}
	s.log.Info("entry unloaded", zap.String("entry_id", entryID))
	return nil
}

// RemoveEntry unloads an entry and deletes it from the store.
func (s *Service) RemoveEntry(entryID string) error {
	if _, err := s.store.Get(entryID); err != nil {
		return err
	}
	if err := s.UnloadEntry(entryID); err != nil {
		return err
	}
	return s.store.Delete(entryID)
}

// Entries lists persisted entries.
func (s *Service) Entries() []Entry {
	return s.store.List()
}

// Entry returns one persisted entry.
func (s *Service) Entry(entryID string) (Entry, error) {
	return s.store.Get(entryID)
}

// Entity returns the image entity of a loaded entry.
func (s *Service) Entity(entryID string) (*ImageEntity, error) {
	le, err := s.get(entryID)
	if err != nil {
		return nil, err
	}
	return le.entity, nil
}

// Coordinator returns the coordinator of a loaded entry.
func (s *Service) Coordinator(entryID string) (*Coordinator, error) {
	le, err := s.get(entryID)
	if err != nil {
		return nil, err
	}
	return le.coordinator, nil
}

// Refresh refreshes a loaded entry on demand.
func (s *Service) Refresh(ctx context.Context, entryID string) error {
	c, err := s.Coordinator(entryID)
	if err != nil {
		return err
	}
	return c.Refresh(ctx)
}

// Health reports every loaded entry, ordered by entry id.
func (s *Service) Health() []EntryHealth {
	s.mu.RLock()
	loaded := make([]*loadedEntry, 0, len(s.loaded))
	for _, le := range s.loaded {
		loaded = append(loaded, le)
	}
	s.mu.RUnlock()

	out := make([]EntryHealth, 0, len(loaded))
	for _, le := range loaded {
		c := le.coordinator
		h := EntryHealth{
			EntryID:           c.EntryID(),
			State:             c.State(),
			LastUpdateSuccess: c.LastUpdateSuccess(),
			LastUpdated:       le.entity.ImageLastUpdated(),
		}
		if e, err := c.Entry(); err == nil {
			h.Title = e.Title
		}
		if err := c.LastError(); err != nil {
			h.LastError = err.Error()
		}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryID < out[j].EntryID })
	return out
}

// Shutdown unloads every entry.
func (s *Service) Shutdown() {
	s.mu.RLock()
	ids := make([]string, 0, len(s.loaded))
	for id := range s.loaded {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	for _, id := range ids {
		if err := s.UnloadEntry(id); err != nil {
			s.log.Warn("unload failed during shutdown", zap.String("entry_id", id), zap.Error(err))
		}
	}
}

func (s *Service) get(entryID string) (*loadedEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	le, ok := s.loaded[entryID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotLoaded, entryID)
	}
	return le, nil
}
