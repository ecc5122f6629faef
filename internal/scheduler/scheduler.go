package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Scheduler runs one periodic refresh job per config entry.
type Scheduler struct {
	scheduler *gocron.Scheduler
	log       *zap.Logger

	mu   sync.Mutex
	tags map[string]struct{}
}

// New creates a new Scheduler.
func New(log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()
	return &Scheduler{
		scheduler: s,
		log:       log,
		tags:      make(map[string]struct{}),
	}
}

// Start starts the underlying scheduler. Jobs can be added before or after.
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
	s.log.Info("scheduler started")
}

// Schedule runs job every interval under tag. The first run happens one
// interval from now; a run that is still going when the next one is due is
// not overlapped.
func (s *Scheduler) Schedule(tag string, interval time.Duration, job func()) error {
	if interval <= 0 {
		return fmt.Errorf("invalid interval %s for %s", interval, tag)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tags[tag]; ok {
		return fmt.Errorf("job %s already scheduled", tag)
	}

	_, err := s.scheduler.Every(interval).
		Tag(tag).
		SingletonMode().
		WaitForSchedule().
		Do(func() {
			s.log.Debug("running refresh job", zap.String("tag", tag))
			job()
		})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", tag, err)
	}
	s.tags[tag] = struct{}{}
	s.log.Debug("job scheduled", zap.String("tag", tag), zap.Duration("every", interval))
	return nil
}

// Unschedule removes the job under tag. Unknown tags are ignored.
func (s *Scheduler) Unschedule(tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tags[tag]; !ok {
		return nil
	}
	if err := s.scheduler.RemoveByTag(tag); err != nil {
		return fmt.Errorf("unschedule %s: %w", tag, err)
	}
	delete(s.tags, tag)
	s.log.Debug("job unscheduled", zap.String("tag", tag))
	return nil
}

// Jobs returns the number of scheduled jobs.
func (s *Scheduler) Jobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tags)
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
		s.log.Info("scheduler stopped")
	}
}
