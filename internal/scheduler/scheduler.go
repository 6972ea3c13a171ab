package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/lyw1217/flight-price-checker/internal/fetch"
	"github.com/lyw1217/flight-price-checker/internal/models"
	"github.com/lyw1217/flight-price-checker/internal/notify"
	"github.com/lyw1217/flight-price-checker/internal/providers"
	"github.com/lyw1217/flight-price-checker/internal/state"
	"github.com/lyw1217/flight-price-checker/internal/structures"
	"go.uber.org/atomic"
)

type SchedulerInterface interface {
	Add(key models.MonitorKey) bool
	Remove(ctx context.Context, key models.MonitorKey) error
	Lookup(key models.MonitorKey) bool
	Keys() []models.MonitorKey
	Trigger(key models.MonitorKey) bool
	Restore(ctx context.Context) (int, error)
	RunCycle(ctx context.Context, key models.MonitorKey) error
	Active() int
	Stop()
}

type stopper interface {
	Stop() bool
}

type job struct {
	key     models.MonitorKey
	timer   stopper
	running atomic.Bool
	removed atomic.Bool
}

// MonitorScheduler owns the job index: one repeating timer per monitor,
// keyed by the monitor name. Slots on disk are only referenced by key.
type MonitorScheduler struct {
	interval      time.Duration
	notifyNoMatch bool
	loc           *time.Location

	monitors state.MonitorRepositoryInterface
	prefs    state.PreferenceRepositoryInterface
	pool     fetch.PoolInterface
	notifier notify.Notifier
	logger   providers.Logger
	metrics  providers.MetricsProviderInterface

	mu     sync.Mutex
	jobs   map[string]*job
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	now   func() time.Time
	after func(d time.Duration, f func()) stopper
}

// Add schedules a freshly created monitor. Its first cycle runs one full
// interval from now. Returns false when the key is already scheduled.
func (s *MonitorScheduler) Add(key models.MonitorKey) bool {
	return s.schedule(key, Plan{FirstDelay: s.interval})
}

func (s *MonitorScheduler) schedule(key models.MonitorKey, plan Plan) bool {
	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return false
	}
	if _, ok := s.jobs[key.Name()]; ok {
		s.mu.Unlock()
		return false
	}
	j := &job{key: key}
	j.timer = s.after(plan.FirstDelay, func() { s.fire(j) })
	s.jobs[key.Name()] = j
	count := len(s.jobs)
	s.mu.Unlock()

	s.metrics.SetActiveMonitors(count)
	s.logger.Infof(providers.TypeScheduler, "Scheduled %s, first run in %s, catch-up: %t", key.Name(), plan.FirstDelay, plan.CatchUp)
	if plan.CatchUp {
		s.launch(j)
	}
	return true
}

// Remove cancels the monitor's timer and deletes its slot. A cycle already in
// flight finishes against a missing slot and writes nothing.
func (s *MonitorScheduler) Remove(ctx context.Context, key models.MonitorKey) error {
	s.unschedule(key)
	if err := s.monitors.Delete(ctx, key); err != nil {
		return err
	}
	s.logger.Infof(providers.TypeScheduler, "Removed %s", key.Name())
	return nil
}

func (s *MonitorScheduler) unschedule(key models.MonitorKey) bool {
	s.mu.Lock()
	j, ok := s.jobs[key.Name()]
	if ok {
		j.removed.Store(true)
		j.timer.Stop()
		delete(s.jobs, key.Name())
	}
	count := len(s.jobs)
	s.mu.Unlock()

	if ok {
		s.metrics.SetActiveMonitors(count)
	}
	return ok
}

func (s *MonitorScheduler) Lookup(key models.MonitorKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[key.Name()]
	return ok
}

func (s *MonitorScheduler) Keys() []models.MonitorKey {
	s.mu.Lock()
	keys := make([]models.MonitorKey, 0, len(s.jobs))
	for _, j := range s.jobs {
		keys = append(keys, j.key)
	}
	s.mu.Unlock()

	sort.Slice(keys, func(a, b int) bool { return keys[a].Name() < keys[b].Name() })
	return keys
}

func (s *MonitorScheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Trigger starts a cycle now unless one is already running for the key.
func (s *MonitorScheduler) Trigger(key models.MonitorKey) bool {
	s.mu.Lock()
	j, ok := s.jobs[key.Name()]
	s.mu.Unlock()
	if !ok {
		return false
	}
	return s.launch(j)
}

func (s *MonitorScheduler) fire(j *job) {
	s.mu.Lock()
	if j.removed.Load() || s.ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	j.timer = s.after(s.interval, func() { s.fire(j) })
	s.mu.Unlock()

	s.launch(j)
}

func (s *MonitorScheduler) launch(j *job) bool {
	if !j.running.CompareAndSwap(false, true) {
		s.logger.Warnf(providers.TypeScheduler, "%s: previous cycle still running, skipping", j.key.Name())
		return false
	}

	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		j.running.Store(false)
		return false
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer j.running.Store(false)
		if err := s.RunCycle(s.ctx, j.key); err != nil {
			s.logger.Errorf(providers.TypeScheduler, "%s: cycle failed: %s", j.key.Name(), err)
		}
	}()
	return true
}

// Restore schedules every stored monitor, realigned to its last fetch.
// Corrupt slots are deleted and skipped.
func (s *MonitorScheduler) Restore(ctx context.Context) (int, error) {
	keys, err := s.monitors.List()
	if err != nil {
		return 0, err
	}

	now := s.now()
	restored := 0
	for _, key := range keys {
		st, err := s.monitors.Get(ctx, key)
		switch {
		case errors.Is(err, state.ErrCorruptState):
			s.logger.Errorf(providers.TypeScheduler, "Deleting corrupt slot %s: %s", key.Name(), err)
			_ = s.monitors.Delete(ctx, key)
			continue
		case err != nil:
			s.logger.Errorf(providers.TypeScheduler, "Unable to restore %s: %s", key.Name(), err)
			continue
		}

		lastFetch, err := st.LastFetchedAt(s.loc)
		if err != nil {
			s.logger.Warnf(providers.TypeScheduler, "%s: unreadable last_fetch %q, treating as overdue", key.Name(), st.LastFetch)
			lastFetch = time.Time{}
		}
		if s.schedule(key, RecoveryPlan(now, lastFetch, s.interval)) {
			restored++
		}
	}
	s.logger.Infof(providers.TypeScheduler, "Restored %d of %d monitors", restored, len(keys))
	return restored, nil
}

// Stop cancels every timer and waits for in-flight cycles to return.
func (s *MonitorScheduler) Stop() {
	s.mu.Lock()
	s.cancel()
	for name, j := range s.jobs {
		j.removed.Store(true)
		j.timer.Stop()
		delete(s.jobs, name)
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Infof(providers.TypeScheduler, "Scheduler stopped")
}

func NewMonitorScheduler(
	conf *structures.Config,
	monitors state.MonitorRepositoryInterface,
	prefs state.PreferenceRepositoryInterface,
	pool fetch.PoolInterface,
	notifier notify.Notifier,
	logger providers.Logger,
	metrics providers.MetricsProviderInterface,
) SchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	return &MonitorScheduler{
		interval:      conf.Scheduler.Interval,
		notifyNoMatch: conf.Scheduler.NotifyNoMatch,
		loc:           conf.Location(),
		monitors:      monitors,
		prefs:         prefs,
		pool:          pool,
		notifier:      notifier,
		logger:        logger,
		metrics:       metrics,
		jobs:          make(map[string]*job),
		ctx:           ctx,
		cancel:        cancel,
		now:           time.Now,
		after: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
	}
}
