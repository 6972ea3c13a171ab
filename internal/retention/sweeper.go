package retention

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lyw1217/flight-price-checker/internal/models"
	"github.com/lyw1217/flight-price-checker/internal/notify"
	"github.com/lyw1217/flight-price-checker/internal/providers"
	"github.com/lyw1217/flight-price-checker/internal/state"
	"github.com/lyw1217/flight-price-checker/internal/structures"
	"github.com/roylee0704/gron"
	"github.com/roylee0704/gron/xtime"
)

const (
	kindExpired    = "expired"
	kindCorrupt    = "corrupt"
	kindPreference = "preference"
)

// Unscheduler cancels a monitor's job and deletes its slot.
type Unscheduler interface {
	Remove(ctx context.Context, key models.MonitorKey) error
}

type SweeperInterface interface {
	Sweep(ctx context.Context) (Summary, error)
	Start()
	Stop()
}

type Summary struct {
	Expired     int
	Corrupt     int
	Preferences int
}

func (s Summary) Total() int {
	return s.Expired + s.Corrupt + s.Preferences
}

type Sweeper struct {
	config    *structures.Config
	loc       *time.Location
	monitors  state.MonitorRepositoryInterface
	prefs     state.PreferenceRepositoryInterface
	archive   state.ArchiveInterface
	scheduler Unscheduler
	notifier  notify.Notifier
	logger    providers.Logger
	metrics   providers.MetricsProviderInterface
	cron      *gron.Cron
	opsMu     sync.Mutex
	now       func() time.Time
}

func (s *Sweeper) Start() {
	runAt := s.config.Retention.RunAt
	if runAt == "" {
		runAt = "00:00"
	}
	s.cron = gron.New()
	s.cron.AddFunc(gron.Every(xtime.Day).At(runAt), func() {
		summary, err := s.Sweep(context.Background())
		if err != nil {
			s.logger.Errorf(providers.TypeRetention, "Retention sweep failed: %s", err)
			return
		}
		s.logger.Infof(providers.TypeRetention, "Retention sweep done: %d expired, %d corrupt, %d preferences",
			summary.Expired, summary.Corrupt, summary.Preferences)
	})
	s.cron.Start()
	s.logger.Infof(providers.TypeRetention, "Retention sweep scheduled daily at %s", runAt)
}

func (s *Sweeper) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Sweep removes monitors past the data retention window, corrupt monitor
// slots, and preferences of users inactive past the config retention window
// who no longer own any monitor. Administrators get a summary when anything
// was removed.
func (s *Sweeper) Sweep(ctx context.Context) (Summary, error) {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	var summary Summary
	if err := s.sweepMonitors(ctx, &summary); err != nil {
		return summary, err
	}
	if err := s.sweepPreferences(ctx, &summary); err != nil {
		return summary, err
	}

	s.metrics.AddRetentionDeleted(kindExpired, summary.Expired)
	s.metrics.AddRetentionDeleted(kindCorrupt, summary.Corrupt)
	s.metrics.AddRetentionDeleted(kindPreference, summary.Preferences)

	if summary.Total() > 0 && len(s.config.Telegram.AdminIDs) > 0 {
		msg := notify.RetentionSummary(summary.Expired, summary.Corrupt, summary.Preferences,
			s.config.Retention.DataDays, s.config.Retention.ConfigDays)
		if err := notify.Broadcast(ctx, s.notifier, s.config.Telegram.AdminIDs, msg); err != nil {
			s.logger.Warnf(providers.TypeRetention, "Retention summary not delivered to every admin: %s", err)
		}
	}
	return summary, nil
}

func (s *Sweeper) sweepMonitors(ctx context.Context, summary *Summary) error {
	names, err := s.monitors.ListNames()
	if err != nil {
		return err
	}
	cutoff := s.now().AddDate(0, 0, -s.config.Retention.DataDays)

	for _, name := range names {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		key, keyErr := models.ParseMonitorName(name)
		st, err := s.monitors.ReadSlot(ctx, name)
		switch {
		case errors.Is(err, state.ErrNotFound):
			continue
		case err != nil && !errors.Is(err, state.ErrCorruptState):
			s.logger.Warnf(providers.TypeRetention, "Skipping %s: %s", name, err)
			continue
		}

		var started time.Time
		if err == nil && keyErr == nil {
			started, err = st.StartedAt(s.loc)
		}
		if err != nil || keyErr != nil {
			s.logger.Warnf(providers.TypeRetention, "Deleting corrupt monitor slot %s", name)
			if s.remove(ctx, name, key, keyErr == nil, nil) {
				summary.Corrupt++
			}
			continue
		}

		if started.Before(cutoff) {
			s.logger.Infof(providers.TypeRetention, "Deleting expired monitor %s started %s", name, st.StartTime)
			if s.remove(ctx, name, key, true, st) {
				summary.Expired++
			}
		}
	}
	return nil
}

// remove archives a slot, then unschedules and deletes it.
func (s *Sweeper) remove(ctx context.Context, name string, key models.MonitorKey, scheduled bool, st *models.MonitorState) bool {
	entry := &state.ArchivedMonitor{Name: name, State: st, ArchivedAt: s.now()}
	if st == nil {
		if raw, err := s.monitors.ReadRaw(ctx, name); err == nil {
			entry.Raw = raw
		}
	}
	if err := s.archive.Put(entry); err != nil {
		s.logger.Warnf(providers.TypeRetention, "Unable to archive %s: %s", name, err)
	}

	var err error
	if scheduled {
		err = s.scheduler.Remove(ctx, key)
	} else {
		err = s.monitors.DeleteSlot(ctx, name)
	}
	if err != nil {
		if !errors.Is(err, state.ErrNotFound) {
			s.logger.Errorf(providers.TypeRetention, "Unable to delete %s: %s", name, err)
		}
		return false
	}
	return true
}

func (s *Sweeper) sweepPreferences(ctx context.Context, summary *Summary) error {
	users, err := s.prefs.ListUsers()
	if err != nil {
		return err
	}
	cutoff := s.now().AddDate(0, 0, -s.config.Retention.ConfigDays)

	for _, uid := range users {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		pref, err := s.prefs.Peek(ctx, uid)
		switch {
		case errors.Is(err, state.ErrNotFound):
			continue
		case err != nil && !errors.Is(err, state.ErrCorruptState):
			s.logger.Warnf(providers.TypeRetention, "Skipping preference of user %d: %s", uid, err)
			continue
		case err == nil:
			if since, aerr := pref.ActiveSince(s.loc); aerr == nil && !since.Before(cutoff) {
				continue
			}
		}

		owned, err := s.monitors.ListByUser(uid)
		if err != nil {
			return err
		}
		if len(owned) > 0 {
			s.logger.Debugf(providers.TypeRetention, "Keeping inactive preference of user %d with %d monitors", uid, len(owned))
			continue
		}

		if err := s.prefs.Delete(ctx, uid); err != nil {
			if !errors.Is(err, state.ErrNotFound) {
				s.logger.Errorf(providers.TypeRetention, "Unable to delete preference of user %d: %s", uid, err)
			}
			continue
		}
		s.logger.Infof(providers.TypeRetention, "Deleted inactive preference of user %d", uid)
		summary.Preferences++
	}
	return nil
}

func NewSweeper(
	config *structures.Config,
	monitors state.MonitorRepositoryInterface,
	prefs state.PreferenceRepositoryInterface,
	archive state.ArchiveInterface,
	scheduler Unscheduler,
	notifier notify.Notifier,
	logger providers.Logger,
	metrics providers.MetricsProviderInterface,
) SweeperInterface {
	return &Sweeper{
		config:    config,
		loc:       config.Location(),
		monitors:  monitors,
		prefs:     prefs,
		archive:   archive,
		scheduler: scheduler,
		notifier:  notifier,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
	}
}
