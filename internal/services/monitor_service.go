package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/lyw1217/flight-price-checker/internal/fetch"
	"github.com/lyw1217/flight-price-checker/internal/models"
	"github.com/lyw1217/flight-price-checker/internal/notify"
	"github.com/lyw1217/flight-price-checker/internal/providers"
	"github.com/lyw1217/flight-price-checker/internal/scheduler"
	"github.com/lyw1217/flight-price-checker/internal/state"
	"github.com/lyw1217/flight-price-checker/internal/structures"
	"github.com/samber/lo"
)

// NotificationDefault restores the default notification mode and amounts.
const NotificationDefault models.NotificationMode = "DEFAULT"

var airportCode = regexp.MustCompile(`^[A-Za-z]{3}$`)

type CreateRequest struct {
	UserID      int64  `json:"user_id"`
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	DepartDate  string `json:"depart_date"`
	ReturnDate  string `json:"return_date"`
}

type CreateResult struct {
	Key     models.MonitorKey
	State   *models.MonitorState
	Message string
}

// TimeConstraint changes one direction of the user's time constraint. A set
// ExactHour switches the user to exact-hour mode, Periods to period mode.
type TimeConstraint struct {
	Direction models.Direction
	ExactHour *int
	Periods   []string
}

type MonitorServiceInterface interface {
	CreateMonitor(ctx context.Context, req CreateRequest) (*CreateResult, error)
	ListStatus(ctx context.Context, userID int64) (string, []notify.StatusEntry, error)
	Cancel(ctx context.Context, userID int64, name string) error
	CancelAll(ctx context.Context, userID int64) (int, error)
	SetTimeConstraint(ctx context.Context, userID int64, tc TimeConstraint) (*models.UserPreference, error)
	SetNotificationPreference(ctx context.Context, userID int64, mode models.NotificationMode, amount *int) (*models.UserPreference, error)
	SetNotificationInterval(ctx context.Context, userID int64, minutes int) (*models.UserPreference, error)
	SetNotificationScope(ctx context.Context, userID int64, scope models.NotifyScope) (*models.UserPreference, error)
	GetSettings(ctx context.Context, userID int64) (*models.UserPreference, error)
	AllStatus(ctx context.Context, adminID int64) (string, error)
	AllCancel(ctx context.Context, adminID int64) (int, error)
	IsAdmin(userID int64) bool
}

type MonitorService struct {
	config    *structures.Config
	loc       *time.Location
	monitors  state.MonitorRepositoryInterface
	prefs     state.PreferenceRepositoryInterface
	pool      fetch.PoolInterface
	scheduler scheduler.SchedulerInterface
	logger    providers.Logger
	now       func() time.Time
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

func (s *MonitorService) validate(req CreateRequest) (models.MonitorKey, error) {
	if req.UserID <= 0 {
		return models.MonitorKey{}, invalid("user id is required")
	}
	for _, code := range []string{req.Origin, req.Destination} {
		if !airportCode.MatchString(code) {
			return models.MonitorKey{}, invalid("airport code %q must be 3 letters", code)
		}
	}
	key := models.MonitorKey{
		UserID:      req.UserID,
		Origin:      strings.ToUpper(req.Origin),
		Destination: strings.ToUpper(req.Destination),
		DepartDate:  req.DepartDate,
		ReturnDate:  req.ReturnDate,
	}
	if key.Origin == key.Destination {
		return models.MonitorKey{}, invalid("origin and destination are the same")
	}

	now := s.now().In(s.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	latest := today.AddDate(1, 0, 0)

	depart, err := s.parseDate(req.DepartDate, today, latest)
	if err != nil {
		return models.MonitorKey{}, err
	}
	ret, err := s.parseDate(req.ReturnDate, today, latest)
	if err != nil {
		return models.MonitorKey{}, err
	}
	if ret.Before(depart) {
		return models.MonitorKey{}, invalid("return date is before depart date")
	}
	return key, nil
}

func (s *MonitorService) parseDate(v string, today, latest time.Time) (time.Time, error) {
	d, err := time.ParseInLocation(models.DateLayout, v, s.loc)
	if err != nil || len(v) != len(models.DateLayout) {
		return time.Time{}, invalid("date %q must be YYYYMMDD", v)
	}
	if d.Before(today) {
		return time.Time{}, invalid("date %s is in the past", v)
	}
	if d.After(latest) {
		return time.Time{}, invalid("date %s is more than a year ahead", v)
	}
	return d, nil
}

// CreateMonitor validates the request, runs the initial fetch and schedules
// the monitor. Terminal fetch failures are returned to the caller and nothing
// is stored.
func (s *MonitorService) CreateMonitor(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	key, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	owned, err := s.monitors.ListByUser(key.UserID)
	if err != nil {
		return nil, err
	}
	if len(owned) >= s.config.Scheduler.MaxMonitors {
		return nil, fmt.Errorf("%w: at most %d monitors per user", ErrMaxMonitors, s.config.Scheduler.MaxMonitors)
	}
	if lo.Contains(owned, key) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicate, key)
	}

	pref, err := s.prefs.Get(ctx, key.UserID)
	if err != nil {
		return nil, err
	}

	s.logger.Infof(providers.TypeApp, "User %d requested monitor %s", key.UserID, key.Name())
	res, err := s.pool.Fetch(ctx, key, pref)
	if err != nil {
		s.logger.Warnf(providers.TypeApp, "Initial fetch for %s failed: %s", key.Name(), err)
		return nil, fmt.Errorf("initial fetch failed: %w", err)
	}

	now := models.FormatTimestamp(s.now(), s.loc)
	st := &models.MonitorState{
		StartTime:           now,
		LastFetch:           now,
		TimeSettingOutbound: pref.FormatTimeRange(models.Outbound),
		TimeSettingInbound:  pref.FormatTimeRange(models.Inbound),
	}
	st.Merge(res)

	if err := s.monitors.Create(ctx, key, st); err != nil {
		if errors.Is(err, state.ErrExists) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicate, key)
		}
		return nil, err
	}
	s.scheduler.Add(key)
	s.logger.Infof(providers.TypeApp, "Monitor %s started", key.Name())

	return &CreateResult{
		Key:     key,
		State:   st,
		Message: notify.MonitorCreated(key, st, pref, s.config.Scheduler.Interval),
	}, nil
}

func (s *MonitorService) entries(ctx context.Context, keys []models.MonitorKey) []notify.StatusEntry {
	entries := make([]notify.StatusEntry, 0, len(keys))
	for _, key := range keys {
		st, err := s.monitors.Get(ctx, key)
		if err != nil {
			s.logger.Warnf(providers.TypeApp, "Skipping %s in status: %s", key.Name(), err)
			continue
		}
		entries = append(entries, notify.StatusEntry{Key: key, State: st})
	}
	return entries
}

func (s *MonitorService) ListStatus(ctx context.Context, userID int64) (string, []notify.StatusEntry, error) {
	keys, err := s.monitors.ListByUser(userID)
	if err != nil {
		return "", nil, err
	}
	entries := s.entries(ctx, keys)
	return notify.StatusList(entries, s.now(), s.loc), entries, nil
}

// Cancel removes one of the user's monitors by slot name. A name owned by
// another user is reported as not found.
func (s *MonitorService) Cancel(ctx context.Context, userID int64, name string) error {
	key, err := models.ParseMonitorName(name)
	if err != nil || key.UserID != userID {
		return fmt.Errorf("%w: %s", ErrMonitorNotFound, name)
	}
	if err := s.scheduler.Remove(ctx, key); err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrMonitorNotFound, name)
		}
		return err
	}
	s.logger.Infof(providers.TypeApp, "User %d cancelled %s", userID, name)
	return nil
}

func (s *MonitorService) CancelAll(ctx context.Context, userID int64) (int, error) {
	keys, err := s.monitors.ListByUser(userID)
	if err != nil {
		return 0, err
	}
	return s.removeAll(ctx, keys)
}

func (s *MonitorService) removeAll(ctx context.Context, keys []models.MonitorKey) (int, error) {
	var errs []error
	removed := 0
	for _, key := range keys {
		if err := s.scheduler.Remove(ctx, key); err != nil {
			if !errors.Is(err, state.ErrNotFound) {
				errs = append(errs, err)
			}
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

func (s *MonitorService) SetTimeConstraint(ctx context.Context, userID int64, tc TimeConstraint) (*models.UserPreference, error) {
	if tc.Direction != models.Outbound && tc.Direction != models.Inbound {
		return nil, invalid("unknown direction")
	}
	switch {
	case tc.ExactHour != nil:
		if *tc.ExactHour < 0 || *tc.ExactHour > 23 {
			return nil, invalid("hour must be between 0 and 23")
		}
	case len(tc.Periods) > 0:
		if bad := lo.Reject(tc.Periods, func(p string, _ int) bool { return models.IsPeriod(p) }); len(bad) > 0 {
			return nil, invalid("unknown periods: %s", strings.Join(bad, ", "))
		}
	default:
		return nil, invalid("either an hour or at least one period is required")
	}

	return s.update(ctx, userID, func(p *models.UserPreference) error {
		if tc.ExactHour != nil {
			p.TimeType = models.TimeByExactHour
			if tc.Direction == models.Outbound {
				p.OutboundExactHour = *tc.ExactHour
			} else {
				p.InboundExactHour = *tc.ExactHour
			}
			return nil
		}
		p.TimeType = models.TimeByPeriod
		if tc.Direction == models.Outbound {
			p.OutboundPeriods = lo.Uniq(tc.Periods)
		} else {
			p.InboundPeriods = lo.Uniq(tc.Periods)
		}
		return nil
	})
}

func (s *MonitorService) SetNotificationPreference(ctx context.Context, userID int64, mode models.NotificationMode, amount *int) (*models.UserPreference, error) {
	if mode != NotificationDefault && !mode.Valid() {
		return nil, invalid("unknown notification mode %q", mode)
	}
	if amount != nil && *amount <= 0 {
		return nil, invalid("amount must be greater than 0")
	}
	if mode == models.NotifyTargetPrice && amount == nil {
		return nil, invalid("target price is required")
	}

	return s.update(ctx, userID, func(p *models.UserPreference) error {
		if mode == NotificationDefault {
			p.NotificationMode = models.NotifyThreshold
			p.ThresholdAmount = models.DefaultThresholdAmount
			p.TargetPrice = nil
			return nil
		}
		p.NotificationMode = mode
		switch {
		case mode == models.NotifyThreshold && amount != nil:
			p.ThresholdAmount = *amount
		case mode == models.NotifyTargetPrice:
			target := *amount
			p.TargetPrice = &target
		}
		return nil
	})
}

func (s *MonitorService) SetNotificationInterval(ctx context.Context, userID int64, minutes int) (*models.UserPreference, error) {
	lowest, highest := s.config.Notification.MinIntervalMinutes, s.config.Notification.MaxIntervalMinutes
	if minutes < lowest || minutes > highest {
		return nil, invalid("interval must be between %d and %d minutes", lowest, highest)
	}
	return s.update(ctx, userID, func(p *models.UserPreference) error {
		p.IntervalMinutes = minutes
		return nil
	})
}

func (s *MonitorService) SetNotificationScope(ctx context.Context, userID int64, scope models.NotifyScope) (*models.UserPreference, error) {
	if !scope.Valid() {
		return nil, invalid("unknown notification scope %q", scope)
	}
	return s.update(ctx, userID, func(p *models.UserPreference) error {
		p.Scope = scope
		return nil
	})
}

func (s *MonitorService) GetSettings(ctx context.Context, userID int64) (*models.UserPreference, error) {
	return s.prefs.Get(ctx, userID)
}

func (s *MonitorService) update(ctx context.Context, userID int64, fn func(p *models.UserPreference) error) (*models.UserPreference, error) {
	pref, err := s.prefs.Update(ctx, userID, fn)
	if err != nil {
		if errors.Is(err, models.ErrInvalidPreference) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		return nil, err
	}
	s.logger.Infof(providers.TypeApp, "User %d updated settings", userID)
	return pref, nil
}

func (s *MonitorService) IsAdmin(userID int64) bool {
	return lo.Contains(s.config.Telegram.AdminIDs, userID)
}

func (s *MonitorService) AllStatus(ctx context.Context, adminID int64) (string, error) {
	if !s.IsAdmin(adminID) {
		return "", ErrForbidden
	}
	keys, err := s.monitors.List()
	if err != nil {
		return "", err
	}
	return notify.AdminStatusList(s.entries(ctx, keys), s.now(), s.loc), nil
}

func (s *MonitorService) AllCancel(ctx context.Context, adminID int64) (int, error) {
	if !s.IsAdmin(adminID) {
		return 0, ErrForbidden
	}
	keys, err := s.monitors.List()
	if err != nil {
		return 0, err
	}
	removed, err := s.removeAll(ctx, keys)
	s.logger.Warnf(providers.TypeApp, "Administrator %d cancelled %d monitors", adminID, removed)
	return removed, err
}

func NewMonitorService(
	config *structures.Config,
	monitors state.MonitorRepositoryInterface,
	prefs state.PreferenceRepositoryInterface,
	pool fetch.PoolInterface,
	scheduler scheduler.SchedulerInterface,
	logger providers.Logger,
) MonitorServiceInterface {
	return &MonitorService{
		config:    config,
		loc:       config.Location(),
		monitors:  monitors,
		prefs:     prefs,
		pool:      pool,
		scheduler: scheduler,
		logger:    logger,
		now:       time.Now,
	}
}
