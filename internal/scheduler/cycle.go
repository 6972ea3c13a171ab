package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lyw1217/flight-price-checker/internal/fetch"
	"github.com/lyw1217/flight-price-checker/internal/models"
	"github.com/lyw1217/flight-price-checker/internal/notify"
	"github.com/lyw1217/flight-price-checker/internal/providers"
	"github.com/lyw1217/flight-price-checker/internal/state"
)

const (
	kindPriceAlert = "price_alert"
	kindNoMatch    = "no_match"
	kindSuppressed = "suppressed"
)

// cycleResult is what one fetch contributes to the slot write.
type cycleResult struct {
	fetched      *models.FetchResult
	notified     bool
	held         []notify.Line
	noMatchSent  bool
	timeOutbound string
	timeInbound  string
}

// RunCycle runs fetch, compare, notify and persist for one monitor. Fetch
// failures are handled here and never escape; only storage errors do.
func (s *MonitorScheduler) RunCycle(ctx context.Context, key models.MonitorKey) error {
	started := s.now()
	defer func() {
		s.metrics.ObserveCycleDuration(s.now().Sub(started))
	}()
	name := key.Name()

	st, err := s.monitors.Get(ctx, key)
	switch {
	case errors.Is(err, state.ErrNotFound):
		s.logger.Warnf(providers.TypeScheduler, "%s: slot is gone, unscheduling", name)
		s.unschedule(key)
		return nil
	case errors.Is(err, state.ErrCorruptState):
		s.logger.Errorf(providers.TypeScheduler, "%s: corrupt slot, deleting: %s", name, err)
		s.unschedule(key)
		if derr := s.monitors.Delete(ctx, key); derr != nil && !errors.Is(derr, state.ErrNotFound) {
			return fmt.Errorf("%s: %w", name, derr)
		}
		return nil
	case err != nil:
		return fmt.Errorf("%s: unable to read slot: %w", name, err)
	}

	pref, err := s.preference(ctx, key.UserID)
	if err != nil {
		return fmt.Errorf("%s: unable to load preference: %w", name, err)
	}

	out := cycleResult{
		timeOutbound: pref.FormatTimeRange(models.Outbound),
		timeInbound:  pref.FormatTimeRange(models.Inbound),
	}

	res, ferr := s.pool.Fetch(ctx, key, pref)
	switch {
	case ferr == nil:
		out.fetched = res
		out.notified, out.held = s.comparePrices(ctx, key, st, pref, res)

	case errors.Is(ferr, fetch.ErrNoMatchingFlights):
		s.logger.Infof(providers.TypeScheduler, "%s: no flights match the time constraint", name)
		if res != nil {
			// Restricted is 0 here, so only the overall line can fire.
			out.fetched = res
			out.notified, out.held = s.comparePrices(ctx, key, st, pref, res)
		}
		out.noMatchSent = s.noticeNoMatch(ctx, key, st, pref)

	case errors.Is(ferr, fetch.ErrNoFlightData):
		s.logger.Warnf(providers.TypeScheduler, "%s: no flight data returned", name)

	case errors.Is(ferr, context.Canceled), errors.Is(ferr, fetch.ErrPoolStopped):
		s.logger.Infof(providers.TypeScheduler, "%s: cycle cancelled: %s", name, ferr)
		return nil

	default:
		s.logger.Errorf(providers.TypeScheduler, "%s: fetch failed: %s", name, ferr)
	}

	return s.persist(ctx, key, out)
}

// preference reads the user's preference without counting the read as user
// activity, falling back to the creating read when nothing usable is stored.
func (s *MonitorScheduler) preference(ctx context.Context, userID int64) (*models.UserPreference, error) {
	pref, err := s.prefs.Peek(ctx, userID)
	if err == nil && pref.Validate() == nil {
		return pref, nil
	}
	if err != nil && !state.IsMissing(err) {
		return nil, err
	}
	return s.prefs.Get(ctx, userID)
}

// comparePrices evaluates the enabled price lines and sends an alert when one
// fires. It reports whether an alert went out and, when the alert was held back
// by the user's interval, which lines must keep their stored baseline.
func (s *MonitorScheduler) comparePrices(ctx context.Context, key models.MonitorKey, st *models.MonitorState, pref *models.UserPreference, res *models.FetchResult) (bool, []notify.Line) {
	decision := notify.Decide(
		notify.Observation{Old: st.Restricted, New: res.Restricted, Lowest: st.LowestRestricted},
		notify.Observation{Old: st.Overall, New: res.Overall, Lowest: st.LowestOverall},
		pref,
	)
	if !decision.Notify() {
		s.logger.Debugf(providers.TypeScheduler, "%s: no notification (restricted %d -> %d, overall %d -> %d)",
			key.Name(), st.Restricted, res.Restricted, st.Overall, res.Overall)
		return false, nil
	}

	if s.tooSoon(st, pref) {
		s.logger.Infof(providers.TypeScheduler, "%s: notification suppressed by %d minute interval, baseline kept", key.Name(), pref.IntervalMinutes)
		s.metrics.IncNotifications(kindSuppressed)
		held := make([]notify.Line, 0, len(decision.Triggers))
		for _, t := range decision.Triggers {
			held = append(held, t.Line)
		}
		return false, held
	}

	if err := s.notifier.Notify(ctx, key.UserID, notify.PriceAlert(key, decision, res)); err != nil {
		s.logger.Errorf(providers.TypeScheduler, "%s: price alert not delivered: %s", key.Name(), err)
		return false, nil
	}
	s.logger.Infof(providers.TypeScheduler, "%s: price alert sent (%s)", key.Name(), decision.Mode)
	s.metrics.IncNotifications(kindPriceAlert)
	return true, nil
}

// withoutLines drops the given lines from a fetch result so Merge leaves their
// stored price, detail and all-time low untouched.
func withoutLines(res *models.FetchResult, lines []notify.Line) *models.FetchResult {
	if res == nil || len(lines) == 0 {
		return res
	}
	out := *res
	for _, l := range lines {
		switch l {
		case notify.LineRestricted:
			out.Restricted, out.RestrictedDetail = 0, ""
		case notify.LineOverall:
			out.Overall, out.OverallDetail = 0, ""
		}
	}
	return &out
}

// tooSoon applies the user's minimum spacing between price alerts. Spacing at
// or below the fetch cadence never suppresses anything.
func (s *MonitorScheduler) tooSoon(st *models.MonitorState, pref *models.UserPreference) bool {
	gap := time.Duration(pref.IntervalMinutes) * time.Minute
	if gap <= s.interval {
		return false
	}
	last, ok := st.LastNotifiedAt(s.loc)
	return ok && s.now().Sub(last) < gap
}

// noticeNoMatch tells the user once per episode that flights matching the
// time constraint disappeared. Monitors that never saw a price stay silent.
func (s *MonitorScheduler) noticeNoMatch(ctx context.Context, key models.MonitorKey, st *models.MonitorState, pref *models.UserPreference) bool {
	if !s.notifyNoMatch || !st.HasPrice() || st.NoMatchNotified {
		return false
	}
	if err := s.notifier.Notify(ctx, key.UserID, notify.NoMatchNotice(key, pref)); err != nil {
		s.logger.Errorf(providers.TypeScheduler, "%s: no-match notice not delivered: %s", key.Name(), err)
		return false
	}
	s.metrics.IncNotifications(kindNoMatch)
	return true
}

// persist merges the cycle into the slot. last_fetch always advances; a slot
// removed while the cycle ran is left alone.
func (s *MonitorScheduler) persist(ctx context.Context, key models.MonitorKey, out cycleResult) error {
	now := models.FormatTimestamp(s.now(), s.loc)
	err := s.monitors.Update(ctx, key, func(st *models.MonitorState) error {
		st.Merge(withoutLines(out.fetched, out.held))
		st.LastFetch = now
		st.TimeSettingOutbound = out.timeOutbound
		st.TimeSettingInbound = out.timeInbound
		if out.notified {
			st.LastNotified = now
		}
		if out.noMatchSent {
			st.NoMatchNotified = true
		}
		return nil
	})
	switch {
	case errors.Is(err, state.ErrNotFound):
		s.logger.Warnf(providers.TypeScheduler, "%s: slot removed during cycle, nothing written", key.Name())
		return nil
	case err != nil:
		return fmt.Errorf("%s: unable to persist cycle: %w", key.Name(), err)
	}
	s.logger.Debugf(providers.TypeScheduler, "%s: state saved, last_fetch %s", key.Name(), now)
	return nil
}
