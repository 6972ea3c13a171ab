package models

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

var ErrInvalidPreference = errors.New("invalid preference")

type TimeConstraintMode string

const (
	TimeByPeriod    TimeConstraintMode = "time_period"
	TimeByExactHour TimeConstraintMode = "exact"
)

type NotificationMode string

const (
	NotifyThreshold     NotificationMode = "PRICE_DROP_THRESHOLD"
	NotifyAnyDrop       NotificationMode = "PRICE_DROP_ANY"
	NotifyAnyChange     NotificationMode = "ANY_PRICE_CHANGE"
	NotifyTargetPrice   NotificationMode = "TARGET_PRICE_REACHED"
	NotifyHistoricalLow NotificationMode = "HISTORICAL_LOW_UPDATED"
)

func (m NotificationMode) Valid() bool {
	switch m {
	case NotifyThreshold, NotifyAnyDrop, NotifyAnyChange, NotifyTargetPrice, NotifyHistoricalLow:
		return true
	}
	return false
}

type NotifyScope string

const (
	ScopeRestrictedOnly NotifyScope = "RESTRICTED_ONLY"
	ScopeOverallOnly    NotifyScope = "OVERALL_ONLY"
	ScopeBoth           NotifyScope = "BOTH"
)

func (s NotifyScope) Valid() bool {
	return s == ScopeRestrictedOnly || s == ScopeOverallOnly || s == ScopeBoth
}

func (s NotifyScope) Restricted() bool { return s == ScopeRestrictedOnly || s == ScopeBoth }
func (s NotifyScope) Overall() bool    { return s == ScopeOverallOnly || s == ScopeBoth }

type Direction int

const (
	Outbound Direction = iota
	Inbound
)

type period struct {
	Start, End int
}

// Periods are half-open hour bands [Start, End).
var periods = map[string]period{
	"새벽":  {0, 6},
	"오전1": {6, 9},
	"오전2": {9, 12},
	"오후1": {12, 15},
	"오후2": {15, 18},
	"밤1":  {18, 21},
	"밤2":  {21, 24},
}

var PeriodNames = []string{"새벽", "오전1", "오전2", "오후1", "오후2", "밤1", "밤2"}

func IsPeriod(name string) bool {
	_, ok := periods[name]
	return ok
}

const (
	DefaultThresholdAmount = 5000
	DefaultIntervalMinutes = 30
	DefaultOutboundHour    = 9
	DefaultInboundHour     = 15
)

type UserPreference struct {
	TimeType          TimeConstraintMode `json:"time_type"`
	OutboundPeriods   []string           `json:"outbound_periods"`
	InboundPeriods    []string           `json:"inbound_periods"`
	OutboundExactHour int                `json:"outbound_exact_hour"`
	InboundExactHour  int                `json:"inbound_exact_hour"`
	NotificationMode  NotificationMode   `json:"notification_preference"`
	ThresholdAmount   int                `json:"notification_threshold_amount"`
	TargetPrice       *int               `json:"notification_target_price"`
	IntervalMinutes   int                `json:"notification_interval"`
	Scope             NotifyScope        `json:"notification_price_type"`
	CreatedAt         string             `json:"created_at"`
	LastActivity      string             `json:"last_activity"`
}

func DefaultPreference(now time.Time, loc *time.Location) *UserPreference {
	ts := FormatTimestamp(now, loc)
	return &UserPreference{
		TimeType:          TimeByPeriod,
		OutboundPeriods:   []string{"오전1", "오전2"},
		InboundPeriods:    []string{"오후1", "오후2", "밤1"},
		OutboundExactHour: DefaultOutboundHour,
		InboundExactHour:  DefaultInboundHour,
		NotificationMode:  NotifyThreshold,
		ThresholdAmount:   DefaultThresholdAmount,
		IntervalMinutes:   DefaultIntervalMinutes,
		Scope:             ScopeRestrictedOnly,
		CreatedAt:         ts,
		LastActivity:      ts,
	}
}

// Normalize fills values missing from records written by older versions.
func (p *UserPreference) Normalize() {
	if p.TimeType == "" {
		p.TimeType = TimeByPeriod
	}
	if len(p.OutboundPeriods) == 0 {
		p.OutboundPeriods = []string{"오전1", "오전2"}
	}
	if len(p.InboundPeriods) == 0 {
		p.InboundPeriods = []string{"오후1", "오후2", "밤1"}
	}
	if p.NotificationMode == "" {
		p.NotificationMode = NotifyThreshold
	}
	if p.ThresholdAmount <= 0 {
		p.ThresholdAmount = DefaultThresholdAmount
	}
	if p.IntervalMinutes <= 0 {
		p.IntervalMinutes = DefaultIntervalMinutes
	}
	if p.Scope == "" {
		p.Scope = ScopeRestrictedOnly
	}
}

func (p *UserPreference) Validate() error {
	switch p.TimeType {
	case TimeByPeriod, TimeByExactHour:
	default:
		return fmt.Errorf("%w: time_type %q", ErrInvalidPreference, p.TimeType)
	}
	for _, name := range append(slices.Clone(p.OutboundPeriods), p.InboundPeriods...) {
		if !IsPeriod(name) {
			return fmt.Errorf("%w: unknown period %q", ErrInvalidPreference, name)
		}
	}
	if p.OutboundExactHour < 0 || p.OutboundExactHour > 23 || p.InboundExactHour < 0 || p.InboundExactHour > 23 {
		return fmt.Errorf("%w: exact hour out of range", ErrInvalidPreference)
	}
	if !p.NotificationMode.Valid() {
		return fmt.Errorf("%w: notification_preference %q", ErrInvalidPreference, p.NotificationMode)
	}
	if p.NotificationMode == NotifyTargetPrice && (p.TargetPrice == nil || *p.TargetPrice <= 0) {
		return fmt.Errorf("%w: target price is required", ErrInvalidPreference)
	}
	if p.ThresholdAmount <= 0 {
		return fmt.Errorf("%w: threshold must be positive", ErrInvalidPreference)
	}
	if !p.Scope.Valid() {
		return fmt.Errorf("%w: notification_price_type %q", ErrInvalidPreference, p.Scope)
	}
	return nil
}

// Allows reports whether a flight departing at dep ("HH:MM") and returning
// at ret satisfies the time constraint. Unparsable times never match.
func (p *UserPreference) Allows(dep, ret string) bool {
	depT, err := time.Parse("15:04", dep)
	if err != nil {
		return false
	}
	retT, err := time.Parse("15:04", ret)
	if err != nil {
		return false
	}

	if p.TimeType == TimeByExactHour {
		depMin := depT.Hour()*60 + depT.Minute()
		retMin := retT.Hour()*60 + retT.Minute()
		return depMin <= p.OutboundExactHour*60 && retMin >= p.InboundExactHour*60
	}
	return inPeriods(depT.Hour(), p.OutboundPeriods) && inPeriods(retT.Hour(), p.InboundPeriods)
}

func inPeriods(hour int, names []string) bool {
	for _, name := range names {
		if b, ok := periods[name]; ok && b.Start <= hour && hour < b.End {
			return true
		}
	}
	return false
}

func (p *UserPreference) FormatTimeRange(d Direction) string {
	if p.TimeType == TimeByExactHour {
		if d == Outbound {
			return fmt.Sprintf("%02d:00 이전 출발", p.OutboundExactHour)
		}
		return fmt.Sprintf("%02d:00 이후 출발", p.InboundExactHour)
	}

	names := p.OutboundPeriods
	if d == Inbound {
		names = p.InboundPeriods
	}
	if len(names) == 0 {
		return "설정 없음"
	}

	label := strings.Join(names, ", ")
	if d == Outbound {
		start, end := 24, 0
		for _, name := range names {
			b := periods[name]
			start = min(start, b.Start)
			end = max(end, b.End)
		}
		return fmt.Sprintf("%s (%02d:00-%02d:00)", label, start, end)
	}

	ranges := make([]string, 0, len(names))
	for _, name := range names {
		b := periods[name]
		ranges = append(ranges, fmt.Sprintf("%02d:00-%02d:00", b.Start, b.End))
	}
	return fmt.Sprintf("%s (%s)", label, strings.Join(ranges, " / "))
}

func (p *UserPreference) FormatNotificationSetting() string {
	switch p.NotificationMode {
	case NotifyThreshold:
		return fmt.Sprintf("기본 (%s원 이상 하락 시)", FormatPrice(p.ThresholdAmount))
	case NotifyAnyDrop:
		return "하락 시 (금액 무관)"
	case NotifyAnyChange:
		return "변동 시 (상승/하락 모두)"
	case NotifyTargetPrice:
		if p.TargetPrice != nil && *p.TargetPrice > 0 {
			return fmt.Sprintf("목표가 (%s원 이하)", FormatPrice(*p.TargetPrice))
		}
		return "목표가 (설정되지 않음)"
	case NotifyHistoricalLow:
		return "역대최저가 갱신 시"
	}
	return fmt.Sprintf("알 수 없음 (%s)", p.NotificationMode)
}

func (p *UserPreference) FormatScope() string {
	switch p.Scope {
	case ScopeRestrictedOnly:
		return "시간 제한 적용 최저가만"
	case ScopeOverallOnly:
		return "전체 최저가만"
	case ScopeBoth:
		return "시간 제한 적용 + 전체 최저가"
	}
	return fmt.Sprintf("알 수 없음 (%s)", p.Scope)
}

// ActiveSince returns the last activity time, falling back to creation time.
func (p *UserPreference) ActiveSince(loc *time.Location) (time.Time, error) {
	if p.LastActivity != "" {
		if t, err := ParseTimestamp(p.LastActivity, loc); err == nil {
			return t, nil
		}
	}
	return ParseTimestamp(p.CreatedAt, loc)
}
