package models

import (
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func periodPref(out, in []string) *UserPreference {
	return &UserPreference{TimeType: TimeByPeriod, OutboundPeriods: out, InboundPeriods: in}
}

func exactPref(out, in int) *UserPreference {
	return &UserPreference{TimeType: TimeByExactHour, OutboundExactHour: out, InboundExactHour: in}
}

func TestUserPreference_AllowsBasic(t *testing.T) {
	p := periodPref([]string{"오전1"}, []string{"오후1"})
	assert.True(t, p.Allows("07:00", "13:00"))
	assert.False(t, p.Allows("10:00", "13:00"))
	assert.False(t, p.Allows("07:00", "16:00"))

	e := exactPref(9, 15)
	assert.True(t, e.Allows("08:00", "16:00"))
	assert.True(t, e.Allows("09:00", "15:00"))
	assert.False(t, e.Allows("10:00", "16:00"))
	assert.False(t, e.Allows("08:00", "14:00"))
}

func TestUserPreference_AllowsPeriodBoundaries(t *testing.T) {
	p := periodPref([]string{"오전1"}, []string{"오후2"})
	cases := []struct {
		dep, ret string
		want     bool
	}{
		{"06:00", "15:30", true},
		{"07:30", "16:00", true},
		{"08:59", "17:30", true},
		{"05:59", "16:00", false},
		{"09:00", "16:00", false},
		{"07:00", "15:00", true},
		{"07:00", "17:59", true},
		{"07:00", "14:59", false},
		{"07:00", "18:00", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, p.Allows(c.dep, c.ret), "%s/%s", c.dep, c.ret)
	}
}

func TestUserPreference_AllowsMultiplePeriods(t *testing.T) {
	p := periodPref([]string{"새벽", "오전1", "오전2"}, []string{"오후1", "오후2", "밤1"})
	for _, dep := range []string{"00:00", "05:59", "06:00", "08:59", "09:00", "11:59"} {
		assert.True(t, p.Allows(dep, "13:00"), dep)
	}
	assert.False(t, p.Allows("12:00", "13:00"))

	for _, ret := range []string{"12:00", "14:59", "15:00", "17:59", "18:00", "20:59"} {
		assert.True(t, p.Allows("07:00", ret), ret)
	}
	assert.False(t, p.Allows("07:00", "11:59"))
	assert.False(t, p.Allows("07:00", "21:00"))
}

func TestUserPreference_AllowsExactBoundaries(t *testing.T) {
	p := exactPref(11, 14)
	assert.True(t, p.Allows("10:59", "14:00"))
	assert.True(t, p.Allows("11:00", "15:00"))
	assert.False(t, p.Allows("11:01", "15:00"))
	assert.False(t, p.Allows("23:59", "15:00"))
	assert.True(t, p.Allows("08:00", "14:01"))
	assert.False(t, p.Allows("08:00", "13:59"))
	assert.False(t, p.Allows("08:00", "00:00"))

	same := exactPref(12, 12)
	assert.True(t, same.Allows("11:59", "12:00"))
	assert.True(t, same.Allows("12:00", "12:00"))
	assert.False(t, same.Allows("12:01", "12:00"))
}

func TestUserPreference_AllowsIgnoresInactivePair(t *testing.T) {
	p := exactPref(9, 15)
	p.OutboundPeriods = []string{"밤2"}
	p.InboundPeriods = []string{"새벽"}
	assert.True(t, p.Allows("08:00", "16:00"))
}

func TestUserPreference_AllowsRejectsGarbage(t *testing.T) {
	p := periodPref([]string{"오전1"}, []string{"오후1"})
	assert.False(t, p.Allows("7시", "13:00"))
}

func TestDefaultPreference(t *testing.T) {
	loc := time.FixedZone("KST", 9*3600)
	now := time.Date(2025, 10, 1, 12, 0, 0, 0, loc)
	p := DefaultPreference(now, loc)

	require.NoError(t, p.Validate())
	assert.Equal(t, NotifyThreshold, p.NotificationMode)
	assert.Equal(t, 5000, p.ThresholdAmount)
	assert.Equal(t, 30, p.IntervalMinutes)
	assert.Equal(t, ScopeRestrictedOnly, p.Scope)
	assert.Equal(t, "2025-10-01 12:00:00", p.CreatedAt)
	assert.Nil(t, p.TargetPrice)
}

func TestUserPreference_Validate(t *testing.T) {
	loc := time.UTC
	p := DefaultPreference(time.Now(), loc)
	p.NotificationMode = "SOMETIMES"
	assert.ErrorIs(t, p.Validate(), ErrInvalidPreference)

	p = DefaultPreference(time.Now(), loc)
	p.NotificationMode = NotifyTargetPrice
	assert.ErrorIs(t, p.Validate(), ErrInvalidPreference)
	target := 250000
	p.TargetPrice = &target
	assert.NoError(t, p.Validate())

	p = DefaultPreference(time.Now(), loc)
	p.OutboundPeriods = []string{"점심"}
	assert.ErrorIs(t, p.Validate(), ErrInvalidPreference)

	p = DefaultPreference(time.Now(), loc)
	p.Scope = "SOME"
	assert.ErrorIs(t, p.Validate(), ErrInvalidPreference)

	p = DefaultPreference(time.Now(), loc)
	p.InboundExactHour = 24
	assert.ErrorIs(t, p.Validate(), ErrInvalidPreference)
}

func TestUserPreference_LegacyRecordNormalizes(t *testing.T) {
	raw := `{"time_type":"exact","outbound_exact_hour":8,"inbound_exact_hour":17,"created_at":"2025-01-01 00:00:00"}`
	var p UserPreference
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	p.Normalize()

	assert.NoError(t, p.Validate())
	assert.Equal(t, TimeByExactHour, p.TimeType)
	assert.Equal(t, NotifyThreshold, p.NotificationMode)
	assert.Equal(t, []string{"오전1", "오전2"}, p.OutboundPeriods)
}

func TestUserPreference_FormatTimeRange(t *testing.T) {
	p := periodPref([]string{"오전1", "오전2"}, []string{"오후1", "밤1"})
	assert.Equal(t, "오전1, 오전2 (06:00-12:00)", p.FormatTimeRange(Outbound))
	assert.Equal(t, "오후1, 밤1 (12:00-15:00 / 18:00-21:00)", p.FormatTimeRange(Inbound))

	e := exactPref(9, 15)
	assert.Equal(t, "09:00 이전 출발", e.FormatTimeRange(Outbound))
	assert.Equal(t, "15:00 이후 출발", e.FormatTimeRange(Inbound))
}

func TestUserPreference_FormatNotificationSetting(t *testing.T) {
	p := &UserPreference{NotificationMode: NotifyThreshold, ThresholdAmount: 10000}
	assert.Equal(t, "기본 (10,000원 이상 하락 시)", p.FormatNotificationSetting())

	target := 300000
	p = &UserPreference{NotificationMode: NotifyTargetPrice, TargetPrice: &target}
	assert.Equal(t, "목표가 (300,000원 이하)", p.FormatNotificationSetting())

	p = &UserPreference{NotificationMode: NotifyHistoricalLow}
	assert.Equal(t, "역대최저가 갱신 시", p.FormatNotificationSetting())
}

func TestUserPreference_ActiveSince(t *testing.T) {
	loc := time.UTC
	p := &UserPreference{CreatedAt: "2025-01-01 00:00:00"}
	got, err := p.ActiveSince(loc)
	require.NoError(t, err)
	assert.Equal(t, 2025, got.Year())

	p.LastActivity = "2025-03-05 10:00:00"
	got, err = p.ActiveSince(loc)
	require.NoError(t, err)
	assert.Equal(t, time.March, got.Month())
}

func TestNotifyScope(t *testing.T) {
	assert.True(t, ScopeBoth.Restricted())
	assert.True(t, ScopeBoth.Overall())
	assert.True(t, ScopeRestrictedOnly.Restricted())
	assert.False(t, ScopeRestrictedOnly.Overall())
	assert.False(t, ScopeOverallOnly.Restricted())
}
