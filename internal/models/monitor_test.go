package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorKey_NameRoundTrip(t *testing.T) {
	k := MonitorKey{UserID: 42, Origin: "ICN", Destination: "FUK", DepartDate: "20251025", ReturnDate: "20251027"}
	assert.Equal(t, "price_42_ICN_FUK_20251025_20251027", k.Name())
	assert.Equal(t, "price_42_ICN_FUK_20251025_20251027.json", k.FileName())

	parsed, err := ParseMonitorName(k.FileName())
	require.NoError(t, err)
	assert.Equal(t, k, parsed)

	parsed, err = ParseMonitorName(k.Name())
	require.NoError(t, err)
	assert.Equal(t, k, parsed)
}

func TestParseMonitorName_Invalid(t *testing.T) {
	for _, name := range []string{
		"config_42.json",
		"price_42_icn_FUK_20251025_20251027.json",
		"price_x_ICN_FUK_20251025_20251027.json",
		"price_42_ICN_FUK_2025102_20251027.json",
		"price_42_ICN_FUK_20251025_20251027.json.tmp",
	} {
		_, err := ParseMonitorName(name)
		assert.ErrorIs(t, err, ErrInvalidMonitorName, name)
	}
}

func TestMonitorKey_SearchURL(t *testing.T) {
	k := MonitorKey{UserID: 1, Origin: "ICN", Destination: "FUK", DepartDate: "20251025", ReturnDate: "20251027"}
	assert.Equal(t,
		"https://flight.naver.com/flights/international/ICN-FUK-20251025/FUK-ICN-20251027?adult=1&fareType=Y",
		k.SearchURL())
}

func TestMonitorState_MergeKeepsOldWhenMissing(t *testing.T) {
	s := &MonitorState{Restricted: 300000, Overall: 280000, RestrictedDetail: "r", OverallDetail: "o"}
	s.Merge(&FetchResult{Overall: 275000, OverallDetail: "o2"})

	assert.Equal(t, 300000, s.Restricted)
	assert.Equal(t, "r", s.RestrictedDetail)
	assert.Equal(t, 275000, s.Overall)
	assert.Equal(t, "o2", s.OverallDetail)
	assert.Equal(t, 275000, s.LowestOverall)
}

func TestMonitorState_MergeTracksAllTimeLow(t *testing.T) {
	s := &MonitorState{}
	s.Merge(&FetchResult{Restricted: 300000})
	s.Merge(&FetchResult{Restricted: 290000})
	s.Merge(&FetchResult{Restricted: 310000})

	assert.Equal(t, 310000, s.Restricted)
	assert.Equal(t, 290000, s.LowestRestricted)
}

func TestMonitorState_MergeClearsNoMatchFlag(t *testing.T) {
	s := &MonitorState{NoMatchNotified: true}
	s.Merge(&FetchResult{Restricted: 1000})
	assert.False(t, s.NoMatchNotified)
}

func TestMonitorState_Timestamps(t *testing.T) {
	loc := time.FixedZone("KST", 9*3600)
	s := &MonitorState{StartTime: "2025-10-01 09:00:00", LastFetch: "garbage"}

	start, err := s.StartedAt(loc)
	require.NoError(t, err)
	assert.Equal(t, 9, start.Hour())
	assert.Equal(t, loc, start.Location())

	_, err = s.LastFetchedAt(loc)
	assert.Error(t, err)

	_, ok := s.LastNotifiedAt(loc)
	assert.False(t, ok)
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "374,524", FormatPrice(374524))
	assert.Equal(t, "900", FormatPrice(900))
	assert.Equal(t, "2025/10/25", FormatDate("20251025"))
	assert.Equal(t, "25.10.25", FormatShortDate("20251025"))
	assert.Equal(t, "bad", FormatDate("bad"))
}

func TestQuote_Detail(t *testing.T) {
	q := Quote{DepartTime: "07:00", ArriveTime: "09:00", ReturnDepart: "15:00", ReturnArrive: "17:00", Price: 374524}
	assert.Equal(t, "가는 편: 07:00 → 09:00\n오는 편: 15:00 → 17:00\n왕복 가격: 374,524원", q.Detail())
}
