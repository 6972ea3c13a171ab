package models

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/spf13/cast"
)

var ErrInvalidMonitorName = errors.New("invalid monitor name")

var monitorNamePattern = regexp.MustCompile(`^price_(\d+)_([A-Z]{3})_([A-Z]{3})_(\d{8})_(\d{8})(?:\.json)?$`)

// MonitorKey identifies one route and date pair watched by one user.
type MonitorKey struct {
	UserID      int64
	Origin      string
	Destination string
	DepartDate  string
	ReturnDate  string
}

// Name is used both as the storage slot name and as the scheduler job name.
func (k MonitorKey) Name() string {
	return fmt.Sprintf("price_%d_%s_%s_%s_%s", k.UserID, k.Origin, k.Destination, k.DepartDate, k.ReturnDate)
}

func (k MonitorKey) FileName() string {
	return k.Name() + ".json"
}

func (k MonitorKey) String() string {
	return fmt.Sprintf("%s->%s %s~%s (user %d)", k.Origin, k.Destination, k.DepartDate, k.ReturnDate, k.UserID)
}

func (k MonitorKey) SearchURL() string {
	return fmt.Sprintf(
		"https://flight.naver.com/flights/international/%s-%s-%s/%s-%s-%s?adult=1&fareType=Y",
		k.Origin, k.Destination, k.DepartDate, k.Destination, k.Origin, k.ReturnDate,
	)
}

func ParseMonitorName(name string) (MonitorKey, error) {
	m := monitorNamePattern.FindStringSubmatch(name)
	if m == nil {
		return MonitorKey{}, fmt.Errorf("%w: %q", ErrInvalidMonitorName, name)
	}
	uid, err := cast.ToInt64E(m[1])
	if err != nil {
		return MonitorKey{}, fmt.Errorf("%w: %q: %v", ErrInvalidMonitorName, name, err)
	}
	return MonitorKey{
		UserID:      uid,
		Origin:      m[2],
		Destination: m[3],
		DepartDate:  m[4],
		ReturnDate:  m[5],
	}, nil
}

// MonitorState is the persisted slot of one monitor.
type MonitorState struct {
	StartTime           string `json:"start_time"`
	Restricted          int    `json:"restricted"`
	Overall             int    `json:"overall"`
	LastFetch           string `json:"last_fetch"`
	TimeSettingOutbound string `json:"time_setting_outbound"`
	TimeSettingInbound  string `json:"time_setting_inbound"`

	RestrictedDetail string `json:"restricted_detail,omitempty"`
	OverallDetail    string `json:"overall_detail,omitempty"`
	SourceURL        string `json:"source_url,omitempty"`
	LowestRestricted int    `json:"lowest_restricted,omitempty"`
	LowestOverall    int    `json:"lowest_overall,omitempty"`
	LastNotified     string `json:"last_notified,omitempty"`
	NoMatchNotified  bool   `json:"no_match_notified,omitempty"`
}

func (s *MonitorState) StartedAt(loc *time.Location) (time.Time, error) {
	return ParseTimestamp(s.StartTime, loc)
}

func (s *MonitorState) LastFetchedAt(loc *time.Location) (time.Time, error) {
	return ParseTimestamp(s.LastFetch, loc)
}

func (s *MonitorState) LastNotifiedAt(loc *time.Location) (time.Time, bool) {
	if s.LastNotified == "" {
		return time.Time{}, false
	}
	t, err := ParseTimestamp(s.LastNotified, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// HasPrice reports whether any price was ever recorded for the monitor.
func (s *MonitorState) HasPrice() bool {
	return s.Restricted > 0 || s.Overall > 0
}

// Merge folds a fetch result into the state: every price field takes the new
// value when one was observed and keeps the old one otherwise. The all-time
// lows only ever move down.
func (s *MonitorState) Merge(r *FetchResult) {
	if r == nil {
		return
	}
	if r.Restricted > 0 {
		s.Restricted = r.Restricted
		s.RestrictedDetail = r.RestrictedDetail
		s.NoMatchNotified = false
		s.LowestRestricted = lowerOf(s.LowestRestricted, r.Restricted)
	}
	if r.Overall > 0 {
		s.Overall = r.Overall
		s.OverallDetail = r.OverallDetail
		s.LowestOverall = lowerOf(s.LowestOverall, r.Overall)
	}
	if r.SourceURL != "" {
		s.SourceURL = r.SourceURL
	}
}

func lowerOf(current, observed int) int {
	if current <= 0 || observed < current {
		return observed
	}
	return current
}
