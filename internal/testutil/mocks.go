package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lyw1217/flight-price-checker/internal/models"
	"github.com/lyw1217/flight-price-checker/internal/providers"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (e LogEntry) Message() string {
	return fmt.Sprintf(e.Format, e.Args...)
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// Count returns how many entries of the given level were recorded.
func (m *MockLogger) Count(level string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.Logs {
		if l.Level == level {
			n++
		}
	}
	return n
}

// Contains reports whether any recorded message contains substr.
func (m *MockLogger) Contains(substr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.Logs {
		if strings.Contains(l.Message(), substr) {
			return true
		}
	}
	return false
}

// MockMetrics implements providers.MetricsProviderInterface.
type MockMetrics struct {
	mu                 sync.Mutex
	Requests           map[string]int
	CacheHits          int
	CacheMisses        int
	CacheInvalidations int
	FetchAttempts      map[string]int
	Cycles             int
	Notifications      map[string]int
	ActiveMonitors     int
	RetentionDeleted   map[string]int
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		Requests:         make(map[string]int),
		FetchAttempts:    make(map[string]int),
		Notifications:    make(map[string]int),
		RetentionDeleted: make(map[string]int),
	}
}

func (m *MockMetrics) IncRequestsTotal(endpoint string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests[endpoint]++
}
func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (m *MockMetrics) IncCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}
func (m *MockMetrics) IncCacheMisses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses++
}
func (m *MockMetrics) IncCacheInvalidations() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheInvalidations++
}
func (m *MockMetrics) IncFetchAttempts(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchAttempts[outcome]++
}
func (m *MockMetrics) ObserveCycleDuration(_ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cycles++
}
func (m *MockMetrics) IncNotifications(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Notifications[kind]++
}
func (m *MockMetrics) SetActiveMonitors(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ActiveMonitors = count
}
func (m *MockMetrics) AddRetentionDeleted(kind string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RetentionDeleted[kind] += count
}

func (m *MockMetrics) FetchAttemptCount(outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.FetchAttempts[outcome]
}

func (m *MockMetrics) NotificationCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Notifications[kind]
}

// SentMessage is one call recorded by MockNotifier.
type SentMessage struct {
	UserID int64
	Text   string
}

// MockNotifier records every Notify call. Err, when set, is returned from
// every call after recording it.
type MockNotifier struct {
	mu   sync.Mutex
	Sent []SentMessage
	Err  error
}

func (m *MockNotifier) Notify(_ context.Context, userID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, SentMessage{UserID: userID, Text: text})
	return m.Err
}

func (m *MockNotifier) Messages() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMessage(nil), m.Sent...)
}

func (m *MockNotifier) MessagesFor(userID int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.Sent {
		if s.UserID == userID {
			out = append(out, s.Text)
		}
	}
	return out
}

// FetchResponse is one scripted answer of MockFetcher.
type FetchResponse struct {
	Result *models.FetchResult
	Err    error
	Delay  time.Duration
}

// MockFetcher replays scripted responses in order and repeats the last one
// once the script is exhausted.
type MockFetcher struct {
	mu        sync.Mutex
	Responses []FetchResponse
	Calls     []models.MonitorKey
	inFlight  int
	MaxActive int
}

func (m *MockFetcher) Fetch(ctx context.Context, key models.MonitorKey, _ *models.UserPreference) (*models.FetchResult, error) {
	m.mu.Lock()
	idx := len(m.Calls)
	m.Calls = append(m.Calls, key)
	m.inFlight++
	if m.inFlight > m.MaxActive {
		m.MaxActive = m.inFlight
	}
	var resp FetchResponse
	if len(m.Responses) > 0 {
		resp = m.Responses[min(idx, len(m.Responses)-1)]
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if resp.Err != nil {
		if resp.Result == nil {
			return nil, resp.Err
		}
		r := *resp.Result
		return &r, resp.Err
	}
	if resp.Result == nil {
		return &models.FetchResult{}, nil
	}
	r := *resp.Result
	return &r, nil
}

func (m *MockFetcher) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

func (m *MockFetcher) PeakConcurrency() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.MaxActive
}
