package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lyw1217/flight-price-checker/internal/models"
	"github.com/lyw1217/flight-price-checker/internal/structures"
	"github.com/lyw1217/flight-price-checker/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScraper(t *testing.T, h http.HandlerFunc) Fetcher {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	conf := &structures.Config{Fetch: structures.FetchConfig{ScraperURL: srv.URL + "/scrape", Timeout: time.Second}}
	return NewScraperClient(conf, &testutil.MockLogger{})
}

func TestScraperClient_Success(t *testing.T) {
	var gotURL string
	c := newScraper(t, func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.Query().Get("url")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":["07:00ICN 09:00FUK\n15:00FUK 17:00ICN\n왕복 300,000원"]}`))
	})

	pref := &models.UserPreference{TimeType: models.TimeByPeriod, OutboundPeriods: []string{"오전1"}, InboundPeriods: []string{"오후2"}}
	res, err := c.Fetch(context.Background(), icnFuk, pref)
	require.NoError(t, err)
	assert.Equal(t, icnFuk.SearchURL(), gotURL)
	assert.Equal(t, 300000, res.Restricted)
	assert.Equal(t, 300000, res.Overall)
}

func TestScraperClient_Classification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   Outcome
	}{
		{"server error", http.StatusBadGateway, "", OutcomeTransient},
		{"empty page", http.StatusOK, "", OutcomeTransient},
		{"bad json", http.StatusOK, "<html>", OutcomeTransient},
		{"no items", http.StatusOK, `{"items":[]}`, OutcomeNoFlightData},
		{"not found", http.StatusNotFound, "", OutcomeNoFlightData},
	}
	for _, tc := range cases {
		c := newScraper(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(tc.body))
		})
		_, err := c.Fetch(context.Background(), icnFuk, nil)
		assert.Equal(t, tc.want, Classify(err), tc.name)
	}
}

func TestScraperClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()
	conf := &structures.Config{Fetch: structures.FetchConfig{ScraperURL: srv.URL, Timeout: 50 * time.Millisecond}}
	c := NewScraperClient(conf, &testutil.MockLogger{})

	_, err := c.Fetch(context.Background(), icnFuk, nil)
	var te *TransientError
	assert.ErrorAs(t, err, &te)
}
