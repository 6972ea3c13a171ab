package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	json "github.com/goccy/go-json"
	"github.com/lyw1217/flight-price-checker/internal/models"
	"github.com/lyw1217/flight-price-checker/internal/providers"
	"github.com/lyw1217/flight-price-checker/internal/structures"
)

// Fetcher runs one search for a monitor. It returns ErrNoFlightData,
// ErrNoMatchingFlights (possibly with a partial result) or a transient error.
type Fetcher interface {
	Fetch(ctx context.Context, key models.MonitorKey, pref *models.UserPreference) (*models.FetchResult, error)
}

type scrapeResponse struct {
	Items []string `json:"items"`
}

// ScraperClient asks a rendering sidecar for the result texts of a search
// page and turns them into prices.
type ScraperClient struct {
	client  *http.Client
	baseURL string
	logger  providers.Logger
}

func (c *ScraperClient) Fetch(ctx context.Context, key models.MonitorKey, pref *models.UserPreference) (*models.FetchResult, error) {
	texts, err := c.scrape(ctx, key.SearchURL())
	if err != nil {
		return nil, err
	}
	c.logger.Debugf(providers.TypeFetch, "%s: %d items scraped", key.Name(), len(texts))
	return SelectPrices(texts, key, pref)
}

func (c *ScraperClient) scrape(ctx context.Context, target string) ([]string, error) {
	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("bad scraper url: %w", err)
	}
	q := endpoint.Query()
	q.Set("url", target)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, Transient(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Transient(err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: scraper answered 404", ErrNoFlightData)
	case resp.StatusCode != http.StatusOK:
		return nil, Transient(fmt.Errorf("scraper answered %d", resp.StatusCode))
	case len(body) == 0:
		return nil, Transient(errors.New("empty page"))
	}

	var payload scrapeResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, Transient(fmt.Errorf("unreadable scraper response: %w", err))
	}
	return payload.Items, nil
}

func NewScraperClient(conf *structures.Config, logger providers.Logger) Fetcher {
	return &ScraperClient{
		client:  &http.Client{Timeout: conf.Fetch.Timeout},
		baseURL: conf.Fetch.ScraperURL,
		logger:  logger,
	}
}
