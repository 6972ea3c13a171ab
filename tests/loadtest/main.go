// Command loadtest drives the command API of a running checker with a mix of
// settings writes and status reads. Monitor creation is left out because it
// calls the scraper.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

var (
	baseURL  = flag.String("url", "http://127.0.0.1:8090", "checker base URL")
	workers  = flag.Int("workers", 50, "concurrent clients")
	duration = flag.Duration("duration", 10*time.Second, "length of each phase")
	users    = flag.Int("users", 500, "distinct user ids")
)

var (
	intervals = []int{5, 15, 30, 60, 180, 1440}
	modes     = []string{"PRICE_DROP_ANY", "PRICE_DROP_THRESHOLD", "TARGET_PRICE_REACHED", "HISTORICAL_LOW_UPDATED", "ANY_PRICE_CHANGE"}
)

type op struct {
	name   string
	weight int
	do     func(c *client, rng *rand.Rand) (status int, err error)
}

type phase struct {
	title string
	ops   []op
}

var (
	setInterval = op{name: "POST /settings/interval", do: func(c *client, rng *rand.Rand) (int, error) {
		return c.post("/settings/interval", map[string]any{"user_id": c.user(rng), "minutes": lo.Sample(intervals)})
	}}
	setNotification = op{name: "POST /settings/notification", do: func(c *client, rng *rand.Rand) (int, error) {
		body := map[string]any{"user_id": c.user(rng), "mode": lo.Sample(modes)}
		if body["mode"] == "PRICE_DROP_THRESHOLD" || body["mode"] == "TARGET_PRICE_REACHED" {
			body["amount"] = (rng.Intn(20) + 1) * 5000
		}
		return c.post("/settings/notification", body)
	}}
	status = op{name: "GET /monitors/status", do: func(c *client, rng *rand.Rand) (int, error) {
		return c.get(fmt.Sprintf("/monitors/status?user_id=%d", c.user(rng)))
	}}
	settings = op{name: "GET /settings", do: func(c *client, rng *rand.Rand) (int, error) {
		return c.get(fmt.Sprintf("/settings?user_id=%d", c.user(rng)))
	}}
	health = op{name: "GET /health", do: func(c *client, _ *rand.Rand) (int, error) {
		return c.get("/health")
	}}
)

func weighted(o op, w int) op {
	o.weight = w
	return o
}

var phases = []phase{
	{"Settings writes", []op{weighted(setInterval, 50), weighted(setNotification, 50)}},
	{"Mixed load", []op{weighted(setInterval, 15), weighted(setNotification, 15), weighted(status, 35), weighted(settings, 30), weighted(health, 5)}},
	{"Read heavy", []op{weighted(setInterval, 5), weighted(status, 55), weighted(settings, 30), weighted(health, 10)}},
}

type client struct {
	http  *http.Client
	base  string
	users int
}

func (c *client) user(rng *rand.Rand) int64 {
	return int64(rng.Intn(c.users) + 1)
}

func (c *client) get(path string) (int, error) {
	return c.do(http.MethodGet, path, nil)
}

func (c *client) post(path string, body any) (int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}
	return c.do(http.MethodPost, path, data)
}

func (c *client) do(method, path string, body []byte) (int, error) {
	req, err := http.NewRequest(method, c.base+path, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

type tally struct {
	mu        sync.Mutex
	errors    map[string]int
	limited   map[string]int
	latencies map[string][]time.Duration
}

func newTally() *tally {
	return &tally{errors: map[string]int{}, limited: map[string]int{}, latencies: map[string][]time.Duration{}}
}

func (t *tally) add(name string, code int, err error, lat time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latencies[name] = append(t.latencies[name], lat)
	switch {
	case code == http.StatusTooManyRequests:
		t.limited[name]++
	case err != nil || code >= 400:
		t.errors[name]++
	}
}

func pick(ops []op, rng *rand.Rand) op {
	total := lo.SumBy(ops, func(o op) int { return o.weight })
	n := rng.Intn(total)
	for _, o := range ops {
		if n < o.weight {
			return o
		}
		n -= o.weight
	}
	return ops[len(ops)-1]
}

func run(ctx context.Context, c *client, p phase) *tally {
	t := newTally()
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < *workers; i++ {
		seed := time.Now().UnixNano() + int64(i)
		g.Go(func() error {
			rng := rand.New(rand.NewSource(seed))
			for ctx.Err() == nil {
				o := pick(p.ops, rng)
				start := time.Now()
				code, err := o.do(c, rng)
				t.add(o.name, code, err, time.Since(start))
			}
			return nil
		})
	}
	_ = g.Wait()
	return t
}

func waitHealthy(c *client) bool {
	for range 30 {
		if code, err := c.get("/health"); err == nil && code == http.StatusOK {
			return true
		}
		time.Sleep(200 * time.Millisecond)
	}
	return false
}

func main() {
	flag.Parse()

	c := &client{
		http:  &http.Client{Timeout: 5 * time.Second, Transport: &http.Transport{MaxIdleConnsPerHost: *workers * 2}},
		base:  strings.TrimRight(*baseURL, "/"),
		users: *users,
	}

	fmt.Printf("checker load test: %s, %d workers, %s per phase, %d users\n", c.base, *workers, *duration, *users)
	if !waitHealthy(c) {
		fmt.Println("server not responding")
		return
	}

	for i, p := range phases {
		fmt.Printf("\n[%d/%d] %s\n", i+1, len(phases), p.title)
		ctx, cancel := context.WithTimeout(context.Background(), *duration)
		t := run(ctx, c, p)
		cancel()
		report(t, *duration)
	}
}

func report(t *tally, d time.Duration) {
	names := lo.Keys(t.latencies)
	slices.Sort(names)

	fmt.Printf("  %-28s %8s %6s %6s %9s %9s %9s\n", "endpoint", "reqs", "errs", "429", "p50", "p95", "p99")
	var total int
	for _, name := range names {
		lats := t.latencies[name]
		slices.Sort(lats)
		total += len(lats)
		fmt.Printf("  %-28s %8d %6d %6d %9s %9s %9s\n", name, len(lats), t.errors[name], t.limited[name],
			quantile(lats, 0.50), quantile(lats, 0.95), quantile(lats, 0.99))
	}
	fmt.Printf("  total %d reqs, %.0f rps\n", total, float64(total)/d.Seconds())
}

func quantile(sorted []time.Duration, q float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := min(int(float64(len(sorted))*q), len(sorted)-1)
	return sorted[idx].Round(10 * time.Microsecond)
}
