package controllers

import (
	"net/http"
	"os"
	"time"

	json "github.com/goccy/go-json"
	"github.com/lyw1217/flight-price-checker/internal/fetch"
	"github.com/lyw1217/flight-price-checker/internal/scheduler"
	"github.com/lyw1217/flight-price-checker/internal/structures"
)

type activeCounter interface {
	Active() int
}

// HealthController reports liveness plus the two numbers an operator looks at
// first: how many monitors are scheduled and how many fetches are in flight.
// The data directory is checked on every probe; without it no cycle can
// persist, so the bot answers 503.
type HealthController struct {
	monitors  activeCounter
	fetches   activeCounter
	capacity  int
	dataDir   string
	startTime time.Time
}

type healthResponse struct {
	Status         string  `json:"status"`
	Uptime         string  `json:"uptime"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
	ActiveMonitors int     `json:"active_monitors"`
	ActiveFetches  int     `json:"active_fetches"`
	FetchCapacity  int     `json:"fetch_capacity"`
	Storage        string  `json:"storage"`
}

func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(hc.startTime)
	resp := healthResponse{
		Status:         "ok",
		Uptime:         uptime.Truncate(time.Second).String(),
		UptimeSeconds:  uptime.Seconds(),
		ActiveMonitors: hc.monitors.Active(),
		ActiveFetches:  hc.fetches.Active(),
		FetchCapacity:  hc.capacity,
		Storage:        "ok",
	}

	code := http.StatusOK
	if err := checkDir(hc.dataDir); err != nil {
		resp.Status = "degraded"
		resp.Storage = err.Error()
		code = http.StatusServiceUnavailable
	}

	gson, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if r.Method == http.MethodGet {
		_, _ = w.Write(gson)
	}
}

func checkDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &os.PathError{Op: "stat", Path: path, Err: os.ErrInvalid}
	}
	return nil
}

func NewHealthController(conf *structures.Config, scheduler scheduler.SchedulerInterface, pool fetch.PoolInterface) *HealthController {
	return &HealthController{
		monitors:  scheduler,
		fetches:   pool,
		capacity:  max(conf.Fetch.Workers, 1),
		dataDir:   conf.Storage.DataDir,
		startTime: time.Now(),
	}
}
