package internal

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/lyw1217/flight-price-checker/internal/controllers"
	"github.com/lyw1217/flight-price-checker/internal/fetch"
	"github.com/lyw1217/flight-price-checker/internal/providers"
	"github.com/lyw1217/flight-price-checker/internal/retention"
	"github.com/lyw1217/flight-price-checker/internal/scheduler"
	"github.com/lyw1217/flight-price-checker/internal/state"
	"github.com/lyw1217/flight-price-checker/internal/structures"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const restoreTimeout = 30 * time.Second

type App struct {
	WebServer *http.Server
}

func NewApp(
	healthController *controllers.HealthController,
	scheduler scheduler.SchedulerInterface,
	pool fetch.PoolInterface,
	sweeper retention.SweeperInterface,
	archive state.ArchiveInterface,
	conf *structures.Config,
	logger providers.Logger,
	router providers.RouterProviderInterface,
	metrics providers.MetricsProviderInterface,
) (*App, error) {
	// Inner mux: command API routes
	apiMux := http.NewServeMux()
	for _, route := range router.GetRoutes() {
		pattern := route.Method + " " + route.Url
		apiMux.Handle(pattern, route.Handler)
		logger.Debugf(providers.TypeApp, "Route %s", pattern)
	}

	// Wrap API routes with metrics middleware
	instrumentedAPI := providers.MetricsMiddleware(metrics, apiMux)

	// Outer mux: infrastructure + instrumented API
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthController.Health)
	if conf.Metrics.Enabled {
		mux.Handle("/metrics", promhttp.Handler())
	}
	mux.Handle("/", instrumentedAPI)

	logger.Infof(providers.TypeApp, "Starting %s", conf.AppName)
	pool.Start()

	restoreCtx, cancelRestore := context.WithTimeout(context.Background(), restoreTimeout)
	restored, err := scheduler.Restore(restoreCtx)
	cancelRestore()
	if err != nil {
		logger.Errorf(providers.TypeApp, "Restore error: %s", err)
	}
	metrics.SetActiveMonitors(restored)

	sweeper.Start()

	app := &App{
		WebServer: &http.Server{
			Addr:         conf.WebServer.Host + ":" + strconv.Itoa(conf.WebServer.Port),
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: conf.Fetch.Timeout + 10*time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	serverErr := make(chan error, 1)
	if conf.WebServer.Enabled {
		go func() {
			logger.Infof(providers.TypeApp, "Listening HTTP clients on %s:%d", conf.WebServer.Host, conf.WebServer.Port)
			if err := app.WebServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				serverErr <- err
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-stop:
		logger.Infof(providers.TypeApp, "Shutdown signal received")
	case err := <-serverErr:
		runErr = fmt.Errorf("server error: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.WebServer.Shutdown(ctx); err != nil {
		logger.Errorf(providers.TypeApp, "HTTP shutdown: %s", err)
	}

	sweeper.Stop()
	scheduler.Stop()
	pool.Stop()
	archive.Close()

	if runErr != nil {
		return nil, runErr
	}
	logger.Infof(providers.TypeApp, "gracefully stopped")
	return app, nil
}
