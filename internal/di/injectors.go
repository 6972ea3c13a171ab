//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"
	"github.com/lyw1217/flight-price-checker/internal"
	"github.com/lyw1217/flight-price-checker/internal/controllers"
	"github.com/lyw1217/flight-price-checker/internal/fetch"
	"github.com/lyw1217/flight-price-checker/internal/notify"
	"github.com/lyw1217/flight-price-checker/internal/providers"
	"github.com/lyw1217/flight-price-checker/internal/retention"
	"github.com/lyw1217/flight-price-checker/internal/scheduler"
	"github.com/lyw1217/flight-price-checker/internal/services"
	"github.com/lyw1217/flight-price-checker/internal/state"
	"github.com/lyw1217/flight-price-checker/internal/structures"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,

		state.NewMonitorRepository,
		state.NewPreferenceRepository,
		state.NewZstdCompressor,
		state.NewArchive,

		fetch.NewScraperClient,
		fetch.NewWorkerPool,
		notify.NewTelegramNotifier,
		scheduler.NewMonitorScheduler,
		wire.Bind(new(retention.Unscheduler), new(scheduler.SchedulerInterface)),
		retention.NewSweeper,

		services.NewCommandRateLimiter,
		services.NewMonitorService,
		controllers.NewApiController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}
