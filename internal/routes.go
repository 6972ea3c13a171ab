package internal

import (
	"net/http"

	"github.com/lyw1217/flight-price-checker/internal/controllers"
	"github.com/lyw1217/flight-price-checker/internal/providers"
	"github.com/lyw1217/flight-price-checker/internal/structures"
)

func InitRoutes(apiController *controllers.ApiController, conf *structures.Config) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Post("/monitors", http.HandlerFunc(apiController.CreateMonitor))
	routers.Get("/monitors/status", http.HandlerFunc(apiController.ListStatus))
	routers.Post("/monitors/cancel", http.HandlerFunc(apiController.Cancel))

	routers.Get("/settings", http.HandlerFunc(apiController.GetSettings))
	routers.Post("/settings/time", http.HandlerFunc(apiController.SetTimeConstraint))
	routers.Post("/settings/notification", http.HandlerFunc(apiController.SetNotificationPreference))
	routers.Post("/settings/interval", http.HandlerFunc(apiController.SetNotificationInterval))
	routers.Post("/settings/scope", http.HandlerFunc(apiController.SetNotificationScope))

	if len(conf.Telegram.AdminIDs) > 0 {
		routers.Get("/admin/monitors", http.HandlerFunc(apiController.AllStatus))
		routers.Post("/admin/cancel", http.HandlerFunc(apiController.AllCancel))
	}
	return routers
}
