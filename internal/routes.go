package internal

import (
	"net/http"
	"summard/internal/controllers"
	"summard/internal/providers"
)

func InitRoutes(apiController *controllers.ApiController) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Get("/summary", http.HandlerFunc(apiController.GetSummary))
	routers.Get("/availability", http.HandlerFunc(apiController.GetAvailability))
	routers.Post("/refreshalias", http.HandlerFunc(apiController.RefreshAlias))
	return routers
}
