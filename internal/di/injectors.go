//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"
	"summard/internal"
	"summard/internal/background"
	"summard/internal/controllers"
	"summard/internal/lightning"
	"summard/internal/persistence"
	"summard/internal/providers"
	"summard/internal/services"
	"summard/internal/structures"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,

		persistence.NewZstdCompressor,
		persistence.NewFileManager,
		persistence.NewAvailabilityStore,
		lightning.NewRPCClient,

		services.NewAvailabilityService,
		wire.Bind(new(services.AvailabilityServiceInterface), new(*services.AvailabilityService)),
		services.NewAliasService,
		wire.Bind(new(services.AliasServiceInterface), new(*services.AliasService)),
		services.NewForwardsService,
		services.NewPaysService,
		services.NewInvoicesService,
		services.NewSummaryService,
		wire.Bind(new(services.SummaryServiceInterface), new(*services.SummaryService)),

		background.NewScheduler,
		controllers.NewApiController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}
