//go:build wireinject
// +build wireinject

package di

import (
	"context"

	wire "github.com/google/wire"

	"github.com/jose-valero/psforever-bot/internal/infra/config"
)

func InitBot(ctx context.Context, cfg config.Config) (*Bot, func(), error) {

	wire.Build(
		ProvideLogger,
		ProvideMetrics,
		ProvideBlobStore,
		ProvideDocs,

		ProvideSession,
		ProvidePlatform,
		ProvideStatsClient,
		ProvidePoller,

		ProvideConfigService,
		ProvideQuorum,
		ProvideAlerts,
		ProvideSetup,
		ProvideReport,
		ProvideApp,
		ProvideServices,
		ProvideRouter,
		ProvideHTTP,
		NewBot,
	)

	return nil, nil, nil
}
