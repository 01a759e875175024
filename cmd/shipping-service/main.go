// cmd/shipping-service/main.go
package main

import (
	"storefront/internal/pkg/bootstrap"
	"storefront/internal/pkg/constants"
	"storefront/internal/service/shipping/application"
	"storefront/internal/service/shipping/infrastructure"
	"storefront/internal/service/shipping/interfaces"
)

func main() {
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: constants.ShippingService,
		Port:        8086,
		RegisterHandlers: func(appCtx *bootstrap.AppCtx) error {
			// 运费表跟随当前配置，Nacos 推送后无需重启
			rates := infrastructure.NewConfigRateSource(bootstrap.GetCurrentConfig)
			service := application.NewQuoteService(rates, appCtx.Tracer)
			interfaces.NewShippingHandler(service).RegisterRoutes(appCtx.Mux)
			return nil
		},
	})
}
