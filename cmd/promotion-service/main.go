// cmd/promotion-service/main.go
package main

import (
	"context"

	"storefront/internal/pkg/bootstrap"
	"storefront/internal/pkg/constants"
	"storefront/internal/pkg/db"
	"storefront/internal/pkg/mq"
	"storefront/internal/service/promotion/application"
	"storefront/internal/service/promotion/infrastructure"
	"storefront/internal/service/promotion/infrastructure/rule"
	"storefront/internal/service/promotion/interfaces"
)

func main() {
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName:      constants.PromotionService,
		Port:             8087,
		RegisterHandlers: registerHandlers,
	})
}

func registerHandlers(appCtx *bootstrap.AppCtx) error {
	cfg := appCtx.Config

	gormDB, err := db.OpenMySQL(cfg.Infra.MySQL.DSN, &infrastructure.CouponTemplateModel{}, &infrastructure.UserCouponModel{})
	if err != nil {
		return err
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		appCtx.OnShutdown(func(context.Context) error { return sqlDB.Close() })
	}
	repo := infrastructure.NewGormCouponRepository(gormDB)

	rules, err := rule.NewCELRuleEngine()
	if err != nil {
		return err
	}
	service := application.NewPromotionService(repo, rules, appCtx.Tracer)
	interfaces.NewPromotionHandler(service).RegisterRoutes(appCtx.Mux)

	// 订单取消/支付后释放或核销冻结的优惠券
	reader := mq.NewKafkaReader(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.OrderTopic, constants.PromotionOrderEventsGroup)
	consumer := interfaces.NewOrderEventConsumer(reader, service)
	consumer.Start(context.Background())
	appCtx.OnShutdown(func(context.Context) error { return consumer.Stop() })
	return nil
}
