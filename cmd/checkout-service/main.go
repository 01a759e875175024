// cmd/checkout-service/main.go
package main

import (
	"context"

	zlog "github.com/rs/zerolog/log"

	"storefront/internal/pkg/bootstrap"
	"storefront/internal/pkg/constants"
	"storefront/internal/pkg/db"
	"storefront/internal/pkg/httpclient"
	"storefront/internal/pkg/mq"
	"storefront/internal/pkg/redis"
	"storefront/internal/service/checkout/application"
	"storefront/internal/service/checkout/domain/port"
	"storefront/internal/service/checkout/infrastructure"
	"storefront/internal/service/checkout/infrastructure/adapter"
	"storefront/internal/service/checkout/interfaces"
	"storefront/internal/zookeeper"
)

// main 函数是应用的"组装根"：创建并组装所有依赖项，然后启动应用
func main() {
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName:      constants.CheckoutService,
		Port:             8080,
		RegisterHandlers: registerHandlers,
	})
}

func registerHandlers(appCtx *bootstrap.AppCtx) error {
	cfg := appCtx.Config

	// 1. 存储：购物车和地址簿放 Redis，订单放 MySQL
	rdb, err := redis.NewClient(context.Background(), redis.Options{
		Addrs:    cfg.Infra.Redis.Addrs,
		Password: cfg.Infra.Redis.Password,
		DB:       cfg.Infra.Redis.DB,
	})
	if err != nil {
		return err
	}
	appCtx.OnShutdown(func(context.Context) error { return rdb.Close() })

	gormDB, err := db.OpenMySQL(cfg.Infra.MySQL.DSN, &infrastructure.OrderModel{})
	if err != nil {
		return err
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		appCtx.OnShutdown(func(context.Context) error { return sqlDB.Close() })
	}

	// 2. 下游服务：优先走 Nacos 发现，失败时回退到配置地址
	var resolver httpclient.ServiceResolver = httpclient.StaticResolver{
		constants.ShippingService:  cfg.Services.ShippingURL,
		constants.PromotionService: cfg.Services.PromotionURL,
	}
	if appCtx.Nacos != nil {
		resolver = httpclient.FallbackResolver{Primary: appCtx.Nacos, Fallback: resolver}
	}
	client := httpclient.NewClient(appCtx.Tracer, resolver)
	client.HTTPClient.Timeout = cfg.Services.Timeout

	shipping := adapter.NewCachedShippingAdapter(adapter.NewShippingHTTPAdapter(client), rdb, cfg.Infra.Redis.QuoteTTL)
	promotion := adapter.NewPromotionHTTPAdapter(client)

	// 3. 订单事件
	writer := mq.NewKafkaWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.OrderTopic)
	appCtx.OnShutdown(func(context.Context) error { return writer.Close() })
	publisher := infrastructure.NewKafkaOrderPublisher(writer, cfg.Infra.Kafka.OrderTopic)

	// 4. 同一用户的购物车写操作串行化；没有配置 ZooKeeper 时只在进程内互斥
	var locker port.Locker = adapter.NewLocalLocker()
	if len(cfg.Infra.Zookeeper.Servers) > 0 {
		zkConn, err := zookeeper.Connect(cfg.Infra.Zookeeper.Servers, cfg.Infra.Zookeeper.SessionTimeout)
		if err != nil {
			return err
		}
		appCtx.OnShutdown(func(context.Context) error { zkConn.Close(); return nil })
		locker = zookeeper.NewLocker(zkConn)
	} else {
		zlog.Warn().Msg("zookeeper not configured, cart locks are process local")
	}

	// 5. 实时结算推送
	var hub *interfaces.Hub
	var notifier port.TotalsNotifier
	if cfg.App.FeatureFlags.EnableLiveTotals {
		hub = interfaces.NewHub()
		notifier = hub
		hubCtx, stopHub := context.WithCancel(context.Background())
		go hub.Run(hubCtx)
		appCtx.OnShutdown(func(context.Context) error { stopHub(); return nil })
	}

	service := application.NewCheckoutService(application.Dependencies{
		Carts:     infrastructure.NewRedisCartRepository(rdb, cfg.Infra.Redis.CartTTL),
		Addresses: infrastructure.NewRedisAddressRepository(rdb),
		Orders:    infrastructure.NewGormOrderRepository(gormDB),
		Shipping:  shipping,
		Promotion: promotion,
		Publisher: publisher,
		Locker:    locker,
		Notifier:  notifier,
		Tracer:    appCtx.Tracer,
		Settings:  currentSettings,
	})

	interfaces.NewCheckoutHandler(service, hub).RegisterRoutes(appCtx.Mux)

	// 6. 支付超时自动取消
	if cfg.App.PaymentTimeout > 0 {
		reader := mq.NewKafkaReader(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.OrderTopic, constants.CheckoutPaymentTimeoutGroup)
		timeouts := interfaces.NewPaymentTimeoutConsumer(reader, service, cfg.App.PaymentTimeout)
		timeouts.Start(context.Background())
		appCtx.OnShutdown(func(context.Context) error { return timeouts.Stop() })
	}
	return nil
}

// currentSettings 每次读取最新的配置快照
func currentSettings() application.Settings {
	cfg := bootstrap.GetCurrentConfig()
	return application.Settings{
		FreeShippingThreshold: cfg.Threshold(),
		CouponsEnabled:        cfg.App.FeatureFlags.EnableCoupons,
		LiveTotalsEnabled:     cfg.App.FeatureFlags.EnableLiveTotals,
	}
}
