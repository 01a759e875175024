// internal/pkg/bootstrap/app.go
package bootstrap

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	zlog "github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/pkg/logger"
	"storefront/internal/pkg/nacos"
	"storefront/internal/pkg/tracing"
)

type AppCtx struct {
	Mux    *http.ServeMux
	Nacos  *nacos.Client // 未启用 Nacos 时为 nil
	Config *Config
	Tracer trace.Tracer

	cleanups []func(context.Context) error
}

// OnShutdown 注册关停时执行的清理函数，按注册顺序的逆序执行
func (a *AppCtx) OnShutdown(fn func(context.Context) error) {
	a.cleanups = append(a.cleanups, fn)
}

// AppInfo 包含了启动一个微服务所需的所有特定信息。
type AppInfo struct {
	ServiceName      string
	Port             int
	RegisterHandlers func(appCtx *AppCtx) error // 每个服务在这里组装依赖并注册自己的 HTTP 路由
}

// NewRootHandler 在业务路由之外挂上 /healthz 和 /metrics，并套上日志中间件
func NewRootHandler(mux *http.ServeMux) http.Handler {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	return logger.Middleware(mux)
}

// StartService 封装了所有微服务的通用启动和优雅关停逻辑。
func StartService(info AppInfo) {
	// 1. 加载配置
	cfg, err := LoadConfig(getEnv("CONFIG_FILE", "configs/config.yaml"))
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to load config")
	}
	SetCurrentConfig(cfg)
	logger.Init(info.ServiceName, cfg.App.LogLevel)

	// 2. 初始化核心组件
	tp, err := tracing.InitTracerProvider(info.ServiceName, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to initialize tracer provider")
	}

	appCtx := &AppCtx{
		Mux:    http.NewServeMux(),
		Config: cfg,
		Tracer: otel.Tracer(info.ServiceName),
	}

	var ip string
	if cfg.Infra.Nacos.Enabled {
		nacosClient, err := nacos.NewNacosClient(cfg.Infra.Nacos.ServerAddrs, cfg.Infra.Nacos.Namespace, cfg.Infra.Nacos.Group)
		if err != nil {
			zlog.Fatal().Err(err).Msg("failed to initialize nacos client")
		}
		appCtx.Nacos = nacosClient
		watchRemoteConfig(nacosClient, cfg)

		// 3. 获取本机 IP 并注册服务
		ip, err = getOutboundIP()
		if err != nil {
			zlog.Fatal().Err(err).Msg("failed to get outbound IP address")
		}
		if err := nacosClient.RegisterServiceInstance(info.ServiceName, ip, info.Port); err != nil {
			zlog.Fatal().Err(err).Msg("failed to register service with nacos")
		}
	}

	// 4. 服务自己的依赖和路由
	if info.RegisterHandlers != nil {
		if err := info.RegisterHandlers(appCtx); err != nil {
			zlog.Fatal().Err(err).Msg("failed to register handlers")
		}
	}

	// 5. 创建并启动 HTTP Server
	server := &http.Server{
		Addr:              ":" + strconv.Itoa(info.Port),
		Handler:           NewRootHandler(appCtx.Mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zlog.Info().Int("port", info.Port).Msgf("%s listening", info.ServiceName)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Str("addr", server.Addr).Msg("could not listen")
		}
	}()

	// 6. 优雅关停
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msgf("Shutting down service %s...", info.ServiceName)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// a. 先从 Nacos 注销，避免新流量进来
	if appCtx.Nacos != nil {
		if err := appCtx.Nacos.DeregisterServiceInstance(info.ServiceName, ip, info.Port); err != nil {
			zlog.Error().Err(err).Msg("Error deregistering from Nacos")
		}
		appCtx.Nacos.Close()
	}

	// b. 关闭 HTTP 服务器
	if err := server.Shutdown(ctx); err != nil {
		zlog.Error().Err(err).Msg("Error shutting down http server")
	} else {
		zlog.Info().Msg("HTTP server shut down.")
	}

	// c. 服务注册的资源 (后进先出)
	for i := len(appCtx.cleanups) - 1; i >= 0; i-- {
		if err := appCtx.cleanups[i](ctx); err != nil {
			zlog.Error().Err(err).Msg("Error running shutdown hook")
		}
	}

	// d. 关闭 Tracer Provider，确保所有缓冲的 trace 都被发送出去
	if err := tp.Shutdown(ctx); err != nil {
		zlog.Error().Err(err).Msg("Error shutting down tracer provider")
	}

	zlog.Info().Msgf("Service %s gracefully shut down.", info.ServiceName)
}

// watchRemoteConfig 拉取并监听 Nacos 上的配置，变更后整体替换当前配置
func watchRemoteConfig(client *nacos.Client, base *Config) {
	dataID := base.Infra.Nacos.DataID
	if dataID == "" {
		return
	}
	apply := func(content string) {
		if content == "" {
			return
		}
		merged, err := MergeYAML(GetCurrentConfig(), content)
		if err != nil {
			zlog.Error().Err(err).Str("dataId", dataID).Msg("ignoring invalid remote config")
			return
		}
		SetCurrentConfig(merged)
		zlog.Info().Str("dataId", dataID).Str("threshold", merged.Threshold().String()).Msg("remote config applied")
	}

	content, err := client.GetConfig(dataID)
	if err != nil {
		zlog.Warn().Err(err).Msg("failed to fetch remote config, using local config")
	} else {
		apply(content)
	}
	if err := client.ListenConfig(dataID, apply); err != nil {
		zlog.Warn().Err(err).Msg("failed to listen remote config")
	}
}

// getOutboundIP 通过一次 UDP "连接" 拿到出口网卡的 IP，不会真正发包
func getOutboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}

// getEnv 是一个内部辅助函数，从环境变量中读取配置。
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
