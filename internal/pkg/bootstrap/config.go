// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config 是所有服务共享的配置结构，对应 configs/config.yaml
type Config struct {
	App      AppConfig      `yaml:"app"`
	Infra    InfraConfig    `yaml:"infra"`
	Services ServicesConfig `yaml:"services"`
	Shipping ShippingConfig `yaml:"shipping"`
}

type AppConfig struct {
	Env      string `yaml:"env"`
	LogLevel string `yaml:"logLevel"`
	Currency string `yaml:"currency"`
	// FreeShippingThreshold 用字符串保存，避免 YAML 浮点数精度问题；<= 0 表示关闭包邮提示
	FreeShippingThreshold string `yaml:"freeShippingThreshold"`
	// PaymentTimeout 之后仍未支付的订单会被自动取消，0 表示不自动取消
	PaymentTimeout time.Duration `yaml:"paymentTimeout"`
	FeatureFlags   FeatureFlags  `yaml:"featureFlags"`
}

type FeatureFlags struct {
	EnableCoupons    bool `yaml:"enableCoupons"`
	EnableLiveTotals bool `yaml:"enableLiveTotals"`
}

type InfraConfig struct {
	Jaeger    JaegerConfig    `yaml:"jaeger"`
	Redis     RedisConfig     `yaml:"redis"`
	MySQL     MySQLConfig     `yaml:"mysql"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Zookeeper ZookeeperConfig `yaml:"zookeeper"`
	Nacos     NacosConfig     `yaml:"nacos"`
}

type JaegerConfig struct {
	Endpoint string `yaml:"endpoint"`
}

type RedisConfig struct {
	Addrs    []string      `yaml:"addrs"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	CartTTL  time.Duration `yaml:"cartTTL"`
	QuoteTTL time.Duration `yaml:"quoteTTL"`
}

type MySQLConfig struct {
	DSN string `yaml:"dsn"`
}

type KafkaConfig struct {
	Brokers    []string `yaml:"brokers"`
	OrderTopic string   `yaml:"orderTopic"`
}

type ZookeeperConfig struct {
	Servers        []string      `yaml:"servers"`
	SessionTimeout time.Duration `yaml:"sessionTimeout"`
}

type NacosConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServerAddrs string `yaml:"serverAddrs"`
	Namespace   string `yaml:"namespace"`
	Group       string `yaml:"group"`
	// DataID 非空时从配置中心拉取远程配置并监听变更
	DataID string `yaml:"dataId"`
}

// ServicesConfig 是下游服务地址；启用 Nacos 时按服务名发现，这里的地址作为回退
type ServicesConfig struct {
	ShippingURL  string        `yaml:"shippingURL"`
	PromotionURL string        `yaml:"promotionURL"`
	Timeout      time.Duration `yaml:"timeout"`
}

// ShippingConfig 是 shipping-service 使用的店铺运费表
type ShippingConfig struct {
	Rates []ShippingRate `yaml:"rates"`
}

type ShippingRate struct {
	ShopID      string `yaml:"shopId"`
	Fee         string `yaml:"fee"`
	LeadTime    string `yaml:"leadTime"`
	ServiceName string `yaml:"serviceName"`
}

// Threshold 返回解析后的包邮门槛
func (c *Config) Threshold() decimal.Decimal {
	v, err := decimal.NewFromString(strings.TrimSpace(c.App.FreeShippingThreshold))
	if err != nil {
		return decimal.Zero
	}
	return v
}

// Validate 校验配置的业务约束
func (c *Config) Validate() error {
	if c.App.Currency == "" {
		return errors.New("app.currency must not be empty")
	}
	if c.App.FreeShippingThreshold != "" {
		v, err := decimal.NewFromString(strings.TrimSpace(c.App.FreeShippingThreshold))
		if err != nil {
			return errors.Wrapf(err, "invalid app.freeShippingThreshold %q", c.App.FreeShippingThreshold)
		}
		if v.IsNegative() {
			return errors.Errorf("app.freeShippingThreshold must not be negative, got %s", v)
		}
	}
	if c.App.PaymentTimeout < 0 {
		return errors.Errorf("app.paymentTimeout must not be negative, got %s", c.App.PaymentTimeout)
	}
	if c.Infra.MySQL.DSN != "" {
		if _, err := mysql.ParseDSN(c.Infra.MySQL.DSN); err != nil {
			return errors.Wrap(err, "invalid infra.mysql.dsn")
		}
	}
	for _, r := range c.Shipping.Rates {
		if r.ShopID == "" {
			return errors.New("shipping.rates: shopId is required")
		}
		if _, err := decimal.NewFromString(r.Fee); err != nil {
			return errors.Wrapf(err, "shipping.rates[%s]: invalid fee", r.ShopID)
		}
	}
	return nil
}

// DefaultConfig 返回本地开发使用的默认配置
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Env:                   "local",
			LogLevel:              "info",
			Currency:              "VND",
			FreeShippingThreshold: "500000",
			PaymentTimeout:        15 * time.Minute,
			FeatureFlags:          FeatureFlags{EnableCoupons: true, EnableLiveTotals: true},
		},
		Infra: InfraConfig{
			Jaeger: JaegerConfig{Endpoint: "http://localhost:14268/api/traces"},
			Redis:  RedisConfig{Addrs: []string{"localhost:6379"}, CartTTL: 30 * 24 * time.Hour, QuoteTTL: 10 * time.Minute},
			MySQL:  MySQLConfig{DSN: "root:root@tcp(localhost:3306)/storefront?parseTime=true&charset=utf8mb4"},
			Kafka:  KafkaConfig{Brokers: []string{"localhost:9092"}, OrderTopic: "order-events"},
			Nacos:  NacosConfig{ServerAddrs: "localhost:8848", Group: "DEFAULT_GROUP"},
			Zookeeper: ZookeeperConfig{
				SessionTimeout: 10 * time.Second,
			},
		},
		Services: ServicesConfig{
			ShippingURL:  "http://localhost:8086",
			PromotionURL: "http://localhost:8087",
			Timeout:      2 * time.Second,
		},
	}
}

var currentConfig atomic.Pointer[Config]

// GetCurrentConfig 返回当前生效的配置快照（Nacos 推送变更后会被替换）
func GetCurrentConfig() *Config {
	if c := currentConfig.Load(); c != nil {
		return c
	}
	return DefaultConfig()
}

// SetCurrentConfig 原子替换当前配置
func SetCurrentConfig(c *Config) {
	currentConfig.Store(c)
}

// LoadConfig 依次加载：默认值 -> YAML 文件 -> 环境变量覆盖，并校验结果。
// path 为空或文件不存在时跳过文件。
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, errors.Wrapf(err, "parse config file %s", path)
			}
		case os.IsNotExist(err):
			// 没有配置文件时只使用默认值和环境变量
		default:
			return nil, errors.Wrapf(err, "read config file %s", path)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MergeYAML 把远程配置内容覆盖到 base 的副本上
func MergeYAML(base *Config, content string) (*Config, error) {
	merged := *base
	if err := yaml.Unmarshal([]byte(content), &merged); err != nil {
		return nil, errors.Wrap(err, "parse remote config")
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

func applyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv("FREE_SHIPPING_THRESHOLD"); ok {
		cfg.App.FreeShippingThreshold = v
	}
	if v, ok := os.LookupEnv("LOG_LEVEL"); ok {
		cfg.App.LogLevel = v
	}
	if v, ok := os.LookupEnv("JAEGER_ENDPOINT"); ok {
		cfg.Infra.Jaeger.Endpoint = v
	}
	if v, ok := os.LookupEnv("REDIS_ADDRS"); ok {
		cfg.Infra.Redis.Addrs = splitList(v)
	}
	if v, ok := os.LookupEnv("MYSQL_DSN"); ok {
		cfg.Infra.MySQL.DSN = v
	}
	if v, ok := os.LookupEnv("KAFKA_BROKERS"); ok {
		cfg.Infra.Kafka.Brokers = splitList(v)
	}
	if v, ok := os.LookupEnv("ZK_SERVERS"); ok {
		cfg.Infra.Zookeeper.Servers = splitList(v)
	}
	if v, ok := os.LookupEnv("NACOS_ENABLED"); ok {
		cfg.Infra.Nacos.Enabled, _ = strconv.ParseBool(v)
	}
	if v, ok := os.LookupEnv("NACOS_SERVER_ADDRS"); ok {
		cfg.Infra.Nacos.ServerAddrs = v
	}
	if v, ok := os.LookupEnv("NACOS_NAMESPACE"); ok {
		cfg.Infra.Nacos.Namespace = v
	}
	if v, ok := os.LookupEnv("NACOS_GROUP"); ok {
		cfg.Infra.Nacos.Group = v
	}
	if v, ok := os.LookupEnv("SHIPPING_SERVICE_URL"); ok {
		cfg.Services.ShippingURL = v
	}
	if v, ok := os.LookupEnv("PROMOTION_SERVICE_URL"); ok {
		cfg.Services.PromotionURL = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
