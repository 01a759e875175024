package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
app:
  env: staging
  currency: VND
  freeShippingThreshold: "300000"
  paymentTimeout: 5m
infra:
  redis:
    addrs: ["redis-1:6379", "redis-2:6379"]
    quoteTTL: 5m
  kafka:
    orderTopic: checkout-orders
shipping:
  rates:
    - shopId: shop-a
      fee: "20000"
      leadTime: 2-3 days
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.App.Env)
	assert.Equal(t, "300000", cfg.Threshold().String())
	assert.Equal(t, 5*time.Minute, cfg.App.PaymentTimeout)
	assert.Equal(t, []string{"redis-1:6379", "redis-2:6379"}, cfg.Infra.Redis.Addrs)
	assert.Equal(t, 5*time.Minute, cfg.Infra.Redis.QuoteTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.Infra.Redis.CartTTL, "untouched default")
	assert.Equal(t, "checkout-orders", cfg.Infra.Kafka.OrderTopic)
	require.Len(t, cfg.Shipping.Rates, 1)
	assert.Equal(t, "shop-a", cfg.Shipping.Rates[0].ShopID)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "500000", cfg.Threshold().String())
	assert.Equal(t, "VND", cfg.App.Currency)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("FREE_SHIPPING_THRESHOLD", "0")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("NACOS_ENABLED", "true")

	cfg, err := LoadConfig(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.True(t, cfg.Threshold().IsZero())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Infra.Kafka.Brokers)
	assert.True(t, cfg.Infra.Nacos.Enabled)
}

func TestConfig_Validate(t *testing.T) {
	tests := map[string]struct {
		mutate  func(c *Config)
		wantErr bool
	}{
		"defaults are valid":  {mutate: func(c *Config) {}},
		"empty currency":      {mutate: func(c *Config) { c.App.Currency = "" }, wantErr: true},
		"negative threshold":  {mutate: func(c *Config) { c.App.FreeShippingThreshold = "-1" }, wantErr: true},
		"garbage threshold":   {mutate: func(c *Config) { c.App.FreeShippingThreshold = "lots" }, wantErr: true},
		"bad dsn":             {mutate: func(c *Config) { c.Infra.MySQL.DSN = "no-slash-dsn" }, wantErr: true},
		"rate without shop":   {mutate: func(c *Config) { c.Shipping.Rates = []ShippingRate{{Fee: "1"}} }, wantErr: true},
		"rate with bad fee":   {mutate: func(c *Config) { c.Shipping.Rates = []ShippingRate{{ShopID: "s", Fee: "x"}} }, wantErr: true},
		"zero disables promo": {mutate: func(c *Config) { c.App.FreeShippingThreshold = "0" }},
		"negative pay wait":   {mutate: func(c *Config) { c.App.PaymentTimeout = -time.Second }, wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMergeYAML(t *testing.T) {
	base := DefaultConfig()
	merged, err := MergeYAML(base, "app:\n  freeShippingThreshold: \"1000000\"\n")
	require.NoError(t, err)
	assert.Equal(t, "1000000", merged.Threshold().String())
	assert.Equal(t, "500000", base.Threshold().String(), "base must not be modified")

	_, err = MergeYAML(base, "app:\n  freeShippingThreshold: \"-5\"\n")
	assert.Error(t, err)
}

func TestCurrentConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.App.Env = "test"
	SetCurrentConfig(cfg)
	assert.Equal(t, "test", GetCurrentConfig().App.Env)
}

func TestNewRootHandler(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /hello", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hi"))
	})
	h := NewRootHandler(mux)

	for path, want := range map[string]int{"/healthz": 200, "/metrics": 200, "/hello": 200, "/missing": 404} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, rec.Code, path)
	}
}

func TestAppCtx_OnShutdown(t *testing.T) {
	a := &AppCtx{}
	a.OnShutdown(nil)
	a.OnShutdown(nil)
	assert.Len(t, a.cleanups, 2)
}
