package infrastructure

import (
	"sync"

	"github.com/shopspring/decimal"

	"storefront/internal/pkg/bootstrap"
	"storefront/internal/service/shipping/domain"
)

// ConfigRateSource 从当前生效的配置中读取运费表，Nacos 推送新配置后下一次请求即生效
type ConfigRateSource struct {
	load func() *bootstrap.Config

	mu     sync.Mutex
	cached *bootstrap.Config
	table  *domain.RateTable
}

// NewConfigRateSource load 为 nil 时使用 bootstrap.GetCurrentConfig
func NewConfigRateSource(load func() *bootstrap.Config) *ConfigRateSource {
	if load == nil {
		load = bootstrap.GetCurrentConfig
	}
	return &ConfigRateSource{load: load}
}

// Table 配置快照未变化时复用上次构建的运费表
func (s *ConfigRateSource) Table() *domain.RateTable {
	cfg := s.load()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.table != nil && s.cached == cfg {
		return s.table
	}
	s.cached = cfg
	s.table = domain.NewRateTable(toDomainRates(cfg.Shipping.Rates))
	return s.table
}

func toDomainRates(rates []bootstrap.ShippingRate) []domain.Rate {
	out := make([]domain.Rate, 0, len(rates))
	for _, r := range rates {
		// 配置加载时已校验过金额格式
		fee, err := decimal.NewFromString(r.Fee)
		if err != nil {
			continue
		}
		out = append(out, domain.Rate{ShopID: r.ShopID, Fee: fee, LeadTime: r.LeadTime, ServiceName: r.ServiceName})
	}
	return out
}
