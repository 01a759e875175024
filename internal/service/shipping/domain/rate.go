package domain

import "github.com/shopspring/decimal"

// Rate 是某个店铺的固定运费配置
type Rate struct {
	ShopID      string
	Fee         decimal.Decimal
	LeadTime    string
	ServiceName string
}

// Quote 是返回给 checkout 的单店报价
type Quote struct {
	ShopID      string          `json:"shop_id"`
	Fee         decimal.Decimal `json:"fee"`
	LeadTime    string          `json:"lead_time"`
	Success     bool            `json:"success"`
	ServiceName string          `json:"service_name"`
}

// RateTable 按店铺索引运费
type RateTable struct {
	rates map[string]Rate
}

// NewRateTable 同一店铺配置多次时以第一条为准
func NewRateTable(rates []Rate) *RateTable {
	t := &RateTable{rates: make(map[string]Rate, len(rates))}
	for _, r := range rates {
		if _, ok := t.rates[r.ShopID]; ok {
			continue
		}
		t.rates[r.ShopID] = r
	}
	return t
}

// Quote 按请求顺序给出报价，未配置的店铺不出现在结果里，重复的店铺只报一次
func (t *RateTable) Quote(shopIDs []string) []Quote {
	quotes := make([]Quote, 0, len(shopIDs))
	seen := make(map[string]struct{}, len(shopIDs))
	for _, id := range shopIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		r, ok := t.rates[id]
		if !ok {
			continue
		}
		quotes = append(quotes, Quote{
			ShopID:      r.ShopID,
			Fee:         r.Fee,
			LeadTime:    r.LeadTime,
			Success:     true,
			ServiceName: r.ServiceName,
		})
	}
	return quotes
}

// Len 返回已配置的店铺数
func (t *RateTable) Len() int { return len(t.rates) }
