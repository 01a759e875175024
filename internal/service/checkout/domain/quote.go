package domain

import "github.com/shopspring/decimal"

// ShippingQuote 是运费服务针对单个店铺给出的报价，只读
type ShippingQuote struct {
	ShopID      string          `json:"shopId"`
	Fee         decimal.Decimal `json:"fee"`
	LeadTime    string          `json:"leadTime"`
	Success     bool            `json:"success"`
	ServiceName string          `json:"serviceName"`
}

// ResolveQuote 按店铺ID查找运费报价，多个报价匹配时取第一个。
// 找不到时返回 false，聚合时该店铺按零运费处理。
func ResolveQuote(shopID string, quotes []ShippingQuote) (ShippingQuote, bool) {
	for _, q := range quotes {
		if q.ShopID == shopID {
			return q, true
		}
	}
	return ShippingQuote{}, false
}
