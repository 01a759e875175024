package port

import (
	"context"
	"storefront/internal/service/checkout/domain"
)

// ShippingQuoteService 是运费服务的出站端口。
type ShippingQuoteService interface {
	// GetQuotes 获取给定店铺的运费报价，没有报价的店铺不出现在结果中。
	GetQuotes(ctx context.Context, shopIDs []string) ([]domain.ShippingQuote, error)
}
