package adapter

import (
	"context"
	"net/url"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"storefront/internal/pkg/constants"
	"storefront/internal/pkg/httpclient"
	"storefront/internal/service/checkout/domain"
)

const (
	quoteBatchSize   = 20 // 单次请求最多携带的店铺数
	quoteConcurrency = 4
)

type quoteDTO struct {
	ShopID      string          `json:"shop_id"`
	Fee         decimal.Decimal `json:"fee"`
	LeadTime    string          `json:"lead_time"`
	Success     bool            `json:"success"`
	ServiceName string          `json:"service_name"`
}

type quoteResponse struct {
	Quotes []quoteDTO `json:"quotes"`
}

// jsonGetter 是 httpclient.Client 中用到的部分
type jsonGetter interface {
	GetJSON(ctx context.Context, serviceName, path string, query url.Values, out any) error
}

// ShippingHTTPAdapter 实现了 port.ShippingQuoteService，店铺较多时分批并发请求。
type ShippingHTTPAdapter struct {
	client jsonGetter
}

var _ jsonGetter = (*httpclient.Client)(nil)

// NewShippingHTTPAdapter 创建一个新的运费适配器。
func NewShippingHTTPAdapter(client jsonGetter) *ShippingHTTPAdapter {
	return &ShippingHTTPAdapter{client: client}
}

// GetQuotes 结果顺序与 shopIDs 的批次顺序一致
func (a *ShippingHTTPAdapter) GetQuotes(ctx context.Context, shopIDs []string) ([]domain.ShippingQuote, error) {
	if len(shopIDs) == 0 {
		return []domain.ShippingQuote{}, nil
	}

	var batches [][]string
	for start := 0; start < len(shopIDs); start += quoteBatchSize {
		end := min(start+quoteBatchSize, len(shopIDs))
		batches = append(batches, shopIDs[start:end])
	}

	results := make([][]domain.ShippingQuote, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(quoteConcurrency)
	for i, batch := range batches {
		g.Go(func() error {
			var resp quoteResponse
			if err := a.client.GetJSON(gctx, constants.ShippingService, constants.ShippingGetQuotePath, url.Values{"shop_id": batch}, &resp); err != nil {
				return err
			}
			quotes := make([]domain.ShippingQuote, 0, len(resp.Quotes))
			for _, q := range resp.Quotes {
				quotes = append(quotes, domain.ShippingQuote(q))
			}
			results[i] = quotes
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []domain.ShippingQuote
	for _, r := range results {
		all = append(all, r...)
	}
	return all, nil
}
