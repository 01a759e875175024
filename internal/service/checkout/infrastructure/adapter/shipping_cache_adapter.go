package adapter

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"storefront/internal/pkg/logger"
	"storefront/internal/pkg/metrics"
	"storefront/internal/service/checkout/domain"
	"storefront/internal/service/checkout/domain/port"
)

const quoteKeyPrefix = "storefront:quote:"

// CachedShippingAdapter 在运费服务前加一层 Redis 缓存。
// 只缓存成功的报价；Redis 不可用时直接回源。
type CachedShippingAdapter struct {
	next port.ShippingQuoteService
	rdb  redis.Cmdable
	ttl  time.Duration
}

func NewCachedShippingAdapter(next port.ShippingQuoteService, rdb redis.Cmdable, ttl time.Duration) *CachedShippingAdapter {
	return &CachedShippingAdapter{next: next, rdb: rdb, ttl: ttl}
}

func (a *CachedShippingAdapter) GetQuotes(ctx context.Context, shopIDs []string) ([]domain.ShippingQuote, error) {
	if len(shopIDs) == 0 {
		return []domain.ShippingQuote{}, nil
	}

	keys := make([]string, len(shopIDs))
	for i, id := range shopIDs {
		keys[i] = quoteKeyPrefix + id
	}

	cached := make(map[string]domain.ShippingQuote, len(shopIDs))
	values, err := a.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("quote cache unavailable, falling back to shipping service")
		values = nil
	}
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var q domain.ShippingQuote
		if err := json.Unmarshal([]byte(s), &q); err != nil {
			continue
		}
		cached[shopIDs[i]] = q
	}

	var misses []string
	for _, id := range shopIDs {
		if _, ok := cached[id]; !ok {
			misses = append(misses, id)
		}
	}
	metrics.QuoteCache.WithLabelValues("hit").Add(float64(len(cached)))
	metrics.QuoteCache.WithLabelValues("miss").Add(float64(len(misses)))

	if len(misses) > 0 {
		fresh, err := a.next.GetQuotes(ctx, misses)
		if err != nil {
			return nil, err
		}
		for _, q := range fresh {
			if _, dup := cached[q.ShopID]; dup {
				continue
			}
			cached[q.ShopID] = q
			if q.Success {
				a.store(ctx, q)
			}
		}
	}

	// 按请求顺序输出，没有报价的店铺不出现
	quotes := make([]domain.ShippingQuote, 0, len(cached))
	for _, id := range shopIDs {
		if q, ok := cached[id]; ok {
			quotes = append(quotes, q)
			delete(cached, id)
		}
	}
	return quotes, nil
}

func (a *CachedShippingAdapter) store(ctx context.Context, q domain.ShippingQuote) {
	data, err := json.Marshal(q)
	if err != nil {
		return
	}
	if err := a.rdb.Set(ctx, quoteKeyPrefix+q.ShopID, data, a.ttl).Err(); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("shop_id", q.ShopID).Msg("failed to cache shipping quote")
	}
}
