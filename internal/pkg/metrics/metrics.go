// internal/pkg/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TotalsComputed 记录每次重新计算结算金额时购物车所处的状态
	TotalsComputed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "checkout",
		Name:      "totals_computed_total",
		Help:      "Number of checkout totals derivations by cart state.",
	}, []string{"state"})

	// QuoteCache 记录运费报价缓存命中情况
	QuoteCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "shipping",
		Name:      "quote_cache_total",
		Help:      "Shipping quote cache lookups by result (hit/miss).",
	}, []string{"result"})

	OrdersPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "checkout",
		Name:      "orders_placed_total",
		Help:      "Order placement attempts by result.",
	}, []string{"result"})

	OrderAmount = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "storefront",
		Subsystem: "checkout",
		Name:      "order_total_amount",
		Help:      "Total amount of successfully placed orders.",
		Buckets:   prometheus.ExponentialBuckets(10000, 2.5, 10),
	})

	CouponDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "promotion",
		Name:      "coupon_decisions_total",
		Help:      "Coupon evaluations by operation and outcome.",
	}, []string{"operation", "outcome"})
)
