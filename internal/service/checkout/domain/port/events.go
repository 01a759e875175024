package port

import (
	"context"
	"storefront/internal/service/checkout/domain"
)

// OrderEventPublisher 是订单事件的出站端口
type OrderEventPublisher interface {
	Publish(ctx context.Context, event *domain.OrderEvent) error
}

// TotalsNotifier 在购物车变化后推送重新计算的结算金额
type TotalsNotifier interface {
	NotifyTotals(userID string, totals domain.CheckoutTotals)
}
