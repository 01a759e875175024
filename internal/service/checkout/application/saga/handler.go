package saga

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/pkg/logger"
	"storefront/internal/service/checkout/domain"
	"storefront/internal/service/checkout/domain/port"
)

// OrderContext 在下单流程中传递上下文数据，所有外部依赖都是端口接口。
type OrderContext struct {
	Ctx        context.Context
	Tracer     trace.Tracer
	UserID     string
	CouponCode string
	Threshold  decimal.Decimal

	// 流程中逐步填充
	Cart    *domain.Cart
	Groups  []domain.ShopGroup
	Address domain.Address
	Totals  domain.CheckoutTotals
	Order   *domain.Order

	Carts     domain.CartRepository
	Addresses domain.AddressRepository
	Orders    domain.OrderRepository
	Locker    port.Locker
	Shipping  port.ShippingQuoteService
	Promotion port.PromotionService
	Publisher port.OrderEventPublisher

	compensations []func(ctx context.Context)
	compLock      sync.Mutex
}

// AddCompensation 注册补偿函数，后注册的先执行
func (c *OrderContext) AddCompensation(comp func(ctx context.Context)) {
	c.compLock.Lock()
	defer c.compLock.Unlock()
	c.compensations = append([]func(context.Context){comp}, c.compensations...)
}

func (c *OrderContext) TriggerCompensation(ctx context.Context) {
	c.compLock.Lock()
	defer c.compLock.Unlock()
	logger.Ctx(ctx).Info().Str("user_id", c.UserID).Int("count", len(c.compensations)).Msg("Executing compensation functions")
	for _, comp := range c.compensations {
		comp(ctx)
	}
	c.compensations = nil
}

type Handler interface {
	SetNext(handler Handler) Handler
	Handle(orderCtx *OrderContext) error
}

type NextHandler struct {
	next Handler
}

func (h *NextHandler) SetNext(handler Handler) Handler {
	h.next = handler
	return handler
}

func (h *NextHandler) executeNext(orderCtx *OrderContext) error {
	if h.next != nil {
		return h.next.Handle(orderCtx)
	}
	return nil
}
