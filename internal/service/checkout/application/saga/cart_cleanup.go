package saga

import (
	"storefront/internal/pkg/logger"
)

// CartCleanupHandler 从购物车中移除已下单的商品，失败只记录
type CartCleanupHandler struct {
	NextHandler
}

func (h *CartCleanupHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.CartCleanup")
	defer span.End()

	removed := orderCtx.Cart.RemoveSelected()
	if err := orderCtx.Carts.Save(ctx, orderCtx.Cart); err != nil {
		span.RecordError(err)
		logger.Ctx(ctx).Error().Err(err).Str("order_id", orderCtx.Order.ID).Msg("failed to clean up cart after order")
	}
	span.AddEvent("cart cleaned")
	logger.Ctx(ctx).Info().Str("order_id", orderCtx.Order.ID).Int("removed", removed).Msg("ordered items removed from cart")
	return h.executeNext(orderCtx)
}
