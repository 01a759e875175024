package saga

import (
	"storefront/internal/pkg/logger"
	"storefront/internal/pkg/tracing"
	"storefront/internal/service/checkout/domain"
)

// PublishHandler 发布 OrderPlaced 事件。订单已经落库，发布失败只记录，不回滚订单。
type PublishHandler struct {
	NextHandler
}

func (h *PublishHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.Publish")
	event := domain.NewOrderEvent(domain.EventOrderPlaced, orderCtx.Order)
	event.TraceID = tracing.GetTraceIDFromContext(ctx)
	if err := orderCtx.Publisher.Publish(ctx, event); err != nil {
		span.RecordError(err)
		logger.Ctx(ctx).Error().Err(err).Str("order_id", orderCtx.Order.ID).Msg("failed to publish order placed event")
	}
	span.End()
	return h.executeNext(orderCtx)
}
