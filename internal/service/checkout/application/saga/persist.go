package saga

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/codes"

	"storefront/internal/pkg/logger"
	"storefront/internal/service/checkout/domain"
)

// PersistHandler 将订单置为待支付并持久化
type PersistHandler struct {
	NextHandler
}

func (h *PersistHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.Persist")

	if err := orderCtx.Order.MarkAsPendingPayment(); err != nil {
		span.End()
		return err
	}
	if err := orderCtx.Orders.Save(ctx, orderCtx.Order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to save order")
		span.End()
		return errors.Wrap(err, "failed to save pending payment order")
	}
	span.AddEvent("Pending payment order saved to DB.")
	span.End()

	order := orderCtx.Order
	orderCtx.AddCompensation(func(ctx context.Context) {
		// 只回滚仍在待支付的订单，已支付或已取消的订单保持原状态
		err := orderCtx.Orders.UpdateState(ctx, order.ID, domain.StatePendingPayment, domain.StateFailed)
		switch {
		case err == nil:
			order.MarkAsFailed()
		case errors.Is(err, domain.ErrInvalidOrderState):
			logger.Ctx(ctx).Warn().Str("order_id", order.ID).Msg("Order already left PENDING_PAYMENT, skip marking FAILED")
		default:
			logger.Ctx(ctx).Error().Err(err).Str("order_id", order.ID).Msg("CRITICAL: failed to mark order as FAILED")
		}
	})
	return h.executeNext(orderCtx)
}
