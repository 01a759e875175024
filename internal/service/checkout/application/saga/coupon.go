package saga

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"storefront/internal/pkg/logger"
	"storefront/internal/service/checkout/domain"
	"storefront/internal/service/checkout/domain/port"
)

// CouponHandler 冻结优惠券并把折扣写入订单金额；没有优惠码时直接跳过
type CouponHandler struct {
	NextHandler
}

func (h *CouponHandler) Handle(orderCtx *OrderContext) error {
	if orderCtx.CouponCode == "" || orderCtx.Promotion == nil {
		return h.executeNext(orderCtx)
	}

	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.Coupon")
	req := port.CouponRequest{
		UserID:     orderCtx.UserID,
		CouponCode: orderCtx.CouponCode,
		OrderID:    orderCtx.Order.ID,
		Subtotal:   orderCtx.Totals.Subtotal,
		ShopIDs:    domain.SelectedShopIDs(orderCtx.Groups),
		ItemCount:  orderCtx.Totals.SelectedQuantity,
	}
	discount, err := orderCtx.Promotion.UseCoupon(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "coupon use failed")
		span.End()
		return err
	}
	span.SetAttributes(attribute.String("coupon.discount", discount.String()))
	span.End()

	orderCtx.AddCompensation(func(ctx context.Context) {
		if err := orderCtx.Promotion.CancelCoupon(ctx, req); err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("coupon", req.CouponCode).Str("order_id", req.OrderID).Msg("CRITICAL: failed to release frozen coupon")
		}
	})

	orderCtx.Totals = orderCtx.Totals.WithDiscount(discount)
	orderCtx.Order.Totals = orderCtx.Totals
	return h.executeNext(orderCtx)
}
