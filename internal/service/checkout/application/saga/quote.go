package saga

import (
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"storefront/internal/service/checkout/domain"
)

// QuoteHandler 获取运费报价并计算结算金额，随后生成 CREATED 状态的订单草稿。
// 下单时运费服务不可用直接失败，不按零运费下单。
type QuoteHandler struct {
	NextHandler
}

func (h *QuoteHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.Quote")
	defer span.End()

	quotes, err := orderCtx.Shipping.GetQuotes(ctx, domain.SelectedShopIDs(orderCtx.Groups))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "shipping quote failed")
		return errors.Wrap(err, "shipping service error")
	}

	orderCtx.Totals = domain.Aggregate(orderCtx.Groups, quotes, orderCtx.Threshold)
	order, err := domain.NewOrder(orderCtx.UserID, orderCtx.Groups, orderCtx.Address, orderCtx.Totals, orderCtx.CouponCode)
	if err != nil {
		return err
	}
	orderCtx.Order = order

	span.SetAttributes(
		attribute.String("order.id", order.ID),
		attribute.String("checkout.subtotal", orderCtx.Totals.Subtotal.String()),
		attribute.String("checkout.shipping", orderCtx.Totals.ShippingCost.String()),
	)
	return h.executeNext(orderCtx)
}
