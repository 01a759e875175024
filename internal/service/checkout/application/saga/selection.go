package saga

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"storefront/internal/service/checkout/domain"
)

// SelectionHandler 读取购物车和地址簿，确认有勾选商品和收货地址
type SelectionHandler struct {
	NextHandler
}

func (h *SelectionHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.Selection")
	defer span.End()

	cart, err := orderCtx.Carts.Get(ctx, orderCtx.UserID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load cart")
		return err
	}
	groups := cart.SelectedGroups()
	if len(groups) == 0 {
		span.SetStatus(codes.Error, "nothing selected")
		return domain.ErrNothingSelected
	}

	book, err := orderCtx.Addresses.Get(ctx, orderCtx.UserID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load address book")
		return err
	}
	addr, ok := book.Selected()
	if !ok {
		span.SetStatus(codes.Error, "no address selected")
		return domain.ErrNoAddressSelected
	}

	orderCtx.Cart = cart
	orderCtx.Groups = groups
	orderCtx.Address = addr
	span.SetAttributes(attribute.Int("checkout.shop_count", len(groups)))
	return h.executeNext(orderCtx)
}
