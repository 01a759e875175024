// internal/service/checkout/application/service.go
package application

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/pkg/logger"
	"storefront/internal/pkg/metrics"
	"storefront/internal/pkg/tracing"
	"storefront/internal/service/checkout/application/saga"
	"storefront/internal/service/checkout/domain"
	"storefront/internal/service/checkout/domain/port"
)

// Dependencies 是 CheckoutService 的全部依赖；Promotion 和 Notifier 可以为 nil
type Dependencies struct {
	Carts     domain.CartRepository
	Addresses domain.AddressRepository
	Orders    domain.OrderRepository
	Shipping  port.ShippingQuoteService
	Promotion port.PromotionService
	Publisher port.OrderEventPublisher
	Locker    port.Locker
	Notifier  port.TotalsNotifier
	Tracer    trace.Tracer
	// Settings 每次调用都重新读取，配置中心推送后立即生效
	Settings          func() Settings
	ProcessingTimeout time.Duration
}

// CheckoutService 编排购物车、地址和下单用例
type CheckoutService struct {
	deps  Dependencies
	chain saga.Handler
}

func NewCheckoutService(deps Dependencies) *CheckoutService {
	if deps.ProcessingTimeout <= 0 {
		deps.ProcessingTimeout = 30 * time.Second
	}
	return &CheckoutService{deps: deps, chain: saga.BuildPlaceOrderChain()}
}

func lockKey(userID string) string { return "checkout-" + userID }

// GetCart 返回购物车和实时结算金额
func (s *CheckoutService) GetCart(ctx context.Context, userID string) (*CartView, error) {
	ctx, span := s.deps.Tracer.Start(ctx, "app.GetCart")
	defer span.End()

	cart, err := s.deps.Carts.Get(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &CartView{Cart: cart, Totals: s.computeTotals(ctx, cart)}, nil
}

func (s *CheckoutService) AddItem(ctx context.Context, userID string, req AddItemRequest) (*CartView, error) {
	return s.mutateCart(ctx, "app.AddItem", userID, func(c *domain.Cart) error {
		_, err := c.AddItem(req.ShopID, req.ShopName, req.toItem())
		return err
	})
}

func (s *CheckoutService) UpdateItem(ctx context.Context, userID, itemID string, req UpdateItemRequest) (*CartView, error) {
	return s.mutateCart(ctx, "app.UpdateItem", userID, func(c *domain.Cart) error {
		if req.Quantity != nil {
			if err := c.UpdateQuantity(itemID, *req.Quantity); err != nil {
				return err
			}
		}
		if req.Selected != nil {
			if err := c.SetItemSelected(itemID, *req.Selected); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *CheckoutService) RemoveItem(ctx context.Context, userID, itemID string) (*CartView, error) {
	return s.mutateCart(ctx, "app.RemoveItem", userID, func(c *domain.Cart) error {
		return c.RemoveItem(itemID)
	})
}

func (s *CheckoutService) SelectShop(ctx context.Context, userID, shopID string, selected bool) (*CartView, error) {
	return s.mutateCart(ctx, "app.SelectShop", userID, func(c *domain.Cart) error {
		return c.SetShopSelected(shopID, selected)
	})
}

func (s *CheckoutService) SelectAll(ctx context.Context, userID string, selected bool) (*CartView, error) {
	return s.mutateCart(ctx, "app.SelectAll", userID, func(c *domain.Cart) error {
		c.SetAllSelected(selected)
		return nil
	})
}

// mutateCart 在用户锁内完成 读取-修改-保存，随后重新计算并推送结算金额
func (s *CheckoutService) mutateCart(ctx context.Context, op, userID string, mutate func(c *domain.Cart) error) (*CartView, error) {
	ctx, span := s.deps.Tracer.Start(ctx, op, trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	unlock, err := s.deps.Locker.Lock(ctx, lockKey(userID))
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "acquire cart lock")
	}
	defer func() {
		if err := unlock(); err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("user_id", userID).Msg("failed to release cart lock")
		}
	}()

	cart, err := s.deps.Carts.Get(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := mutate(cart); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if err := s.deps.Carts.Save(ctx, cart); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to save cart")
		return nil, err
	}

	totals := s.computeTotals(ctx, cart)
	s.notify(userID, totals)
	return &CartView{Cart: cart, Totals: totals}, nil
}

// computeTotals 获取报价并计算金额。展示场景下运费服务不可用时降级为没有报价（零运费，Quoted=false）。
func (s *CheckoutService) computeTotals(ctx context.Context, cart *domain.Cart) domain.CheckoutTotals {
	var quotes []domain.ShippingQuote
	if shopIDs := cart.SelectedShopIDs(); len(shopIDs) > 0 {
		q, err := s.deps.Shipping.GetQuotes(ctx, shopIDs)
		if err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("user_id", cart.UserID).Msg("shipping quotes unavailable, showing totals without shipping")
		}
		quotes = q
	}
	totals := domain.Aggregate(cart.Groups, quotes, s.settings().FreeShippingThreshold)
	metrics.TotalsComputed.WithLabelValues(string(totals.State)).Inc()
	return totals
}

func (s *CheckoutService) notify(userID string, totals domain.CheckoutTotals) {
	if s.deps.Notifier == nil || !s.settings().LiveTotalsEnabled {
		return
	}
	s.deps.Notifier.NotifyTotals(userID, totals)
}

func (s *CheckoutService) settings() Settings {
	if s.deps.Settings == nil {
		return Settings{}
	}
	return s.deps.Settings()
}

// PreviewTotals 计算结算页金额，可选试算优惠券；优惠券不可用时返回不含折扣的金额和原因
func (s *CheckoutService) PreviewTotals(ctx context.Context, userID, couponCode string) (*TotalsView, error) {
	ctx, span := s.deps.Tracer.Start(ctx, "app.PreviewTotals")
	defer span.End()

	cart, err := s.deps.Carts.Get(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	view := &TotalsView{Totals: s.computeTotals(ctx, cart)}
	if couponCode == "" {
		return view, nil
	}

	result := &CouponResult{Code: couponCode}
	view.Coupon = result
	switch {
	case !s.settings().CouponsEnabled || s.deps.Promotion == nil:
		result.Reason = "coupons are disabled"
	case view.Totals.State != domain.CartStateReady:
		result.Reason = domain.ErrNothingSelected.Error()
	default:
		discount, err := s.deps.Promotion.PreviewCoupon(ctx, port.CouponRequest{
			UserID:     userID,
			CouponCode: couponCode,
			Subtotal:   view.Totals.Subtotal,
			ShopIDs:    cart.SelectedShopIDs(),
			ItemCount:  view.Totals.SelectedQuantity,
		})
		switch {
		case errors.Is(err, port.ErrCouponRejected):
			result.Reason = err.Error()
		case err != nil:
			logger.Ctx(ctx).Warn().Err(err).Str("coupon", couponCode).Msg("promotion service unavailable")
			result.Reason = "promotion service unavailable"
		default:
			view.Totals = view.Totals.WithDiscount(discount)
			result.Applied = true
		}
	}
	metrics.CouponDecisions.WithLabelValues("preview", couponOutcome(result)).Inc()
	return view, nil
}

func couponOutcome(r *CouponResult) string {
	if r.Applied {
		return "applied"
	}
	return "rejected"
}

// GetAddressBook 返回用户地址簿
func (s *CheckoutService) GetAddressBook(ctx context.Context, userID string) (*domain.AddressBook, error) {
	return s.deps.Addresses.Get(ctx, userID)
}

// ApplyAddressCommand 在用户锁内对地址簿执行一次状态机命令并保存
func (s *CheckoutService) ApplyAddressCommand(ctx context.Context, userID string, cmd AddressCommand) (*domain.AddressBook, error) {
	ctx, span := s.deps.Tracer.Start(ctx, "app.ApplyAddressCommand", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.String("address.action", cmd.Action),
	))
	defer span.End()

	unlock, err := s.deps.Locker.Lock(ctx, lockKey(userID))
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "acquire address lock")
	}
	defer func() {
		if err := unlock(); err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("user_id", userID).Msg("failed to release address lock")
		}
	}()

	book, err := s.deps.Addresses.Get(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	switch cmd.Action {
	case AddressBeginSelect:
		err = book.BeginSelect()
	case AddressSelect:
		err = book.Select(cmd.AddressID)
	case AddressBeginEdit:
		err = book.BeginEdit(cmd.AddressID)
	case AddressBeginAdd:
		err = book.BeginAdd()
	case AddressSave:
		if cmd.Address == nil {
			err = domain.ErrInvalidAddress
			break
		}
		_, err = book.Save(*cmd.Address)
	case AddressCancel:
		err = book.Cancel()
	case AddressRemove:
		err = book.Remove(cmd.AddressID)
	default:
		err = domain.ErrInvalidTransition
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := s.deps.Addresses.Save(ctx, book); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return book, nil
}

// PlaceOrder 执行下单流程，任一步骤失败都会执行已注册的补偿
func (s *CheckoutService) PlaceOrder(ctx context.Context, userID string, req PlaceOrderRequest) (*domain.Order, error) {
	ctx, span := s.deps.Tracer.Start(ctx, "app.PlaceOrder", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	processingCtx, cancel := context.WithTimeout(ctx, s.deps.ProcessingTimeout)
	defer cancel()

	settings := s.settings()
	couponCode := req.CouponCode
	if !settings.CouponsEnabled {
		couponCode = ""
	}

	orderCtx := &saga.OrderContext{
		Ctx:        processingCtx,
		Tracer:     s.deps.Tracer,
		UserID:     userID,
		CouponCode: couponCode,
		Threshold:  settings.FreeShippingThreshold,
		Carts:      s.deps.Carts,
		Addresses:  s.deps.Addresses,
		Orders:     s.deps.Orders,
		Locker:     s.deps.Locker,
		Shipping:   s.deps.Shipping,
		Promotion:  s.deps.Promotion,
		Publisher:  s.deps.Publisher,
	}

	if err := s.chain.Handle(orderCtx); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("user_id", userID).Msg("Place order chain failed, compensation triggered")
		span.RecordError(err)
		span.SetStatus(codes.Error, "place order failed")
		// 补偿使用独立的 context，避免因下单超时而无法回滚
		compCtx := trace.ContextWithSpanContext(context.Background(), span.SpanContext())
		orderCtx.TriggerCompensation(compCtx)
		metrics.OrdersPlaced.WithLabelValues("failed").Inc()
		return nil, err
	}

	order := orderCtx.Order
	metrics.OrdersPlaced.WithLabelValues("placed").Inc()
	metrics.OrderAmount.Observe(order.Totals.Total.InexactFloat64())
	span.SetAttributes(attribute.String("order.id", order.ID))
	logger.Ctx(ctx).Info().Str("order_id", order.ID).Str("total", order.Totals.Total.String()).Msg("Order placed, pending payment")

	if cart := orderCtx.Cart; cart != nil {
		s.notify(userID, s.computeTotals(ctx, cart))
	}
	return order, nil
}

// GetOrder 只返回属于该用户的订单
func (s *CheckoutService) GetOrder(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	order, err := s.deps.Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

func (s *CheckoutService) ListOrders(ctx context.Context, userID string) ([]*domain.Order, error) {
	return s.deps.Orders.FindByUserID(ctx, userID)
}

// CancelOrder 取消待支付订单，冻结的优惠券由优惠服务消费 OrderCancelled 事件后释放
func (s *CheckoutService) CancelOrder(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	return s.transitionOrder(ctx, "app.CancelOrder", userID, orderID, domain.EventOrderCancelled, (*domain.Order).Cancel)
}

// PayOrder 标记订单已支付，优惠服务消费 OrderPaid 事件后核销优惠券
func (s *CheckoutService) PayOrder(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	return s.transitionOrder(ctx, "app.PayOrder", userID, orderID, domain.EventOrderPaid, (*domain.Order).Pay)
}

func (s *CheckoutService) transitionOrder(ctx context.Context, op, userID, orderID, eventType string, transition func(*domain.Order) error) (*domain.Order, error) {
	ctx, span := s.deps.Tracer.Start(ctx, op, trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	order, err := s.GetOrder(ctx, userID, orderID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	from := order.State
	if err := transition(order); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	// 条件更新：支付和超时取消同时发生时只有一方成功
	if err := s.deps.Orders.UpdateState(ctx, order.ID, from, order.State); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to update order state")
		return nil, err
	}

	event := domain.NewOrderEvent(eventType, order)
	event.TraceID = tracing.GetTraceIDFromContext(ctx)
	if err := s.deps.Publisher.Publish(ctx, event); err != nil {
		// 状态已经更新，事件丢失需要人工对账
		logger.Ctx(ctx).Error().Err(err).Str("order_id", order.ID).Str("type", eventType).Msg("CRITICAL: failed to publish order event")
	}
	return order, nil
}
