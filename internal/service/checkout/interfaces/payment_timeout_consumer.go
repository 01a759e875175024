package interfaces

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/pkg/logger"
	"storefront/internal/pkg/mq"
	"storefront/internal/service/checkout/domain"
)

// OrderCanceller 是超时检查用到的应用服务能力
type OrderCanceller interface {
	CancelOrder(ctx context.Context, userID, orderID string) (*domain.Order, error)
}

// PaymentTimeoutConsumer 消费 OrderPlaced 事件，到期仍未支付的订单自动取消。
// 同一分区内的事件按时间有序，队头没到期时后面的消息也不会到期。
type PaymentTimeoutConsumer struct {
	reader  mq.MessageReader
	orders  OrderCanceller
	timeout time.Duration
	tracer  trace.Tracer

	maxRetries int
	backoff    time.Duration
	now        func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPaymentTimeoutConsumer(reader mq.MessageReader, orders OrderCanceller, timeout time.Duration) *PaymentTimeoutConsumer {
	return &PaymentTimeoutConsumer{
		reader:     reader,
		orders:     orders,
		timeout:    timeout,
		tracer:     otel.Tracer("checkout-payment-timeout"),
		maxRetries: 3,
		backoff:    time.Second,
		now:        time.Now,
	}
}

func (c *PaymentTimeoutConsumer) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		logger.Ctx(ctx).Info().Dur("timeout", c.timeout).Msg("Payment timeout checker started")
		for {
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					logger.Ctx(ctx).Info().Msg("Payment timeout checker shutting down")
					return
				}
				logger.Ctx(ctx).Error().Err(err).Msg("could not fetch message, retrying")
				if !sleep(ctx, c.backoff) {
					return
				}
				continue
			}

			if !c.handle(ctx, msg) {
				// 退出时没处理完的消息不提交，重启后重新检查
				return
			}
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				logger.Ctx(ctx).Error().Err(err).Int64("offset", msg.Offset).Msg("failed to commit message")
			}
		}
	}()
}

func (c *PaymentTimeoutConsumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	return c.reader.Close()
}

// handle 等到订单到期后执行取消；返回 false 表示 ctx 已结束，消息没有处理
func (c *PaymentTimeoutConsumer) handle(ctx context.Context, msg kafka.Message) bool {
	var event domain.OrderEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		logger.Ctx(ctx).Error().Err(err).Int64("offset", msg.Offset).Msg("failed to unmarshal order event, skipping")
		return true
	}
	if event.Type != domain.EventOrderPlaced {
		return true
	}

	placedAt := event.At
	if placedAt.IsZero() {
		placedAt = msg.Time
	}
	if wait := placedAt.Add(c.timeout).Sub(c.now()); wait > 0 {
		if !sleep(ctx, wait) {
			return false
		}
	}

	msgCtx := mq.ExtractTraceContext(ctx, msg)
	msgCtx, span := c.tracer.Start(msgCtx, "checkout.PaymentTimeoutCheck", trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(attribute.String("order.id", event.OrderID), attribute.String("user.id", event.UserID)))
	defer span.End()

	var err error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		_, err = c.orders.CancelOrder(msgCtx, event.UserID, event.OrderID)
		if err == nil || isSettled(err) || attempt == c.maxRetries {
			break
		}
		logger.Ctx(msgCtx).Warn().Err(err).Int("attempt", attempt).Str("order_id", event.OrderID).Msg("timeout cancel failed, retrying")
		if !sleep(ctx, c.backoff) {
			return false
		}
	}

	switch {
	case err == nil:
		span.AddEvent("Unpaid order cancelled")
		logger.Ctx(msgCtx).Info().Str("order_id", event.OrderID).Msg("Order cancelled after payment timeout")
	case isSettled(err):
		span.AddEvent("Order already settled")
	default:
		span.RecordError(err)
		logger.Ctx(msgCtx).Error().Err(err).Str("order_id", event.OrderID).Msg("CRITICAL: failed to cancel unpaid order")
	}
	return true
}

// isSettled 订单已支付、已取消或不存在时无需再处理
func isSettled(err error) bool {
	return errors.Is(err, domain.ErrInvalidOrderState) || errors.Is(err, domain.ErrOrderNotFound)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
