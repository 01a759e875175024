package interfaces

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"storefront/internal/pkg/logger"
	"storefront/internal/pkg/mq"
	"storefront/internal/service/promotion/application"
	"storefront/internal/service/promotion/domain"
)

// 订单事件类型，与 checkout 服务发布的事件一致
const (
	eventOrderCancelled = "OrderCancelled"
	eventOrderPaid      = "OrderPaid"
)

// orderEvent 只解析优惠服务关心的字段
type orderEvent struct {
	Type       string `json:"type"`
	OrderID    string `json:"orderId"`
	UserID     string `json:"userId"`
	CouponCode string `json:"couponCode"`
}

// OrderEventConsumer 监听订单事件：订单取消时释放冻结的优惠券，订单支付时核销
type OrderEventConsumer struct {
	reader     mq.MessageReader
	service    CouponUseCases
	maxRetries int
	backoff    time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrderEventConsumer 创建一个新的Kafka消费者适配器
func NewOrderEventConsumer(reader mq.MessageReader, service CouponUseCases) *OrderEventConsumer {
	return &OrderEventConsumer{reader: reader, service: service, maxRetries: 3, backoff: time.Second}
}

// Start 开始监听Kafka主题，直到 Stop 被调用或 ctx 结束
func (c *OrderEventConsumer) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		logger.Ctx(ctx).Info().Msg("Order event consumer started")
		for {
			// 使用 FetchMessage 而不是 ReadMessage，处理完成后再提交 offset
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					logger.Ctx(ctx).Info().Msg("Order event consumer shutting down")
					return
				}
				logger.Ctx(ctx).Error().Err(err).Msg("could not fetch message, retrying")
				if !sleep(ctx, c.backoff) {
					return
				}
				continue
			}

			msgCtx := mq.ExtractTraceContext(ctx, msg)
			c.processMessage(msgCtx, msg)

			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				logger.Ctx(ctx).Error().Err(err).Int64("offset", msg.Offset).Msg("failed to commit message")
			}
		}
	}()
}

// Stop 优雅地停止消费者
func (c *OrderEventConsumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	return c.reader.Close()
}

// processMessage 反序列化消息并调用应用服务；无法处理的消息记录日志后跳过
func (c *OrderEventConsumer) processMessage(ctx context.Context, msg kafka.Message) {
	var event orderEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		logger.Ctx(ctx).Error().Err(err).Int64("offset", msg.Offset).Msg("failed to unmarshal order event, skipping")
		return
	}
	if event.CouponCode == "" {
		return
	}

	req := &application.CouponRequest{UserID: event.UserID, CouponCode: event.CouponCode, OrderID: event.OrderID}
	var handle func(context.Context, *application.CouponRequest) error
	switch event.Type {
	case eventOrderCancelled:
		handle = c.service.CancelCouponUsage
	case eventOrderPaid:
		handle = c.service.ConfirmCouponUsage
	default:
		return
	}

	var err error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err = handle(ctx, req); err == nil || isPermanent(err) || attempt == c.maxRetries {
			break
		}
		logger.Ctx(ctx).Warn().Err(err).Int("attempt", attempt).Str("order_id", event.OrderID).Msg("coupon update failed, retrying")
		if !sleep(ctx, c.backoff) {
			break
		}
	}
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("type", event.Type).Str("order_id", event.OrderID).Str("coupon", event.CouponCode).
			Msg("CRITICAL: failed to apply order event to coupon")
	}
}

// isPermanent 领域错误重试也不会成功
func isPermanent(err error) bool {
	return errors.Is(err, domain.ErrCouponNotFound) ||
		errors.Is(err, domain.ErrCouponStatusInvalid) ||
		errors.Is(err, domain.ErrCouponAlreadyUsed)
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
