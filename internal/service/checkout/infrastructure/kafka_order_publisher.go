package infrastructure

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"storefront/internal/pkg/logger"
	"storefront/internal/pkg/mq"
	"storefront/internal/pkg/tracing"
	"storefront/internal/service/checkout/domain"
)

// KafkaOrderPublisher 实现了 port.OrderEventPublisher，以用户ID为 key 保证同一用户事件有序
type KafkaOrderPublisher struct {
	writer mq.MessageWriter
	topic  string
}

func NewKafkaOrderPublisher(writer mq.MessageWriter, topic string) *KafkaOrderPublisher {
	return &KafkaOrderPublisher{writer: writer, topic: topic}
}

func (p *KafkaOrderPublisher) Publish(ctx context.Context, event *domain.OrderEvent) error {
	if event.TraceID == "" {
		event.TraceID = tracing.GetTraceIDFromContext(ctx)
	}
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to marshal order event")
	}

	if err := mq.ProduceMessage(ctx, p.writer, p.topic, []byte(event.UserID), eventBytes); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("order_id", event.OrderID).Str("type", event.Type).Msg("Failed to publish order event")
		return err
	}
	logger.Ctx(ctx).Info().Str("order_id", event.OrderID).Str("type", event.Type).Msg("Order event published")
	return nil
}
