package saga

import (
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/codes"

	"storefront/internal/pkg/logger"
)

// LockHandler 保证同一用户同一时间只有一个下单流程，锁覆盖后续所有步骤
type LockHandler struct {
	NextHandler
}

func (h *LockHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.Lock")
	unlock, err := orderCtx.Locker.Lock(ctx, "checkout-"+orderCtx.UserID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to acquire checkout lock")
		span.End()
		return errors.Wrap(err, "acquire checkout lock")
	}
	span.End()

	defer func() {
		if err := unlock(); err != nil {
			logger.Ctx(orderCtx.Ctx).Error().Err(err).Str("user_id", orderCtx.UserID).Msg("failed to release checkout lock")
		}
	}()
	return h.executeNext(orderCtx)
}
