package application

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/pkg/logger"
	"storefront/internal/service/shipping/domain"
)

// RateSource 提供当前生效的运费表
type RateSource interface {
	Table() *domain.RateTable
}

// QuoteService 计算各店铺的运费报价
type QuoteService struct {
	rates  RateSource
	tracer trace.Tracer
}

func NewQuoteService(rates RateSource, tracer trace.Tracer) *QuoteService {
	return &QuoteService{rates: rates, tracer: tracer}
}

// GetQuotes 未配置运费的店铺不返回报价，由调用方决定如何处理
func (s *QuoteService) GetQuotes(ctx context.Context, shopIDs []string) []domain.Quote {
	ctx, span := s.tracer.Start(ctx, "service.GetQuotes", trace.WithAttributes(
		attribute.Int("shipping.requested", len(shopIDs)),
	))
	defer span.End()

	quotes := s.rates.Table().Quote(shopIDs)
	span.SetAttributes(attribute.Int("shipping.quoted", len(quotes)))
	if missing := len(shopIDs) - len(quotes); missing > 0 {
		span.AddEvent("Some shops have no shipping rate")
		logger.Ctx(ctx).Warn().Strs("shop_ids", shopIDs).Int("missing", missing).Msg("no shipping rate for some shops")
	}
	logger.Ctx(ctx).Info().Int("quoted", len(quotes)).Msg("Shipping quote calculated")
	return quotes
}
