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
	"storefront/internal/service/promotion/domain"
)

// PromotionService 定义了优惠服务提供的所有业务用例
type PromotionService struct {
	couponRepo domain.CouponRepository
	rules      domain.RuleEngine
	tracer     trace.Tracer
	now        func() time.Time
}

// NewPromotionService 创建一个新的优惠服务实例；rules 为 nil 时不评估模板上的表达式
func NewPromotionService(repo domain.CouponRepository, rules domain.RuleEngine, tracer trace.Tracer) *PromotionService {
	return &PromotionService{
		couponRepo: repo,
		rules:      rules,
		tracer:     tracer,
		now:        time.Now,
	}
}

func (req *CouponRequest) fact() domain.Fact {
	return domain.Fact{
		UserID:    req.UserID,
		Subtotal:  req.Subtotal,
		ShopIDs:   req.ShopIDs,
		ItemCount: req.ItemCount,
	}
}

func (s *PromotionService) startSpan(ctx context.Context, name string, req *CouponRequest) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("user.id", req.UserID),
		attribute.String("coupon.code", req.CouponCode),
		attribute.String("order.id", req.OrderID),
	))
}

// PreviewCoupon 试算优惠金额，不改变优惠券状态
func (s *PromotionService) PreviewCoupon(ctx context.Context, req *CouponRequest) (*CouponResponse, error) {
	ctx, span := s.startSpan(ctx, "service.PreviewCoupon", req)
	defer span.End()

	coupon, err := s.couponRepo.FindByCode(ctx, req.CouponCode)
	if err != nil {
		span.RecordError(err)
		metrics.CouponDecisions.WithLabelValues("preview", "rejected").Inc()
		return nil, err
	}
	discount, err := coupon.CanUse(req.fact(), s.now(), s.rules)
	if err != nil {
		span.RecordError(err)
		metrics.CouponDecisions.WithLabelValues("preview", "rejected").Inc()
		return nil, err
	}

	metrics.CouponDecisions.WithLabelValues("preview", "applied").Inc()
	span.SetAttributes(attribute.String("coupon.discount", discount.String()))
	return &CouponResponse{CouponCode: coupon.CouponCode, Discount: discount, Status: string(coupon.Status)}, nil
}

// UseCoupon 校验并冻结优惠券。同一订单重复提交时返回相同的优惠金额。
func (s *PromotionService) UseCoupon(ctx context.Context, req *CouponRequest) (*CouponResponse, error) {
	ctx, span := s.startSpan(ctx, "service.UseCoupon", req)
	defer span.End()

	// 1. 从仓储获取优惠券实体
	coupon, err := s.couponRepo.FindByCode(ctx, req.CouponCode)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if coupon.Status == domain.StatusFrozen && req.OrderID != "" && coupon.OrderID == req.OrderID && coupon.Template != nil {
		discount := coupon.Template.Discount(req.Subtotal)
		logger.Ctx(ctx).Info().Str("coupon", req.CouponCode).Str("order_id", req.OrderID).Msg("Coupon already frozen for this order")
		return &CouponResponse{CouponCode: coupon.CouponCode, Discount: discount, Status: string(coupon.Status)}, nil
	}

	// 2. 调用领域对象的业务方法进行校验
	discount, err := coupon.CanUse(req.fact(), s.now(), s.rules)
	if err != nil {
		span.RecordError(err)
		metrics.CouponDecisions.WithLabelValues("use", "rejected").Inc()
		return nil, err
	}

	// 3. 冻结，支付成功后由 OrderPaid 事件核销，订单失败或取消时解冻
	if err := coupon.Freeze(req.OrderID); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := s.couponRepo.Save(ctx, coupon, domain.StatusUnused); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to freeze coupon")
		return nil, errors.Wrap(err, "failed to save coupon status")
	}

	metrics.CouponDecisions.WithLabelValues("use", "applied").Inc()
	logger.Ctx(ctx).Info().Str("coupon", req.CouponCode).Str("order_id", req.OrderID).Str("discount", discount.String()).Msg("Coupon frozen")
	return &CouponResponse{CouponCode: coupon.CouponCode, Discount: discount, Status: string(coupon.Status), Message: "Coupon applied successfully"}, nil
}

// CancelCouponUsage 是 UseCoupon 的补偿方法，把冻结的优惠券恢复为未使用。可以重复调用。
func (s *PromotionService) CancelCouponUsage(ctx context.Context, req *CouponRequest) error {
	ctx, span := s.startSpan(ctx, "service.CancelCouponUsage (Compensation)", req)
	defer span.End()

	coupon, err := s.couponRepo.FindByCode(ctx, req.CouponCode)
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "compensation failed")
	}

	changed, err := coupon.Unfreeze(req.OrderID)
	if err != nil {
		span.RecordError(err)
		return errors.Wrapf(err, "cannot release coupon in status %s", coupon.Status)
	}
	if !changed {
		span.AddEvent("Coupon already released")
		return nil
	}
	if err := s.couponRepo.Save(ctx, coupon, domain.StatusFrozen); err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "failed to save coupon status during compensation")
	}

	metrics.CouponDecisions.WithLabelValues("cancel", "released").Inc()
	logger.Ctx(ctx).Info().Str("coupon", req.CouponCode).Str("order_id", req.OrderID).Msg("Compensation: coupon rolled back to UNUSED")
	span.AddEvent("Coupon status rolled back to UNUSED")
	return nil
}

// ConfirmCouponUsage 在订单支付后核销优惠券。可以重复调用。
func (s *PromotionService) ConfirmCouponUsage(ctx context.Context, req *CouponRequest) error {
	ctx, span := s.startSpan(ctx, "service.ConfirmCouponUsage", req)
	defer span.End()

	coupon, err := s.couponRepo.FindByCode(ctx, req.CouponCode)
	if err != nil {
		span.RecordError(err)
		return err
	}

	changed, err := coupon.Confirm(req.OrderID, s.now())
	if err != nil {
		span.RecordError(err)
		return errors.Wrapf(err, "cannot confirm coupon in status %s", coupon.Status)
	}
	if !changed {
		return nil
	}
	if err := s.couponRepo.Save(ctx, coupon, domain.StatusFrozen); err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "failed to save coupon status")
	}

	metrics.CouponDecisions.WithLabelValues("confirm", "used").Inc()
	logger.Ctx(ctx).Info().Str("coupon", req.CouponCode).Str("order_id", req.OrderID).Msg("Coupon marked as USED")
	return nil
}
