package port

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ErrCouponRejected 表示优惠券不可用（不存在、过期、未达门槛等），属于用户可修正的错误
var ErrCouponRejected = errors.New("coupon rejected")

// CouponRequest 是结算时向优惠服务提交的核销/试算参数
type CouponRequest struct {
	UserID     string
	CouponCode string
	OrderID    string
	Subtotal   decimal.Decimal
	ShopIDs    []string
	ItemCount  int
}

// PromotionService 是优惠服务的出站端口。
type PromotionService interface {
	// PreviewCoupon 试算优惠金额，不改变优惠券状态
	PreviewCoupon(ctx context.Context, req CouponRequest) (decimal.Decimal, error)
	// UseCoupon 冻结优惠券并返回优惠金额
	UseCoupon(ctx context.Context, req CouponRequest) (decimal.Decimal, error)
	// CancelCoupon 是 UseCoupon 的补偿操作
	CancelCoupon(ctx context.Context, req CouponRequest) error
}
