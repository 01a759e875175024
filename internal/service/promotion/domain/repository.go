package domain

import "context"

// CouponRepository 定义了优惠券数据的持久化接口
type CouponRepository interface {
	FindByCode(ctx context.Context, code string) (*UserCoupon, error)
	// Save 只在数据库中的状态仍为 expected 时写入，否则返回 ErrCouponStatusInvalid
	Save(ctx context.Context, coupon *UserCoupon, expected UserCouponStatus) error
}

// RuleEngine 评估模板上的附加规则
type RuleEngine interface {
	Evaluate(expression string, fact Fact) (bool, error)
}
