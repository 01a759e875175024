// internal/service/promotion/domain/coupon.go
package domain

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// UserCouponStatus 定义了用户优惠券的生命周期状态。
// FROZEN 是下单流程的中间态：下单时冻结，支付后核销，订单失败或取消时解冻。
type UserCouponStatus string

const (
	StatusUnused  UserCouponStatus = "UNUSED"  // 未使用
	StatusFrozen  UserCouponStatus = "FROZEN"  // 冻结中（下单但未支付）
	StatusUsed    UserCouponStatus = "USED"    // 已使用
	StatusExpired UserCouponStatus = "EXPIRED" // 已过期
)

// Fact 是评估优惠券是否可用时的订单信息
type Fact struct {
	UserID    string
	Subtotal  decimal.Decimal
	ShopIDs   []string
	ItemCount int
}

// UserCoupon 代表一个用户持有的一张具体的优惠券实例
type UserCoupon struct {
	ID         int64
	CouponCode string
	UserID     string
	Status     UserCouponStatus
	OrderID    string
	ValidFrom  time.Time
	ValidTo    time.Time
	UsedAt     *time.Time
	Template   *CouponTemplate
}

// CanUse 校验优惠券能否用于该订单，可用时返回优惠金额。rules 为 nil 时忽略模板上的表达式。
func (uc *UserCoupon) CanUse(fact Fact, now time.Time, rules RuleEngine) (decimal.Decimal, error) {
	switch uc.Status {
	case StatusUnused:
	case StatusFrozen, StatusUsed:
		return decimal.Zero, ErrCouponAlreadyUsed
	case StatusExpired:
		return decimal.Zero, ErrCouponExpired
	default:
		return decimal.Zero, ErrCouponStatusInvalid
	}
	if uc.UserID != fact.UserID {
		return decimal.Zero, ErrCouponNotOwned
	}
	if now.Before(uc.ValidFrom) || (!uc.ValidTo.IsZero() && !now.Before(uc.ValidTo)) {
		return decimal.Zero, ErrCouponExpired
	}

	t := uc.Template
	if t == nil {
		return decimal.Zero, ErrCouponNotApplicable
	}
	if fact.Subtotal.LessThan(t.ThresholdAmount) {
		return decimal.Zero, ErrThresholdNotMet
	}
	if !t.AppliesToShops(fact.ShopIDs) {
		return decimal.Zero, ErrCouponNotApplicable
	}
	if t.RuleExpression != "" && rules != nil {
		ok, err := rules.Evaluate(t.RuleExpression, fact)
		if err != nil {
			return decimal.Zero, errors.Wrapf(err, "evaluate rule of template %s", t.TemplateCode)
		}
		if !ok {
			return decimal.Zero, ErrCouponNotApplicable
		}
	}
	return t.Discount(fact.Subtotal), nil
}

// Freeze 将优惠券冻结给指定订单
func (uc *UserCoupon) Freeze(orderID string) error {
	if uc.Status != StatusUnused {
		return ErrCouponStatusInvalid
	}
	uc.Status = StatusFrozen
	uc.OrderID = orderID
	return nil
}

// Unfreeze 解冻优惠券。已经是未使用状态时直接返回，补偿可以重复执行。
func (uc *UserCoupon) Unfreeze(orderID string) (changed bool, err error) {
	switch uc.Status {
	case StatusUnused:
		return false, nil
	case StatusFrozen:
		if orderID != "" && uc.OrderID != "" && uc.OrderID != orderID {
			return false, ErrCouponStatusInvalid
		}
		uc.Status = StatusUnused
		uc.OrderID = ""
		return true, nil
	default:
		return false, ErrCouponStatusInvalid
	}
}

// Confirm 订单支付后核销优惠券。重复核销同一订单时直接返回。
func (uc *UserCoupon) Confirm(orderID string, now time.Time) (changed bool, err error) {
	switch uc.Status {
	case StatusUsed:
		if orderID == "" || uc.OrderID == orderID {
			return false, nil
		}
		return false, ErrCouponAlreadyUsed
	case StatusFrozen:
		if orderID != "" && uc.OrderID != "" && uc.OrderID != orderID {
			return false, ErrCouponStatusInvalid
		}
		uc.Status = StatusUsed
		uc.UsedAt = &now
		return true, nil
	default:
		return false, ErrCouponStatusInvalid
	}
}
