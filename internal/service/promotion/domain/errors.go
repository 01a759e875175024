package domain

import "github.com/pkg/errors"

// 优惠券相关的领域错误
var (
	ErrCouponNotFound      = errors.New("coupon not found")
	ErrCouponExpired       = errors.New("coupon has expired")
	ErrCouponAlreadyUsed   = errors.New("coupon has already been used")
	ErrCouponNotOwned      = errors.New("coupon does not belong to user")
	ErrCouponNotApplicable = errors.New("coupon is not applicable to this order")
	ErrThresholdNotMet     = errors.New("order subtotal below coupon threshold")
	ErrCouponStatusInvalid = errors.New("coupon status does not allow this operation")
)
